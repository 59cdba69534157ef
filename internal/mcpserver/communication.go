package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type conversationArgs struct {
	ConversationID int64 `json:"conversation_id" validate:"required"`
}

type createConversationArgs struct {
	Recipients []canvas.ID `json:"recipients" validate:"required,min=1"`
	Body       string      `json:"body" validate:"required"`
	Subject    string      `json:"subject"`
}

type topicArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	TopicID  int64 `json:"topic_id" validate:"required"`
}

type postDiscussionArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	TopicID  int64  `json:"topic_id" validate:"required"`
	Message  string `json:"message" validate:"required"`
}

type createAnnouncementArgs struct {
	CourseID       int64           `json:"course_id" validate:"required"`
	Title          string          `json:"title" validate:"required"`
	Message        string          `json:"message" validate:"required"`
	IsAnnouncement *bool           `json:"is_announcement"`
	Published      *bool           `json:"published"`
	DelayedPostAt  string          `json:"delayed_post_at"`
	Attachment     json.RawMessage `json:"attachment"`
}

type announcementArgs struct {
	CourseID       int64 `json:"course_id" validate:"required"`
	AnnouncementID int64 `json:"announcement_id" validate:"required"`
}

func (h *Handler) registerCommunicationTools(s *server.MCPServer) {
	// Conversations
	register(h, s, mcp.NewTool("canvas_list_conversations",
		mcp.WithDescription("List the caller's inbox conversations"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.ListConversations(ctx)
	})

	register(h, s, mcp.NewTool("canvas_get_conversation",
		mcp.WithDescription("Get a conversation with its messages"),
		mcp.WithNumber("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
	), func(ctx context.Context, a conversationArgs) (any, error) {
		return h.svc.GetConversation(ctx, a.ConversationID)
	})

	register(h, s, mcp.NewTool("canvas_create_conversation",
		mcp.WithDescription("Send a message to users or course groups"),
		mcp.WithArray("recipients", mcp.Required(), mcp.Description("Recipient user IDs or context codes"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("body", mcp.Required(), mcp.Description("Message body")),
		mcp.WithString("subject", mcp.Description("Message subject")),
	), func(ctx context.Context, a createConversationArgs) (any, error) {
		recipients := make([]string, len(a.Recipients))
		for i, r := range a.Recipients {
			recipients[i] = string(r)
		}
		return h.svc.CreateConversation(ctx, recipients, a.Body, a.Subject)
	})

	register(h, s, mcp.NewTool("canvas_delete_conversation",
		mcp.WithDescription("Delete a conversation"),
		mcp.WithNumber("conversation_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a conversationArgs) (any, error) {
		if err := h.svc.DeleteConversation(ctx, a.ConversationID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully deleted conversation %d", a.ConversationID), nil
	})

	register(h, s, mcp.NewTool("canvas_list_notifications",
		mcp.WithDescription("List recent activity stream notifications"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.ListNotifications(ctx)
	})

	// Discussions
	register(h, s, mcp.NewTool("canvas_list_discussion_topics",
		mcp.WithDescription("List the discussion topics of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListDiscussionTopics(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_discussion_topic",
		mcp.WithDescription("Get a discussion topic"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("topic_id", mcp.Required(), mcp.Description("Discussion topic ID")),
	), func(ctx context.Context, a topicArgs) (any, error) {
		return h.svc.GetDiscussionTopic(ctx, a.CourseID, a.TopicID)
	})

	register(h, s, mcp.NewTool("canvas_post_to_discussion",
		mcp.WithDescription("Post an entry to a discussion topic"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("topic_id", mcp.Required(), mcp.Description("Discussion topic ID")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Entry text")),
	), func(ctx context.Context, a postDiscussionArgs) (any, error) {
		return h.svc.PostToDiscussion(ctx, a.CourseID, a.TopicID, a.Message)
	})

	// Announcements
	register(h, s, mcp.NewTool("canvas_list_announcements",
		mcp.WithDescription("List the announcements of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListAnnouncements(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_create_announcement",
		mcp.WithDescription("Create an announcement; published immediately unless delayed"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Announcement title")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Announcement body (HTML)")),
		mcp.WithBoolean("is_announcement", mcp.Description("Post as announcement (default true)")),
		mcp.WithBoolean("published", mcp.Description("Publish immediately")),
		mcp.WithString("delayed_post_at", mcp.Description("Scheduled publication time (ISO 8601)")),
		mcp.WithObject("attachment", mcp.Description("Optional attachment")),
	), func(ctx context.Context, a createAnnouncementArgs) (any, error) {
		return h.svc.CreateAnnouncement(ctx, a.CourseID, canvas.AnnouncementParams{
			Title:          a.Title,
			Message:        a.Message,
			IsAnnouncement: a.IsAnnouncement,
			DelayedPostAt:  a.DelayedPostAt,
			Published:      a.Published,
			Attachment:     a.Attachment,
		})
	})

	register(h, s, mcp.NewTool("canvas_delete_announcement",
		mcp.WithDescription("Delete an announcement"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("announcement_id", mcp.Required(), mcp.Description("Announcement ID")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, a announcementArgs) (any, error) {
		if err := h.svc.DeleteAnnouncement(ctx, a.CourseID, a.AnnouncementID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Successfully deleted announcement %d from course %d", a.AnnouncementID, a.CourseID), nil
	})
}
