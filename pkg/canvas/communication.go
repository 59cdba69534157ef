package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AnnouncementParams describe a new announcement.
type AnnouncementParams struct {
	Title   string `validate:"required"`
	Message string `validate:"required"`

	// IsAnnouncement defaults to true.
	IsAnnouncement *bool

	// DelayedPostAt schedules the announcement (ISO 8601). Without it the
	// announcement is published immediately.
	DelayedPostAt string

	Published  *bool
	Attachment json.RawMessage
}

// ListConversations lists the caller's inbox conversations.
func (s *Service) ListConversations(ctx context.Context) ([]Conversation, error) {
	return list[Conversation](ctx, s, "/conversations", nil)
}

// GetConversation fetches a conversation with its messages.
func (s *Service) GetConversation(ctx context.Context, conversationID int64) (*Conversation, error) {
	if err := requireID("conversation_id", conversationID); err != nil {
		return nil, err
	}
	return get[*Conversation](ctx, s, "/conversations/"+itoa(conversationID), nil)
}

// CreateConversation sends a message to recipients (user IDs or context
// codes such as "course_42"). Canvas answers with every conversation the
// message landed in.
func (s *Service) CreateConversation(ctx context.Context, recipients []string, body, subject string) ([]Conversation, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidArgument)
	}
	req := map[string]any{"recipients": recipients, "body": body}
	if subject != "" {
		req["subject"] = subject
	}
	out, err := send[[]Conversation](ctx, s, http.MethodPost, "/conversations", req)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Conversation{}
	}
	return out, nil
}

// DeleteConversation deletes a conversation.
func (s *Service) DeleteConversation(ctx context.Context, conversationID int64) error {
	if err := requireID("conversation_id", conversationID); err != nil {
		return err
	}
	return s.del(ctx, "/conversations/"+itoa(conversationID), nil)
}

// ListNotifications lists the caller's activity stream.
func (s *Service) ListNotifications(ctx context.Context) ([]ActivityItem, error) {
	return list[ActivityItem](ctx, s, "/users/self/activity_stream", nil)
}

// ListDiscussionTopics lists discussion topics of a course.
func (s *Service) ListDiscussionTopics(ctx context.Context, courseID int64) ([]DiscussionTopic, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[DiscussionTopic](ctx, s, fmt.Sprintf("/courses/%d/discussion_topics", courseID), include("assignment"))
}

// GetDiscussionTopic fetches one discussion topic.
func (s *Service) GetDiscussionTopic(ctx context.Context, courseID, topicID int64) (*DiscussionTopic, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("topic_id", topicID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/courses/%d/discussion_topics/%d", courseID, topicID)
	return get[*DiscussionTopic](ctx, s, path, include("assignment"))
}

// PostToDiscussion posts a reply to a discussion topic.
func (s *Service) PostToDiscussion(ctx context.Context, courseID, topicID int64, message string) (*DiscussionEntry, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("topic_id", topicID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}
	path := fmt.Sprintf("/courses/%d/discussion_topics/%d/entries", courseID, topicID)
	return send[*DiscussionEntry](ctx, s, http.MethodPost, path, map[string]any{"message": message})
}

// ListAnnouncements lists the announcements of a course.
func (s *Service) ListAnnouncements(ctx context.Context, courseID int64) ([]DiscussionTopic, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	q := url.Values{"only_announcements": {"true"}}
	return list[DiscussionTopic](ctx, s, fmt.Sprintf("/courses/%d/discussion_topics", courseID), q)
}

// CreateAnnouncement posts an announcement. It is published right away
// unless it is scheduled with DelayedPostAt and Published is not set.
func (s *Service) CreateAnnouncement(ctx context.Context, courseID int64, params AnnouncementParams) (*DiscussionTopic, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	isAnnouncement := true
	if params.IsAnnouncement != nil {
		isAnnouncement = *params.IsAnnouncement
	}

	body := map[string]any{
		"title":           params.Title,
		"message":         params.Message,
		"is_announcement": isAnnouncement,
	}
	if params.DelayedPostAt != "" {
		body["delayed_post_at"] = params.DelayedPostAt
	}
	if len(params.Attachment) > 0 {
		body["attachment"] = params.Attachment
	}
	if (params.Published != nil && *params.Published) || params.DelayedPostAt == "" {
		body["published"] = true
	}

	path := fmt.Sprintf("/courses/%d/discussion_topics", courseID)
	return send[*DiscussionTopic](ctx, s, http.MethodPost, path, body)
}

// DeleteAnnouncement deletes an announcement (a discussion topic).
func (s *Service) DeleteAnnouncement(ctx context.Context, courseID, topicID int64) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	if err := requireID("announcement_id", topicID); err != nil {
		return err
	}
	return s.del(ctx, fmt.Sprintf("/courses/%d/discussion_topics/%d", courseID, topicID), nil)
}
