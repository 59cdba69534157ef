package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type listFilesArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	FolderID int64 `json:"folder_id"`
}

type fileIDArgs struct {
	FileID int64 `json:"file_id" validate:"required"`
}

type uploadFileArgs struct {
	FilePath string `json:"file_path" validate:"required"`
	CourseID int64  `json:"course_id"`
	FolderID int64  `json:"folder_id"`
}

type pageArgs struct {
	CourseID int64  `json:"course_id" validate:"required"`
	PageURL  string `json:"page_url" validate:"required"`
}

type calendarArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type upcomingArgs struct {
	Limit int `json:"limit" validate:"gte=0"`
}

type rubricArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	RubricID int64 `json:"rubric_id" validate:"required"`
}

type moduleArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	ModuleID int64 `json:"module_id" validate:"required"`
}

type moduleItemArgs struct {
	CourseID int64 `json:"course_id" validate:"required"`
	ModuleID int64 `json:"module_id" validate:"required"`
	ItemID   int64 `json:"item_id" validate:"required"`
}

// defaultUpcomingLimit caps upcoming assignment listings when no limit is given.
const defaultUpcomingLimit = 10

func (h *Handler) registerContentTools(s *server.MCPServer) {
	// Files
	register(h, s, mcp.NewTool("canvas_list_files",
		mcp.WithDescription("List files in a course or one of its folders"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("folder_id", mcp.Description("Folder ID")),
	), func(ctx context.Context, a listFilesArgs) (any, error) {
		return h.svc.ListFiles(ctx, a.CourseID, a.FolderID)
	})

	register(h, s, mcp.NewTool("canvas_get_file",
		mcp.WithDescription("Get file metadata"),
		mcp.WithNumber("file_id", mcp.Required(), mcp.Description("File ID")),
	), func(ctx context.Context, a fileIDArgs) (any, error) {
		return h.svc.GetFile(ctx, a.FileID)
	})

	register(h, s, mcp.NewTool("canvas_list_folders",
		mcp.WithDescription("List the folders of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListFolders(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_upload_file_from_path",
		mcp.WithDescription("Upload a local file to a folder, a course, or the caller's files"),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the local file")),
		mcp.WithNumber("course_id", mcp.Description("Course to upload into")),
		mcp.WithNumber("folder_id", mcp.Description("Folder to upload into")),
	), func(ctx context.Context, a uploadFileArgs) (any, error) {
		return h.svc.UploadFileFromPath(ctx, a.FilePath, a.CourseID, a.FolderID)
	})

	// Pages
	register(h, s, mcp.NewTool("canvas_list_pages",
		mcp.WithDescription("List the wiki pages of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListPages(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_page",
		mcp.WithDescription("Get a wiki page by its URL slug"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithString("page_url", mcp.Required(), mcp.Description("Page URL slug")),
	), func(ctx context.Context, a pageArgs) (any, error) {
		return h.svc.GetPage(ctx, a.CourseID, a.PageURL)
	})

	// Calendar
	register(h, s, mcp.NewTool("canvas_list_calendar_events",
		mcp.WithDescription("List calendar events in a date range"),
		mcp.WithString("start_date", mcp.Description("Start date (ISO 8601)")),
		mcp.WithString("end_date", mcp.Description("End date (ISO 8601)")),
	), func(ctx context.Context, a calendarArgs) (any, error) {
		return h.svc.ListCalendarEvents(ctx, a.StartDate, a.EndDate)
	})

	register(h, s, mcp.NewTool("canvas_get_upcoming_assignments",
		mcp.WithDescription("List upcoming assignment events"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of assignments (default 10)")),
	), func(ctx context.Context, a upcomingArgs) (any, error) {
		limit := a.Limit
		if limit == 0 {
			limit = defaultUpcomingLimit
		}
		return h.svc.GetUpcomingAssignments(ctx, limit)
	})

	// Rubrics
	register(h, s, mcp.NewTool("canvas_list_rubrics",
		mcp.WithDescription("List the rubrics of a course"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListRubrics(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_rubric",
		mcp.WithDescription("Get a rubric"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("rubric_id", mcp.Required(), mcp.Description("Rubric ID")),
	), func(ctx context.Context, a rubricArgs) (any, error) {
		return h.svc.GetRubric(ctx, a.CourseID, a.RubricID)
	})

	// Dashboard
	register(h, s, mcp.NewTool("canvas_get_dashboard",
		mcp.WithDescription("Get dashboard cards and upcoming events"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.GetDashboard(ctx)
	})

	register(h, s, mcp.NewTool("canvas_get_dashboard_cards",
		mcp.WithDescription("Get the course cards shown on the dashboard"),
	), func(ctx context.Context, _ noArgs) (any, error) {
		return h.svc.GetDashboardCards(ctx)
	})

	// Modules
	register(h, s, mcp.NewTool("canvas_list_modules",
		mcp.WithDescription("List the modules of a course with their items"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
	), func(ctx context.Context, a courseIDArgs) (any, error) {
		return h.svc.ListModules(ctx, a.CourseID)
	})

	register(h, s, mcp.NewTool("canvas_get_module",
		mcp.WithDescription("Get a module"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("module_id", mcp.Required(), mcp.Description("Module ID")),
	), func(ctx context.Context, a moduleArgs) (any, error) {
		return h.svc.GetModule(ctx, a.CourseID, a.ModuleID)
	})

	register(h, s, mcp.NewTool("canvas_list_module_items",
		mcp.WithDescription("List the items of a module"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("module_id", mcp.Required(), mcp.Description("Module ID")),
	), func(ctx context.Context, a moduleArgs) (any, error) {
		return h.svc.ListModuleItems(ctx, a.CourseID, a.ModuleID)
	})

	register(h, s, mcp.NewTool("canvas_get_module_item",
		mcp.WithDescription("Get a module item"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("module_id", mcp.Required(), mcp.Description("Module ID")),
		mcp.WithNumber("item_id", mcp.Required(), mcp.Description("Module item ID")),
	), func(ctx context.Context, a moduleItemArgs) (any, error) {
		return h.svc.GetModuleItem(ctx, a.CourseID, a.ModuleID, a.ItemID)
	})

	register(h, s, mcp.NewTool("canvas_mark_module_item_complete",
		mcp.WithDescription("Mark a module item as done"),
		mcp.WithNumber("course_id", mcp.Required(), mcp.Description("Course ID")),
		mcp.WithNumber("module_id", mcp.Required(), mcp.Description("Module ID")),
		mcp.WithNumber("item_id", mcp.Required(), mcp.Description("Module item ID")),
	), func(ctx context.Context, a moduleItemArgs) (any, error) {
		if err := h.svc.MarkModuleItemComplete(ctx, a.CourseID, a.ModuleID, a.ItemID); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Module item %d marked as complete", a.ItemID), nil
	})
}
