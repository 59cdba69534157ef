package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const jsonMIME = "application/json"

// resourceFunc loads the content of a resource.
type resourceFunc func(ctx context.Context) (any, error)

// courseResourceFunc loads the content of a per-course resource.
type courseResourceFunc func(ctx context.Context, courseID int64) (any, error)

// CourseOverview bundles a course with its modules and assignments.
type CourseOverview struct {
	Course      *canvas.Course      `json:"course"`
	Modules     []canvas.Module     `json:"modules"`
	Assignments []canvas.Assignment `json:"assignments"`
}

// RegisterResources adds the static resources and per-course templates.
func (h *Handler) RegisterResources(s *server.MCPServer) {
	static := []struct {
		uri, name, desc string
		load            resourceFunc
	}{
		{"canvas://health", "Canvas Health Status", "Health check and API connectivity status",
			func(ctx context.Context) (any, error) { return h.svc.HealthCheck(ctx), nil }},
		{"courses://list", "All Courses", "List of all available Canvas courses",
			func(ctx context.Context) (any, error) { return h.svc.ListCourses(ctx, false) }},
		{"dashboard://user", "User Dashboard", "User's Canvas dashboard information",
			func(ctx context.Context) (any, error) { return h.svc.GetDashboard(ctx) }},
		{"profile://user", "User Profile", "Current user's profile information",
			func(ctx context.Context) (any, error) { return h.svc.GetUserProfile(ctx) }},
		{"calendar://upcoming", "Upcoming Events", "Upcoming assignments and events",
			func(ctx context.Context) (any, error) { return h.svc.GetUpcomingAssignments(ctx, defaultUpcomingLimit) }},
	}
	for _, r := range static {
		s.AddResource(
			mcp.NewResource(r.uri, r.name,
				mcp.WithResourceDescription(r.desc),
				mcp.WithMIMEType(jsonMIME),
			),
			h.staticResource(r.uri, r.load),
		)
	}

	templates := []struct {
		tmpl, name, desc string
		load             courseResourceFunc
	}{
		{"course://{id}", "Course", "A course with sections and syllabus",
			func(ctx context.Context, id int64) (any, error) { return h.svc.GetCourse(ctx, id) }},
		{"assignments://{id}", "Assignments", "Assignments of a course with the caller's submissions",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListAssignments(ctx, id, true) }},
		{"modules://{id}", "Modules", "Modules of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListModules(ctx, id) }},
		{"discussions://{id}", "Discussions", "Discussion topics of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListDiscussionTopics(ctx, id) }},
		{"announcements://{id}", "Announcements", "Announcements of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListAnnouncements(ctx, id) }},
		{"quizzes://{id}", "Quizzes", "Quizzes of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListQuizzes(ctx, id) }},
		{"pages://{id}", "Pages", "Wiki pages of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListPages(ctx, id) }},
		{"files://{id}", "Files", "Files of a course",
			func(ctx context.Context, id int64) (any, error) { return h.svc.ListFiles(ctx, id, 0) }},
		{"canvas://courses/{id}/overview", "Course Overview", "A course with its modules and assignments",
			h.courseOverview},
	}
	for _, t := range templates {
		s.AddResourceTemplate(
			mcp.NewResourceTemplate(t.tmpl, t.name,
				mcp.WithTemplateDescription(t.desc),
				mcp.WithTemplateMIMEType(jsonMIME),
			),
			h.courseResource(t.load),
		)
	}
}

func (h *Handler) staticResource(uri string, load resourceFunc) server.ResourceHandlerFunc {
	kind := resourceKind(uri)
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		v, err := load(ctx)
		return h.resourceContents(kind, req.Params.URI, v, err), nil
	}
}

func (h *Handler) courseResource(load courseResourceFunc) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := req.Params.URI
		kind := resourceKind(uri)
		id, err := courseIDFromURI(uri)
		if err != nil {
			return h.resourceContents(kind, uri, nil, err), nil
		}
		v, err := load(ctx, id)
		return h.resourceContents(kind, uri, v, err), nil
	}
}

// resourceContents renders v, or err as a JSON error object, as the single
// content item of a resource read.
func (h *Handler) resourceContents(kind, uri string, v any, err error) []mcp.ResourceContents {
	if err != nil {
		resourceReads.WithLabelValues(kind, outcomeError).Inc()
		h.logger.Error().Err(err).Str("uri", uri).Msg("Failed to read resource")
		v = map[string]string{"error": err.Error()}
	} else {
		resourceReads.WithLabelValues(kind, outcomeSuccess).Inc()
	}

	b, merr := json.MarshalIndent(v, "", "  ")
	if merr != nil {
		b, _ = json.Marshal(map[string]string{"error": merr.Error()})
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIME,
			Text:     string(b),
		},
	}
}

// courseOverview fetches a course, its modules and its assignments in
// parallel. Any failure fails the whole overview.
func (h *Handler) courseOverview(ctx context.Context, courseID int64) (any, error) {
	var out CourseOverview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := h.svc.GetCourse(ctx, courseID)
		out.Course = c
		return err
	})
	g.Go(func() error {
		m, err := h.svc.ListModules(ctx, courseID)
		out.Modules = m
		return err
	})
	g.Go(func() error {
		a, err := h.svc.ListAssignments(ctx, courseID, false)
		out.Assignments = a
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// resourceKind is the scheme of uri, or "overview" for course overviews.
func resourceKind(uri string) string {
	scheme, rest, _ := strings.Cut(uri, "://")
	if scheme == "canvas" && strings.HasSuffix(rest, "/overview") {
		return "overview"
	}
	return scheme
}

// courseIDFromURI extracts the course ID of "kind://{id}" and
// "canvas://courses/{id}/overview".
func courseIDFromURI(uri string) (int64, error) {
	_, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return 0, fmt.Errorf("invalid resource URI %q", uri)
	}
	if inner, found := strings.CutPrefix(rest, "courses/"); found {
		rest = strings.TrimSuffix(inner, "/overview")
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid course ID in resource URI %q", uri)
	}
	return id, nil
}
