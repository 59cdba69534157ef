package canvas

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// ListPages lists the wiki pages of a course.
func (s *Service) ListPages(ctx context.Context, courseID int64) ([]Page, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Page](ctx, s, fmt.Sprintf("/courses/%d/pages", courseID), nil)
}

// GetPage fetches a wiki page by its URL slug.
func (s *Service) GetPage(ctx context.Context, courseID int64, pageURL string) (*Page, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if pageURL == "" {
		return nil, fmt.Errorf("%w: page_url is required", ErrInvalidArgument)
	}
	path := fmt.Sprintf("/courses/%d/pages/%s", courseID, url.PathEscape(pageURL))
	return get[*Page](ctx, s, path, nil)
}

// ListCalendarEvents lists the caller's calendar events in an optional
// date range (ISO 8601 dates).
func (s *Service) ListCalendarEvents(ctx context.Context, startDate, endDate string) ([]CalendarEvent, error) {
	q := url.Values{}
	q.Set("type", "event")
	q.Set("all_events", "true")
	setString(q, "start_date", startDate)
	setString(q, "end_date", endDate)
	return list[CalendarEvent](ctx, s, "/calendar_events", q)
}

// GetUpcomingAssignments returns the caller's upcoming events that belong
// to an assignment. A positive limit caps the number Canvas returns.
func (s *Service) GetUpcomingAssignments(ctx context.Context, limit int) ([]CalendarEvent, error) {
	events, err := s.upcomingEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.Assignment != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Service) upcomingEvents(ctx context.Context, limit int) ([]CalendarEvent, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	return list[CalendarEvent](ctx, s, "/users/self/upcoming_events", q)
}

// ListRubrics lists the rubrics of a course.
func (s *Service) ListRubrics(ctx context.Context, courseID int64) ([]Rubric, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Rubric](ctx, s, fmt.Sprintf("/courses/%d/rubrics", courseID), nil)
}

// GetRubric fetches one rubric.
func (s *Service) GetRubric(ctx context.Context, courseID, rubricID int64) (*Rubric, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("rubric_id", rubricID); err != nil {
		return nil, err
	}
	return get[*Rubric](ctx, s, fmt.Sprintf("/courses/%d/rubrics/%d", courseID, rubricID), nil)
}

// GetDashboardCards lists the course cards of the caller's dashboard.
func (s *Service) GetDashboardCards(ctx context.Context) ([]DashboardCard, error) {
	return list[DashboardCard](ctx, s, "/dashboard/dashboard_cards", nil)
}

// GetDashboard fetches dashboard cards and upcoming events concurrently.
func (s *Service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cards, err := s.GetDashboardCards(gctx)
		if err != nil {
			return fmt.Errorf("dashboard cards: %w", err)
		}
		d.Cards = cards
		return nil
	})
	g.Go(func() error {
		events, err := s.upcomingEvents(gctx, 0)
		if err != nil {
			return fmt.Errorf("upcoming events: %w", err)
		}
		d.Upcoming = events
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
