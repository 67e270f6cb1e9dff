// Package calendar builds calendar events from normalized sessions and
// publishes them through a Calendar backend without creating duplicates.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

// PrimaryFallbackID is used when the account lists no calendars at all
const PrimaryFallbackID = "primary"

var ErrNoCalendar = errors.New("no calendar available")

// Info describes one calendar of the account
type Info struct {
	ID      string
	Summary string
	Primary bool
}

// Event is a calendar entry for one session
type Event struct {
	ID        string
	Summary   string
	Start     time.Time
	End       time.Time
	TimeZone  string
	Reminders []int
	ColorID   string
}

// Calendar is the calendar service handle shared by a run
type Calendar interface {
	ListCalendars(ctx context.Context) ([]Info, error)
	// FindEvents returns events overlapping [from, to) whose text matches query
	FindEvents(ctx context.Context, calendarID, query string, from, to time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error)
}

// PrimaryCalendar picks the calendar flagged as primary, falling back to the
// first listed calendar and finally to the "primary" alias
func PrimaryCalendar(ctx context.Context, cal Calendar) (Info, error) {
	calendars, err := cal.ListCalendars(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("listing calendars: %w", err)
	}

	for _, c := range calendars {
		if c.Primary {
			return c, nil
		}
	}

	if len(calendars) > 0 {
		logger.Warn("No primary calendar found, using the first available one", logger.Fields{
			"calendar_id": calendars[0].ID,
		})
		return calendars[0], nil
	}

	logger.Warn("No calendars listed, using the primary alias", nil)
	return Info{ID: PrimaryFallbackID, Summary: PrimaryFallbackID}, nil
}

// Template holds the fixed parts of every created event
type Template struct {
	SummaryPrefix   string
	RaceSession     string
	ReminderMinutes []int
	ColorID         string
}

// DefaultTemplate returns popup reminders 12h, 30m and 10m before start in tomato red
func DefaultTemplate() Template {
	return Template{
		SummaryPrefix:   "F1",
		RaceSession:     "Race",
		ReminderMinutes: []int{720, 30, 10},
		ColorID:         "11",
	}
}

// Summary formats the event title for a session
func (t Template) Summary(s session.Session) string {
	title := fmt.Sprintf("%s - %s", s.Name, s.GrandPrix)
	if t.SummaryPrefix == "" {
		return title
	}
	return fmt.Sprintf("%s: %s", t.SummaryPrefix, title)
}

// Duration is two hours for the race and one hour for every other session
func (t Template) Duration(s session.Session) time.Duration {
	if t.RaceSession != "" && strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(t.RaceSession)) {
		return 2 * time.Hour
	}
	return time.Hour
}

// Build creates the event for a session in the given timezone
func (t Template) Build(s session.Session, timezone string) Event {
	return Event{
		Summary:   t.Summary(s),
		Start:     s.Start,
		End:       s.Start.Add(t.Duration(s)),
		TimeZone:  timezone,
		Reminders: append([]int(nil), t.ReminderMinutes...),
		ColorID:   t.ColorID,
	}
}
