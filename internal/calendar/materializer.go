package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

// DuplicateWindow is the span after a start instant searched for an existing event
const DuplicateWindow = time.Minute

// Outcome is what happened to a session handed to the materializer
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeDryRun    Outcome = "dry-run"
)

// EventExists reports whether calendarID already holds an event matching
// summary that starts within DuplicateWindow of start
func EventExists(ctx context.Context, cal Calendar, calendarID, summary string, start time.Time) (bool, error) {
	events, err := cal.FindEvents(ctx, calendarID, summary, start, start.Add(DuplicateWindow))
	if err != nil {
		return false, fmt.Errorf("checking for duplicates: %w", err)
	}
	return len(events) > 0, nil
}

// Materializer creates calendar events for sessions in the primary calendar
type Materializer struct {
	cal      Calendar
	template Template
	target   *Info
}

// NewMaterializer creates a Materializer writing through cal
func NewMaterializer(cal Calendar, template Template) *Materializer {
	return &Materializer{
		cal:      cal,
		template: template,
	}
}

// Target resolves the destination calendar. It is looked up once and reused
// for the lifetime of the materializer.
func (m *Materializer) Target(ctx context.Context) (Info, error) {
	if m.target != nil {
		return *m.target, nil
	}

	info, err := PrimaryCalendar(ctx, m.cal)
	if err != nil {
		return Info{}, err
	}
	m.target = &info
	return info, nil
}

// Materialize creates the event for s unless an identical one already exists.
// A duplicate is reported through the outcome, never as an error.
func (m *Materializer) Materialize(ctx context.Context, s session.Session, timezone string) (Outcome, error) {
	target, err := m.Target(ctx)
	if err != nil {
		return "", err
	}

	event := m.template.Build(s, timezone)
	fields := logger.Fields{
		"calendar_id": target.ID,
		"summary":     event.Summary,
		"start":       event.Start.Format("2006-01-02 15:04"),
	}

	exists, err := EventExists(ctx, m.cal, target.ID, event.Summary, event.Start)
	if err != nil {
		return "", err
	}
	if exists {
		logger.Info("Skipping duplicate", fields)
		logger.IncrCounter("sessions.duplicate")
		return OutcomeDuplicate, nil
	}

	created, err := m.cal.InsertEvent(ctx, target.ID, event)
	if err != nil {
		return "", fmt.Errorf("creating event %q: %w", event.Summary, err)
	}

	fields["event_id"] = created.ID
	logger.Info("Added to calendar", fields)
	logger.IncrCounter("sessions.created")
	return OutcomeCreated, nil
}
