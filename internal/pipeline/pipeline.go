package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/pfrederiksen/f1-calendar/internal/clock"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

// ScheduleSource returns the scraped schedule for a city
type ScheduleSource interface {
	FetchSchedule(ctx context.Context, city string) (*session.Schedule, error)
}

// SessionResult is one parsed session and what happened to it
type SessionResult struct {
	session.Session
	Outcome calendar.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Failure is an entry whose time text could not be parsed
type Failure struct {
	Session string `json:"session"`
	Raw     string `json:"raw"`
	Error   string `json:"error"`
}

// Report summarizes one run for one city
type Report struct {
	City          string          `json:"city"`
	TimeZone      string          `json:"timezone"`
	GrandPrix     string          `json:"grand_prix,omitempty"`
	CheckedAt     time.Time       `json:"checked_at"`
	CityFound     bool            `json:"city_found"`
	Sessions      []SessionResult `json:"sessions"`
	Failures      []Failure       `json:"failures,omitempty"`
	Parsed        int             `json:"parsed"`
	Failed        int             `json:"failed"`
	Created       int             `json:"created"`
	Duplicates    int             `json:"duplicates"`
	PublishErrors int             `json:"publish_errors"`
}

// Driver runs scan, normalize and publish for one city
type Driver struct {
	Source     ScheduleSource
	Normalizer *session.Normalizer
	Publisher  Publisher
	Clock      clock.Clock
	Location   *time.Location
	Out        io.Writer
}

// Run processes every session of city. Parse and publish failures are
// recorded in the report and never stop the run; only a failed fetch or a
// canceled context is returned as an error.
func (d *Driver) Run(ctx context.Context, city string) (*Report, error) {
	out := d.Out
	if out == nil {
		out = io.Discard
	}
	now := d.Clock.Now().In(d.Location)

	report := &Report{
		City:      city,
		TimeZone:  d.Location.String(),
		CheckedAt: now,
		Sessions:  []SessionResult{},
	}

	schedule, err := d.Source.FetchSchedule(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}

	if schedule.Empty() {
		logger.Warn("City not found in the schedule", logger.Fields{"city": city})
		fmt.Fprintf(out, "No events to process: city %q not found in the schedule.\n", city)
		return report, nil
	}

	report.CityFound = true
	report.GrandPrix = schedule.GrandPrix
	fmt.Fprintf(out, "Detected Grand Prix: %s\n", schedule.GrandPrix)

	for _, result := range d.Normalizer.NormalizeAll(schedule, now) {
		if !result.OK() {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				Session: result.Entry.Name,
				Raw:     result.Entry.RawTime,
				Error:   errorText(result.Err),
			})
			logger.IncrCounter("sessions.failed")
			logger.Warn("Failed to parse session time", logger.Fields{
				"session": result.Entry.Name,
				"raw":     result.Entry.RawTime,
				"error":   errorText(result.Err),
			})
			fmt.Fprintf(out, "Failed to parse '%s - %s': %s\n", result.Entry.Name, result.Entry.RawTime, errorText(result.Err))
			continue
		}

		s := *result.Session
		report.Parsed++
		logger.IncrCounter("sessions.parsed")
		fmt.Fprintf(out, "- %s\n", s.Label())

		outcome, err := d.Publisher.Publish(ctx, s)
		entry := SessionResult{Session: s, Outcome: outcome}
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return report, err
		case err != nil:
			report.PublishErrors++
			entry.Error = err.Error()
			logger.IncrCounter("sessions.publish_error")
			logger.Error("Failed to publish session", logger.Fields{"session": s.Name}, err)
			fmt.Fprintf(out, "  Could not add %s: %v\n", s.Name, err)
		case outcome == calendar.OutcomeCreated:
			report.Created++
			fmt.Fprintf(out, "  Added to calendar\n")
		case outcome == calendar.OutcomeDuplicate:
			report.Duplicates++
			fmt.Fprintf(out, "  Already in calendar, skipping\n")
		}
		report.Sessions = append(report.Sessions, entry)
	}

	logger.Info("Run complete", logger.Fields{
		"city":           city,
		"parsed":         report.Parsed,
		"failed":         report.Failed,
		"created":        report.Created,
		"duplicates":     report.Duplicates,
		"publish_errors": report.PublishErrors,
	})
	return report, nil
}

// errorText returns the underlying cause of a parse error
func errorText(err error) string {
	var parseErr *session.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Err.Error()
	}
	if err == nil {
		return "no session produced"
	}
	return err.Error()
}
