package calendar

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StubCalendar is an in-memory Calendar that counts the calls made to it
type StubCalendar struct {
	Calendars []Info
	ListErr   error
	FindErr   error
	InsertErr error

	ListCalls   int
	FindCalls   int
	InsertCalls int

	data map[string][]Event
}

func NewStubCalendar(calendars ...Info) *StubCalendar {
	return &StubCalendar{
		Calendars: calendars,
		data:      map[string][]Event{},
	}
}

// Calls returns the total number of calls made to the stub
func (c *StubCalendar) Calls() int {
	return c.ListCalls + c.FindCalls + c.InsertCalls
}

// Events returns the stored events of a calendar ordered by start
func (c *StubCalendar) Events(calendarID string) []Event {
	events := append([]Event(nil), c.data[calendarID]...)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func (c *StubCalendar) ListCalendars(_ context.Context) ([]Info, error) {
	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	return c.Calendars, nil
}

func (c *StubCalendar) FindEvents(_ context.Context, calendarID, query string, from, to time.Time) ([]Event, error) {
	c.FindCalls++
	if c.FindErr != nil {
		return nil, c.FindErr
	}

	var events []Event
	for _, e := range c.data[calendarID] {
		if e.Start.Before(to) && e.End.After(from) && strings.Contains(strings.ToLower(e.Summary), strings.ToLower(query)) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (c *StubCalendar) InsertEvent(_ context.Context, calendarID string, event Event) (Event, error) {
	c.InsertCalls++
	if c.InsertErr != nil {
		return Event{}, c.InsertErr
	}

	event.ID = uuid.NewString()
	c.data[calendarID] = append(c.data[calendarID], event)
	return event, nil
}
