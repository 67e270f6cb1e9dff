package calendar

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const (
	icsProductID   = "-//f1-calendar//f1-calendar//ES"
	icsCalNameProp = "X-WR-CALNAME"
	icsColorProp   = "COLOR"
)

var icsUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// ICSCalendar is a Calendar backed by a local iCalendar file. The file is
// its only calendar and is rewritten after every insert.
type ICSCalendar struct {
	path string
	name string
	cal  *ics.Calendar
}

// OpenICS loads the calendar file at path, or starts a new calendar named
// name when the file does not exist yet
func OpenICS(path, name string) (*ICSCalendar, error) {
	c := &ICSCalendar{path: path, name: name}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		c.cal = ics.NewCalendar()
		c.cal.SetMethod(ics.MethodPublish)
		c.cal.SetProductId(icsProductID)
		c.cal.SetXWRCalName(name)
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("reading calendar file: %w", err)
	}

	c.cal, err = ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing calendar file %s: %w", path, err)
	}
	for _, p := range c.cal.CalendarProperties {
		if p.IANAToken == icsCalNameProp && p.Value != "" {
			c.name = icsUnescaper.Replace(p.Value)
		}
	}
	return c, nil
}

// Path returns the calendar file location
func (c *ICSCalendar) Path() string {
	return c.path
}

func (c *ICSCalendar) ListCalendars(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Info{{ID: c.path, Summary: c.name, Primary: true}}, nil
}

func (c *ICSCalendar) FindEvents(ctx context.Context, calendarID, query string, from, to time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if calendarID != c.path {
		return nil, fmt.Errorf("%w: %s", ErrNoCalendar, calendarID)
	}

	query = strings.ToLower(query)
	var events []Event
	for _, ve := range c.cal.Events() {
		e, err := eventFromICS(ve)
		if err != nil {
			continue
		}
		if e.Start.Before(to) && e.End.After(from) && strings.Contains(strings.ToLower(e.Summary), query) {
			events = append(events, e)
		}
	}
	return events, nil
}

func (c *ICSCalendar) InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if calendarID != c.path {
		return Event{}, fmt.Errorf("%w: %s", ErrNoCalendar, calendarID)
	}

	event.ID = eventUID(event)
	now := time.Now()

	ve := c.cal.AddEvent(event.ID)
	ve.SetCreatedTime(now)
	ve.SetDtStampTime(now)
	ve.SetModifiedAt(now)
	ve.SetStartAt(event.Start)
	ve.SetEndAt(event.End)
	ve.SetSummary(event.Summary)
	if event.TimeZone != "" {
		ve.SetDescription(fmt.Sprintf("Timezone: %s", event.TimeZone))
	}
	if event.ColorID != "" {
		ve.SetProperty(ics.ComponentProperty(icsColorProp), event.ColorID)
	}
	for _, minutes := range event.Reminders {
		alarm := ve.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", minutes))
		alarm.SetProperty(ics.ComponentPropertyDescription, event.Summary)
	}

	if err := c.save(); err != nil {
		return Event{}, err
	}
	return event, nil
}

// save writes the calendar to a temporary file and renames it into place
func (c *ICSCalendar) save() error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".f1-calendar-*.ics")
	if err != nil {
		return fmt.Errorf("creating calendar file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if err := c.cal.SerializeTo(tmp); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("writing calendar file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing calendar file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing calendar file: %w", err)
	}
	return nil
}

func eventFromICS(ve *ics.VEvent) (Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return Event{}, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start
	}

	e := Event{Start: start, End: end}
	if p := ve.GetProperty(ics.ComponentPropertyUniqueId); p != nil {
		e.ID = p.Value
	}
	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
		e.Summary = icsUnescaper.Replace(p.Value)
	}
	if p := ve.GetProperty(ics.ComponentProperty(icsColorProp)); p != nil {
		e.ColorID = p.Value
	}
	return e, nil
}

// eventUID is stable for a summary and start so re-exports keep their identity
func eventUID(event Event) string {
	key := event.Summary + "|" + event.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@f1-calendar"
}
