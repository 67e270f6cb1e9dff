package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const reminderMethod = "popup"

// Calendar implements calendar.Calendar on the Google Calendar v3 API
type Calendar struct {
	service *gcal.Service
}

// NewCalendar creates a Calendar using an authorized HTTP client
func NewCalendar(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Calendar, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return &Calendar{service: service}, nil
}

func (c *Calendar) ListCalendars(ctx context.Context) ([]calendar.Info, error) {
	start := time.Now()
	defer func() {
		logger.RecordTiming("google.list_calendars", time.Since(start))
	}()

	var infos []calendar.Info
	err := c.service.CalendarList.List().Pages(ctx, func(list *gcal.CalendarList) error {
		for _, item := range list.Items {
			infos = append(infos, calendar.Info{
				ID:      item.Id,
				Summary: item.Summary,
				Primary: item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Listed calendars", logger.Fields{"count": len(infos)})
	return infos, nil
}

func (c *Calendar) FindEvents(ctx context.Context, calendarID, query string, from, to time.Time) ([]calendar.Event, error) {
	call := c.service.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if query != "" {
		call = call.Q(query)
	}

	list, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(list.Items))
	for _, item := range list.Items {
		e, err := eventFromAPI(item)
		if err != nil {
			logger.Debug("Skipping event without usable times", logger.Fields{
				"event_id": item.Id,
				"error":    err.Error(),
			})
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *Calendar) InsertEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	start := time.Now()
	defer func() {
		logger.RecordTiming("google.insert_event", time.Since(start))
	}()

	created, err := c.service.Events.Insert(calendarID, eventToAPI(event)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, err
	}

	event.ID = created.Id
	return event, nil
}

func eventToAPI(event calendar.Event) *gcal.Event {
	overrides := make([]*gcal.EventReminder, 0, len(event.Reminders))
	for _, minutes := range event.Reminders {
		overrides = append(overrides, &gcal.EventReminder{
			Method:  reminderMethod,
			Minutes: int64(minutes),
		})
	}

	return &gcal.Event{
		Summary: event.Summary,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
		ColorId: event.ColorID,
	}
}

func eventFromAPI(item *gcal.Event) (calendar.Event, error) {
	if item.Start == nil || item.Start.DateTime == "" {
		return calendar.Event{}, fmt.Errorf("event %s has no start time", item.Id)
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("parsing start time: %w", err)
	}

	end := start
	if item.End != nil && item.End.DateTime != "" {
		if end, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
			return calendar.Event{}, fmt.Errorf("parsing end time: %w", err)
		}
	}

	e := calendar.Event{
		ID:      item.Id,
		Summary: item.Summary,
		Start:   start,
		End:     end,
		ColorID: item.ColorId,
	}
	if item.Start.TimeZone != "" {
		e.TimeZone = item.Start.TimeZone
	}
	if item.Reminders != nil {
		for _, r := range item.Reminders.Overrides {
			e.Reminders = append(e.Reminders, int(r.Minutes))
		}
	}
	return e, nil
}
