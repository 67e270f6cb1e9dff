package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type fakeAPI struct {
	listQuery url.Values
	inserted  *gcal.Event
	failWith  int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.failWith != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failWith)
		w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`)) // nolint:errcheck
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/users/me/calendarList"):
		w.Write([]byte(`{"items":[{"id":"work@example.com","summary":"Work"},{"id":"me@example.com","summary":"Me","primary":true}]}`)) // nolint:errcheck
	case strings.HasSuffix(r.URL.Path, "/events") && r.Method == http.MethodGet:
		f.listQuery = r.URL.Query()
		w.Write([]byte(`{"items":[` + // nolint:errcheck
			`{"id":"evt1","summary":"F1: Race - Gran Premio","colorId":"11",` +
			`"start":{"dateTime":"2025-10-26T14:00:00-05:00","timeZone":"America/Bogota"},` +
			`"end":{"dateTime":"2025-10-26T16:00:00-05:00","timeZone":"America/Bogota"},` +
			`"reminders":{"useDefault":false,"overrides":[{"method":"popup","minutes":720}]}},` +
			`{"id":"allday","summary":"F1: Race - Gran Premio","start":{"date":"2025-10-26"},"end":{"date":"2025-10-27"}}` +
			`]}`))
	case strings.HasSuffix(r.URL.Path, "/events") && r.Method == http.MethodPost:
		var event gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.inserted = &event
		w.Write([]byte(`{"id":"created123"}`)) // nolint:errcheck
	default:
		http.NotFound(w, r)
	}
}

func newTestCalendar(t *testing.T, api *fakeAPI) *Calendar {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cal, err := NewCalendar(context.Background(), server.Client(), option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)
	return cal
}

func TestCalendar_ListCalendars(t *testing.T) {
	cal := newTestCalendar(t, &fakeAPI{})

	infos, err := cal.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, calendar.Info{ID: "work@example.com", Summary: "Work"}, infos[0])
	assert.True(t, infos[1].Primary)

	primary, err := calendar.PrimaryCalendar(context.Background(), cal)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", primary.ID)
}

func TestCalendar_FindEvents(t *testing.T) {
	api := &fakeAPI{}
	cal := newTestCalendar(t, api)

	from := time.Date(2025, time.October, 26, 14, 0, 0, 0, time.FixedZone("-05", -5*60*60))
	events, err := cal.FindEvents(context.Background(), "me@example.com", "F1: Race - Gran Premio", from, from.Add(time.Minute))
	require.NoError(t, err)

	require.Len(t, events, 1, "all-day events are skipped")
	assert.Equal(t, "evt1", events[0].ID)
	assert.True(t, events[0].Start.Equal(from))
	assert.Equal(t, 2*time.Hour, events[0].End.Sub(events[0].Start))
	assert.Equal(t, []int{720}, events[0].Reminders)
	assert.Equal(t, "America/Bogota", events[0].TimeZone)

	assert.Equal(t, "2025-10-26T14:00:00-05:00", api.listQuery.Get("timeMin"))
	assert.Equal(t, "2025-10-26T14:01:00-05:00", api.listQuery.Get("timeMax"))
	assert.Equal(t, "F1: Race - Gran Premio", api.listQuery.Get("q"))
	assert.Equal(t, "true", api.listQuery.Get("singleEvents"))
	assert.Equal(t, "startTime", api.listQuery.Get("orderBy"))
}

func TestCalendar_InsertEvent(t *testing.T) {
	api := &fakeAPI{}
	cal := newTestCalendar(t, api)

	start := time.Date(2025, time.October, 26, 14, 0, 0, 0, time.FixedZone("-05", -5*60*60))
	event, err := cal.InsertEvent(context.Background(), "me@example.com", calendar.Event{
		Summary:   "F1: Race - Gran Premio",
		Start:     start,
		End:       start.Add(2 * time.Hour),
		TimeZone:  "America/Bogota",
		Reminders: []int{720, 30, 10},
		ColorID:   "11",
	})
	require.NoError(t, err)
	assert.Equal(t, "created123", event.ID)

	require.NotNil(t, api.inserted)
	assert.Equal(t, "F1: Race - Gran Premio", api.inserted.Summary)
	assert.Equal(t, "2025-10-26T14:00:00-05:00", api.inserted.Start.DateTime)
	assert.Equal(t, "2025-10-26T16:00:00-05:00", api.inserted.End.DateTime)
	assert.Equal(t, "America/Bogota", api.inserted.Start.TimeZone)
	assert.Equal(t, "11", api.inserted.ColorId)
	require.NotNil(t, api.inserted.Reminders)
	assert.False(t, api.inserted.Reminders.UseDefault)
	require.Len(t, api.inserted.Reminders.Overrides, 3)
	for i, minutes := range []int64{720, 30, 10} {
		assert.Equal(t, "popup", api.inserted.Reminders.Overrides[i].Method)
		assert.Equal(t, minutes, api.inserted.Reminders.Overrides[i].Minutes)
	}
}

func TestCalendar_APIError(t *testing.T) {
	cal := newTestCalendar(t, &fakeAPI{failWith: http.StatusUnauthorized})

	_, err := cal.ListCalendars(context.Background())
	assert.Error(t, err)

	_, err = calendar.NewMaterializer(cal, calendar.DefaultTemplate()).Target(context.Background())
	assert.Error(t, err)
}

func TestEventToAPI_SendsUseDefault(t *testing.T) {
	data, err := json.Marshal(eventToAPI(calendar.Event{Summary: "x"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"useDefault":false`)
}
