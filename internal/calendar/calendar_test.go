package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bogota = time.FixedZone("-05", -5*60*60)

func testSession(name string) session.Session {
	return session.Session{
		Name:      name,
		Start:     time.Date(2025, time.October, 26, 14, 0, 0, 0, bogota),
		GrandPrix: "Gran Premio de México 🏁 Autódromo Hermanos Rodríguez",
	}
}

func TestTemplate_Build(t *testing.T) {
	testCases := []struct {
		name         string
		session      string
		wantDuration time.Duration
	}{
		{"race lasts two hours", "Race", 2 * time.Hour},
		{"race match ignores case", "race", 2 * time.Hour},
		{"qualifying lasts one hour", "Qualifying", time.Hour},
		{"extra session lasts one hour", "Session 6", time.Hour},
	}

	tmpl := DefaultTemplate()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := testSession(tc.session)
			event := tmpl.Build(s, "America/Bogota")

			assert.Equal(t, "F1: "+tc.session+" - "+s.GrandPrix, event.Summary)
			assert.Equal(t, s.Start, event.Start)
			assert.Equal(t, s.Start.Add(tc.wantDuration), event.End)
			assert.Equal(t, "America/Bogota", event.TimeZone)
			assert.Equal(t, []int{720, 30, 10}, event.Reminders)
			assert.Equal(t, "11", event.ColorID)
		})
	}
}

func TestTemplate_CustomRaceName(t *testing.T) {
	tmpl := Template{RaceSession: "Carrera"}

	assert.Equal(t, 2*time.Hour, tmpl.Duration(testSession("Carrera")))
	assert.Equal(t, time.Hour, tmpl.Duration(testSession("Race")))
	assert.Equal(t, "Carrera - "+testSession("").GrandPrix, tmpl.Summary(testSession("Carrera")))
}

func TestPrimaryCalendar(t *testing.T) {
	testCases := []struct {
		name      string
		calendars []Info
		wantID    string
	}{
		{
			name:      "flagged primary wins",
			calendars: []Info{{ID: "work"}, {ID: "me@example.com", Primary: true}},
			wantID:    "me@example.com",
		},
		{
			name:      "first calendar without primary flag",
			calendars: []Info{{ID: "work"}, {ID: "family"}},
			wantID:    "work",
		},
		{
			name:      "alias when nothing is listed",
			calendars: nil,
			wantID:    PrimaryFallbackID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := PrimaryCalendar(context.Background(), NewStubCalendar(tc.calendars...))
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, info.ID)
		})
	}
}

func TestPrimaryCalendar_Error(t *testing.T) {
	stub := NewStubCalendar()
	stub.ListErr = errors.New("unauthorized")

	_, err := PrimaryCalendar(context.Background(), stub)
	assert.ErrorIs(t, err, stub.ListErr)
}
