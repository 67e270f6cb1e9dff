package calendar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSCalendar_InsertAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "f1.ics")

	cal, err := OpenICS(path, "Formula 1")
	require.NoError(t, err)

	calendars, err := cal.ListCalendars(ctx)
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, path, calendars[0].ID)
	assert.Equal(t, "Formula 1", calendars[0].Summary)
	assert.True(t, calendars[0].Primary)

	m := NewMaterializer(cal, DefaultTemplate())
	outcome, err := m.Materialize(ctx, testSession("Race"), "America/Bogota")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "BEGIN:VEVENT")
	assert.Contains(t, content, "TRIGGER:-PT720M")
	assert.Contains(t, content, "TRIGGER:-PT30M")
	assert.Contains(t, content, "TRIGGER:-PT10M")
	assert.Contains(t, content, "COLOR:11")
	assert.Contains(t, content, "X-WR-CALNAME:Formula 1")

	reopened, err := OpenICS(path, "ignored")
	require.NoError(t, err)

	calendars, err = reopened.ListCalendars(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Formula 1", calendars[0].Summary)

	s := testSession("Race")
	events, err := reopened.FindEvents(ctx, path, DefaultTemplate().Summary(s), s.Start, s.Start.Add(DuplicateWindow))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Start.Equal(s.Start))
	assert.True(t, events[0].End.Equal(s.Start.Add(DefaultTemplate().Duration(s))))
	assert.True(t, strings.HasSuffix(events[0].ID, "@f1-calendar"))

	outcome, err = NewMaterializer(reopened, DefaultTemplate()).Materialize(ctx, s, "America/Bogota")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestICSCalendar_UnknownCalendar(t *testing.T) {
	ctx := context.Background()
	cal, err := OpenICS(filepath.Join(t.TempDir(), "f1.ics"), "Formula 1")
	require.NoError(t, err)

	s := testSession("Race")
	_, err = cal.FindEvents(ctx, "someone-else", "F1", s.Start, s.Start.Add(DuplicateWindow))
	assert.ErrorIs(t, err, ErrNoCalendar)

	_, err = cal.InsertEvent(ctx, "someone-else", DefaultTemplate().Build(s, "America/Bogota"))
	assert.ErrorIs(t, err, ErrNoCalendar)
}

func TestICSCalendar_CanceledContext(t *testing.T) {
	cal, err := OpenICS(filepath.Join(t.TempDir(), "f1.ics"), "Formula 1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = cal.ListCalendars(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventUID_Stable(t *testing.T) {
	event := DefaultTemplate().Build(testSession("Race"), "America/Bogota")
	other := DefaultTemplate().Build(testSession("Qualifying"), "America/Bogota")

	assert.Equal(t, eventUID(event), eventUID(event))
	assert.NotEqual(t, eventUID(event), eventUID(other))
}
