package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	app, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "America/Bogota", app.Timezone)
	assert.Equal(t, "https://www.f1latam.com/horarios.php", app.Schedule.URL)
	assert.Equal(t, 30*time.Second, app.Schedule.Timeout)
	assert.Equal(t, []int{720, 30, 10}, app.Events.Reminders)
	assert.Equal(t, "11", app.Events.Color)
	assert.Equal(t, "Race", app.Events.Race)
	assert.Len(t, app.Months, 12)
	assert.Equal(t, []string{"Free Practice 1", "Free Practice 2", "Free Practice 3", "Qualifying", "Race"}, app.Schedule.Sessions)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "f1-calendar.yaml")
	content := `
timezone: America/Lima
schedule:
  timeout: 5s
  sessions:
    - Libres 1
    - Libres 2
    - Libres 3
    - Clasificación
    - Carrera
events:
  race: Carrera
  reminders: [60, 5]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("F1CAL_EVENTS_COLOR", "5")
	t.Setenv("F1CAL_TIMEZONE", "America/Santiago")

	app, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "America/Santiago", app.Timezone, "environment overrides file")
	assert.Equal(t, 5*time.Second, app.Schedule.Timeout)
	assert.Equal(t, "Carrera", app.Events.Race)
	assert.Equal(t, []int{60, 5}, app.Events.Reminders)
	assert.Equal(t, "5", app.Events.Color)
	assert.Equal(t, "Carrera", app.Schedule.Sessions[4])
	assert.Equal(t, "credentials.json", app.Google.Credentials, "untouched defaults survive")
}

func TestLoad_EnvCommas(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("F1CAL_SCHEDULE_USERAGENT", "Mozilla/5.0 (KHTML, like Gecko)")
	t.Setenv("F1CAL_GOOGLE_TOKENKEY", "pass,word")
	t.Setenv("F1CAL_ICS_NAME", "Formula 1, 2025")
	t.Setenv("F1CAL_EVENTS_REMINDERS", "60,5")
	t.Setenv("F1CAL_SCHEDULE_SESSIONS", "Libres 1, Libres 2, Libres 3, Clasificación, Carrera")
	t.Setenv("F1CAL_EVENTS_RACE", "Carrera")

	app, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Mozilla/5.0 (KHTML, like Gecko)", app.Schedule.UserAgent)
	assert.Equal(t, "pass,word", app.Google.TokenKey)
	assert.Equal(t, "Formula 1, 2025", app.ICS.Name)
	assert.Equal(t, []int{60, 5}, app.Events.Reminders)
	assert.Equal(t, []string{"Libres 1", "Libres 2", "Libres 3", "Clasificación", "Carrera"}, app.Schedule.Sessions)
}

func TestLoad_RaceNotInSessions(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("F1CAL_SCHEDULE_SESSIONS", "Libres 1,Libres 2,Libres 3,Clasificación,Carrera")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.race")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("F1CAL_GOOGLE_CREDENTIALS=/secrets/client.json\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("F1CAL_GOOGLE_CREDENTIALS") })

	app, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/secrets/client.json", app.Google.Credentials)
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Application)
		wantErr bool
	}{
		{"defaults are valid", func(*Application) {}, false},
		{"empty timezone", func(a *Application) { a.Timezone = " " }, true},
		{"short month table", func(a *Application) { a.Months = a.Months[:11] }, true},
		{"no session names", func(a *Application) { a.Schedule.Sessions = nil }, true},
		{"negative reminder", func(a *Application) { a.Events.Reminders = []int{-1} }, true},
		{"race missing from sessions", func(a *Application) {
			a.Schedule.Sessions = []string{"Libres 1", "Libres 2", "Libres 3", "Clasificación", "Carrera"}
		}, true},
		{"empty race", func(a *Application) { a.Events.Race = "" }, true},
		{"race matches ignoring case", func(a *Application) {
			a.Schedule.Sessions = []string{"Libres 1", "Libres 2", "Libres 3", "Clasificación", "Carrera"}
			a.Events.Race = " carrera "
		}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := Defaults()
			tc.mutate(&app)
			err := app.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
