package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

const (
	DefaultPath = "f1-calendar.yaml"
	EnvPrefix   = "F1CAL_"
)

type Application struct {
	Timezone string   `koanf:"timezone"`
	DataDir  string   `koanf:"datadir"`
	Log      Log      `koanf:"log"`
	Schedule Schedule `koanf:"schedule"`
	Months   []string `koanf:"months"`
	Google   Google   `koanf:"google"`
	Events   Events   `koanf:"events"`
	ICS      ICS      `koanf:"ics"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Schedule struct {
	URL       string        `koanf:"url"`
	UserAgent string        `koanf:"useragent"`
	Timeout   time.Duration `koanf:"timeout"`
	Sessions  []string      `koanf:"sessions"`
}

type Google struct {
	Credentials string `koanf:"credentials"`
	TokenFile   string `koanf:"tokenfile"`
	TokenKey    string `koanf:"tokenkey"`
}

type Events struct {
	Prefix    string `koanf:"prefix"`
	Race      string `koanf:"race"`
	Reminders []int  `koanf:"reminders"`
	Color     string `koanf:"color"`
}

type ICS struct {
	Name string `koanf:"name"`
}

// Defaults returns the built-in configuration
func Defaults() Application {
	return Application{
		Timezone: "America/Bogota",
		DataDir:  "~/.local/share/f1-calendar",
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Schedule: Schedule{
			URL:       "https://www.f1latam.com/horarios.php",
			UserAgent: "f1-calendar/1.0 (github.com/pfrederiksen/f1-calendar)",
			Timeout:   30 * time.Second,
			Sessions:  append([]string(nil), session.DefaultNames...),
		},
		Months: append([]string(nil), session.DefaultMonths...),
		Google: Google{
			Credentials: "credentials.json",
			TokenFile:   "token.json",
		},
		Events: Events{
			Prefix:    "F1",
			Race:      "Race",
			Reminders: []int{720, 30, 10},
			Color:     "11",
		},
		ICS: ICS{
			Name: "Formula 1",
		},
	}
}

// Load reads configuration from the defaults, then the optional YAML file at
// path, then F1CAL_* environment variables. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Application{}, fmt.Errorf("loading .env: %w", err)
	}

	var k = koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		logger.Error("error loading config from structs", nil, err)
		return Application{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Debug("Config file not found, using defaults and environment variables", logger.Fields{"path": path})
			} else {
				return Application{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else {
			logger.Debug("Loaded configuration from file", logger.Fields{"path": path})
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
			if listKeys[k] {
				return k, splitList(v)
			}
			return k, v
		},
	}), nil)
	if err != nil {
		return Application{}, fmt.Errorf("loading config from environment: %w", err)
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := app.Validate(); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Validate checks values that cannot be caught by decoding alone
func (a Application) Validate() error {
	if strings.TrimSpace(a.Timezone) == "" {
		return errors.New("config: timezone is required")
	}
	if len(a.Months) != 12 {
		return fmt.Errorf("config: months needs 12 entries, got %d", len(a.Months))
	}
	if len(a.Schedule.Sessions) == 0 {
		return errors.New("config: schedule.sessions must not be empty")
	}
	for _, m := range a.Events.Reminders {
		if m < 0 {
			return fmt.Errorf("config: negative reminder offset %d", m)
		}
	}
	if !containsFold(a.Schedule.Sessions, a.Events.Race) {
		return fmt.Errorf("config: events.race %q is not one of schedule.sessions %q", a.Events.Race, a.Schedule.Sessions)
	}
	return nil
}

// listKeys are the keys whose environment values are comma separated lists.
// Every other value is kept whole, commas included.
var listKeys = map[string]bool{
	"months":            true,
	"schedule.sessions": true,
	"events.reminders":  true,
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func containsFold(names []string, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}
	return false
}
