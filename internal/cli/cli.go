package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/pfrederiksen/f1-calendar/internal/clock"
	"github.com/pfrederiksen/f1-calendar/internal/config"
	"github.com/pfrederiksen/f1-calendar/internal/crypto"
	"github.com/pfrederiksen/f1-calendar/internal/google"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/pipeline"
	"github.com/pfrederiksen/f1-calendar/internal/scraper"
	"github.com/pfrederiksen/f1-calendar/internal/session"
	"github.com/pfrederiksen/f1-calendar/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// CalendarOpener connects to the calendar used by live runs and --check-calendar
type CalendarOpener func(ctx context.Context, cfg config.Application, icsPath string, prompt io.Writer) (calendar.Calendar, error)

// Dependencies are the parts of a run that tests replace
type Dependencies struct {
	Clock        clock.Clock
	OpenCalendar CalendarOpener
	HTTPClient   *http.Client
}

type options struct {
	city          string
	timezone      string
	dryRun        bool
	listCities    bool
	checkCalendar bool
	configPath    string
	icsPath       string
	format        string
	verbose       bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(Dependencies{
		Clock:        clock.SystemClock{},
		OpenCalendar: OpenCalendar,
	})
}

func newRootCmd(deps Dependencies) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "f1-calendar",
		Short: "Add Formula 1 session times for your city to your calendar",
		Long: `A CLI tool that reads the Formula 1 weekend schedule from f1latam.com,
converts the session times for a city into dated events and adds them to
your primary Google Calendar (or a local .ics file), skipping events that
already exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.city, "city", "", "City whose local session times are used (e.g. Bogotá)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA timezone of the city (default from config, America/Bogota)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the sessions without touching the calendar")
	cmd.Flags().BoolVar(&opts.listCities, "list-cities", false, "List the cities available on the schedule page")
	cmd.Flags().BoolVar(&opts.checkCalendar, "check-calendar", false, "Check the calendar connection and exit")
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML configuration file")
	cmd.Flags().StringVar(&opts.icsPath, "ics", "", "Write events to this .ics file instead of Google Calendar")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	return cmd
}

func run(cmd *cobra.Command, deps Dependencies, opts *options) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.timezone != "" {
		cfg.Timezone = opts.timezone
	}

	if err := setupLogger(cfg, opts.verbose, errOut); err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc := scraper.New(scraper.Options{
		URL:          cfg.Schedule.URL,
		UserAgent:    cfg.Schedule.UserAgent,
		Timeout:      cfg.Schedule.Timeout,
		SessionNames: cfg.Schedule.Sessions,
		Client:       deps.HTTPClient,
	})
	defer logMetrics()

	switch {
	case opts.checkCalendar:
		checkCalendar(ctx, deps, cfg, opts.icsPath, out, errOut)
		return nil
	case opts.listCities:
		return listCities(ctx, sc, out, format)
	case strings.TrimSpace(opts.city) == "":
		fmt.Fprintln(out, "Please provide a city with --city, or use --list-cities to see the available cities.")
		return nil
	}

	normalizer, err := session.NewNormalizer(cfg.Months)
	if err != nil {
		return fmt.Errorf("invalid month table: %w", err)
	}

	runOut := out
	if format == FormatJSON {
		runOut = io.Discard
	}

	template := templateFrom(cfg)
	var publisher pipeline.Publisher
	if opts.dryRun {
		fmt.Fprintln(runOut, "Dry run: no events will be created.")
		publisher = pipeline.NewDryRunPublisher(runOut, template, loc.String(), opts.verbose)
	} else {
		m, err := connect(ctx, deps, cfg, opts.icsPath, errOut, template)
		if err != nil {
			logger.Error("Calendar connection failed", nil, err)
			fmt.Fprintf(out, "Could not connect to the calendar: %v\n", err)
			fmt.Fprintln(out, "Exiting due to failed Calendar connection.")
			return nil
		}
		publisher = pipeline.NewCalendarPublisher(m, loc.String())
	}

	logger.Debug("Fetching schedule", logger.Fields{"url": sc.URL(), "city": opts.city, "timezone": loc.String()})
	driver := &pipeline.Driver{
		Source:     sc,
		Normalizer: normalizer,
		Publisher:  publisher,
		Clock:      deps.Clock,
		Location:   loc,
		Out:        runOut,
	}
	report, err := driver.Run(ctx, strings.TrimSpace(opts.city))
	if err != nil {
		return err
	}

	if err := WriteReport(out, report, format, opts.dryRun); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// connect opens the calendar and resolves the primary calendar before any
// session is processed
func connect(ctx context.Context, deps Dependencies, cfg config.Application, icsPath string, prompt io.Writer, template calendar.Template) (*calendar.Materializer, error) {
	cal, err := deps.OpenCalendar(ctx, cfg, icsPath, prompt)
	if err != nil {
		return nil, err
	}

	m := calendar.NewMaterializer(cal, template)
	target, err := m.Target(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to calendar", logger.Fields{"calendar_id": target.ID, "summary": target.Summary})
	return m, nil
}

func checkCalendar(ctx context.Context, deps Dependencies, cfg config.Application, icsPath string, out, prompt io.Writer) {
	cal, err := deps.OpenCalendar(ctx, cfg, icsPath, prompt)
	if err == nil {
		var info calendar.Info
		info, err = calendar.PrimaryCalendar(ctx, cal)
		if err == nil {
			fmt.Fprintf(out, "Successfully connected to calendar: %s\n", info.Summary)
			return
		}
	}
	logger.Error("Calendar check failed", nil, err)
	fmt.Fprintf(out, "Failed to connect to calendar: %v\n", err)
}

func listCities(ctx context.Context, sc *scraper.Scraper, out io.Writer, format OutputFormat) error {
	cities, err := sc.FetchCities(ctx)
	if err != nil {
		return fmt.Errorf("fetching cities: %w", err)
	}
	return WriteCities(out, cities, format)
}

// OpenCalendar opens the .ics file at icsPath when given, otherwise the
// Google Calendar of the authorized account
func OpenCalendar(ctx context.Context, cfg config.Application, icsPath string, prompt io.Writer) (calendar.Calendar, error) {
	if icsPath != "" {
		path, err := storage.ExpandHome(icsPath)
		if err != nil {
			return nil, err
		}
		return calendar.OpenICS(path, cfg.ICS.Name)
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	store = store.WithTokenFile(cfg.Google.TokenFile).WithSealer(crypto.NewSealer(cfg.Google.TokenKey))

	client, err := google.NewAuthenticator(cfg.Google.Credentials, store, prompt).Client(ctx)
	if err != nil {
		return nil, err
	}
	return google.NewCalendar(ctx, client)
}

func templateFrom(cfg config.Application) calendar.Template {
	return calendar.Template{
		SummaryPrefix:   cfg.Events.Prefix,
		RaceSession:     cfg.Events.Race,
		ReminderMinutes: cfg.Events.Reminders,
		ColorID:         cfg.Events.Color,
	}
}

func setupLogger(cfg config.Application, verbose bool, w io.Writer) error {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = logger.LevelDebug
	}

	format := logger.Format(strings.ToLower(cfg.Log.Format))
	if format != logger.FormatJSON && format != logger.FormatText {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}

	logger.SetDefault(logger.NewWithFormat(level, format, w))
	return nil
}

func logMetrics() {
	logger.Debug("Run metrics", logger.Fields{"metrics": logger.GetMetricsSnapshot()})
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
