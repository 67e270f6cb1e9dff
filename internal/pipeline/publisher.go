package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

// Publisher hands a normalized session to its destination
type Publisher interface {
	Publish(ctx context.Context, s session.Session) (calendar.Outcome, error)
}

// DryRunPublisher prints what would be created without touching any calendar
type DryRunPublisher struct {
	out      io.Writer
	template calendar.Template
	timezone string
	verbose  bool
}

// NewDryRunPublisher creates a new dry-run publisher. In verbose mode the
// event that would be created is printed under each session.
func NewDryRunPublisher(out io.Writer, template calendar.Template, timezone string, verbose bool) *DryRunPublisher {
	return &DryRunPublisher{
		out:      out,
		template: template,
		timezone: timezone,
		verbose:  verbose,
	}
}

// Publish prints the event that would be created
func (p *DryRunPublisher) Publish(ctx context.Context, s session.Session) (calendar.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.verbose {
		event := p.template.Build(s, p.timezone)
		fmt.Fprintf(p.out, "    would create %q until %s (%s)\n", event.Summary, event.End.Format("15:04"), event.TimeZone)
	}
	return calendar.OutcomeDryRun, nil
}

// CalendarPublisher creates events through a Materializer
type CalendarPublisher struct {
	materializer *calendar.Materializer
	timezone     string
}

// NewCalendarPublisher creates a publisher writing events in timezone
func NewCalendarPublisher(m *calendar.Materializer, timezone string) *CalendarPublisher {
	return &CalendarPublisher{
		materializer: m,
		timezone:     timezone,
	}
}

func (p *CalendarPublisher) Publish(ctx context.Context, s session.Session) (calendar.Outcome, error) {
	return p.materializer.Materialize(ctx, s, p.timezone)
}
