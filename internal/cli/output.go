package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pfrederiksen/f1-calendar/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// citiesResult is the JSON shape of --list-cities
type citiesResult struct {
	Cities []string `json:"cities"`
	Count  int      `json:"count"`
}

// WriteReport writes the run summary in the specified format
func WriteReport(w io.Writer, report *pipeline.Report, format OutputFormat, dryRun bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeText(w, report, dryRun)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteCities writes the list of cities available on the schedule page
func WriteCities(w io.Writer, cities []string, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if cities == nil {
			cities = []string{}
		}
		return writeJSON(w, citiesResult{Cities: cities, Count: len(cities)})
	case FormatText:
		if len(cities) == 0 {
			fmt.Fprintln(w, "No cities found.")
			return nil
		}
		fmt.Fprintln(w, "Available cities:")
		for _, city := range cities {
			fmt.Fprintf(w, "  %s\n", city)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText prints the totals after the per-session lines written during the run
func writeText(w io.Writer, report *pipeline.Report, dryRun bool) error {
	if !report.CityFound {
		return nil
	}

	fmt.Fprintln(w)
	if dryRun {
		fmt.Fprintf(w, "Total: %d sessions parsed, %d failed (dry run)\n", report.Parsed, report.Failed)
		return nil
	}

	fmt.Fprintf(w, "Total: %d sessions parsed, %d failed, %d added, %d already present",
		report.Parsed, report.Failed, report.Created, report.Duplicates)
	if report.PublishErrors > 0 {
		fmt.Fprintf(w, ", %d not added", report.PublishErrors)
	}
	fmt.Fprintln(w)
	return nil
}
