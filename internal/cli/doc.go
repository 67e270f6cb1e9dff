// Package cli implements the command-line interface for f1-calendar.
//
// The cli package provides the Cobra-based root command. It loads the
// configuration, sets up logging, and then either checks the calendar
// connection, lists the cities on the schedule page, or runs the pipeline
// for one city in dry-run or live mode. Run summaries are written as text
// or JSON.
package cli
