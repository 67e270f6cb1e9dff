package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/calendar"
	"github.com/pfrederiksen/f1-calendar/internal/session"
)

func main() {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading timezone: %v\n", err)
		os.Exit(1)
	}

	// A sample weekend a week from now
	start := time.Now().In(loc).AddDate(0, 0, 7).Truncate(time.Hour)
	sessions := []session.Session{
		{Name: "Qualifying", Start: start, GrandPrix: "Sample Grand Prix 🏁 Test Circuit"},
		{Name: "Race", Start: start.AddDate(0, 0, 1), GrandPrix: "Sample Grand Prix 🏁 Test Circuit"},
	}

	filename := "test-f1-calendar.ics"
	cal, err := calendar.OpenICS(filename, "Formula 1 (test)")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening calendar file: %v\n", err)
		os.Exit(1)
	}

	m := calendar.NewMaterializer(cal, calendar.DefaultTemplate())
	for _, s := range sessions {
		outcome, err := m.Materialize(context.Background(), s, loc.String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", s.Name, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", s.Label(), outcome)
	}

	fmt.Printf("\n✅ Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("3. Run this script again: both sessions should be reported as duplicate")
}
