package session

import (
	"fmt"
	"time"
)

// DefaultNames are assigned to schedule columns by position
var DefaultNames = []string{
	"Free Practice 1",
	"Free Practice 2",
	"Free Practice 3",
	"Qualifying",
	"Race",
}

// DefaultGrandPrix is used when the page has no Grand Prix heading
const DefaultGrandPrix = "Grand Prix"

// Entry is one scraped (session, time text) pair
type Entry struct {
	Name    string `json:"name"`
	RawTime string `json:"raw_time"`
}

// Schedule is the scraper output for one city. An empty Entries slice means
// the city was not found on the page.
type Schedule struct {
	GrandPrix string  `json:"grand_prix"`
	Entries   []Entry `json:"entries"`
}

// Empty reports whether the schedule has nothing to process
func (s *Schedule) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

// Session is a normalized session with a timezone-aware start
type Session struct {
	Name      string    `json:"name"`
	Start     time.Time `json:"start"`
	GrandPrix string    `json:"grand_prix"`
}

// Label formats the session start the way it is printed during a run
func (s Session) Label() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Start.Format("2006-01-02 15:04 MST"))
}

// NameForColumn returns the positional session name for a 1-based table column
func NameForColumn(names []string, column int) string {
	if column-1 < len(names) && column > 0 {
		return names[column-1]
	}
	return fmt.Sprintf("Session %d", column)
}

// Result is the outcome of normalizing a single entry. Exactly one of
// Session and Err is set.
type Result struct {
	Entry   Entry
	Session *Session
	Err     error
}

// OK reports whether normalization succeeded
func (r Result) OK() bool {
	return r.Err == nil && r.Session != nil
}
