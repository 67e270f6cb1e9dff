package session

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMonths are the three-letter Spanish month codes used by the schedule page
var DefaultMonths = []string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// MaxDistance bounds how far a parsed start may be from the reference instant
const MaxDistance = 365 * 24 * time.Hour

var (
	ErrInvalidFormat   = errors.New("invalid format")
	ErrUnknownMonth    = errors.New("unknown month")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrImplausibleDate = errors.New("date is more than a year away")
)

var (
	clockThenLetter = regexp.MustCompile(`(\d{1,2}:\d{2})(\pL)`)
	letterThenDigit = regexp.MustCompile(`(\pL)(\d)`)
)

// ParseError records which session could not be normalized
type ParseError struct {
	Session string
	Raw     string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %q (%s): %v", e.Session, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalizer converts schedule time text into instants
type Normalizer struct {
	months map[string]time.Month
}

// NewNormalizer creates a Normalizer from twelve month codes, January first.
// Codes are matched case-insensitively on their first three letters.
func NewNormalizer(months []string) (*Normalizer, error) {
	if len(months) != 12 {
		return nil, fmt.Errorf("month table needs 12 entries, got %d", len(months))
	}

	table := make(map[string]time.Month, 12)
	for i, code := range months {
		key := monthKey(code)
		if key == "" {
			return nil, fmt.Errorf("empty month code at position %d", i+1)
		}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("duplicate month code %q", code)
		}
		table[key] = time.Month(i + 1)
	}

	return &Normalizer{months: table}, nil
}

// Month resolves a month token such as "oct" or "Octubre"
func (n *Normalizer) Month(token string) (time.Month, bool) {
	m, ok := n.months[monthKey(token)]
	return m, ok
}

// SplitTokens inserts the missing separators into compact time text and
// splits it on whitespace. "14:30oct12" becomes ["14:30", "oct", "12"].
func SplitTokens(raw string) []string {
	text := clockThenLetter.ReplaceAllString(raw, "$1 $2")
	text = letterThenDigit.ReplaceAllString(text, "$1 $2")
	return strings.Fields(text)
}

// Normalize parses one entry relative to today. The year and location of
// the result are taken from today.
func (n *Normalizer) Normalize(entry Entry, grandPrix string, today time.Time) (*Session, error) {
	start, err := n.parse(entry.RawTime, today)
	if err != nil {
		return nil, &ParseError{Session: entry.Name, Raw: entry.RawTime, Err: err}
	}

	return &Session{
		Name:      entry.Name,
		Start:     start,
		GrandPrix: grandPrix,
	}, nil
}

// NormalizeAll normalizes every entry of the schedule in page order. A
// failing entry is reported in its Result and does not stop the others.
func (n *Normalizer) NormalizeAll(schedule *Schedule, today time.Time) []Result {
	if schedule.Empty() {
		return nil
	}

	results := make([]Result, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		s, err := n.Normalize(entry, schedule.GrandPrix, today)
		results = append(results, Result{Entry: entry, Session: s, Err: err})
	}
	return results
}

func (n *Normalizer) parse(raw string, today time.Time) (time.Time, error) {
	parts := SplitTokens(raw)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: expected 3 tokens, got %d", ErrInvalidFormat, len(parts))
	}
	clockText, monthText, dayText := parts[0], parts[1], parts[2]

	hour, minute, err := parseClock(clockText)
	if err != nil {
		return time.Time{}, err
	}

	month, ok := n.Month(monthText)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownMonth, monthText)
	}

	day, err := strconv.Atoi(dayText)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q", ErrInvalidNumber, dayText)
	}

	loc := today.Location()
	year := today.Year()
	start := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if day < 1 || start.Month() != month || start.Day() != day {
		return time.Time{}, fmt.Errorf("%w: day %d out of range for %s", ErrInvalidNumber, day, month)
	}

	distance := start.Sub(today)
	if distance < 0 {
		distance = -distance
	}
	if distance > MaxDistance {
		return time.Time{}, ErrImplausibleDate
	}

	return start, nil
}

func parseClock(text string) (int, int, error) {
	hourText, minuteText, found := strings.Cut(text, ":")
	if !found {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidFormat, text)
	}

	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidNumber, hourText)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidNumber, minuteText)
	}
	return hour, minute, nil
}

func monthKey(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if utf8.RuneCountInString(token) <= 3 {
		return token
	}
	return string([]rune(token)[:3])
}
