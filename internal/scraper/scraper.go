package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/f1-calendar/internal/logger"
	"github.com/pfrederiksen/f1-calendar/internal/session"
	"golang.org/x/net/html"
)

const (
	ScheduleURL = "https://www.f1latam.com/horarios.php"
	UserAgent   = "f1-calendar/1.0 (github.com/pfrederiksen/f1-calendar)"
	Timeout     = 30 * time.Second

	grandPrixSelector  = "p.titsecc > a.titnotautos"
	grandPrixSeparator = "🏁"
	gmtMarker          = "GMT"
)

// Options configures a Scraper. Zero values fall back to the package defaults.
type Options struct {
	URL          string
	UserAgent    string
	Timeout      time.Duration
	SessionNames []string
	Client       *http.Client
}

// Scraper handles fetching and parsing the F1 schedule page
type Scraper struct {
	client       *http.Client
	url          string
	userAgent    string
	sessionNames []string
}

// New creates a new Scraper instance
func New(opts Options) *Scraper {
	s := &Scraper{
		client:       opts.Client,
		url:          opts.URL,
		userAgent:    opts.UserAgent,
		sessionNames: opts.SessionNames,
	}
	if s.url == "" {
		s.url = ScheduleURL
	}
	if s.userAgent == "" {
		s.userAgent = UserAgent
	}
	if len(s.sessionNames) == 0 {
		s.sessionNames = session.DefaultNames
	}
	if s.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = Timeout
		}
		s.client = &http.Client{Timeout: timeout}
	}
	return s
}

// URL returns the schedule page address
func (s *Scraper) URL() string {
	return s.url
}

// FetchSchedule fetches the schedule page and extracts the sessions for city.
// A city that is not on the page yields an empty schedule, not an error.
func (s *Scraper) FetchSchedule(ctx context.Context, city string) (*session.Schedule, error) {
	doc, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.scheduleFrom(doc, city), nil
}

// FetchCities fetches the schedule page and lists the cities of every GMT block
func (s *Scraper) FetchCities(ctx context.Context) ([]string, error) {
	doc, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return citiesFrom(doc), nil
}

// ParseSchedule extracts the sessions for city from schedule page markup
func (s *Scraper) ParseSchedule(r io.Reader, city string) (*session.Schedule, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return s.scheduleFrom(doc, city), nil
}

// ParseCities lists the cities found in schedule page markup
func ParseCities(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return citiesFrom(doc), nil
}

func (s *Scraper) fetch(ctx context.Context) (*goquery.Document, error) {
	started := time.Now()
	defer func() {
		logger.RecordTiming("scraper.fetch", time.Since(started))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	logger.Debug("Fetching schedule page", logger.Fields{"url": s.url})

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// scheduleFrom scans the tables for the row listing city and collects its
// non-empty session cells in column order
func (s *Scraper) scheduleFrom(doc *goquery.Document, city string) *session.Schedule {
	schedule := &session.Schedule{
		GrandPrix: grandPrixLabel(doc),
	}
	key := normalizeCity(city)
	if key == "" {
		return schedule
	}

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if table.Find("thead").Length() == 0 || table.Find("tbody").Length() == 0 {
			return true
		}

		found := false
		table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return true
			}
			if !containsCity(cityLabels(cellLines(cells.First())), key) {
				return true
			}

			cells.Each(func(i int, cell *goquery.Selection) {
				if i == 0 {
					return
				}
				raw := strings.TrimSpace(cell.Text())
				if raw == "" {
					return
				}
				schedule.Entries = append(schedule.Entries, session.Entry{
					Name:    session.NameForColumn(s.sessionNames, i),
					RawTime: raw,
				})
			})
			found = true
			return false
		})
		return !found
	})

	return schedule
}

// citiesFrom collects the city labels of every row that names a GMT offset
func citiesFrom(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	cities := make([]string, 0)

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		lines := cellLines(cells.First())
		if !hasGMTLine(lines) {
			return
		}
		for _, city := range cityLabels(lines) {
			if !seen[city] {
				seen[city] = true
				cities = append(cities, city)
			}
		}
	})

	sort.Strings(cities)
	return cities
}

// grandPrixLabel builds "Name 🏁 Circuit" from the page heading
func grandPrixLabel(doc *goquery.Document) string {
	anchor := doc.Find(grandPrixSelector).First()
	if anchor.Length() == 0 {
		return session.DefaultGrandPrix
	}

	text := strings.TrimSpace(anchor.Text())
	if name, circuit, ok := strings.Cut(text, " - "); ok {
		return fmt.Sprintf("%s %s %s", strings.TrimSpace(name), grandPrixSeparator, strings.TrimSpace(circuit))
	}
	return fmt.Sprintf("%s %s", text, grandPrixSeparator)
}

// cellLines returns the trimmed, non-empty text nodes of a cell in document order
func cellLines(cell *goquery.Selection) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if line := strings.TrimSpace(n.Data); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range cell.Nodes {
		walk(n)
	}
	return lines
}

// cityLabels keeps the lines that name a city, with parenthetical suffixes removed
func cityLabels(lines []string) []string {
	cities := make([]string, 0, len(lines))
	for _, line := range lines {
		name := stripParenthetical(line)
		if len([]rune(name)) < 2 || strings.Contains(strings.ToUpper(name), gmtMarker) || hasDigit(name) {
			continue
		}
		cities = append(cities, name)
	}
	return cities
}

func containsCity(cities []string, key string) bool {
	for _, c := range cities {
		if strings.ToLower(c) == key {
			return true
		}
	}
	return false
}

func hasGMTLine(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(line, gmtMarker) {
			return true
		}
	}
	return false
}

func normalizeCity(city string) string {
	return strings.ToLower(stripParenthetical(city))
}

func stripParenthetical(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
