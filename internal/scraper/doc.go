// Package scraper provides HTTP fetching and HTML parsing for the F1 schedule page.
//
// The scraper fetches the public schedule page from f1latam.com and scans its
// tables for the row whose first cell lists the requested city. Each row is a
// GMT block: a group of cities sharing one UTC offset, followed by one cell per
// session. It also extracts the Grand Prix heading and the full list of cities.
package scraper
