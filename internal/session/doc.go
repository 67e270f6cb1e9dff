// Package session provides the race weekend session types and the normalizer
// that turns scraped schedule text into timezone-aware instants.
//
// The schedule page prints session times as compact Spanish tokens such as
// "14:30oct12" or "09:00 sep 7". The normalizer restores the token boundaries,
// resolves the month code and builds the start instant in the caller's
// location, rejecting anything that does not land within a year of "today".
package session
