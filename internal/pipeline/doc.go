// Package pipeline drives one run: it fetches the schedule for a city,
// normalizes every session and hands each one to a Publisher.
//
// Each session is processed on its own. A time that cannot be parsed or an
// event that cannot be created is reported and the run moves on to the next
// session. DryRunPublisher replaces the calendar entirely, so a dry run
// needs no credentials and makes no calendar calls.
package pipeline
