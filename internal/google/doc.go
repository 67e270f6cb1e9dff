// Package google connects the calendar package to a Google account.
//
// Authenticator runs the OAuth installed-app flow and keeps the granted
// token in storage. Calendar implements calendar.Calendar on the
// Calendar v3 API.
package google
