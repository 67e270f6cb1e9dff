// Package storage provides JSON-based persistence for the calendar OAuth token.
//
// The token record keeps the oauth2 token and the scopes it was granted for,
// so a token obtained for a narrower scope can be detected and discarded.
// The default storage location is ~/.local/share/f1-calendar/token.json.
package storage
