package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSchedule(t *testing.T) {
	page := loadFixture(t)

	tests := []struct {
		name        string
		htmlContent string
		statusCode  int
		city        string
		wantError   bool
		wantEntries int
	}{
		{
			name:        "successful fetch",
			htmlContent: page,
			statusCode:  http.StatusOK,
			city:        "Bogotá",
			wantEntries: 4,
		},
		{
			name:        "city not found",
			htmlContent: page,
			statusCode:  http.StatusOK,
			city:        "Tokio",
			wantEntries: 0,
		},
		{
			name:       "HTTP error",
			statusCode: http.StatusNotFound,
			city:       "Bogotá",
			wantError:  true,
		},
		{
			name:        "page layout changed",
			htmlContent: `<html><body><p>Sin horarios</p></body></html>`,
			statusCode:  http.StatusOK,
			city:        "Bogotá",
			wantEntries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("User-Agent"), "f1-calendar")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.htmlContent)) // nolint:errcheck
			}))
			defer server.Close()

			s := New(Options{URL: server.URL})
			schedule, err := s.FetchSchedule(context.Background(), tt.city)

			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, schedule.Entries, tt.wantEntries)
		})
	}
}

func TestFetchCities(t *testing.T) {
	page := loadFixture(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page)) // nolint:errcheck
	}))
	defer server.Close()

	cities, err := New(Options{URL: server.URL}).FetchCities(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 8)
}

func TestFetchSchedule_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>")) // nolint:errcheck
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{URL: server.URL}).FetchSchedule(ctx, "Bogotá")
	assert.Error(t, err)
}
