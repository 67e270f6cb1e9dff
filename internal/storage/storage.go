package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/f1-calendar/internal/crypto"
	"golang.org/x/oauth2"
)

// DefaultTokenFile is the token file name inside the data directory
const DefaultTokenFile = "token.json"

// TokenRecord is the persisted OAuth token together with the scopes it was granted for
type TokenRecord struct {
	Token   *oauth2.Token `json:"token"`
	Scopes  []string      `json:"scopes"`
	SavedAt string        `json:"saved_at"`
}

// HasScopes reports whether every required scope was granted
func (r *TokenRecord) HasScopes(required []string) bool {
	granted := make(map[string]bool, len(r.Scopes))
	for _, s := range r.Scopes {
		granted[s] = true
	}
	for _, s := range required {
		if !granted[s] {
			return false
		}
	}
	return true
}

// Storage handles persistence of the calendar OAuth token
type Storage struct {
	dataDir   string
	tokenFile string
	sealer    *crypto.Sealer
}

// New creates a new Storage instance rooted at dataDir
func New(dataDir string) (*Storage, error) {
	dataDir, err := ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir:   dataDir,
		tokenFile: DefaultTokenFile,
	}, nil
}

// WithTokenFile overrides the token file name. Absolute paths are used as is.
func (s *Storage) WithTokenFile(name string) *Storage {
	if name != "" {
		s.tokenFile = name
	}
	return s
}

// WithSealer encrypts the token file on save. A nil sealer keeps it in plain JSON.
func (s *Storage) WithSealer(sealer *crypto.Sealer) *Storage {
	s.sealer = sealer
	return s
}

// ExpandHome expands a leading ~/ to the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// TokenPath returns the path to the token file
func (s *Storage) TokenPath() string {
	if filepath.IsAbs(s.tokenFile) {
		return s.tokenFile
	}
	return filepath.Join(s.dataDir, s.tokenFile)
}

// LoadToken loads the token record from disk. It returns nil without an
// error when no token has been saved yet.
func (s *Storage) LoadToken() (*TokenRecord, error) {
	data, err := os.ReadFile(s.TokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token: %w", err)
	}

	if crypto.IsSealed(data) {
		if data, err = s.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("decrypting token: %w", err)
		}
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if record.Token == nil {
		return nil, errors.New("parsing token: missing token")
	}

	return &record, nil
}

// SaveToken writes the token record to disk, readable by the owner only
func (s *Storage) SaveToken(token *oauth2.Token, scopes []string) error {
	record := TokenRecord{
		Token:   token,
		Scopes:  scopes,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if data, err = s.sealer.Seal(data); err != nil {
		return fmt.Errorf("encrypting token: %w", err)
	}

	if err := os.WriteFile(s.TokenPath(), data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}

	return nil
}

// DeleteToken removes the token file. A missing file is not an error.
func (s *Storage) DeleteToken() error {
	if err := os.Remove(s.TokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}
