package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/JiwaniZakir/sentinel/browser"
	"github.com/JiwaniZakir/sentinel/login"
)

// State is an opaque, serializable set of session cookies. Replayed into a
// fresh browsing context it lets a client skip interactive login.
type State []browser.Cookie

// Store validates and captures reusable session cookie state
type Store struct {
	probeURL string
	logger   *logrus.Logger
}

// NewStore creates a session store. probeURL is the protected resource used
// to validate injected cookies against the live site.
func NewStore(probeURL string, logger *logrus.Logger) *Store {
	return &Store{probeURL: probeURL, logger: logger}
}

// Load injects cookies into the browsing context and validates them with a
// navigation to the probe resource. Cookie validity cannot be judged without
// a server round trip, so the navigation side effect is unavoidable.
// Individually rejected cookies are skipped; the accepted count is returned
// alongside whether the context now appears authenticated.
func (s *Store) Load(d browser.Driver, st State) (int, bool) {
	if len(st) == 0 {
		return 0, false
	}

	accepted, err := d.SetCookies(st)
	if err != nil || accepted == 0 {
		s.logger.WithError(err).Warn("Cookie injection produced no usable cookies")
		return accepted, false
	}
	s.logger.WithFields(logrus.Fields{
		"accepted": accepted,
		"total":    len(st),
	}).Debug("Cookies injected")

	if err := d.Navigate(s.probeURL); err != nil {
		s.logger.WithError(err).Warn("Session probe navigation failed")
		return accepted, false
	}

	loc := d.Location()
	if login.LooksBlocked(loc) {
		s.logger.WithField("url", loc).Info("Session expired, login required")
		return accepted, false
	}

	s.logger.WithField("url", loc).Info("Session cookies still valid")
	return accepted, true
}

// Save reads all cookies currently held by the browsing context so the
// caller can persist them for the next run
func (s *Store) Save(d browser.Driver) (State, error) {
	cookies, err := d.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to extract session cookies: %w", err)
	}
	s.logger.WithField("cookies_count", len(cookies)).Debug("Session cookies captured")
	return State(cookies), nil
}

// WriteFile persists the state as JSON at path
func (st State) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// ReadFile loads a previously persisted state from path
func ReadFile(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return st, nil
}
