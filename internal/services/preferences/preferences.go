package preferences

import (
	"fmt"
	"log/slog"
	"sync"

	"cashflow/internal/models"
	"cashflow/internal/services/storage"
)

// ValueName is the named value the theme is persisted under
const ValueName = "theme"

// Theme is the UI colour scheme
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark"
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", &models.ValidationError{Field: "theme", Value: s, Reason: "theme must be light or dark"}
}

// Store holds the persisted display preferences
type Store struct {
	backend storage.Backend
	mu      sync.Mutex
	theme   Theme
}

// New loads the saved theme, defaulting to light
func New(backend storage.Backend) (*Store, error) {
	s := &Store{backend: backend, theme: Light}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the saved theme. A missing or unrecognised value leaves
// light in place.
func (s *Store) Reload() error {
	var saved string
	found, err := storage.LoadJSON(s.backend, ValueName, &saved)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}

	theme := Light
	if found {
		if parsed, err := ParseTheme(saved); err == nil {
			theme = parsed
		} else {
			slog.Warn("Ignoring saved theme", "value", saved)
		}
	}

	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return nil
}

// Theme returns the current theme
func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme persists theme
func (s *Store) SetTheme(theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(theme)
}

// Toggle flips between light and dark and returns the new theme
func (s *Store) Toggle() (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Dark
	if s.theme == Dark {
		next = Light
	}
	if err := s.set(next); err != nil {
		return s.theme, err
	}
	return next, nil
}

func (s *Store) set(theme Theme) error {
	if err := storage.SaveJSON(s.backend, ValueName, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	s.theme = theme
	return nil
}
