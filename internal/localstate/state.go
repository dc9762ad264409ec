// Package localstate persists client-only state: the session, search history,
// the last seen announcement and the selected theme.
package localstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/settings"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTheme rejects a theme outside settings.Themes.
var ErrUnknownTheme = errors.New("unknown theme")

// fileState is the YAML layout of the state file.
type fileState struct {
	Server        string          `yaml:"server,omitempty"`
	Token         string          `yaml:"token,omitempty"`
	Session       *models.Session `yaml:"session,omitempty"`
	SearchHistory []string        `yaml:"search-history,omitempty"`
	LastSeen      string          `yaml:"last-seen-announcement,omitempty"`
	Theme         string          `yaml:"theme,omitempty"`
}

// Store is a file-backed client state. Every setter writes the file.
type Store struct {
	path string

	mu    sync.Mutex
	state fileState
}

// DefaultPath returns ~/.diaryhub/state.yaml.
func DefaultPath() string {
	home, errHome := os.UserHomeDir()
	if errHome != nil || home == "" {
		return filepath.Join(".diaryhub", "state.yaml")
	}
	return filepath.Join(home, ".diaryhub", "state.yaml")
}

// Open loads the state at path; a missing file yields empty state.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	s := &Store{path: path}
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("localstate: read %s: %w", path, errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &s.state); errUnmarshal != nil {
		return nil, fmt.Errorf("localstate: parse %s: %w", path, errUnmarshal)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Server returns the remembered server base URL.
func (s *Store) Server() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Server
}

// SetServer remembers the server base URL.
func (s *Store) SetServer(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Server = strings.TrimRight(strings.TrimSpace(url), "/")
	return s.saveLocked()
}

// Session returns the persisted session projection and token.
func (s *Store) Session() (*models.Session, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Session == nil {
		return nil, ""
	}
	copied := *s.state.Session
	return &copied, s.state.Token
}

// SetSession persists sess with its token; nil clears both.
func (s *Store) SetSession(sess *models.Session, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		s.state.Session = nil
		s.state.Token = ""
	} else {
		copied := *sess
		s.state.Session = &copied
		if token != "" {
			s.state.Token = token
		}
	}
	return s.saveLocked()
}

// PersistSession adapts the store to session.PersistFunc, keeping the current token.
func (s *Store) PersistSession(sess *models.Session) {
	_ = s.SetSession(sess, "")
}

// SearchHistory returns the remembered keywords, most recent first.
func (s *Store) SearchHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneStrings(s.state.SearchHistory)
}

// AddSearch moves keyword to the front of the history, keeping at most ten entries.
func (s *Store) AddSearch(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append([]string{keyword}, models.RemoveString(s.state.SearchHistory, keyword)...)
	if len(history) > settings.SearchHistoryLimit {
		history = history[:settings.SearchHistoryLimit]
	}
	s.state.SearchHistory = history
	return s.saveLocked()
}

// ClearSearchHistory forgets every keyword.
func (s *Store) ClearSearchHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SearchHistory = nil
	return s.saveLocked()
}

// LastSeenAnnouncement returns the id of the last dismissed announcement.
func (s *Store) LastSeenAnnouncement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastSeen
}

// SetLastSeenAnnouncement records id as dismissed.
func (s *Store) SetLastSeenAnnouncement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastSeen = id
	return s.saveLocked()
}

// Theme returns the selected theme or the default.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !settings.ValidTheme(s.state.Theme) {
		return settings.DefaultTheme
	}
	return s.state.Theme
}

// SetTheme selects one of settings.Themes.
func (s *Store) SetTheme(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !settings.ValidTheme(name) {
		return fmt.Errorf("%w: %s", ErrUnknownTheme, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme = name
	return s.saveLocked()
}

// saveLocked writes the file atomically through a temp file and rename.
func (s *Store) saveLocked() error {
	data, errMarshal := yaml.Marshal(&s.state)
	if errMarshal != nil {
		return fmt.Errorf("localstate: marshal: %w", errMarshal)
	}
	dir := filepath.Dir(s.path)
	if errMkdir := os.MkdirAll(dir, 0o700); errMkdir != nil {
		return fmt.Errorf("localstate: create dir: %w", errMkdir)
	}
	tmp, errTemp := os.CreateTemp(dir, ".state-*.yaml")
	if errTemp != nil {
		return fmt.Errorf("localstate: create temp: %w", errTemp)
	}
	tmpName := tmp.Name()
	if _, errWrite := tmp.Write(data); errWrite != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstate: write: %w", errWrite)
	}
	if errClose := tmp.Close(); errClose != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstate: close: %w", errClose)
	}
	if errRename := os.Rename(tmpName, s.path); errRename != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstate: replace: %w", errRename)
	}
	return nil
}
