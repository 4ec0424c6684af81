// Package session resolves access codes to sessions and keeps track of the
// session a local user is working in.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StateFile is the name of the local session state file inside the data dir.
const StateFile = "session.yaml"

// Handle identifies an active session. The zero value is not a session.
type Handle struct {
	ID         string `json:"id"`
	AccessCode string `json:"access_code"`
}

// Valid reports whether h refers to a session.
func (h Handle) Valid() bool { return h.ID != "" }

type state struct {
	AccessCode string    `yaml:"access_code"`
	SessionID  string    `yaml:"session_id"`
	SavedAt    time.Time `yaml:"saved_at"`
}

// Manager opens sessions in the database and remembers the current one.
// With a non-empty state path the current handle survives restarts.
type Manager struct {
	db        *database.DB
	statePath string
	logger    *zap.Logger

	mu      sync.Mutex
	current Handle
}

// NewManager creates a session manager. statePath may be empty to keep the
// current handle in memory only.
func NewManager(db *database.DB, statePath string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, statePath: statePath, logger: logger}
}

// Open finds or creates the session for an access code without changing the
// current handle. created reports whether a new record was made.
func (m *Manager) Open(code string) (h Handle, created bool, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Handle{}, false, apperr.Validation("access_code", "access code is required")
	}

	s, created, err := m.db.FindOrCreateSession(code)
	if err != nil {
		m.logger.Error("find or create session failed",
			zap.String("op", "session.open"), zap.Error(err))
		return Handle{}, false, apperr.Backend("opening session", err)
	}

	if created {
		m.logger.Info("session created", zap.String("op", "session.open"), zap.String("session_id", s.ID))
	}
	return Handle{ID: s.ID, AccessCode: s.AccessCode}, created, nil
}

// Lookup returns the handle for a session id, or ErrNoActiveSession if the
// session no longer exists.
func (m *Manager) Lookup(id string) (Handle, error) {
	if id == "" {
		return Handle{}, apperr.ErrNoActiveSession
	}
	s, err := m.db.GetSession(id)
	if err != nil {
		return Handle{}, apperr.Backend("loading session", err)
	}
	if s == nil {
		return Handle{}, apperr.ErrNoActiveSession
	}
	return Handle{ID: s.ID, AccessCode: s.AccessCode}, nil
}

// CreateOrLoad opens the session for code and makes it current.
func (m *Manager) CreateOrLoad(code string) (Handle, bool, error) {
	h, created, err := m.Open(code)
	if err != nil {
		return Handle{}, false, err
	}

	m.mu.Lock()
	m.current = h
	m.mu.Unlock()

	if err := m.save(h); err != nil {
		m.logger.Warn("could not persist session state",
			zap.String("op", "session.save"), zap.Error(err))
	}
	return h, created, nil
}

// Current returns the current handle.
func (m *Manager) Current() (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current.Valid() {
		return Handle{}, apperr.ErrNoActiveSession
	}
	return m.current, nil
}

// Clear forgets the current handle. Stored session data is untouched.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.current = Handle{}
	m.mu.Unlock()

	if m.statePath == "" {
		return nil
	}
	if err := os.Remove(m.statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session state: %w", err)
	}
	return nil
}

// Resume restores the handle saved by a previous CreateOrLoad. A state file
// pointing at a deleted session is removed.
func (m *Manager) Resume() (Handle, error) {
	if m.statePath == "" {
		return Handle{}, apperr.ErrNoActiveSession
	}

	data, err := os.ReadFile(m.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return Handle{}, apperr.ErrNoActiveSession
	}
	if err != nil {
		return Handle{}, fmt.Errorf("reading session state: %w", err)
	}

	var st state
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Handle{}, fmt.Errorf("parsing session state: %w", err)
	}

	h, err := m.Lookup(st.SessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNoActiveSession {
			m.logger.Info("saved session no longer exists",
				zap.String("op", "session.resume"), zap.String("session_id", st.SessionID))
			if err := m.Clear(); err != nil {
				m.logger.Warn("could not remove stale session state",
					zap.String("op", "session.resume"), zap.Error(err))
			}
		}
		return Handle{}, err
	}

	m.mu.Lock()
	m.current = h
	m.mu.Unlock()
	return h, nil
}

func (m *Manager) save(h Handle) error {
	if m.statePath == "" {
		return nil
	}
	data, err := yaml.Marshal(state{AccessCode: h.AccessCode, SessionID: h.ID, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.statePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.statePath, data, 0o600)
}
