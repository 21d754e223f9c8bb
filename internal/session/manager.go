package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"jewelflow/internal/model"
)

var (
	ErrNoSession = errors.New("no active session")
	// ErrSessionChanged means the session was cleared or replaced while a
	// conditional write was pending.
	ErrSessionChanged = errors.New("session changed")
)

type EventType string

const (
	EventUpdated   EventType = "session.updated"
	EventRefreshed EventType = "session.refreshed"
	EventCleared   EventType = "session.cleared"
)

type Event struct {
	Type  EventType
	Scope Scope
	At    time.Time
}

// Manager owns the credential pair for one client. Tokens live in exactly
// one scope; the cached profile always lives in the durable scope.
type Manager struct {
	mu        sync.RWMutex
	durable   Store
	ephemeral Store
	dCreds    Credentials
	eCreds    Credentials

	subMu       sync.RWMutex
	subscribers map[string]chan Event

	now func() time.Time
}

var _ oauth2.TokenSource = (*Manager)(nil)

func NewManager(durable Store, ephemeral Store) (*Manager, error) {
	if durable == nil {
		durable = NewMemoryStore()
	}
	if ephemeral == nil {
		ephemeral = NewMemoryStore()
	}

	dCreds, err := durable.Load()
	if err != nil {
		return nil, fmt.Errorf("load durable session: %w", err)
	}
	eCreds, err := ephemeral.Load()
	if err != nil {
		return nil, fmt.Errorf("load ephemeral session: %w", err)
	}
	eCreds.Profile = nil

	return &Manager{
		durable:     durable,
		ephemeral:   ephemeral,
		dCreds:      dCreds,
		eCreds:      eCreds,
		subscribers: make(map[string]chan Event),
		now:         time.Now,
	}, nil
}

// Access returns the stored access token, durable scope first.
func (m *Manager) Access() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dCreds.AccessToken != "" {
		return m.dCreds.AccessToken
	}
	return m.eCreds.AccessToken
}

func (m *Manager) Refresh() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshLocked()
}

func (m *Manager) refreshLocked() string {
	if m.dCreds.RefreshToken != "" {
		return m.dCreds.RefreshToken
	}
	return m.eCreds.RefreshToken
}

// holdsLocked reports whether a session exists and its refresh token is refresh.
func (m *Manager) holdsLocked(refresh string) bool {
	if !m.dCreds.hasTokens() && !m.eCreds.hasTokens() {
		return false
	}
	return m.refreshLocked() == refresh
}

// Remember reports whether the active session lives in the durable scope.
func (m *Manager) Remember() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scopeLocked() == ScopeDurable
}

func (m *Manager) Authenticated() bool {
	return m.Access() != "" || m.Refresh() != ""
}

func (m *Manager) SetPair(access string, refresh string, remember bool) error {
	if access == "" {
		return fmt.Errorf("set session: %w", ErrNoSession)
	}

	m.mu.Lock()
	target := ScopeEphemeral
	if remember {
		target = ScopeDurable
	}

	dCreds := Credentials{Profile: m.dCreds.Profile}
	eCreds := Credentials{}
	if remember {
		dCreds.AccessToken, dCreds.RefreshToken = access, refresh
	} else {
		eCreds.AccessToken, eCreds.RefreshToken = access, refresh
	}

	err := m.writeLocked(dCreds, eCreds)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.publish(Event{Type: EventUpdated, Scope: target, At: m.now()})
	return nil
}

// SetAccess replaces the access token in whichever scope holds the session.
// The refresh token is left untouched.
func (m *Manager) SetAccess(access string) error {
	if access == "" {
		return fmt.Errorf("set access: %w", ErrNoSession)
	}

	m.mu.Lock()
	scope, err := m.setAccessLocked(access)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.publish(Event{Type: EventRefreshed, Scope: scope, At: m.now()})
	return nil
}

// SetAccessFor stores access only while refresh is still the session's
// refresh token. After a logout or a new login it writes nothing and
// returns ErrSessionChanged.
func (m *Manager) SetAccessFor(refresh string, access string) error {
	if access == "" {
		return fmt.Errorf("set access: %w", ErrNoSession)
	}

	m.mu.Lock()
	if !m.holdsLocked(refresh) {
		m.mu.Unlock()
		return fmt.Errorf("set access: %w", ErrSessionChanged)
	}
	scope, err := m.setAccessLocked(access)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.publish(Event{Type: EventRefreshed, Scope: scope, At: m.now()})
	return nil
}

func (m *Manager) setAccessLocked(access string) (Scope, error) {
	scope := m.scopeLocked()
	dCreds, eCreds := m.dCreds, m.eCreds
	if scope == ScopeDurable {
		dCreds.AccessToken = access
	} else {
		eCreds.AccessToken = access
	}
	return scope, m.writeLocked(dCreds, eCreds)
}

// Clear drops both credentials from both scopes along with the cached profile.
// Every store is cleared even if one fails; the first error is returned.
func (m *Manager) Clear() error {
	m.mu.Lock()
	err := m.clearLocked()
	m.mu.Unlock()

	m.publish(Event{Type: EventCleared, At: m.now()})
	return err
}

// ClearFor clears the session only while refresh is still its refresh
// token, and reports whether it did. Of several callers that saw the same
// dead session, exactly one gets true.
func (m *Manager) ClearFor(refresh string) (bool, error) {
	m.mu.Lock()
	if !m.holdsLocked(refresh) {
		m.mu.Unlock()
		return false, nil
	}
	err := m.clearLocked()
	m.mu.Unlock()

	m.publish(Event{Type: EventCleared, At: m.now()})
	return true, err
}

func (m *Manager) clearLocked() error {
	errD := m.durable.Clear()
	errE := m.ephemeral.Clear()
	m.dCreds = Credentials{}
	m.eCreds = Credentials{}

	if errD != nil {
		return fmt.Errorf("clear durable session: %w", errD)
	}
	if errE != nil {
		return fmt.Errorf("clear ephemeral session: %w", errE)
	}
	return nil
}

func (m *Manager) Profile() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dCreds.Profile == nil {
		return model.User{}, false
	}
	return *m.dCreds.Profile, true
}

func (m *Manager) SetProfile(user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dCreds := m.dCreds
	dCreds.Profile = &user
	if err := m.durable.Save(dCreds); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	m.dCreds = dCreds
	return nil
}

// Identity prefers the cached profile and falls back to the access token's claims.
func (m *Manager) Identity() (model.User, bool) {
	if user, ok := m.Profile(); ok {
		return user, true
	}

	access := m.Access()
	if access == "" {
		return model.User{}, false
	}

	claims, err := DecodeClaims(access)
	if err != nil {
		slog.Debug("access token claims unreadable", "error", err)
		return model.User{}, false
	}
	return claims.User, true
}

// Token exposes the session as an oauth2 token so callers can use
// SetAuthHeader or wrap it in an oauth2.Transport.
func (m *Manager) Token() (*oauth2.Token, error) {
	access := m.Access()
	if access == "" {
		return nil, ErrNoSession
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: m.Refresh(),
		TokenType:    "Bearer",
	}
	if claims, err := DecodeClaims(access); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok, nil
}

// Subscribe returns a buffered event channel and an unsubscribe function.
// Slow subscribers miss events rather than stall writers.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 16)
	m.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if ch, ok := m.subscribers[id]; ok {
				close(ch)
				delete(m.subscribers, id)
			}
		})
	}

	return ch, unsubscribe
}

func (m *Manager) publish(e Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- e:
		default:
			slog.Debug("session event dropped", "type", e.Type)
		}
	}
}

func (m *Manager) scopeLocked() Scope {
	if m.dCreds.hasTokens() {
		return ScopeDurable
	}
	return ScopeEphemeral
}

func (m *Manager) writeLocked(dCreds Credentials, eCreds Credentials) error {
	if err := m.durable.Save(dCreds); err != nil {
		return fmt.Errorf("save durable session: %w", err)
	}
	m.dCreds = dCreds

	if err := m.ephemeral.Save(eCreds); err != nil {
		return fmt.Errorf("save ephemeral session: %w", err)
	}
	m.eCreds = eCreds
	return nil
}
