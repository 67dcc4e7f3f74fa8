// Package session holds the client-side proof of identity: the bearer token
// and the cached user profile.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/pkg/domain"
)

const (
	keyToken = "token"
	keyUser  = "user"

	// EnvToken overrides the stored token when non-empty.
	EnvToken = "HANDYHUB_TOKEN"
)

// Repository is the session contract consumed by the guard, the client and
// the booking controllers.
type Repository interface {
	Token() string
	SetToken(token string) error
	User() *domain.User
	SetUser(u *domain.User) error
	Session() domain.Session
	SetSession(token string, u *domain.User) error
	Clear() error
	IsAuthenticated() bool
}

// Listener is notified after every session change.
type Listener func(domain.Session)

// Store is the Repository implementation over a Backend.
type Store struct {
	backend Backend
	logger  zerolog.Logger
	getenv  func(string) string

	mu        sync.Mutex
	listeners []Listener
	// envMasked hides the env token after Clear. The variable itself cannot
	// be unset from here.
	envMasked bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for storage failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l.With().Str("component", "session").Logger() }
}

// WithEnv replaces os.Getenv for the token override.
func WithEnv(getenv func(string) string) Option {
	return func(s *Store) { s.getenv = getenv }
}

// New returns a Store over backend. A nil backend is treated as unavailable.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = Unavailable{}
	}
	s := &Store{backend: backend, logger: zerolog.Nop(), getenv: os.Getenv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after SetToken, SetUser, SetSession and Clear.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	sess := s.Session()
	for _, fn := range listeners {
		fn(sess)
	}
}

// Token returns the bearer token, env first, then storage. Empty when absent.
func (s *Store) Token() string {
	if tok := s.envToken(); tok != "" {
		return tok
	}
	return s.storedToken()
}

func (s *Store) envToken() string {
	s.mu.Lock()
	masked := s.envMasked
	s.mu.Unlock()
	if masked {
		return ""
	}
	return strings.TrimSpace(s.getenv(EnvToken))
}

// EnvOverride reports whether the token currently comes from EnvToken.
func (s *Store) EnvOverride() bool {
	return s.envToken() != ""
}

func (s *Store) storedToken() string {
	v, err := s.backend.Get(keyToken)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Msg("read token")
		}
		return ""
	}
	return strings.TrimSpace(v)
}

// SetToken persists token. An empty token deletes it.
func (s *Store) SetToken(token string) error {
	if err := s.setToken(token); err != nil {
		return fmt.Errorf("session.SetToken: %w", err)
	}
	s.notify()
	return nil
}

func (s *Store) setToken(token string) error {
	if token == "" {
		return s.backend.Delete(keyToken)
	}
	return s.backend.Set(keyToken, token)
}

// User returns the cached profile, or nil when absent or unreadable.
func (s *Store) User() *domain.User {
	v, err := s.backend.Get(keyUser)
	if err != nil || v == "" {
		return nil
	}
	var u domain.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupted user record")
		return nil
	}
	return &u
}

// SetUser persists u. A nil user deletes the record.
func (s *Store) SetUser(u *domain.User) error {
	if err := s.setUser(u); err != nil {
		return fmt.Errorf("session.SetUser: %w", err)
	}
	s.notify()
	return nil
}

func (s *Store) setUser(u *domain.User) error {
	if u == nil {
		return s.backend.Delete(keyUser)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.backend.Set(keyUser, string(data))
}

// Session returns the token and user together.
func (s *Store) Session() domain.Session {
	return domain.Session{Token: s.Token(), User: s.User()}
}

// SetSession writes token and user as one unit. When the user write fails
// the previous token is restored.
func (s *Store) SetSession(token string, u *domain.User) error {
	prev, prevErr := s.backend.Get(keyToken)
	hadPrev := prevErr == nil

	if err := s.setToken(token); err != nil {
		return fmt.Errorf("session.SetSession: token: %w", err)
	}
	if err := s.setUser(u); err != nil {
		var rbErr error
		if hadPrev {
			rbErr = s.backend.Set(keyToken, prev)
		} else {
			rbErr = s.backend.Delete(keyToken)
		}
		if rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback token after failed user write")
		}
		return fmt.Errorf("session.SetSession: user: %w", err)
	}
	s.notify()
	return nil
}

// Clear removes the stored token and user and masks the env token for the
// rest of the process. Clearing twice is fine.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.envMasked = true
	s.mu.Unlock()
	errTok := s.backend.Delete(keyToken)
	errUser := s.backend.Delete(keyUser)
	if err := errors.Join(errTok, errUser); err != nil {
		return fmt.Errorf("session.Clear: %w", err)
	}
	s.notify()
	return nil
}

// IsAuthenticated reports whether a token is present. It does not validate it.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsUser reports whether u is a customer account.
func IsUser(u *domain.User) bool { return domain.IsUser(u) }

// IsProvider reports whether u is a provider account.
func IsProvider(u *domain.User) bool { return domain.IsProvider(u) }
