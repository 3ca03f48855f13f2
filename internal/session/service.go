package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrMissingCredentials = errors.New("email and password are required")
)

// Message returns the user-facing text for an account error.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, ErrAlreadyRegistered):
		return "Email already registered"
	case errors.Is(err, ErrMissingCredentials):
		return "Email and password are required"
	default:
		return "Something went wrong, try again"
	}
}

// Session is the cached signed-in state.
type Session struct {
	LoggedIn bool
	Email    string
}

// User is one entry of the users record.
type User struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost for new registrations.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service performs account operations against a Repository and caches the
// resulting Session for synchronous reads.
type Service struct {
	repo   Repository
	logger *slog.Logger
	cost   int

	mu      sync.RWMutex
	current Session
}

// NewService loads the persisted session. Unreadable state starts anonymous.
func NewService(ctx context.Context, repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default(), cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn("session reload failed", "error", err)
	}
	return s
}

// Current returns the cached session without touching the repository.
func (s *Service) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) setCurrent(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// Reload re-reads the session from the repository.
func (s *Service) Reload(ctx context.Context) error {
	login, _, err := s.repo.Get(ctx, KeyLogin)
	if err != nil {
		s.setCurrent(Session{})
		return fmt.Errorf("read %s: %w", KeyLogin, err)
	}
	user, _, err := s.repo.Get(ctx, KeyUser)
	if err != nil {
		s.setCurrent(Session{})
		return fmt.Errorf("read %s: %w", KeyUser, err)
	}
	s.setCurrent(decodeSession(login, user, s.logger))
	return nil
}

// decodeSession interprets the persisted marker. Anything other than a
// well-formed signed-in pair is anonymous.
func decodeSession(login, user string, logger *slog.Logger) Session {
	login = strings.TrimSpace(login)
	user = strings.TrimSpace(user)
	switch login {
	case "", "false":
		return Session{}
	case "true":
		if user == "" {
			logger.Warn("session marker without user, treating as anonymous")
			return Session{}
		}
		// Older stores wrote the user as a JSON string.
		if strings.HasPrefix(user, `"`) {
			var email string
			if err := json.Unmarshal([]byte(user), &email); err != nil || email == "" {
				logger.Warn("malformed session user, treating as anonymous")
				return Session{}
			}
			user = email
		}
		return Session{LoggedIn: true, Email: user}
	default:
		logger.Warn("malformed session marker, treating as anonymous", "value", login)
		return Session{}
	}
}

// Login establishes a session when email and password match a registered
// user. On failure nothing is changed.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		s.logger.Warn("users record unreadable", "error", err)
		return ErrInvalidCredentials
	}
	u, ok := findUser(users, email)
	if !ok || !checkPassword(u.Password, password) {
		return ErrInvalidCredentials
	}

	if err := s.repo.Set(ctx, KeyLogin, "true"); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := s.repo.Set(ctx, KeyUser, u.Email); err != nil {
		_ = s.repo.Clear(ctx, KeyLogin)
		return fmt.Errorf("persist session: %w", err)
	}
	s.setCurrent(Session{LoggedIn: true, Email: u.Email})
	s.logger.Info("signed in", "email", u.Email)
	return nil
}

// Register adds a user. It does not sign the user in.
func (s *Service) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		// Refuse rather than overwrite a record we cannot read.
		return fmt.Errorf("read users: %w", err)
	}
	if _, ok := findUser(users, email); ok {
		return ErrAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users = append(users, User{Email: email, Password: string(hash)})

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.repo.Set(ctx, KeyUsers, string(data)); err != nil {
		return fmt.Errorf("persist users: %w", err)
	}
	s.logger.Info("registered", "email", email)
	return nil
}

// Logout clears the session marker and identity.
func (s *Service) Logout(ctx context.Context) error {
	s.setCurrent(Session{})
	if err := s.repo.Clear(ctx, KeyLogin); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := s.repo.Clear(ctx, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Users returns the registered users. Password fields hold hashes.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.loadUsers(ctx)
}

func (s *Service) loadUsers(ctx context.Context) ([]User, error) {
	raw, ok, err := s.repo.Get(ctx, KeyUsers)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var users []User
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func findUser(users []User, email string) (User, bool) {
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Email), email) {
			return u, true
		}
	}
	return User{}, false
}

// checkPassword accepts bcrypt hashes and, for records written by older
// clients, plain text.
func checkPassword(stored, password string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
