package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"PINJAM-backend/internal/platform/db"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleUser    = "user"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("authentication failed")
	ErrRateLimited        = errors.New("too many login attempts")
)

type AuthService interface {
	Login(ctx context.Context, id, password string) (string, error)
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration

	// ログイン試行はID単位で 1分あたり5回まで
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewService(conn *sql.DB, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:    NewStore(conn),
		secret:   secret,
		ttl:      ttl,
		limiters: map[string]*rate.Limiter{},
	}
}

func (s *Service) limiter(id string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute), 5)
		s.limiters[id] = l
	}
	return l
}

func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	if !s.limiter(id).Allow() {
		return "", ErrRateLimited
	}

	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(acct.ID, acct.Role)
}

// IssueToken signs an HS256 token carrying sub and role.
func (s *Service) IssueToken(id, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id,
		"role": role,
		"exp":  time.Now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Register creates an account. It backs the `account create` command.
func (s *Service) Register(ctx context.Context, id, password, displayName, role string) error {
	id = strings.TrimSpace(id)
	if id == "" || password == "" {
		return errors.New("id and password are required")
	}
	if role == "" {
		role = RoleUser
	}
	if !ValidRole(role) {
		return errors.New("unknown role: " + role)
	}

	exists, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = s.store.Create(ctx, &Account{
		ID:           id,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
	})
	if db.IsUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleUser:
		return true
	}
	return false
}
