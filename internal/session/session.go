// Package session owns the signed-in user's token and profile. It is populated
// at login, cleared at logout, and handed explicitly to whoever needs it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"vehicle-checkout/internal/model"
	"vehicle-checkout/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/gommon/log"
)

var ErrEmptyToken = errors.New("session token is empty")

type Store struct {
	mu      sync.RWMutex
	current *model.Session
	repo    repository.SessionRepository
	logger  *log.Logger
	now     func() time.Time
}

func NewStore(repo repository.SessionRepository, logger *log.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Restore loads a session persisted by a previous process.
func (s *Store) Restore(ctx context.Context) error {
	record, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if record == nil {
		s.current = nil
		return nil
	}
	s.current = &model.Session{
		Token: record.Token,
		User: model.User{
			ID:    record.UserID,
			Name:  record.Name,
			Email: record.Email,
			Phone: record.Phone,
			Role:  record.Role,
		},
	}
	return nil
}

func (s *Store) Login(ctx context.Context, token string, user model.User) error {
	if token == "" {
		return ErrEmptyToken
	}

	err := s.repo.Save(ctx, &model.SessionRecord{
		Token:  token,
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Phone:  user.Phone,
		Role:   user.Role,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.current = &model.Session{Token: token, User: user}
	s.mu.Unlock()

	s.logger.Infof("session started for user %s", user.ID)
	return nil
}

func (s *Store) Logout(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.logger.Info("session cleared")
	return nil
}

// Current returns the live session. A JWT whose exp has passed counts as no
// session; tokens that are not JWTs are taken as-is.
func (s *Store) Current(ctx context.Context) (*model.Session, bool) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil || current.Token == "" {
		return nil, false
	}
	if s.expired(current.Token) {
		s.logger.Warnf("session token for user %s has expired", current.User.ID)
		return nil, false
	}

	cp := *current
	return &cp, true
}

func (s *Store) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}
