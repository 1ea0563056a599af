package service

import (
	"context"
	"fmt"
	"vehicle-checkout/internal/checkout"
	"vehicle-checkout/internal/dto"
	"vehicle-checkout/internal/session"
)

type SessionService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) *dto.SessionResponse
}

type sessionServiceImpl struct {
	store    *session.Store
	registry *checkout.Registry
}

func NewSessionService(store *session.Store, registry *checkout.Registry) SessionService {
	return &sessionServiceImpl{
		store:    store,
		registry: registry,
	}
}

func (s *sessionServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.SessionResponse, error) {
	if err := s.store.Login(ctx, req.Token, req.User); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.Current(ctx), nil
}

// Logout also detaches every open checkout; their late results are not applied.
func (s *sessionServiceImpl) Logout(ctx context.Context) error {
	if err := s.store.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.registry.ReleaseAll()
	return nil
}

func (s *sessionServiceImpl) Current(ctx context.Context) *dto.SessionResponse {
	sess, ok := s.store.Current(ctx)
	if !ok {
		return &dto.SessionResponse{Authenticated: false}
	}
	user := sess.User
	return &dto.SessionResponse{Authenticated: true, User: &user}
}
