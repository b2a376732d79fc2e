package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zaryo/zaryo-backend/internal/auth"
	"github.com/zaryo/zaryo-backend/internal/models"
	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserService struct {
	users    repo.Users
	accounts repo.Accounts
	tm       *auth.TokenManager
}

func NewUserService(u repo.Users, a repo.Accounts, tm *auth.TokenManager) *UserService {
	return &UserService{users: u, accounts: a, tm: tm}
}

// Register creates the user and provisions an empty token account in the
// same request, so every user has an account from the start.
func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: "user"}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	created, err := s.users.Create(ctx, u.Username, u.Email, hash, u.Role)
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.accounts.GetOrCreate(ctx, created.ID); err != nil {
		return created, err
	}
	return created, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, ErrInvalidCredentials
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}
