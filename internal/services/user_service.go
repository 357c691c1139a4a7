package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/auth"
	"github.com/akulagin/mlservice/internal/models"
	repo "github.com/akulagin/mlservice/internal/repository"
)

// RegistrationBonus is the starting credit balance for every new account.
const RegistrationBonus = 500.0

type UserService struct {
	r  repo.Users
	tm *auth.TokenManager
}

func NewUserService(r repo.Users, tm *auth.TokenManager) *UserService {
	return &UserService{r: r, tm: tm}
}

func (s *UserService) Register(username, password string) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username)}
	if err := u.Validate(); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", err, apperr.ErrValidation)
	}
	if password == "" {
		return models.User{}, fmt.Errorf("password required: %w", apperr.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil { return models.User{}, err }
	return s.r.Create(u.Username, hash, RegistrationBonus)
}

// Login verifies the credentials, touches last_login_at and issues a token.
func (s *UserService) Login(username, password string) (string, time.Time, models.User, error) {
	u, err := s.r.GetByUsername(username)
	if err != nil {
		return "", time.Time{}, models.User{}, fmt.Errorf("unknown user: %w", apperr.ErrUnauthorized)
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return "", time.Time{}, models.User{}, fmt.Errorf("bad password: %w", apperr.ErrUnauthorized)
	}
	_ = s.r.TouchLastLogin(u.ID)
	token, exp, err := s.tm.Generate(u.Username)
	if err != nil {
		return "", time.Time{}, models.User{}, err
	}
	return token, exp, u, nil
}

// Authenticate resolves a bearer token to the stored user.
func (s *UserService) Authenticate(token string) (models.User, error) {
	username, err := s.tm.Parse(token)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
	}
	u, err := s.r.GetByUsername(username)
	if err != nil {
		return models.User{}, fmt.Errorf("token subject unknown: %w", apperr.ErrUnauthorized)
	}
	return u, nil
}

func (s *UserService) Get(id int64) (models.User, error) { return s.r.GetByID(id) }

// TopUp adjusts the caller's balance by amount and returns the fresh record.
func (s *UserService) TopUp(userID int64, amount float64) (models.User, error) {
	return s.r.AddBalance(userID, amount)
}
