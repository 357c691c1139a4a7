package services

import (
	"testing"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/auth"
	"github.com/akulagin/mlservice/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService() *UserService {
	return NewUserService(memory.NewUsers(), auth.NewTokenManager("test-secret"))
}

func TestRegisterGrantsBonus(t *testing.T) {
	s := newUserService()
	u, err := s.Register("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, RegistrationBonus, u.Balance)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newUserService()
	_, err := s.Register("alice", "pw")
	require.NoError(t, err)

	_, err = s.Register("alice", "other")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	s := newUserService()
	_, err := s.Register("ab", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Register("alice", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newUserService()
	_, err := s.Register("alice", "pw")
	require.NoError(t, err)

	_, _, _, err = s.Login("alice", "nope")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLoginUnknownUser(t *testing.T) {
	s := newUserService()
	_, _, _, err := s.Login("ghost", "pw")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLoginTokenRoundTrips(t *testing.T) {
	s := newUserService()
	reg, err := s.Register("alice", "pw")
	require.NoError(t, err)

	token, _, u, err := s.Login("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)

	got, err := s.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)

	// login touched the last-login timestamp
	fresh, err := s.Get(reg.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastLoginAt)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	s := newUserService()
	_, err := s.Authenticate("garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTopUp(t *testing.T) {
	s := newUserService()
	u, err := s.Register("alice", "pw")
	require.NoError(t, err)

	fresh, err := s.TopUp(u.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, RegistrationBonus+50, fresh.Balance)
}
