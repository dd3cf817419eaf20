package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmia/forum-server/server/internal/transport"
	"github.com/rhythmia/forum-server/server/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()

	m := store.NewMemory()
	return &Service{Store: m, Secret: []byte("test-secret")}, m
}

func TestSignupCreatesUser(t *testing.T) {
	s, m := newTestService(t)

	res := s.Signup("alice", "alice@example.com", "hunter22")
	require.Equal(t, http.StatusOK, res.Status)
	body, ok := res.Data.(tokenResponse)
	require.True(t, ok)
	require.NotEmpty(t, body.AccessToken)

	user, err := m.FindUserByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.UserID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, defaultAvatar, user.Avatar)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	// The users role is provisioned on first signup and attached.
	role, err := m.FindRoleByName("users")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, []string{role.ID}, user.RoleIDs)

	claims, err := s.parseToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestSignupSequentialPublicIDs(t *testing.T) {
	s, m := newTestService(t)

	require.Equal(t, http.StatusOK, s.Signup("alice", "alice@example.com", "pw").Status)
	require.Equal(t, http.StatusOK, s.Signup("bob", "bob@example.com", "pw").Status)

	bob, err := m.FindUserByUsername("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bob.UserID)
}

func TestSignupDuplicates(t *testing.T) {
	s, _ := newTestService(t)
	require.Equal(t, http.StatusOK, s.Signup("alice", "alice@example.com", "pw").Status)

	res := s.Signup("alice", "fresh@example.com", "pw")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, transport.ErrorBody{Error: "Username already existed in database"}, res.Data)

	res = s.Signup("fresh", "alice@example.com", "pw")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, transport.ErrorBody{Error: "Email already existed in database"}, res.Data)
}

func TestSigninIssuesToken(t *testing.T) {
	s, m := newTestService(t)
	require.Equal(t, http.StatusOK, s.Signup("alice", "alice@example.com", "hunter22").Status)

	before, err := m.FindUserByUsername("alice")
	require.NoError(t, err)

	res := s.Signin("alice", "hunter22")
	require.Equal(t, http.StatusOK, res.Status)
	body, ok := res.Data.(tokenResponse)
	require.True(t, ok)

	claims, err := s.parseToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	after, err := m.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.False(t, after.LastLogin.Before(before.LastLogin))
}

func TestSigninRejectionsAreIdentical(t *testing.T) {
	s, _ := newTestService(t)
	require.Equal(t, http.StatusOK, s.Signup("alice", "alice@example.com", "hunter22").Status)

	wrongPassword := s.Signin("alice", "nope")
	unknownUser := s.Signin("nobody", "hunter22")

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Status)
	assert.Equal(t, wrongPassword, unknownUser, "unknown user and wrong password must be indistinguishable")
	assert.Equal(t, transport.MessageBody{Message: "Invalid username or password"}, wrongPassword.Data)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := hashPassword("secret")
	require.NoError(t, err)
	assert.Greater(t, len(hash), saltEncodedLength)

	assert.True(t, verifyPassword(hash, "secret"))
	assert.False(t, verifyPassword(hash, "Secret"))
	assert.False(t, verifyPassword("short", "secret"))

	// A fresh salt every time: the same password never hashes the same.
	again, err := hashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	s, m := newTestService(t)
	require.NoError(t, m.InsertUser(&store.User{UserID: 1, Username: "alice", Email: "alice@example.com"}))

	user, err := m.FindUserByUsername("alice")
	require.NoError(t, err)
	token, err := s.issueToken(user)
	require.NoError(t, err)

	other := &Service{Store: m, Secret: []byte("different")}
	_, err = other.parseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	s, _ := newTestService(t)

	claims := &Claims{
		ID:       "u1",
		UserID:   1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	require.NoError(t, err)

	_, err = s.parseToken(token)
	assert.Error(t, err)
}
