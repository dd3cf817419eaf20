package user

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmia/forum-server/server/internal/transport"
	"github.com/rhythmia/forum-server/server/projection"
	"github.com/rhythmia/forum-server/server/store"
)

func seedUsers(t *testing.T, m *store.Memory, n int) []*store.User {
	t.Helper()

	role := &store.Role{Name: "users"}
	require.NoError(t, m.InsertRole(role))

	users := make([]*store.User, 0, n)
	for i := 0; i < n; i++ {
		seq, err := m.NextSequence("users")
		require.NoError(t, err)
		u := &store.User{
			UserID:   seq,
			Username: "user" + string(rune('a'+i)),
			Email:    "user" + string(rune('a'+i)) + "@example.com",
			RoleIDs:  []string{role.ID},
		}
		require.NoError(t, m.InsertUser(u))
		users = append(users, u)
	}
	return users
}

func TestGetManyPopulatesRoles(t *testing.T) {
	m := store.NewMemory()
	seedUsers(t, m, 3)
	s := &Service{Store: m}

	res := s.GetMany(0)
	require.Equal(t, http.StatusOK, res.Status)
	body, ok := res.Data.(usersResponse)
	require.True(t, ok)
	require.Len(t, body.Users, 3)

	roles, ok := body.Users[0].Roles.([]projection.RoleInfo)
	require.True(t, ok)
	require.Len(t, roles, 1)
	assert.Equal(t, "users", roles[0].Name)
}

func TestGetManySkips(t *testing.T) {
	m := store.NewMemory()
	seedUsers(t, m, 3)
	s := &Service{Store: m}

	res := s.GetMany(2)
	require.Equal(t, http.StatusOK, res.Status)
	body := res.Data.(usersResponse)
	require.Len(t, body.Users, 1)
	assert.Equal(t, int64(3), body.Users[0].UserID)
}

func TestGetOneByPublicID(t *testing.T) {
	m := store.NewMemory()
	users := seedUsers(t, m, 2)
	s := &Service{Store: m}

	res := s.GetOne(store.ByPublicID(2))
	require.Equal(t, http.StatusOK, res.Status)
	body, ok := res.Data.(userResponse)
	require.True(t, ok)
	assert.Equal(t, users[1].ID, body.User.ID)
	assert.Equal(t, users[1].Username, body.User.Username)
}

func TestGetOneByInternalID(t *testing.T) {
	m := store.NewMemory()
	users := seedUsers(t, m, 1)
	s := &Service{Store: m}

	res := s.GetOne(store.ByInternalID(users[0].ID))
	require.Equal(t, http.StatusOK, res.Status)
	body := res.Data.(userResponse)
	assert.Equal(t, int64(1), body.User.UserID)
}

func TestGetOneNotFound(t *testing.T) {
	s := &Service{Store: store.NewMemory()}

	res := s.GetOne(store.ByPublicID(42))
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, transport.ErrorBody{Error: "No user found"}, res.Data)
}
