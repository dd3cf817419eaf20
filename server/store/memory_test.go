package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequenceStartsAtOne(t *testing.T) {
	m := NewMemory()

	n, err := m.NextSequence("topics")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.NextSequence("topics")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Counters are per collection.
	n, err = m.NextSequence("posts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNextSequenceConcurrent(t *testing.T) {
	m := NewMemory()

	const workers = 64
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.NextSequence("users")
			assert.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for n := range results {
		assert.False(t, seen[n], "duplicate sequence value %d", n)
		seen[n] = true
	}
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing sequence value %d", i)
	}
}

func TestInsertUserAssignsIDAndTimestamps(t *testing.T) {
	m := NewMemory()

	u := &User{UserID: 1, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, m.InsertUser(u))

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.RegisteredAt.IsZero())
	assert.False(t, u.LastLogin.IsZero())
}

func TestInsertUserDuplicate(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.InsertUser(&User{UserID: 1, Username: "alice", Email: "alice@example.com"}))

	err := m.InsertUser(&User{UserID: 2, Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = m.InsertUser(&User{UserID: 3, Username: "bob", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFindUserByEitherID(t *testing.T) {
	m := NewMemory()

	u := &User{UserID: 7, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, m.InsertUser(u))

	byInternal, err := m.FindUser(ByInternalID(u.ID))
	require.NoError(t, err)
	require.NotNil(t, byInternal)
	assert.Equal(t, "alice", byInternal.Username)

	byPublic, err := m.FindUser(ByPublicID(7))
	require.NoError(t, err)
	require.NotNil(t, byPublic)
	assert.Equal(t, u.ID, byPublic.ID)

	missing, err := m.FindUser(ByPublicID(99))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindReturnsCopy(t *testing.T) {
	m := NewMemory()

	u := &User{UserID: 1, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, m.InsertUser(u))

	found, err := m.FindUser(ByInternalID(u.ID))
	require.NoError(t, err)
	found.Username = "mallory"

	again, err := m.FindUser(ByInternalID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username, "mutating a returned record must not touch the store")
}

func TestSaveUserOverwritesRecord(t *testing.T) {
	m := NewMemory()

	u := &User{UserID: 1, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, m.InsertUser(u))

	u.Avatar = "https://example.com/alice.png"
	require.NoError(t, m.SaveUser(u))

	found, err := m.FindUser(ByInternalID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/alice.png", found.Avatar)
}

func TestSaveUnknownRecord(t *testing.T) {
	m := NewMemory()

	err := m.SaveUser(&User{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsersPagination(t *testing.T) {
	m := NewMemory()

	names := []string{"a", "b", "c", "d", "e"}
	for i, name := range names {
		require.NoError(t, m.InsertUser(&User{UserID: int64(i + 1), Username: name, Email: name + "@example.com"}))
	}

	page, err := m.Users(0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].Username)
	assert.Equal(t, "b", page[1].Username)

	page, err = m.Users(3, 50)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Username)

	page, err = m.Users(10, 50)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestTopicsByForum(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.InsertTopic(&Topic{TopicID: 1, ForumID: "f1", Title: "first"}))
	require.NoError(t, m.InsertTopic(&Topic{TopicID: 2, ForumID: "f2", Title: "elsewhere"}))
	require.NoError(t, m.InsertTopic(&Topic{TopicID: 3, ForumID: "f1", Title: "second"}))

	topics, err := m.TopicsByForum("f1")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "first", topics[0].Title)
	assert.Equal(t, "second", topics[1].Title)
}

func TestPostsByTopic(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.InsertPost(&Post{PostID: 1, TopicID: "t1", Content: "one"}))
	require.NoError(t, m.InsertPost(&Post{PostID: 2, TopicID: "t2", Content: "other"}))
	require.NoError(t, m.InsertPost(&Post{PostID: 3, TopicID: "t1", Content: "two"}))

	posts, err := m.PostsByTopic("t1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "one", posts[0].Content)
	assert.Equal(t, "two", posts[1].Content)
}

func TestRoles(t *testing.T) {
	m := NewMemory()

	users := &Role{Name: "users"}
	admin := &Role{Name: "admin"}
	require.NoError(t, m.InsertRole(users))
	require.NoError(t, m.InsertRole(admin))

	assert.ErrorIs(t, m.InsertRole(&Role{Name: "admin"}), ErrDuplicate)

	found, err := m.FindRoleByName("admin")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, admin.ID, found.ID)

	roles, err := m.RolesByIDs([]string{admin.ID, users.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)
	assert.Equal(t, "users", roles[1].Name)
}

func TestParseID(t *testing.T) {
	assert.Equal(t, ByPublicID(42), ParseID("42"))
	assert.Equal(t, ByInternalID("a1b2c3"), ParseID("a1b2c3"))
	assert.Equal(t, ByPublicID(-1), ParseID("-1"))
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategorySongs.Valid())
	assert.True(t, CategoryGameplay.Valid())
	assert.True(t, CategoryOther.Valid())
	assert.True(t, CategoryLanguage.Valid())
	assert.False(t, Category("music").Valid())
	assert.False(t, Category("").Valid())
}
