package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "forum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteNextSequence(t *testing.T) {
	s := openTestSQLite(t)

	for want := int64(1); want <= 3; want++ {
		n, err := s.NextSequence("topics")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err := s.NextSequence("posts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	s := openTestSQLite(t)

	role := &Role{Name: "users"}
	require.NoError(t, s.InsertRole(role))

	u := &User{
		UserID:       1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Avatar:       "https://a.ppy.sh/guest.png",
		RoleIDs:      []string{role.ID},
	}
	require.NoError(t, s.InsertUser(u))
	require.NotEmpty(t, u.ID)

	found, err := s.FindUser(ByPublicID(1))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "alice", found.Username)
	assert.Equal(t, []string{role.ID}, found.RoleIDs)
	assert.False(t, found.RegisteredAt.IsZero())

	assert.ErrorIs(t, s.InsertUser(&User{UserID: 2, Username: "alice", Email: "x@example.com"}), ErrDuplicate)

	missing, err := s.FindUser(ByPublicID(42))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteSaveUnknownRecord(t *testing.T) {
	s := openTestSQLite(t)

	assert.ErrorIs(t, s.SaveForum(&Forum{ID: "missing"}), ErrNotFound)
	assert.ErrorIs(t, s.SaveTopic(&Topic{ID: "missing"}), ErrNotFound)
	assert.ErrorIs(t, s.SavePost(&Post{ID: "missing"}), ErrNotFound)
}

func TestSQLiteTopicAggregates(t *testing.T) {
	s := openTestSQLite(t)

	forum := &Forum{ForumID: 1, Title: "General", Description: "talk", Category: CategoryOther}
	require.NoError(t, s.InsertForum(forum))

	topic := &Topic{TopicID: 1, ForumID: forum.ID, Title: "hello", AuthorID: "u1"}
	require.NoError(t, s.InsertTopic(topic))

	post := &Post{PostID: 1, ForumID: forum.ID, TopicID: topic.ID, AuthorID: "u1", Content: "first"}
	require.NoError(t, s.InsertPost(post))

	topic.FirstPostID = post.ID
	topic.LastPostID = post.ID
	topic.PostCount = 1
	require.NoError(t, s.SaveTopic(topic))

	forum.LatestPostID = post.ID
	require.NoError(t, s.SaveForum(forum))

	gotTopic, err := s.FindTopic(ByPublicID(1))
	require.NoError(t, err)
	require.NotNil(t, gotTopic)
	assert.Equal(t, post.ID, gotTopic.FirstPostID)
	assert.Equal(t, post.ID, gotTopic.LastPostID)
	assert.Equal(t, int64(1), gotTopic.PostCount)
	assert.Nil(t, gotTopic.DeletedAt)

	gotForum, err := s.FindForum(ByInternalID(forum.ID))
	require.NoError(t, err)
	require.NotNil(t, gotForum)
	assert.Equal(t, post.ID, gotForum.LatestPostID)

	posts, err := s.PostsByTopic(topic.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "first", posts[0].Content)
}

func TestSQLitePostEditFields(t *testing.T) {
	s := openTestSQLite(t)

	post := &Post{PostID: 1, ForumID: "f1", TopicID: "t1", AuthorID: "u1", Content: "before"}
	require.NoError(t, s.InsertPost(post))

	edited := time.Now().UTC().Truncate(time.Millisecond)
	post.Content = "after"
	post.EditedByID = "u1"
	post.EditedAt = &edited
	require.NoError(t, s.SavePost(post))

	got, err := s.FindPost(ByInternalID(post.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "after", got.Content)
	assert.Equal(t, "u1", got.EditedByID)
	require.NotNil(t, got.EditedAt)
	assert.True(t, got.EditedAt.Equal(edited))
}
