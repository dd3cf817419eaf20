package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-memory implementation of API. It backs tests and local
// development; records are kept as values and copied on the way in and out so
// callers only affect the store through Save.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
	roles    []Role
	users    []User
	forums   []Forum
	topics   []Topic
	posts    []Post
}

func NewMemory() *Memory {
	return &Memory{
		counters: map[string]int64{},
	}
}

func (m *Memory) NextSequence(collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[collection]++
	return m.counters[collection], nil
}

func (m *Memory) InsertRole(r *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return ErrDuplicate
		}
	}
	m.roles = append(m.roles, *r)
	return nil
}

func (m *Memory) FindRoleByName(name string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.roles {
		if r.Name == name {
			role := r
			return &role, nil
		}
	}
	return nil, nil
}

func (m *Memory) RolesByIDs(ids []string) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roles := make([]*Role, 0, len(ids))
	for _, id := range ids {
		for _, r := range m.roles {
			if r.ID == id {
				role := r
				roles = append(roles, &role)
				break
			}
		}
	}
	return roles, nil
}

func (m *Memory) InsertUser(u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = now
	}
	if u.LastLogin.IsZero() {
		u.LastLogin = now
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *Memory) FindUser(id Lookup) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if matchesUser(u, id) {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func matchesUser(u User, id Lookup) bool {
	if id.byPublic {
		return u.UserID == id.public
	}
	return u.ID == id.internal
}

func (m *Memory) FindUserByUsername(username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindUserByUsernameOrEmail(username, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (m *Memory) Users(skip, limit int) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return pageOf(m.users, skip, limit), nil
}

func (m *Memory) SaveUser(u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.users {
		if existing.ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) InsertForum(f *Forum) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = now
	}
	m.forums = append(m.forums, *f)
	return nil
}

func (m *Memory) FindForum(id Lookup) (*Forum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.forums {
		if (id.byPublic && f.ForumID == id.public) || (!id.byPublic && f.ID == id.internal) {
			forum := f
			return &forum, nil
		}
	}
	return nil, nil
}

func (m *Memory) Forums(skip, limit int) ([]*Forum, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return pageOf(m.forums, skip, limit), nil
}

func (m *Memory) SaveForum(f *Forum) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.forums {
		if existing.ID == f.ID {
			m.forums[i] = *f
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) InsertTopic(t *Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	m.topics = append(m.topics, *t)
	return nil
}

func (m *Memory) FindTopic(id Lookup) (*Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.topics {
		if (id.byPublic && t.TopicID == id.public) || (!id.byPublic && t.ID == id.internal) {
			topic := t
			return &topic, nil
		}
	}
	return nil, nil
}

func (m *Memory) TopicsByForum(forumID string) ([]*Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]*Topic, 0)
	for _, t := range m.topics {
		if t.ForumID == forumID {
			topic := t
			topics = append(topics, &topic)
		}
	}
	return topics, nil
}

func (m *Memory) SaveTopic(t *Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.topics {
		if existing.ID == t.ID {
			m.topics[i] = *t
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) InsertPost(p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.posts = append(m.posts, *p)
	return nil
}

func (m *Memory) FindPost(id Lookup) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.posts {
		if (id.byPublic && p.PostID == id.public) || (!id.byPublic && p.ID == id.internal) {
			post := p
			return &post, nil
		}
	}
	return nil, nil
}

func (m *Memory) PostsByTopic(topicID string) ([]*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := make([]*Post, 0)
	for _, p := range m.posts {
		if p.TopicID == topicID {
			post := p
			posts = append(posts, &post)
		}
	}
	return posts, nil
}

func (m *Memory) SavePost(p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.posts {
		if existing.ID == p.ID {
			m.posts[i] = *p
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Close() error {
	return nil
}

func pageOf[T any](records []T, skip, limit int) []*T {
	if skip < 0 {
		skip = 0
	}
	if skip > len(records) {
		skip = len(records)
	}
	end := len(records)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	out := make([]*T, 0, end-skip)
	for i := skip; i < end; i++ {
		record := records[i]
		out = append(out, &record)
	}
	return out
}

var _ API = (*Memory)(nil)
