package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is the database-backed implementation of API.
//
// Each Save issues a single full-row UPDATE, so individual writes are atomic
// while multi-record aggregate updates remain independent saves.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at the given path and runs
// migrations.
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	normalized := filepath.ToSlash(path)
	dsn := "file:" + normalized + "?cache=shared" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			roles TEXT NOT NULL,
			registered_at TEXT NOT NULL,
			last_login TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS forums (
			id TEXT PRIMARY KEY,
			forum_id INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			latest_post_id TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS topics (
			id TEXT PRIMARY KEY,
			topic_id INTEGER NOT NULL UNIQUE,
			forum_id TEXT NOT NULL,
			title TEXT NOT NULL,
			author_id TEXT NOT NULL,
			post_count INTEGER NOT NULL DEFAULT 0,
			view_count INTEGER NOT NULL DEFAULT 0,
			first_post_id TEXT,
			last_post_id TEXT,
			is_locked INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			deleted_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_topics_forum ON topics(forum_id, topic_id);`,

		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			post_id INTEGER NOT NULL UNIQUE,
			forum_id TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			content TEXT NOT NULL,
			upvote_count INTEGER NOT NULL DEFAULT 0,
			downvote_count INTEGER NOT NULL DEFAULT 0,
			vote_score INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			edited_by_id TEXT,
			edited_at TEXT,
			deleted_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_topic ON posts(topic_id, post_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "unique")
}

func (s *SQLite) NextSequence(collection string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO counters(name, value) VALUES(?, 0);`, collection); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`UPDATE counters SET value = value + 1 WHERE name = ?;`, collection); err != nil {
		return 0, err
	}
	var value int64
	if err := tx.QueryRow(`SELECT value FROM counters WHERE name = ?;`, collection).Scan(&value); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return value, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	t := parseTime(raw.String)
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *SQLite) InsertRole(r *Role) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO roles(id, name) VALUES(?, ?);`, r.ID, r.Name)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) FindRoleByName(name string) (*Role, error) {
	var r Role
	err := s.db.QueryRow(`SELECT id, name FROM roles WHERE name = ?;`, name).Scan(&r.ID, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLite) RolesByIDs(ids []string) ([]*Role, error) {
	roles := make([]*Role, 0, len(ids))
	for _, id := range ids {
		var r Role
		err := s.db.QueryRow(`SELECT id, name FROM roles WHERE id = ?;`, id).Scan(&r.ID, &r.Name)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		roles = append(roles, &r)
	}
	return roles, nil
}

func (s *SQLite) InsertUser(u *User) error {
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
	roles, err := json.Marshal(u.RoleIDs)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO users(id, user_id, username, email, password_hash, avatar, roles, registered_at, last_login)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		u.ID, u.UserID, u.Username, u.Email, u.PasswordHash, u.Avatar, string(roles),
		formatTime(u.RegisteredAt), formatTime(u.LastLogin),
	)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

const userColumns = `id, user_id, username, email, password_hash, avatar, roles, registered_at, last_login`

func (s *SQLite) scanUser(row *sql.Row) (*User, error) {
	var (
		u          User
		roles      string
		registered string
		lastLogin  string
	)
	err := row.Scan(&u.ID, &u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Avatar, &roles, &registered, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roles), &u.RoleIDs); err != nil {
		return nil, err
	}
	u.RegisteredAt = parseTime(registered)
	u.LastLogin = parseTime(lastLogin)
	return &u, nil
}

func (s *SQLite) FindUser(id Lookup) (*User, error) {
	if id.byPublic {
		return s.scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?;`, id.public))
	}
	return s.scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?;`, id.internal))
}

func (s *SQLite) FindUserByUsername(username string) (*User, error) {
	return s.scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?;`, username))
}

func (s *SQLite) FindUserByUsernameOrEmail(username, email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1;`, username, email))
}

func (s *SQLite) Users(skip, limit int) ([]*User, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+userColumns+` FROM users ORDER BY user_id LIMIT ? OFFSET ?;`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var (
			u          User
			roles      string
			registered string
			lastLogin  string
		)
		if err := rows.Scan(&u.ID, &u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Avatar, &roles, &registered, &lastLogin); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(roles), &u.RoleIDs); err != nil {
			return nil, err
		}
		u.RegisteredAt = parseTime(registered)
		u.LastLogin = parseTime(lastLogin)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLite) SaveUser(u *User) error {
	roles, err := json.Marshal(u.RoleIDs)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE users SET user_id = ?, username = ?, email = ?, password_hash = ?, avatar = ?, roles = ?, registered_at = ?, last_login = ?
		 WHERE id = ?;`,
		u.UserID, u.Username, u.Email, u.PasswordHash, u.Avatar, string(roles),
		formatTime(u.RegisteredAt), formatTime(u.LastLogin), u.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLite) InsertForum(f *Forum) error {
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
	_, err := s.db.Exec(
		`INSERT INTO forums(id, forum_id, title, description, category, latest_post_id, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?);`,
		f.ID, f.ForumID, f.Title, f.Description, string(f.Category),
		nullableString(f.LatestPostID), formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

const forumColumns = `id, forum_id, title, description, category, latest_post_id, created_at, updated_at`

func scanForumRow(scan func(dest ...any) error) (*Forum, error) {
	var (
		f          Forum
		category   string
		latestPost sql.NullString
		created    string
		updated    string
	)
	if err := scan(&f.ID, &f.ForumID, &f.Title, &f.Description, &category, &latestPost, &created, &updated); err != nil {
		return nil, err
	}
	f.Category = Category(category)
	f.LatestPostID = latestPost.String
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return &f, nil
}

func (s *SQLite) FindForum(id Lookup) (*Forum, error) {
	var row *sql.Row
	if id.byPublic {
		row = s.db.QueryRow(`SELECT `+forumColumns+` FROM forums WHERE forum_id = ?;`, id.public)
	} else {
		row = s.db.QueryRow(`SELECT `+forumColumns+` FROM forums WHERE id = ?;`, id.internal)
	}
	forum, err := scanForumRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return forum, nil
}

func (s *SQLite) Forums(skip, limit int) ([]*Forum, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+forumColumns+` FROM forums ORDER BY forum_id LIMIT ? OFFSET ?;`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forums []*Forum
	for rows.Next() {
		forum, err := scanForumRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		forums = append(forums, forum)
	}
	return forums, rows.Err()
}

func (s *SQLite) SaveForum(f *Forum) error {
	res, err := s.db.Exec(
		`UPDATE forums SET forum_id = ?, title = ?, description = ?, category = ?, latest_post_id = ?, created_at = ?, updated_at = ?
		 WHERE id = ?;`,
		f.ForumID, f.Title, f.Description, string(f.Category),
		nullableString(f.LatestPostID), formatTime(f.CreatedAt), formatTime(f.UpdatedAt), f.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLite) InsertTopic(t *Topic) error {
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
	_, err := s.db.Exec(
		`INSERT INTO topics(id, topic_id, forum_id, title, author_id, post_count, view_count, first_post_id, last_post_id, is_locked, created_at, updated_at, deleted_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		t.ID, t.TopicID, t.ForumID, t.Title, t.AuthorID, t.PostCount, t.ViewCount,
		nullableString(t.FirstPostID), nullableString(t.LastPostID), boolToInt(t.IsLocked),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nullableTime(t.DeletedAt),
	)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

const topicColumns = `id, topic_id, forum_id, title, author_id, post_count, view_count, first_post_id, last_post_id, is_locked, created_at, updated_at, deleted_at`

func scanTopicRow(scan func(dest ...any) error) (*Topic, error) {
	var (
		t         Topic
		firstPost sql.NullString
		lastPost  sql.NullString
		locked    int
		created   string
		updated   string
		deleted   sql.NullString
	)
	if err := scan(&t.ID, &t.TopicID, &t.ForumID, &t.Title, &t.AuthorID, &t.PostCount, &t.ViewCount,
		&firstPost, &lastPost, &locked, &created, &updated, &deleted); err != nil {
		return nil, err
	}
	t.FirstPostID = firstPost.String
	t.LastPostID = lastPost.String
	t.IsLocked = locked != 0
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	t.DeletedAt = scanNullableTime(deleted)
	return &t, nil
}

func (s *SQLite) FindTopic(id Lookup) (*Topic, error) {
	var row *sql.Row
	if id.byPublic {
		row = s.db.QueryRow(`SELECT `+topicColumns+` FROM topics WHERE topic_id = ?;`, id.public)
	} else {
		row = s.db.QueryRow(`SELECT `+topicColumns+` FROM topics WHERE id = ?;`, id.internal)
	}
	topic, err := scanTopicRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *SQLite) TopicsByForum(forumID string) ([]*Topic, error) {
	rows, err := s.db.Query(`SELECT `+topicColumns+` FROM topics WHERE forum_id = ? ORDER BY topic_id;`, forumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []*Topic
	for rows.Next() {
		topic, err := scanTopicRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

func (s *SQLite) SaveTopic(t *Topic) error {
	res, err := s.db.Exec(
		`UPDATE topics SET topic_id = ?, forum_id = ?, title = ?, author_id = ?, post_count = ?, view_count = ?, first_post_id = ?, last_post_id = ?, is_locked = ?, created_at = ?, updated_at = ?, deleted_at = ?
		 WHERE id = ?;`,
		t.TopicID, t.ForumID, t.Title, t.AuthorID, t.PostCount, t.ViewCount,
		nullableString(t.FirstPostID), nullableString(t.LastPostID), boolToInt(t.IsLocked),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nullableTime(t.DeletedAt), t.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLite) InsertPost(p *Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO posts(id, post_id, forum_id, topic_id, author_id, content, upvote_count, downvote_count, vote_score, created_at, edited_by_id, edited_at, deleted_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		p.ID, p.PostID, p.ForumID, p.TopicID, p.AuthorID, p.Content,
		p.UpvoteCount, p.DownvoteCount, p.VoteScore, formatTime(p.CreatedAt),
		nullableString(p.EditedByID), nullableTime(p.EditedAt), nullableTime(p.DeletedAt),
	)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

const postColumns = `id, post_id, forum_id, topic_id, author_id, content, upvote_count, downvote_count, vote_score, created_at, edited_by_id, edited_at, deleted_at`

func scanPostRow(scan func(dest ...any) error) (*Post, error) {
	var (
		p        Post
		created  string
		editedBy sql.NullString
		editedAt sql.NullString
		deleted  sql.NullString
	)
	if err := scan(&p.ID, &p.PostID, &p.ForumID, &p.TopicID, &p.AuthorID, &p.Content,
		&p.UpvoteCount, &p.DownvoteCount, &p.VoteScore, &created, &editedBy, &editedAt, &deleted); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.EditedByID = editedBy.String
	p.EditedAt = scanNullableTime(editedAt)
	p.DeletedAt = scanNullableTime(deleted)
	return &p, nil
}

func (s *SQLite) FindPost(id Lookup) (*Post, error) {
	var row *sql.Row
	if id.byPublic {
		row = s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE post_id = ?;`, id.public)
	} else {
		row = s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?;`, id.internal)
	}
	post, err := scanPostRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *SQLite) PostsByTopic(topicID string) ([]*Post, error) {
	rows, err := s.db.Query(`SELECT `+postColumns+` FROM posts WHERE topic_id = ? ORDER BY post_id;`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPostRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *SQLite) SavePost(p *Post) error {
	res, err := s.db.Exec(
		`UPDATE posts SET post_id = ?, forum_id = ?, topic_id = ?, author_id = ?, content = ?, upvote_count = ?, downvote_count = ?, vote_score = ?, created_at = ?, edited_by_id = ?, edited_at = ?, deleted_at = ?
		 WHERE id = ?;`,
		p.PostID, p.ForumID, p.TopicID, p.AuthorID, p.Content,
		p.UpvoteCount, p.DownvoteCount, p.VoteScore, formatTime(p.CreatedAt),
		nullableString(p.EditedByID), nullableTime(p.EditedAt), nullableTime(p.DeletedAt), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ API = (*SQLite)(nil)
