package store

import (
	"strconv"
	"time"
)

// Category is the fixed set of forum categories.
type Category string

const (
	CategorySongs    Category = "songs"
	CategoryGameplay Category = "gameplay"
	CategoryOther    Category = "other"
	CategoryLanguage Category = "language-specific"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySongs, CategoryGameplay, CategoryOther, CategoryLanguage:
		return true
	}
	return false
}

// Lookup identifies an entity either by its store-assigned internal id or by
// its public sequential id. Callers build one with ByInternalID or ByPublicID;
// ParseID performs the numeric-string disambiguation once at the HTTP edge so
// the store never has to guess.
type Lookup struct {
	internal string
	public   int64
	byPublic bool
}

func ByInternalID(id string) Lookup {
	return Lookup{internal: id}
}

func ByPublicID(n int64) Lookup {
	return Lookup{public: n, byPublic: true}
}

// ParseID maps a raw path parameter onto a Lookup: values that parse as an
// integer are treated as public sequential ids, everything else as internal ids.
func ParseID(raw string) Lookup {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ByPublicID(n)
	}
	return ByInternalID(raw)
}

type Role struct {
	ID   string
	Name string
}

type User struct {
	ID           string
	UserID       int64
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	RoleIDs      []string
	RegisteredAt time.Time
	LastLogin    time.Time
}

type Forum struct {
	ID           string
	ForumID      int64
	Title        string
	Description  string
	Category     Category
	LatestPostID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Topic struct {
	ID          string
	TopicID     int64
	ForumID     string
	Title       string
	AuthorID    string
	PostCount   int64
	ViewCount   int64
	FirstPostID string
	LastPostID  string
	IsLocked    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

type Post struct {
	ID            string
	PostID        int64
	ForumID       string
	TopicID       string
	AuthorID      string
	Content       string
	UpvoteCount   int64
	DownvoteCount int64
	VoteScore     int64
	CreatedAt     time.Time
	EditedByID    string
	EditedAt      *time.Time
	DeletedAt     *time.Time
}

// API is the entity store contract shared by the memory and SQLite
// implementations. Insert methods assign the internal id and creation
// timestamps when unset; Save methods persist in-memory mutations as a full
// record write. Find methods return a nil entity (and a nil error) when there
// is no match; callers translate that into a not-found response.
type API interface {
	// NextSequence atomically increments and returns the counter for the
	// given collection name, creating it at 1 on first use.
	NextSequence(collection string) (int64, error)

	InsertRole(r *Role) error
	FindRoleByName(name string) (*Role, error)
	RolesByIDs(ids []string) ([]*Role, error)

	InsertUser(u *User) error
	FindUser(id Lookup) (*User, error)
	FindUserByUsername(username string) (*User, error)
	FindUserByUsernameOrEmail(username, email string) (*User, error)
	Users(skip, limit int) ([]*User, error)
	SaveUser(u *User) error

	InsertForum(f *Forum) error
	FindForum(id Lookup) (*Forum, error)
	Forums(skip, limit int) ([]*Forum, error)
	SaveForum(f *Forum) error

	InsertTopic(t *Topic) error
	FindTopic(id Lookup) (*Topic, error)
	TopicsByForum(forumID string) ([]*Topic, error)
	SaveTopic(t *Topic) error

	InsertPost(p *Post) error
	FindPost(id Lookup) (*Post, error)
	PostsByTopic(topicID string) ([]*Post, error)
	SavePost(p *Post) error

	Close() error
}
