// Package projection renders stored entities into their client-facing info
// views. Reference fields default to the target's internal-id string; each
// reference has an independent populate flag that expands it into the target's
// own info view, one level at a time. Populating a dangling reference omits
// the field instead of failing.
package projection

import (
	"time"

	"github.com/rhythmia/forum-server/server/store"
)

type Projector struct {
	Store store.API
}

type ForumOptions struct {
	PopulatePost bool
}

type TopicOptions struct {
	PopulateForum  bool
	PopulateAuthor bool
	PopulatePost   bool
}

type PostOptions struct {
	PopulateForum  bool
	PopulateTopic  bool
	PopulateAuthor bool
}

type UserOptions struct {
	PopulateRoles bool
}

type RoleInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserInfo struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	Roles        any       `json:"roles"`
	RegisteredAt time.Time `json:"registered_at"`
	LastLogin    time.Time `json:"last_login"`
}

// UserInfoCompact is the reduced user view nested inside other entities; it
// omits the email and role list.
type UserInfoCompact struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Avatar       string    `json:"avatar"`
	RegisteredAt time.Time `json:"registered_at"`
	LastLogin    time.Time `json:"last_login"`
}

type ForumInfo struct {
	ID          string         `json:"id"`
	ForumID     int64          `json:"forum_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    store.Category `json:"category"`
	LatestPost  any            `json:"latest_post,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type TopicInfo struct {
	ID        string     `json:"id"`
	TopicID   int64      `json:"topic_id"`
	Forum     any        `json:"forum"`
	Title     string     `json:"title"`
	Author    any        `json:"author"`
	PostCount int64      `json:"post_count"`
	ViewCount int64      `json:"view_count"`
	FirstPost any        `json:"first_post"`
	LastPost  any        `json:"last_post"`
	IsLocked  bool       `json:"is_locked"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type PostInfo struct {
	ID            string     `json:"id"`
	PostID        int64      `json:"post_id"`
	Forum         any        `json:"forum"`
	Topic         any        `json:"topic"`
	Author        any        `json:"author"`
	Content       string     `json:"content"`
	UpvoteCount   int64      `json:"upvote_count"`
	DownvoteCount int64      `json:"downvote_count"`
	VoteScore     int64      `json:"vote_score"`
	CreatedAt     time.Time  `json:"created_at"`
	EditedBy      any        `json:"edited_by,omitempty"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

func (p *Projector) RoleInfo(r *store.Role) RoleInfo {
	return RoleInfo{ID: r.ID, Name: r.Name}
}

func (p *Projector) UserInfo(u *store.User, opts UserOptions) (UserInfo, error) {
	info := UserInfo{
		ID:           u.ID,
		UserID:       u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		Avatar:       u.Avatar,
		Roles:        u.RoleIDs,
		RegisteredAt: u.RegisteredAt,
		LastLogin:    u.LastLogin,
	}

	if opts.PopulateRoles {
		roles, err := p.Store.RolesByIDs(u.RoleIDs)
		if err != nil {
			return UserInfo{}, err
		}
		infos := make([]RoleInfo, 0, len(roles))
		for _, r := range roles {
			infos = append(infos, p.RoleInfo(r))
		}
		info.Roles = infos
	}

	return info, nil
}

func (p *Projector) UserInfoCompact(u *store.User) UserInfoCompact {
	return UserInfoCompact{
		ID:           u.ID,
		UserID:       u.UserID,
		Username:     u.Username,
		Avatar:       u.Avatar,
		RegisteredAt: u.RegisteredAt,
		LastLogin:    u.LastLogin,
	}
}

func (p *Projector) ForumInfo(f *store.Forum, opts ForumOptions) (ForumInfo, error) {
	info := ForumInfo{
		ID:          f.ID,
		ForumID:     f.ForumID,
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.LatestPostID != "" {
		info.LatestPost = f.LatestPostID
	}

	if opts.PopulatePost && f.LatestPostID != "" {
		post, err := p.Store.FindPost(store.ByInternalID(f.LatestPostID))
		if err != nil {
			return ForumInfo{}, err
		}
		if post == nil {
			info.LatestPost = nil
		} else {
			nested, err := p.PostInfo(post, PostOptions{PopulateTopic: true, PopulateAuthor: true})
			if err != nil {
				return ForumInfo{}, err
			}
			info.LatestPost = nested
		}
	}

	return info, nil
}

func (p *Projector) TopicInfo(t *store.Topic, opts TopicOptions) (TopicInfo, error) {
	info := TopicInfo{
		ID:        t.ID,
		TopicID:   t.TopicID,
		Forum:     t.ForumID,
		Title:     t.Title,
		Author:    t.AuthorID,
		PostCount: t.PostCount,
		ViewCount: t.ViewCount,
		FirstPost: t.FirstPostID,
		LastPost:  t.LastPostID,
		IsLocked:  t.IsLocked,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		DeletedAt: t.DeletedAt,
	}

	if opts.PopulateForum {
		forum, err := p.Store.FindForum(store.ByInternalID(t.ForumID))
		if err != nil {
			return TopicInfo{}, err
		}
		if forum == nil {
			info.Forum = nil
		} else {
			nested, err := p.ForumInfo(forum, ForumOptions{})
			if err != nil {
				return TopicInfo{}, err
			}
			info.Forum = nested
		}
	}

	if opts.PopulateAuthor {
		author, err := p.Store.FindUser(store.ByInternalID(t.AuthorID))
		if err != nil {
			return TopicInfo{}, err
		}
		if author == nil {
			info.Author = nil
		} else {
			info.Author = p.UserInfoCompact(author)
		}
	}

	if opts.PopulatePost {
		if t.FirstPostID != "" {
			first, err := p.Store.FindPost(store.ByInternalID(t.FirstPostID))
			if err != nil {
				return TopicInfo{}, err
			}
			if first == nil {
				info.FirstPost = nil
			} else {
				nested, err := p.PostInfo(first, PostOptions{PopulateAuthor: true})
				if err != nil {
					return TopicInfo{}, err
				}
				info.FirstPost = nested
			}
		}
		if t.LastPostID != "" {
			last, err := p.Store.FindPost(store.ByInternalID(t.LastPostID))
			if err != nil {
				return TopicInfo{}, err
			}
			if last == nil {
				info.LastPost = nil
			} else {
				nested, err := p.PostInfo(last, PostOptions{PopulateAuthor: true})
				if err != nil {
					return TopicInfo{}, err
				}
				info.LastPost = nested
			}
		}
	}

	return info, nil
}

func (p *Projector) PostInfo(post *store.Post, opts PostOptions) (PostInfo, error) {
	info := PostInfo{
		ID:            post.ID,
		PostID:        post.PostID,
		Forum:         post.ForumID,
		Topic:         post.TopicID,
		Author:        post.AuthorID,
		Content:       post.Content,
		UpvoteCount:   post.UpvoteCount,
		DownvoteCount: post.DownvoteCount,
		VoteScore:     post.VoteScore,
		CreatedAt:     post.CreatedAt,
		EditedAt:      post.EditedAt,
		DeletedAt:     post.DeletedAt,
	}
	if post.EditedByID != "" {
		info.EditedBy = post.EditedByID
	}

	if opts.PopulateForum {
		forum, err := p.Store.FindForum(store.ByInternalID(post.ForumID))
		if err != nil {
			return PostInfo{}, err
		}
		if forum == nil {
			info.Forum = nil
		} else {
			nested, err := p.ForumInfo(forum, ForumOptions{})
			if err != nil {
				return PostInfo{}, err
			}
			info.Forum = nested
		}
	}

	if opts.PopulateTopic {
		topic, err := p.Store.FindTopic(store.ByInternalID(post.TopicID))
		if err != nil {
			return PostInfo{}, err
		}
		if topic == nil {
			info.Topic = nil
		} else {
			nested, err := p.TopicInfo(topic, TopicOptions{})
			if err != nil {
				return PostInfo{}, err
			}
			info.Topic = nested
		}
	}

	if opts.PopulateAuthor {
		author, err := p.Store.FindUser(store.ByInternalID(post.AuthorID))
		if err != nil {
			return PostInfo{}, err
		}
		if author == nil {
			info.Author = nil
		} else {
			info.Author = p.UserInfoCompact(author)
		}
		if post.EditedByID != "" {
			editor, err := p.Store.FindUser(store.ByInternalID(post.EditedByID))
			if err != nil {
				return PostInfo{}, err
			}
			if editor == nil {
				info.EditedBy = nil
			} else {
				info.EditedBy = p.UserInfoCompact(editor)
			}
		}
	}

	return info, nil
}
