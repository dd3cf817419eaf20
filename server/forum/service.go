// Package forum holds the content-graph use cases: topic and post creation
// and the denormalized aggregate bookkeeping they imply on forum and topic
// records. Multi-record updates are issued as independent saves; a crash
// between them can leave an aggregate pointer ahead of its sibling, which the
// system tolerates.
package forum

import (
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rhythmia/forum-server/server/internal/transport"
	"github.com/rhythmia/forum-server/server/live"
	"github.com/rhythmia/forum-server/server/projection"
	"github.com/rhythmia/forum-server/server/store"
)

const listLimit = 50

type Service struct {
	Store store.API
	// Live receives a post_created event for every new post when set.
	Live *live.Hub
}

func (s *Service) projector() *projection.Projector {
	return &projection.Projector{Store: s.Store}
}

type forumsResponse struct {
	Forums any `json:"forums"`
}

type forumGroup struct {
	Category store.Category         `json:"category"`
	Forums   []projection.ForumInfo `json:"forums"`
}

// GetForums lists forums with their latest post populated. With
// groupBy == "category" the forums are returned bucketed per category.
func (s *Service) GetForums(skip int, groupBy string) transport.Result {
	forums, err := s.Store.Forums(skip, listLimit)
	if err != nil {
		logrus.WithError(err).Error("get forums: list failed")
		return transport.Internal()
	}

	p := s.projector()
	infos := make([]projection.ForumInfo, 0, len(forums))
	for _, f := range forums {
		info, err := p.ForumInfo(f, projection.ForumOptions{PopulatePost: true})
		if err != nil {
			logrus.WithError(err).Error("get forums: projection failed")
			return transport.Internal()
		}
		infos = append(infos, info)
	}

	if groupBy == "category" {
		groups := make([]forumGroup, 0)
		index := map[store.Category]int{}
		for _, info := range infos {
			i, ok := index[info.Category]
			if !ok {
				i = len(groups)
				index[info.Category] = i
				groups = append(groups, forumGroup{Category: info.Category})
			}
			groups[i].Forums = append(groups[i].Forums, info)
		}
		return transport.OK(forumsResponse{Forums: groups})
	}

	return transport.OK(forumsResponse{Forums: infos})
}

type forumResponse struct {
	Forum projection.ForumInfo `json:"forum"`
}

func (s *Service) GetForum(id store.Lookup) transport.Result {
	forum, err := s.Store.FindForum(id)
	if err != nil {
		logrus.WithError(err).Error("get forum: lookup failed")
		return transport.Internal()
	}
	if forum == nil {
		return transport.NotFound("No forum found")
	}

	info, err := s.projector().ForumInfo(forum, projection.ForumOptions{PopulatePost: true})
	if err != nil {
		logrus.WithError(err).Error("get forum: projection failed")
		return transport.Internal()
	}

	return transport.OK(forumResponse{Forum: info})
}

// CreateForum allocates a public id and creates the forum. No cross-entity
// updates happen here.
func (s *Service) CreateForum(title, description string, category store.Category) transport.Result {
	if !category.Valid() {
		return transport.Result{Status: http.StatusBadRequest, Data: transport.ErrorBody{Error: "Invalid forum category"}}
	}

	seq, err := s.Store.NextSequence("forums")
	if err != nil {
		logrus.WithError(err).Error("create forum: sequence allocation failed")
		return transport.Internal()
	}

	forum := &store.Forum{
		ForumID:     seq,
		Title:       title,
		Description: description,
		Category:    category,
	}
	if err := s.Store.InsertForum(forum); err != nil {
		logrus.WithError(err).Error("create forum: insert failed")
		return transport.Internal()
	}

	return transport.OK(transport.MessageBody{Message: "Added forum to database"})
}

type topicsResponse struct {
	Topics []projection.TopicInfo `json:"topics"`
}

// GetForumTopics lists a forum's topics, newest first, with forum, author,
// and first/last posts populated.
func (s *Service) GetForumTopics(id store.Lookup) transport.Result {
	forum, err := s.Store.FindForum(id)
	if err != nil {
		logrus.WithError(err).Error("get forum topics: forum lookup failed")
		return transport.Internal()
	}
	if forum == nil {
		return transport.NotFound("No forum found")
	}

	topics, err := s.Store.TopicsByForum(forum.ID)
	if err != nil {
		logrus.WithError(err).Error("get forum topics: list failed")
		return transport.Internal()
	}

	p := s.projector()
	infos := make([]projection.TopicInfo, 0, len(topics))
	for _, t := range topics {
		info, err := p.TopicInfo(t, projection.TopicOptions{
			PopulateForum:  true,
			PopulateAuthor: true,
			PopulatePost:   true,
		})
		if err != nil {
			logrus.WithError(err).Error("get forum topics: projection failed")
			return transport.Internal()
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return transport.OK(topicsResponse{Topics: infos})
}

// CreateTopic creates a topic and its opening post, then updates the
// aggregates: the topic's first/last post and post count, and the forum's
// latest post. The two saves are independent; there is no rollback.
func (s *Service) CreateTopic(forumID store.Lookup, authorID, title, content string) transport.Result {
	forum, err := s.Store.FindForum(forumID)
	if err != nil {
		logrus.WithError(err).Error("create topic: forum lookup failed")
		return transport.Internal()
	}
	if forum == nil {
		return transport.NotFound("No forum found")
	}

	author, err := s.Store.FindUser(store.ByInternalID(authorID))
	if err != nil {
		logrus.WithError(err).Error("create topic: author lookup failed")
		return transport.Internal()
	}
	if author == nil {
		return transport.NotFound("No user found")
	}

	topicSeq, err := s.Store.NextSequence("topics")
	if err != nil {
		logrus.WithError(err).Error("create topic: topic sequence failed")
		return transport.Internal()
	}

	topic := &store.Topic{
		TopicID:  topicSeq,
		ForumID:  forum.ID,
		Title:    title,
		AuthorID: author.ID,
	}
	if err := s.Store.InsertTopic(topic); err != nil {
		logrus.WithError(err).Error("create topic: insert failed")
		return transport.Internal()
	}

	postSeq, err := s.Store.NextSequence("posts")
	if err != nil {
		logrus.WithError(err).Error("create topic: post sequence failed")
		return transport.Internal()
	}

	post := &store.Post{
		PostID:   postSeq,
		ForumID:  forum.ID,
		TopicID:  topic.ID,
		AuthorID: author.ID,
		Content:  content,
	}
	if err := s.Store.InsertPost(post); err != nil {
		logrus.WithError(err).Error("create topic: post insert failed")
		return transport.Internal()
	}

	topic.FirstPostID = post.ID
	topic.LastPostID = post.ID
	topic.PostCount++

	forum.LatestPostID = post.ID

	if err := s.Store.SaveTopic(topic); err != nil {
		logrus.WithError(err).Error("create topic: topic save failed")
		return transport.Internal()
	}
	if err := s.Store.SaveForum(forum); err != nil {
		logrus.WithError(err).Error("create topic: forum save failed")
		return transport.Internal()
	}

	if s.Live != nil {
		s.Live.PublishPostCreated(forum.ID, topic.ID, post.ID, post.PostID)
	}

	return transport.OK(transport.MessageBody{Message: "Added topic to forum"})
}

type topicAndPostsResponse struct {
	Topic projection.TopicInfo  `json:"topic"`
	Posts []projection.PostInfo `json:"posts"`
}

// ViewTopic returns a topic with all of its posts and counts the view. Every
// fetch increments view_count; viewing is the trigger, with no per-viewer
// deduplication.
func (s *Service) ViewTopic(id store.Lookup) transport.Result {
	topic, err := s.Store.FindTopic(id)
	if err != nil {
		logrus.WithError(err).Error("view topic: lookup failed")
		return transport.Internal()
	}
	if topic == nil {
		return transport.NotFound("No topic found")
	}

	posts, err := s.Store.PostsByTopic(topic.ID)
	if err != nil {
		logrus.WithError(err).Error("view topic: posts list failed")
		return transport.Internal()
	}

	p := s.projector()
	postInfos := make([]projection.PostInfo, 0, len(posts))
	for _, post := range posts {
		info, err := p.PostInfo(post, projection.PostOptions{
			PopulateForum:  true,
			PopulateTopic:  true,
			PopulateAuthor: true,
		})
		if err != nil {
			logrus.WithError(err).Error("view topic: post projection failed")
			return transport.Internal()
		}
		postInfos = append(postInfos, info)
	}

	topic.ViewCount++
	if err := s.Store.SaveTopic(topic); err != nil {
		logrus.WithError(err).Error("view topic: save failed")
		return transport.Internal()
	}

	topicInfo, err := p.TopicInfo(topic, projection.TopicOptions{})
	if err != nil {
		logrus.WithError(err).Error("view topic: projection failed")
		return transport.Internal()
	}

	return transport.OK(topicAndPostsResponse{Topic: topicInfo, Posts: postInfos})
}

// UpdateTopic renames a topic. Only the topic's author may do so.
func (s *Service) UpdateTopic(id store.Lookup, userID, title string) transport.Result {
	topic, err := s.Store.FindTopic(id)
	if err != nil {
		logrus.WithError(err).Error("update topic: lookup failed")
		return transport.Internal()
	}
	if topic == nil {
		return transport.NotFound("No topic found")
	}

	user, err := s.Store.FindUser(store.ByInternalID(userID))
	if err != nil {
		logrus.WithError(err).Error("update topic: user lookup failed")
		return transport.Internal()
	}
	if user == nil {
		return transport.NotFound("No user found")
	}

	if user.ID != topic.AuthorID {
		return transport.Forbidden("You cannot edit other users topic")
	}

	topic.Title = title
	topic.UpdatedAt = time.Now().UTC()
	if err := s.Store.SaveTopic(topic); err != nil {
		logrus.WithError(err).Error("update topic: save failed")
		return transport.Internal()
	}

	return transport.OK(transport.MessageBody{Message: "Updated topic title"})
}

// UpdatePost edits a post's content. Only the post's author may do so; the
// edit is recorded on the post's edited_at/edited_by fields.
func (s *Service) UpdatePost(id store.Lookup, userID, content string) transport.Result {
	post, err := s.Store.FindPost(id)
	if err != nil {
		logrus.WithError(err).Error("update post: lookup failed")
		return transport.Internal()
	}
	if post == nil {
		return transport.NotFound("No post found")
	}

	user, err := s.Store.FindUser(store.ByInternalID(userID))
	if err != nil {
		logrus.WithError(err).Error("update post: user lookup failed")
		return transport.Internal()
	}
	if user == nil {
		return transport.NotFound("No user found")
	}

	if user.ID != post.AuthorID {
		return transport.Forbidden("You cannot edit other users post")
	}

	now := time.Now().UTC()
	post.Content = content
	post.EditedByID = user.ID
	post.EditedAt = &now
	if err := s.Store.SavePost(post); err != nil {
		logrus.WithError(err).Error("update post: save failed")
		return transport.Internal()
	}

	return transport.OK(transport.MessageBody{Message: "Updated post content"})
}

// ReplyToTopic creates a post under the topic located via an existing anchor
// post, then advances the topic's last post and count and the forum's latest
// post. The saves are independent, as in CreateTopic.
func (s *Service) ReplyToTopic(anchorID store.Lookup, userID, content string) transport.Result {
	anchor, err := s.Store.FindPost(anchorID)
	if err != nil {
		logrus.WithError(err).Error("reply: anchor lookup failed")
		return transport.Internal()
	}
	if anchor == nil {
		return transport.NotFound("No post found")
	}

	topic, err := s.Store.FindTopic(store.ByInternalID(anchor.TopicID))
	if err != nil {
		logrus.WithError(err).Error("reply: topic lookup failed")
		return transport.Internal()
	}
	if topic == nil {
		return transport.NotFound("No topic found")
	}

	forum, err := s.Store.FindForum(store.ByInternalID(anchor.ForumID))
	if err != nil {
		logrus.WithError(err).Error("reply: forum lookup failed")
		return transport.Internal()
	}
	if forum == nil {
		return transport.NotFound("No forum found")
	}

	author, err := s.Store.FindUser(store.ByInternalID(userID))
	if err != nil {
		logrus.WithError(err).Error("reply: author lookup failed")
		return transport.Internal()
	}
	if author == nil {
		return transport.NotFound("No user found")
	}

	seq, err := s.Store.NextSequence("posts")
	if err != nil {
		logrus.WithError(err).Error("reply: sequence allocation failed")
		return transport.Internal()
	}

	post := &store.Post{
		PostID:   seq,
		ForumID:  anchor.ForumID,
		TopicID:  anchor.TopicID,
		AuthorID: author.ID,
		Content:  content,
	}
	if err := s.Store.InsertPost(post); err != nil {
		logrus.WithError(err).Error("reply: insert failed")
		return transport.Internal()
	}

	topic.LastPostID = post.ID
	topic.PostCount++
	topic.UpdatedAt = time.Now().UTC()

	forum.LatestPostID = post.ID

	if err := s.Store.SaveTopic(topic); err != nil {
		logrus.WithError(err).Error("reply: topic save failed")
		return transport.Internal()
	}
	if err := s.Store.SaveForum(forum); err != nil {
		logrus.WithError(err).Error("reply: forum save failed")
		return transport.Internal()
	}

	if s.Live != nil {
		s.Live.PublishPostCreated(forum.ID, topic.ID, post.ID, post.PostID)
	}

	return transport.OK(transport.MessageBody{Message: "Replied to post"})
}
