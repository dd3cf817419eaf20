package forum

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rhythmia/forum-server/server/auth"
	"github.com/rhythmia/forum-server/server/store"
)

type createForumRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type createTopicRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type editTopicRequest struct {
	Title string `json:"title"`
}

type editPostRequest struct {
	Content string `json:"content"`
}

type replyRequest struct {
	Content string `json:"content"`
}

// GetForumsHandler handles GET /api/forums.
func (s *Service) GetForumsHandler(c *gin.Context) {
	skip, _ := strconv.Atoi(c.Query("skip"))
	groupBy := c.Query("group_by")

	res := s.GetForums(skip, groupBy)
	c.JSON(res.Status, res.Data)
}

// GetForumHandler handles GET /api/forums/:id.
func (s *Service) GetForumHandler(c *gin.Context) {
	res := s.GetForum(store.ParseID(c.Param("id")))
	c.JSON(res.Status, res.Data)
}

// CreateForumHandler handles POST /api/forums.
func (s *Service) CreateForumHandler(c *gin.Context) {
	var req createForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.CreateForum(req.Title, req.Description, store.Category(req.Category))
	c.JSON(res.Status, res.Data)
}

// GetForumTopicsHandler handles GET /api/forums/:id/topics.
func (s *Service) GetForumTopicsHandler(c *gin.Context) {
	res := s.GetForumTopics(store.ParseID(c.Param("id")))
	c.JSON(res.Status, res.Data)
}

// CreateTopicHandler handles POST /api/forums/:id/topics.
func (s *Service) CreateTopicHandler(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.CreateTopic(store.ParseID(c.Param("id")), claims.ID, req.Title, req.Content)
	c.JSON(res.Status, res.Data)
}

// GetTopicAndPostsHandler handles GET /api/forums/topics/:id.
func (s *Service) GetTopicAndPostsHandler(c *gin.Context) {
	res := s.ViewTopic(store.ParseID(c.Param("id")))
	c.JSON(res.Status, res.Data)
}

// EditTopicHandler handles PATCH /api/forums/topics/:id.
func (s *Service) EditTopicHandler(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req editTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.UpdateTopic(store.ParseID(c.Param("id")), claims.ID, req.Title)
	c.JSON(res.Status, res.Data)
}

// ReplyHandler handles POST /api/forums/topics/:id/reply. The id is an
// existing post whose topic receives the reply.
func (s *Service) ReplyHandler(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.ReplyToTopic(store.ParseID(c.Param("id")), claims.ID, req.Content)
	c.JSON(res.Status, res.Data)
}

// EditPostHandler handles PATCH /api/forums/posts/:id.
func (s *Service) EditPostHandler(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.UpdatePost(store.ParseID(c.Param("id")), claims.ID, req.Content)
	c.JSON(res.Status, res.Data)
}
