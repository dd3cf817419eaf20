package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rhythmia/forum-server/server/auth"
	"github.com/rhythmia/forum-server/server/store"
)

// GetUsersHandler handles GET /api/users.
func (s *Service) GetUsersHandler(c *gin.Context) {
	skip, _ := strconv.Atoi(c.Query("skip"))

	res := s.GetMany(skip)
	c.JSON(res.Status, res.Data)
}

// GetOwnUserHandler handles GET /api/users/me.
func (s *Service) GetOwnUserHandler(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res := s.GetOne(store.ByInternalID(claims.ID))
	c.JSON(res.Status, res.Data)
}

// GetUserHandler handles GET /api/users/:id.
func (s *Service) GetUserHandler(c *gin.Context) {
	res := s.GetOne(store.ParseID(c.Param("id")))
	c.JSON(res.Status, res.Data)
}
