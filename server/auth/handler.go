package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninHandler handles POST /api/auth/signin.
func (s *Service) SigninHandler(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.Signin(req.Username, req.Password)
	c.JSON(res.Status, res.Data)
}

// SignupHandler handles POST /api/auth/signup.
func (s *Service) SignupHandler(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res := s.Signup(req.Username, req.Email, req.Password)
	c.JSON(res.Status, res.Data)
}
