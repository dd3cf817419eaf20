package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rhythmia/forum-server/server/store"
)

const claimsContextKey = "auth.claims"

// VerifyToken extracts the bearer token, checks signature and expiry, and
// attaches the decoded claims to the request context. Verification is
// stateless; there is no revocation list.
func (s *Service) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := s.parseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims attached by VerifyToken.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}

// RequireRoles re-fetches the user behind the verified claims and requires
// every listed role to be present in the user's role set.
func (s *Service) RequireRoles(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := s.Store.FindUser(store.ByInternalID(claims.ID))
		if err != nil {
			logrus.WithError(err).Error("role check: user lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		roles, err := s.Store.RolesByIDs(user.RoleIDs)
		if err != nil {
			logrus.WithError(err).Error("role check: role lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
			return
		}

		for _, name := range required {
			if !hasRole(roles, name) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Forbidden"})
				return
			}
		}

		c.Next()
	}
}

func hasRole(roles []*store.Role, name string) bool {
	for _, r := range roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
