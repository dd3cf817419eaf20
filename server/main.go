package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rhythmia/forum-server/server/auth"
	"github.com/rhythmia/forum-server/server/forum"
	"github.com/rhythmia/forum-server/server/live"
	"github.com/rhythmia/forum-server/server/store"
	"github.com/rhythmia/forum-server/server/user"
)

func main() {
	cfg := LoadConfig()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var st store.API
	if cfg.SQLitePath != "" {
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logrus.WithError(err).Fatal("failed to open sqlite store")
		}
		st = sqliteStore
		logrus.Infof("using sqlite store at %s", cfg.SQLitePath)
	} else {
		st = store.NewMemory()
		logrus.Info("using in-memory store")
	}
	defer func() { _ = st.Close() }()

	if err := seedRoles(st); err != nil {
		logrus.WithError(err).Fatal("failed to seed roles")
	}

	authService := &auth.Service{Store: st, Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL}
	hub := live.NewHub()
	forumService := &forum.Service{Store: st, Live: hub}
	userService := &user.Service{Store: st}

	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "hello!")
	})

	api := router.Group("/api")
	api.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "hello from api!")
	})

	api.POST("/auth/signin", authService.SigninHandler)
	api.POST("/auth/signup", authService.SignupHandler)

	api.GET("/users", authService.VerifyToken(), authService.RequireRoles("admin"), userService.GetUsersHandler)
	api.GET("/users/me", authService.VerifyToken(), userService.GetOwnUserHandler)
	api.GET("/users/:id", authService.VerifyToken(), authService.RequireRoles("admin"), userService.GetUserHandler)

	api.GET("/forums", forumService.GetForumsHandler)
	api.POST("/forums", authService.VerifyToken(), authService.RequireRoles("admin"), forumService.CreateForumHandler)
	api.GET("/forums/:id", forumService.GetForumHandler)
	api.GET("/forums/:id/topics", forumService.GetForumTopicsHandler)
	api.POST("/forums/:id/topics", authService.VerifyToken(), forumService.CreateTopicHandler)

	api.GET("/forums/topics/:id", forumService.GetTopicAndPostsHandler)
	api.PATCH("/forums/topics/:id", authService.VerifyToken(), forumService.EditTopicHandler)
	api.POST("/forums/topics/:id/reply", authService.VerifyToken(), forumService.ReplyHandler)
	api.PATCH("/forums/posts/:id", authService.VerifyToken(), forumService.EditPostHandler)

	router.GET("/ws/updates", hub.ServeWS)

	logrus.Infof("server listening on %s", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// seedRoles ensures the static reference roles exist.
func seedRoles(st store.API) error {
	for _, name := range []string{"users", "admin"} {
		role, err := st.FindRoleByName(name)
		if err != nil {
			return err
		}
		if role != nil {
			continue
		}
		if err := st.InsertRole(&store.Role{Name: name}); err != nil {
			return err
		}
	}
	return nil
}
