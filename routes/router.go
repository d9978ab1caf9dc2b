package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/akulikov/bloghub/cache"
	"github.com/akulikov/bloghub/config"
	"github.com/akulikov/bloghub/controllers"
	"github.com/akulikov/bloghub/middleware"
	"github.com/akulikov/bloghub/services"
	"github.com/akulikov/bloghub/utils"
)

// SetupRouter wires middleware, controllers and routes onto a gin engine.
func SetupRouter(db *gorm.DB, store cache.Store, cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(utils.AccessLog(utils.Logger))
	r.Use(utils.Recovery(utils.Logger))
	r.Use(cors.New(corsConfig(cfg)))

	content := services.NewContentService(db, store, cfg.PageSize, time.Duration(cfg.IndexCacheTTLSeconds)*time.Second)
	posts := controllers.NewPostController(content, cfg.MediaDir)
	groups := controllers.NewGroupController(content, cfg.AdminUsernames)
	auth := controllers.NewAuthController(db, store, cfg)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/media", cfg.MediaDir)

	limited := middleware.RateLimit(cfg.RateLimitPerMinute)
	authed := middleware.AuthRequired(cfg.JWTSecret, store)

	api := r.Group("/api/v1")
	{
		api.GET("/posts", posts.Index)
		api.GET("/groups", groups.ListGroups)
		api.GET("/groups/:slug", groups.GetGroup)
		api.GET("/groups/:slug/posts", posts.GroupPosts)
		api.GET("/users/:username/posts", posts.AuthorPosts)
		api.GET("/users/:username/posts/:id", posts.GetPost)

		ar := api.Group("/auth")
		ar.Use(limited)
		{
			ar.POST("/register", auth.Register)
			ar.POST("/login", auth.Login)
			ar.GET("/oauth/github", auth.OAuthRedirect)
			ar.GET("/oauth/github/callback", auth.OAuthCallback)
		}

		protected := api.Group("")
		protected.Use(limited, authed)
		{
			protected.GET("/auth/me", auth.Me)
			protected.POST("/auth/logout", auth.Logout)

			protected.POST("/posts", posts.CreatePost)
			protected.PUT("/users/:username/posts/:id", posts.UpdatePost)
			protected.POST("/users/:username/posts/:id/comments", posts.AddComment)
			protected.POST("/upload", posts.UploadImage)
			protected.POST("/groups", groups.CreateGroup)
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "not found")
			return
		}
		ctx.Status(http.StatusNotFound)
	})

	return r
}

func corsConfig(cfg config.AppConfig) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	return c
}
