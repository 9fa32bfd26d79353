package server

import (
	"strings"
	"time"

	"github.com/communelab/commune/internal/config"
	"github.com/communelab/commune/internal/middleware"

	communityHttp "github.com/communelab/commune/internal/modules/community/delivery/http"
	communityRepo "github.com/communelab/commune/internal/modules/community/repository"
	communityService "github.com/communelab/commune/internal/modules/community/service"

	postHttp "github.com/communelab/commune/internal/modules/post/delivery/http"
	postRepo "github.com/communelab/commune/internal/modules/post/repository"
	postService "github.com/communelab/commune/internal/modules/post/service"

	reactionHttp "github.com/communelab/commune/internal/modules/reaction/delivery/http"
	reactionRepo "github.com/communelab/commune/internal/modules/reaction/repository"
	reactionService "github.com/communelab/commune/internal/modules/reaction/service"

	searchService "github.com/communelab/commune/internal/modules/search/service"

	userHttp "github.com/communelab/commune/internal/modules/user/delivery/http"
	userRepo "github.com/communelab/commune/internal/modules/user/repository"
	userService "github.com/communelab/commune/internal/modules/user/service"

	"github.com/communelab/commune/pkg/logger"
	"github.com/communelab/commune/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepository := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(userRepository)
	authHandler := userHttp.NewAuthHandler(authSvc)

	communityRepository := communityRepo.NewCommunityRepository(db)
	communitySvc := communityService.NewCommunityService(communityRepository)
	communityHandler := communityHttp.NewCommunityHandler(communitySvc)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("media storage unavailable, uploads disabled")
		imageStorage = nil
	}

	var searchSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		meiliClient := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = searchService.NewSearchService(meiliClient)
	}

	postRepository := postRepo.NewPostRepository(db)
	reactionRepository := reactionRepo.NewReactionRepository(db)

	reactionSvc := reactionService.NewReactionService(reactionRepository, postRepository, communityRepository, redisClient)
	reactionHandler := reactionHttp.NewReactionHandler(reactionSvc)

	postSvc := postService.NewPostService(postRepository, communityRepository, reactionSvc, imageStorage, searchSvc, redisClient, cfg.RateLimitPost)
	postHandler := postHttp.NewPostHandler(postSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	setupCORS(router, cfg.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware()

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/communities", communityHandler.CreateCommunity)
		protected.GET("/communities/:community_id", communityHandler.GetCommunity)
		protected.POST("/communities/:community_id/follow", communityHandler.Follow)
		protected.DELETE("/communities/:community_id/follow", communityHandler.Unfollow)

		protected.POST("/communities/:community_id/posts", postHandler.CreatePost)
		protected.GET("/communities/:community_id/posts", postHandler.ListCommunityPosts)
		protected.GET("/communities/:community_id/posts/:post_id", postHandler.GetPost)
		protected.DELETE("/communities/:community_id/posts/:post_id", postHandler.DeletePost)

		protected.POST("/communities/:community_id/posts/:post_id/reaction", reactionHandler.SetReaction)
		protected.POST("/communities/:community_id/posts/:post_id/favorite", reactionHandler.SetFavorite)

		protected.GET("/posts/favorites", postHandler.ListFavorites)
		protected.GET("/posts/search", postHandler.SearchPosts)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
