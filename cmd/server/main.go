package main

import (
	"os"

	"github.com/communelab/commune/internal/config"
	"github.com/communelab/commune/internal/entity"
	"github.com/communelab/commune/internal/server"
	"github.com/communelab/commune/pkg/database"
	"github.com/communelab/commune/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		JSONOutput: !cfg.IsDevelopment(),
	})

	db, err := database.Connect()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("database connection failed")
	}

	if err := migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("migration failed")
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.NewServer(cfg, db, redisClient)

	logger.Logger.Info().Str("port", cfg.Port).Msg("starting server")
	if err := srv.Run(":" + cfg.Port); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Community{},
		&entity.CommunityMember{},
		&entity.Post{},
		&entity.Reaction{},
		&entity.Favorite{},
	)
}

func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		logger.Logger.Warn().Msg("REDIS_URL not set, score cache and rate limits disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("invalid REDIS_URL, continuing without redis")
		return nil
	}

	return redis.NewClient(opts)
}
