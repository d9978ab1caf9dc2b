package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akulikov/bloghub/cache"
	"github.com/akulikov/bloghub/config"
	"github.com/akulikov/bloghub/models"
	"github.com/akulikov/bloghub/routes"
	"github.com/akulikov/bloghub/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(utils.LogConfig{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
	)

	store := newStore(cfg)

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		utils.Sugar.Fatalf("failed to create media dir: %v", err)
	}

	r := routes.SetupRouter(db, store, cfg)

	utils.Sugar.Infof("listening on :%s", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server exited: %v", err)
	}
}

// newStore connects to Redis, falling back to the in-process store when
// Redis is unreachable at boot.
func newStore(cfg config.AppConfig) cache.Store {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.Sugar.Warnf("redis unavailable, using in-process cache: %v", err)
		return cache.NewMemory()
	}

	utils.Sugar.Infof("redis connected at %s:%d", cfg.RedisHost, cfg.RedisPort)
	return cache.NewRedis(client, utils.Sugar)
}
