package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/database"
	"github.com/qs3c/group_sub_server/internal/pkg/email"
	"github.com/qs3c/group_sub_server/internal/pkg/logger"
	"github.com/qs3c/group_sub_server/internal/pkg/queue"
	"github.com/qs3c/group_sub_server/internal/worker"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("redis connected")

	var deliverer worker.Deliverer
	switch cfg.Notify.Driver {
	case "email":
		deliverer = worker.NewEmailDeliverer(email.NewService(&cfg.Email))
	case "webhook", "":
		if cfg.Notify.WebhookURL == "" {
			log.Fatal().Msg("notify.webhook_url is required for the webhook driver")
		}
		deliverer = worker.NewWebhookDeliverer(cfg.Notify.WebhookURL)
	default:
		log.Fatal().Str("driver", cfg.Notify.Driver).Msg("unknown notify driver")
	}

	notifyQueue := queue.NewQueue(rdb, cfg.Notify.Queue)
	processor := worker.NewProcessor(deliverer, &cfg.Notify)

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := cfg.Notify.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	log.Info().Int("workers", workers).Str("driver", cfg.Notify.Driver).Msg("worker started")

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			processor.Consume(ctx, notifyQueue, workerID)
			return nil
		})
	}

	_ = g.Wait()
	log.Info().Msg("worker shutdown complete")
}
