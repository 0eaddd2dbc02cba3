package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/api"
	"github.com/qs3c/group_sub_server/internal/api/handler"
	"github.com/qs3c/group_sub_server/internal/app"
	"github.com/qs3c/group_sub_server/internal/database"
	"github.com/qs3c/group_sub_server/internal/pkg/logger"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/pkg/ws"
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

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	log.Info().Msg("redis connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, db, rdb, nil)
	if err := a.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize plan catalog")
	}

	wsHub := ws.NewHub()

	router := api.NewRouter(
		handler.NewAuthHandler(a.Auth),
		handler.NewPlanHandler(a.Catalog),
		handler.NewApprovalHandler(a.Approval),
		handler.NewEntitlementHandler(a.Status, a.Revocation),
		handler.NewFeatureHandler(a.Gate),
		handler.NewExpiryHandler(a.Expiry, a.Scheduler),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// 到期巡检
	g.Go(func() error {
		a.Scheduler.Run(gctx)
		return nil
	})

	// 生命周期事件推送给在线运营
	g.Go(func() error {
		sub := pubsub.NewSubscriber(rdb, cfg.Notify.Channel)
		err := sub.Subscribe(gctx, func(ev *pubsub.EntitlementEvent) {
			if err := wsHub.Broadcast(&ws.Message{Type: ev.Type, Data: ev}); err != nil {
				log.Warn().Err(err).Str("event", ev.Type).Msg("failed to broadcast event")
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server shutdown complete")
}
