package app

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/pkg/cron"
	"github.com/qs3c/group_sub_server/internal/pkg/keylock"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/pkg/queue"
	"github.com/qs3c/group_sub_server/internal/repository"
	"github.com/qs3c/group_sub_server/internal/service"
)

// App 进程内共享的 service 组装结果，server 与 subctl 共用
type App struct {
	Config *config.Config
	Store  *repository.Store
	Clock  clockwork.Clock

	Catalog    *service.PlanCatalog
	Gate       *service.FeatureGate
	Approval   *service.ApprovalService
	Revocation *service.RevocationService
	Status     *service.StatusService
	Expiry     *service.ExpiryService
	Auth       *service.AuthService
	Scheduler  *cron.Service

	// Redis 未配置时为 nil
	Queue     *queue.Queue
	Publisher *pubsub.Publisher
}

// New 组装 service；rdb 为 nil 时通知与事件都被丢弃
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	a := &App{
		Config: cfg,
		Store:  repository.NewStore(db),
		Clock:  clock,
	}

	var (
		notifier service.Notifier
		events   service.EventPublisher
	)
	if rdb != nil {
		a.Queue = queue.NewQueue(rdb, cfg.Notify.Queue)
		a.Publisher = pubsub.NewPublisher(rdb, cfg.Notify.Channel)
		notifier = service.NewQueueNotifier(a.Queue)
		events = a.Publisher
	}

	locks := keylock.New()
	a.Catalog = service.NewPlanCatalog(a.Store, cfg)
	a.Gate = service.NewFeatureGate(a.Store, clock, cfg, locks, events)
	a.Revocation = service.NewRevocationService(a.Store, a.Catalog, a.Gate, locks, clock, events, cfg)
	a.Approval = service.NewApprovalService(a.Store, a.Catalog, a.Gate, locks, clock, events, cfg)
	a.Status = service.NewStatusService(a.Store, a.Catalog, a.Gate, clock)
	a.Expiry = service.NewExpiryService(a.Store, a.Catalog, a.Revocation, notifier, events, clock, cfg)
	a.Auth = service.NewAuthService(a.Store, clock, cfg)
	a.Scheduler = cron.NewService(
		a.Expiry,
		clock,
		time.Duration(cfg.Sweeper.IntervalHours)*time.Hour,
		time.Duration(cfg.Sweeper.RetryDelayMinutes)*time.Minute,
	)
	return a
}

// Init 首次启动写入默认套餐与配置中的运营账号，并加载套餐
func (a *App) Init(ctx context.Context) error {
	if _, err := a.Catalog.Bootstrap(ctx); err != nil {
		return err
	}
	_, err := a.Auth.SeedOperators(ctx)
	return err
}
