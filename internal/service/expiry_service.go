package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/repository"
)

const dayLayout = "2006-01-02"

// DefaultThresholds 到期提醒的天数
var DefaultThresholds = []int{30, 14, 7, 3, 1, 0}

// ExpiryService 扫描有效订阅，发送到期提醒并处理已到期群组
type ExpiryService struct {
	store      *repository.Store
	catalog    *PlanCatalog
	revocation *RevocationService
	notifier   Notifier
	events     EventPublisher
	clock      clockwork.Clock
	cfg        *config.Config
	thresholds []int
}

func NewExpiryService(
	store *repository.Store,
	catalog *PlanCatalog,
	revocation *RevocationService,
	notifier Notifier,
	events EventPublisher,
	clock clockwork.Clock,
	cfg *config.Config,
) *ExpiryService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	thresholds := cfg.Sweeper.Thresholds
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	return &ExpiryService{
		store:      store,
		catalog:    catalog,
		revocation: revocation,
		notifier:   notifier,
		events:     events,
		clock:      clock,
		cfg:        cfg,
		thresholds: thresholds,
	}
}

type groupOutcome struct {
	expired  bool
	expiring bool
	alerted  bool
	handled  bool
	failed   bool
}

// Sweep 执行一次巡检。单个群组失败不影响其他群组，只有加载订阅失败时返回错误。
func (s *ExpiryService) Sweep(ctx context.Context) (*dto.SweepResult, error) {
	const op = "expiry.sweep"

	started := time.Now()
	now := s.clock.Now()

	retry := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	ents, err := backoff.RetryWithData(func() ([]*model.Entitlement, error) {
		return s.store.WithContext(ctx).Entitlements.ListActive()
	}, retry)
	if err != nil {
		metrics.RecordSweep("failed", time.Since(started))
		return nil, storageError(op, err)
	}

	workers := s.cfg.Sweeper.Workers
	if workers <= 0 {
		workers = 1
	}

	p := pool.NewWithResults[groupOutcome]().WithMaxGoroutines(workers)
	for _, ent := range ents {
		ent := ent
		p.Go(func() groupOutcome {
			return s.checkGroup(ctx, ent, now)
		})
	}
	outcomes := p.Wait()

	result := &dto.SweepResult{
		CheckedAt:      now,
		GroupsChecked:  len(ents),
		ExpiringGroups: lo.CountBy(outcomes, func(o groupOutcome) bool { return o.expiring }),
		ExpiredGroups:  lo.CountBy(outcomes, func(o groupOutcome) bool { return o.expired }),
		AlertsSent:     lo.CountBy(outcomes, func(o groupOutcome) bool { return o.alerted }),
		ExpiredHandled: lo.CountBy(outcomes, func(o groupOutcome) bool { return o.handled }),
		Failures:       lo.CountBy(outcomes, func(o groupOutcome) bool { return o.failed }),
	}

	s.updateTracker(ctx, result)

	if err := s.store.WithContext(ctx).Alerts.Trim(s.cfg.Subscription.AlertLimit); err != nil {
		log.Warn().Err(err).Msg("failed to trim alert log")
	}

	result.Duration = time.Since(started)
	metrics.RecordSweep("ok", result.Duration)

	log.Info().
		Int("groups_checked", result.GroupsChecked).
		Int("expiring", result.ExpiringGroups).
		Int("expired", result.ExpiredGroups).
		Int("alerts_sent", result.AlertsSent).
		Int("expired_handled", result.ExpiredHandled).
		Int("failures", result.Failures).
		Dur("duration", result.Duration).
		Msg("expiry sweep completed")
	return result, nil
}

func (s *ExpiryService) checkGroup(ctx context.Context, ent *model.Entitlement, now time.Time) (out groupOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int64("group_id", ent.GroupID).
				Interface("panic", r).
				Msg("expiry check panicked")
			metrics.SweepGroupFailuresTotal.Inc()
			out = groupOutcome{failed: true}
		}
	}()

	if ent.ExpiresAt == nil {
		return out
	}

	if ent.IsExpired(now) {
		out.expired = true
		handled, err := s.revocation.Expire(ctx, ent.GroupID)
		if err != nil {
			log.Error().Err(err).Int64("group_id", ent.GroupID).Msg("failed to expire group")
			metrics.SweepGroupFailuresTotal.Inc()
			out.failed = true
			return out
		}
		out.handled = handled
		return out
	}

	days := ent.DaysUntilExpiry(now)
	if !lo.Contains(s.thresholds, days) {
		return out
	}

	out.expiring = true
	sent, err := s.raiseAlert(ctx, ent, days, now)
	if err != nil {
		log.Error().Err(err).Int64("group_id", ent.GroupID).Int("threshold", days).Msg("failed to record expiry alert")
		metrics.SweepGroupFailuresTotal.Inc()
		out.failed = true
		return out
	}
	out.alerted = sent
	return out
}

// raiseAlert 先写提醒记录去重，再发送通知。发送失败不回滚记录。
func (s *ExpiryService) raiseAlert(ctx context.Context, ent *model.Entitlement, days int, now time.Time) (bool, error) {
	store := s.store.WithContext(ctx)

	alert := &model.ExpiryAlert{
		GroupID:   ent.GroupID,
		Threshold: days,
		Day:       now.UTC().Format(dayLayout),
		PlanID:    ent.PlanID,
		Message:   s.renderAlert(ent, days),
		SentAt:    now,
	}
	created, err := store.Alerts.CreateIfAbsent(alert)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	metrics.RecordAlert(days)

	if err := s.notifier.Notify(ctx, ent.GroupID, alert.Message); err != nil {
		log.Warn().Err(err).
			Int64("group_id", ent.GroupID).
			Int("threshold", days).
			Msg("failed to send expiry alert")
	} else if err := store.Alerts.MarkDelivered(alert.ID); err != nil {
		log.Warn().Err(err).Int64("alert_id", alert.ID).Msg("failed to mark alert delivered")
	}

	threshold := days
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventAlert,
		GroupID:   ent.GroupID,
		PlanID:    ent.PlanID,
		Actor:     s.cfg.Subscription.SystemActorID,
		Threshold: &threshold,
		ExpiresAt: ent.ExpiresAt,
		At:        now,
	})

	log.Info().
		Int64("group_id", ent.GroupID).
		Int("days_until", days).
		Msg("expiry alert raised")
	return true, nil
}

func (s *ExpiryService) renderAlert(ent *model.Entitlement, days int) string {
	planName := ent.PlanID
	if plan, err := s.catalog.Resolve(ent.PlanID); err == nil {
		planName = plan.Name
	}
	contact := s.cfg.Subscription.DeveloperContact

	if days > 0 {
		return fmt.Sprintf(
			"Subscription Expiry Alert\n\nYour %s plan will expire in %d day(s) on %s.\n\n"+
				"Please renew your subscription to continue enjoying all features.\n\n"+
				"Contact admin for renewal: %s",
			planName, days, ent.ExpiresAt.UTC().Format(dayLayout), contact)
	}
	return fmt.Sprintf(
		"Subscription Expired Today!\n\nYour %s plan has expired today.\n\n"+
			"Some features may be disabled. Please renew immediately to restore full functionality.\n\n"+
			"Contact admin for renewal: %s",
		planName, contact)
}

// updateTracker 计数器仅供观测，失败只记录日志
func (s *ExpiryService) updateTracker(ctx context.Context, result *dto.SweepResult) {
	store := s.store.WithContext(ctx)

	tracker, err := store.Alerts.GetTracker()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load expiry tracker")
		return
	}

	checkedAt := result.CheckedAt
	tracker.TotalAlertsSent += int64(result.AlertsSent)
	tracker.LastCheck = &checkedAt
	tracker.GroupsChecked = result.GroupsChecked
	tracker.ExpiringGroups = result.ExpiringGroups
	tracker.ExpiredGroups = result.ExpiredGroups
	tracker.AlertsSent = result.AlertsSent
	tracker.ExpiredHandled = result.ExpiredHandled
	tracker.Failures = result.Failures

	if err := store.Alerts.SaveTracker(tracker); err != nil {
		log.Warn().Err(err).Msg("failed to save expiry tracker")
	}
}

// Stats 当前到期情况及上次巡检结果
func (s *ExpiryService) Stats(ctx context.Context) (*dto.ExpiryStats, error) {
	const op = "expiry.stats"
	store := s.store.WithContext(ctx)

	ents, err := store.Entitlements.ListActive()
	if err != nil {
		return nil, storageError(op, err)
	}
	tracker, err := store.Alerts.GetTracker()
	if err != nil {
		return nil, storageError(op, err)
	}

	now := s.clock.Now()
	stats := &dto.ExpiryStats{
		ActiveGroups: len(ents),
		ExpiringSoon: lo.CountBy(ents, func(e *model.Entitlement) bool {
			return e.ExpiresAt != nil && !e.IsExpired(now) && e.DaysUntilExpiry(now) <= 7
		}),
		ExpiredGroups: lo.CountBy(ents, func(e *model.Entitlement) bool {
			return e.IsExpired(now)
		}),
		TotalAlertsSent: tracker.TotalAlertsSent,
		LastCheck:       tracker.LastCheck,
		Thresholds:      append([]int(nil), s.thresholds...),
	}
	if tracker.LastCheck != nil {
		stats.LastResults = &dto.SweepInfo{
			GroupsChecked:  tracker.GroupsChecked,
			ExpiringGroups: tracker.ExpiringGroups,
			ExpiredGroups:  tracker.ExpiredGroups,
			AlertsSent:     tracker.AlertsSent,
			ExpiredHandled: tracker.ExpiredHandled,
			Failures:       tracker.Failures,
		}
	}
	return stats, nil
}

// Alerts 提醒记录，最新在前；groupID 为 0 时返回全部
func (s *ExpiryService) Alerts(ctx context.Context, groupID int64, limit int) ([]*model.ExpiryAlert, error) {
	alerts, err := s.store.WithContext(ctx).Alerts.List(groupID, limit)
	if err != nil {
		return nil, storageError("expiry.alerts", err)
	}
	return alerts, nil
}
