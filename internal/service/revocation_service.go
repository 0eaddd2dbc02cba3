package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/pkg/keylock"
	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/repository"
)

// ReasonExpired 到期自动取消时记录的原因
const ReasonExpired = "expired"

type RevocationService struct {
	store   *repository.Store
	catalog *PlanCatalog
	gate    *FeatureGate
	locks   *keylock.Table
	clock   clockwork.Clock
	events  EventPublisher
	cfg     *config.Config
}

func NewRevocationService(
	store *repository.Store,
	catalog *PlanCatalog,
	gate *FeatureGate,
	locks *keylock.Table,
	clock clockwork.Clock,
	events EventPublisher,
	cfg *config.Config,
) *RevocationService {
	if events == nil {
		events = nopPublisher{}
	}
	return &RevocationService{
		store:   store,
		catalog: catalog,
		gate:    gate,
		locks:   locks,
		clock:   clock,
		events:  events,
		cfg:     cfg,
	}
}

// Cancel 运营取消订阅，降级到免费功能
func (s *RevocationService) Cancel(ctx context.Context, groupID, actorID int64, reason string) (*model.Entitlement, error) {
	const op = "revocation.cancel"

	unlock, err := s.locks.Lock(ctx, groupID)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer unlock()

	now := s.clock.Now()
	var ent *model.Entitlement
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		loaded, err := s.loadIn(tx, op, groupID)
		if err != nil {
			return err
		}
		ent = loaded
		ent.Active = false
		ent.PaymentStatus = model.PaymentStatusCancelled
		ent.LastEvent = model.NewLastEvent(model.Cancelled{By: actorID, Reason: reason, At: now})
		return s.revokeIn(tx, ent, actorID, reason, now)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	metrics.TransitionsTotal.WithLabelValues("cancel").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:    pubsub.EventCancelled,
		GroupID: groupID,
		PlanID:  ent.PlanID,
		Actor:   actorID,
		Reason:  reason,
		At:      now,
	})

	log.Info().
		Int64("group_id", groupID).
		Str("plan", ent.PlanID).
		Int64("actor", actorID).
		Str("reason", reason).
		Msg("entitlement cancelled")
	return ent, nil
}

// Expire 到期处理，在锁内重新确认仍为有效且已过期。
// 返回 false 表示状态已变化，无需处理。
func (s *RevocationService) Expire(ctx context.Context, groupID int64) (bool, error) {
	const op = "revocation.expire"

	unlock, err := s.locks.Lock(ctx, groupID)
	if err != nil {
		return false, storageError(op, err)
	}
	defer unlock()

	now := s.clock.Now()
	actor := s.cfg.Subscription.SystemActorID
	var (
		ent     *model.Entitlement
		expired bool
	)
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		loaded, err := s.loadIn(tx, op, groupID)
		if err != nil {
			return err
		}
		ent = loaded
		if !ent.Active || !ent.IsExpired(now) {
			return nil
		}
		expired = true
		ent.Active = false
		ent.PaymentStatus = model.PaymentStatusExpired
		ent.LastEvent = model.NewLastEvent(model.Expired{At: now})
		return s.revokeIn(tx, ent, actor, ReasonExpired, now)
	})
	if err != nil {
		return false, storageError(op, err)
	}
	if !expired {
		return false, nil
	}

	metrics.TransitionsTotal.WithLabelValues("expire").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventExpired,
		GroupID:   groupID,
		PlanID:    ent.PlanID,
		Actor:     actor,
		Reason:    ReasonExpired,
		ExpiresAt: ent.ExpiresAt,
		At:        now,
	})

	log.Info().
		Int64("group_id", groupID).
		Str("plan", ent.PlanID).
		Time("expired_at", *ent.ExpiresAt).
		Msg("entitlement expired")
	return true, nil
}

// revokeIn 写入订阅、降级功能、记录取消日志
func (s *RevocationService) revokeIn(tx *repository.Store, ent *model.Entitlement, actorID int64, reason string, now time.Time) error {
	if err := tx.Entitlements.Upsert(ent); err != nil {
		return err
	}
	if err := s.gate.DowngradeIn(tx, ent.GroupID, actorID, now); err != nil {
		return err
	}
	err := tx.History.AppendCancellation(&model.CancellationRecord{
		GroupID:     ent.GroupID,
		PlanID:      ent.PlanID,
		CancelledBy: actorID,
		Reason:      reason,
		CancelledAt: now,
	})
	if err != nil {
		return err
	}
	return tx.History.TrimCancellations(s.cfg.Subscription.CancellationLimit)
}

// Restore 恢复订阅，与审批通过走同一套解锁逻辑
func (s *RevocationService) Restore(ctx context.Context, groupID, actorID int64, planID string, durationDays int) (*model.Entitlement, error) {
	const op = "revocation.restore"

	plan, err := s.catalog.Resolve(planID)
	if err != nil {
		return nil, newError(KindInvalidPlan, op, "Invalid plan: "+planID)
	}
	if durationDays <= 0 {
		durationDays = s.cfg.Subscription.DefaultDurationDays
	}

	unlock, err := s.locks.Lock(ctx, groupID)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer unlock()

	now := s.clock.Now()
	expiresAt := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	var ent *model.Entitlement
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		loaded, err := s.loadIn(tx, op, groupID)
		if err != nil {
			return err
		}
		ent = loaded
		ent.PlanID = plan.ID
		ent.Active = true
		ent.ExpiresAt = &expiresAt
		ent.PaymentStatus = model.PaymentStatusPaid
		ent.LastEvent = model.NewLastEvent(model.Restored{By: actorID, At: now})
		if err := tx.Entitlements.Upsert(ent); err != nil {
			return err
		}
		_, err = s.gate.UnlockPlanIn(tx, groupID, plan.Features, actorID, now)
		return err
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	metrics.TransitionsTotal.WithLabelValues("restore").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventRestored,
		GroupID:   groupID,
		PlanID:    plan.ID,
		Actor:     actorID,
		ExpiresAt: &expiresAt,
		At:        now,
	})

	log.Info().
		Int64("group_id", groupID).
		Str("plan", plan.ID).
		Int("duration_days", durationDays).
		Int64("actor", actorID).
		Msg("entitlement restored")
	return ent, nil
}

// Cancellations 取消日志，最新在前；groupID 为 0 时返回全部
func (s *RevocationService) Cancellations(ctx context.Context, groupID int64, limit int) ([]*model.CancellationRecord, error) {
	records, err := s.store.WithContext(ctx).History.ListCancellations(groupID, limit)
	if err != nil {
		return nil, storageError("revocation.cancellations", err)
	}
	return records, nil
}

func (s *RevocationService) loadIn(tx *repository.Store, op string, groupID int64) (*model.Entitlement, error) {
	ent, err := tx.Entitlements.GetByGroupID(groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, op, "Group has no subscription")
	}
	return ent, err
}
