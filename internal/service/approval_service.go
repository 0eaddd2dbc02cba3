package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/pkg/keylock"
	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/repository"
)

type ApprovalService struct {
	store   *repository.Store
	catalog *PlanCatalog
	gate    *FeatureGate
	locks   *keylock.Table
	clock   clockwork.Clock
	events  EventPublisher
	cfg     *config.Config
}

func NewApprovalService(
	store *repository.Store,
	catalog *PlanCatalog,
	gate *FeatureGate,
	locks *keylock.Table,
	clock clockwork.Clock,
	events EventPublisher,
	cfg *config.Config,
) *ApprovalService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ApprovalService{
		store:   store,
		catalog: catalog,
		gate:    gate,
		locks:   locks,
		clock:   clock,
		events:  events,
		cfg:     cfg,
	}
}

// Submit 新建待审批请求，套餐在审批时才校验
func (s *ApprovalService) Submit(ctx context.Context, groupID, userID int64, planID string, reqCtx map[string]interface{}) (int64, error) {
	if reqCtx == nil {
		reqCtx = map[string]interface{}{}
	}

	req := &model.PaymentRequest{
		GroupID:   groupID,
		UserID:    userID,
		PlanID:    planID,
		Context:   reqCtx,
		Status:    model.RequestStatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.WithContext(ctx).Requests.Create(req); err != nil {
		return 0, storageError("approval.submit", err)
	}

	metrics.PaymentRequestsTotal.WithLabelValues("submitted").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventSubmitted,
		GroupID:   groupID,
		PlanID:    planID,
		RequestID: req.ID,
		Actor:     userID,
		At:        req.CreatedAt,
	})

	log.Info().
		Int64("request_id", req.ID).
		Int64("group_id", groupID).
		Int64("user_id", userID).
		Str("plan", planID).
		Msg("payment request submitted")
	return req.ID, nil
}

// loadPending 读取请求并检查是否仍待审批
func (s *ApprovalService) loadPending(ctx context.Context, op string, requestID int64) (*model.PaymentRequest, error) {
	req, err := s.store.WithContext(ctx).Requests.GetByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, op, "Request not found")
	}
	if err != nil {
		return nil, storageError(op, err)
	}
	if !req.IsPending() {
		return nil, newError(KindAlreadyProcessed, op, "Request already "+req.Status)
	}
	return req, nil
}

// Approve 审批通过：写入订阅、解锁套餐功能、记录历史，全部在同一事务中完成
func (s *ApprovalService) Approve(ctx context.Context, requestID, approverID int64, overrideDays *int) (*dto.ApprovalResult, error) {
	const op = "approval.approve"

	if overrideDays != nil && *overrideDays <= 0 {
		return nil, newError(KindInvalidInput, op, "Duration must be positive")
	}

	req, err := s.loadPending(ctx, op, requestID)
	if err != nil {
		return nil, err
	}

	plan, err := s.catalog.Resolve(req.PlanID)
	if err != nil {
		return nil, newError(KindInvalidPlan, op, "Invalid plan: "+req.PlanID)
	}

	duration := plan.DurationDays
	if overrideDays != nil {
		duration = *overrideDays
	}

	unlock, err := s.locks.Lock(ctx, req.GroupID)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer unlock()

	now := s.clock.Now()
	expiresAt := now.Add(time.Duration(duration) * 24 * time.Hour)
	var features []string

	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		req.Status = model.RequestStatusApproved
		req.ProcessedBy = &approverID
		req.ProcessedAt = &now
		req.DurationDays = &duration

		rows, err := tx.Requests.MarkProcessed(req)
		if err != nil {
			return err
		}
		if rows == 0 {
			return newError(KindAlreadyProcessed, op, "Request already processed")
		}

		ent, err := tx.Entitlements.GetByGroupID(req.GroupID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if ent == nil {
			ent = &model.Entitlement{GroupID: req.GroupID}
		}
		ent.PlanID = plan.ID
		ent.Active = true
		ent.ExpiresAt = &expiresAt
		ent.LastPayment = &now
		ent.PaymentStatus = model.PaymentStatusPaid
		ent.LastEvent = model.LastEvent{}
		if err := tx.Entitlements.Upsert(ent); err != nil {
			return err
		}

		features, err = s.gate.UnlockPlanIn(tx, req.GroupID, plan.Features, approverID, now)
		if err != nil {
			return err
		}

		err = tx.History.AppendApproval(&model.ApprovalRecord{
			RequestID:    req.ID,
			GroupID:      req.GroupID,
			UserID:       req.UserID,
			PlanID:       plan.ID,
			Action:       model.ActionApproved,
			ProcessedBy:  approverID,
			DurationDays: duration,
			ExpiresAt:    &expiresAt,
			ProcessedAt:  now,
		})
		if err != nil {
			return err
		}
		return tx.History.TrimApprovals(s.cfg.Subscription.HistoryLimit)
	})
	if err != nil {
		return nil, storageError(op, err)
	}

	metrics.PaymentRequestsTotal.WithLabelValues("approved").Inc()
	metrics.TransitionsTotal.WithLabelValues("activate").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventApproved,
		GroupID:   req.GroupID,
		PlanID:    plan.ID,
		RequestID: req.ID,
		Actor:     approverID,
		ExpiresAt: &expiresAt,
		At:        now,
	})

	log.Info().
		Int64("request_id", req.ID).
		Int64("group_id", req.GroupID).
		Str("plan", plan.ID).
		Int("duration_days", duration).
		Time("expires_at", expiresAt).
		Int64("approver", approverID).
		Msg("payment request approved")

	return &dto.ApprovalResult{
		RequestID:    req.ID,
		GroupID:      req.GroupID,
		PlanID:       plan.ID,
		DurationDays: duration,
		ExpiresAt:    expiresAt,
		Features:     features,
	}, nil
}

// Reject 拒绝请求，只写请求状态和历史
func (s *ApprovalService) Reject(ctx context.Context, requestID, rejecterID int64, reason string) error {
	const op = "approval.reject"

	req, err := s.loadPending(ctx, op, requestID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	err = s.store.Atomic(ctx, func(tx *repository.Store) error {
		req.Status = model.RequestStatusRejected
		req.ProcessedBy = &rejecterID
		req.ProcessedAt = &now
		req.Reason = reason

		rows, err := tx.Requests.MarkProcessed(req)
		if err != nil {
			return err
		}
		if rows == 0 {
			return newError(KindAlreadyProcessed, op, "Request already processed")
		}

		err = tx.History.AppendApproval(&model.ApprovalRecord{
			RequestID:   req.ID,
			GroupID:     req.GroupID,
			UserID:      req.UserID,
			PlanID:      req.PlanID,
			Action:      model.ActionRejected,
			ProcessedBy: rejecterID,
			Reason:      reason,
			ProcessedAt: now,
		})
		if err != nil {
			return err
		}
		return tx.History.TrimApprovals(s.cfg.Subscription.HistoryLimit)
	})
	if err != nil {
		return storageError(op, err)
	}

	metrics.PaymentRequestsTotal.WithLabelValues("rejected").Inc()
	publish(ctx, s.events, &pubsub.EntitlementEvent{
		Type:      pubsub.EventRejected,
		GroupID:   req.GroupID,
		PlanID:    req.PlanID,
		RequestID: req.ID,
		Actor:     rejecterID,
		Reason:    reason,
		At:        now,
	})

	log.Info().
		Int64("request_id", req.ID).
		Int64("group_id", req.GroupID).
		Int64("rejecter", rejecterID).
		Str("reason", reason).
		Msg("payment request rejected")
	return nil
}

// PendingQueue 待审批请求，先到先审
func (s *ApprovalService) PendingQueue(ctx context.Context) ([]*model.PaymentRequest, error) {
	reqs, err := s.store.WithContext(ctx).Requests.ListPending()
	if err != nil {
		return nil, storageError("approval.pending", err)
	}
	return reqs, nil
}

func (s *ApprovalService) RequestDetails(ctx context.Context, requestID int64) (*model.PaymentRequest, error) {
	req, err := s.store.WithContext(ctx).Requests.GetByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "approval.details", "Request not found")
	}
	if err != nil {
		return nil, storageError("approval.details", err)
	}
	return req, nil
}

// Stats 请求统计，today_approvals 按 UTC 日期计算
func (s *ApprovalService) Stats(ctx context.Context) (*dto.RequestStats, error) {
	const op = "approval.stats"
	store := s.store.WithContext(ctx)

	counts, err := store.Requests.CountByStatus()
	if err != nil {
		return nil, storageError(op, err)
	}
	totalHistory, err := store.History.CountApprovals()
	if err != nil {
		return nil, storageError(op, err)
	}
	records, err := store.History.ListApprovals(0)
	if err != nil {
		return nil, storageError(op, err)
	}

	today := s.clock.Now().UTC().Format(dayLayout)
	todayApprovals := lo.CountBy(records, func(r *model.ApprovalRecord) bool {
		return r.Action == model.ActionApproved && r.ProcessedAt.UTC().Format(dayLayout) == today
	})

	stats := &dto.RequestStats{
		Pending:        counts[model.RequestStatusPending],
		Approved:       counts[model.RequestStatusApproved],
		Rejected:       counts[model.RequestStatusRejected],
		TotalHistory:   totalHistory,
		TodayApprovals: todayApprovals,
	}
	stats.TotalRequests = lo.Sum(lo.Values(counts))
	return stats, nil
}

// History 最近的审批记录，limit <= 0 时返回全部
func (s *ApprovalService) History(ctx context.Context, limit int) ([]*model.ApprovalRecord, error) {
	records, err := s.store.WithContext(ctx).History.ListApprovals(limit)
	if err != nil {
		return nil, storageError("approval.history", err)
	}
	return records, nil
}
