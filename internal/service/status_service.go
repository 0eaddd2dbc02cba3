package service

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/repository"
)

// StatusService 只读查询，不加群组锁
type StatusService struct {
	store   *repository.Store
	catalog *PlanCatalog
	gate    *FeatureGate
	clock   clockwork.Clock
}

func NewStatusService(store *repository.Store, catalog *PlanCatalog, gate *FeatureGate, clock clockwork.Clock) *StatusService {
	return &StatusService{
		store:   store,
		catalog: catalog,
		gate:    gate,
		clock:   clock,
	}
}

// CheckServiceStatus 对比套餐应有功能与实际开启功能
func (s *StatusService) CheckServiceStatus(ctx context.Context, groupID int64) (*dto.ServiceStatus, error) {
	const op = "status.check"

	enabled, err := s.gate.EnabledFeatures(ctx, groupID)
	if err != nil {
		return nil, err
	}

	status := &dto.ServiceStatus{
		GroupID:         groupID,
		DaysRemaining:   -1,
		DesiredFeatures: []string{},
		EnabledFeatures: enabled,
		MissingFeatures: []string{},
	}

	ent, err := s.store.WithContext(ctx).Entitlements.GetByGroupID(groupID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, storageError(op, err)
	}

	now := s.clock.Now()
	status.HasPlan = true
	status.PlanID = ent.PlanID
	status.Active = ent.Active
	status.IsExpired = ent.IsExpired(now)
	status.ExpiresAt = ent.ExpiresAt
	status.PaymentStatus = ent.PaymentStatus
	status.LastEvent = string(ent.LastEvent.Kind())
	if ent.ExpiresAt != nil && !status.IsExpired {
		status.DaysRemaining = ent.DaysUntilExpiry(now)
	}

	if ent.Active {
		if plan, err := s.catalog.Resolve(ent.PlanID); err == nil {
			status.DesiredFeatures = FeaturesForTags(plan.Features)
		}
	}
	status.MissingFeatures, _ = lo.Difference(status.DesiredFeatures, enabled)
	return status, nil
}
