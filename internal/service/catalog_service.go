package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/model/dto"
	"github.com/qs3c/group_sub_server/internal/repository"
)

// PlanCatalog 套餐目录，运行期只读内存快照，编辑后需 Reload
type PlanCatalog struct {
	store *repository.Store
	cfg   *config.Config

	mu    sync.RWMutex
	plans map[string]model.PlanDefinition
}

func NewPlanCatalog(store *repository.Store, cfg *config.Config) *PlanCatalog {
	return &PlanCatalog{
		store: store,
		cfg:   cfg,
		plans: make(map[string]model.PlanDefinition),
	}
}

// Bootstrap 目录为空时写入默认套餐，已有目录从不覆盖。
// 返回是否写入了默认套餐。
func (c *PlanCatalog) Bootstrap(ctx context.Context) (bool, error) {
	const op = "catalog.bootstrap"

	created := false
	err := c.store.Atomic(ctx, func(tx *repository.Store) error {
		count, err := tx.Plans.Count()
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Plans.CreateBatch(model.DefaultPlans()); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, storageError(op, err)
	}

	if created {
		log.Info().Msg("plan catalog bootstrapped with default plans")
	}

	if err := c.Reload(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Reload 从存储重新加载套餐
func (c *PlanCatalog) Reload(ctx context.Context) error {
	plans, err := c.store.WithContext(ctx).Plans.List()
	if err != nil {
		return storageError("catalog.reload", err)
	}

	next := make(map[string]model.PlanDefinition, len(plans))
	for _, p := range plans {
		next[p.ID] = *p
	}

	c.mu.Lock()
	c.plans = next
	c.mu.Unlock()

	log.Debug().Int("plans", len(next)).Msg("plan catalog loaded")
	return nil
}

// Resolve 返回套餐副本
func (c *PlanCatalog) Resolve(planID string) (*model.PlanDefinition, error) {
	c.mu.RLock()
	plan, ok := c.plans[planID]
	c.mu.RUnlock()

	if !ok {
		return nil, newError(KindNotFound, "catalog.resolve", "Plan not found: "+planID)
	}

	plan.Features = append([]string(nil), plan.Features...)
	return &plan, nil
}

// DefaultDuration 套餐时长，未知套餐使用配置的默认值
func (c *PlanCatalog) DefaultDuration(planID string) int {
	c.mu.RLock()
	plan, ok := c.plans[planID]
	c.mu.RUnlock()

	if !ok || plan.DurationDays <= 0 {
		return c.cfg.Subscription.DefaultDurationDays
	}
	return plan.DurationDays
}

// List 按优先级排序
func (c *PlanCatalog) List() []model.PlanDefinition {
	c.mu.RLock()
	plans := make([]model.PlanDefinition, 0, len(c.plans))
	for _, p := range c.plans {
		p.Features = append([]string(nil), p.Features...)
		plans = append(plans, p)
	}
	c.mu.RUnlock()

	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Priority != plans[j].Priority {
			return plans[i].Priority < plans[j].Priority
		}
		return plans[i].ID < plans[j].ID
	})
	return plans
}

// Upsert 保存套餐编辑，不影响当前快照
func (c *PlanCatalog) Upsert(ctx context.Context, planID string, req *dto.UpsertPlanRequest) (*model.PlanDefinition, error) {
	const op = "catalog.upsert"

	planID = strings.TrimSpace(planID)
	if planID == "" || len(planID) > 32 {
		return nil, newError(KindInvalidInput, op, "Invalid plan id")
	}
	if req.DurationDays <= 0 {
		return nil, newError(KindInvalidInput, op, "Duration must be positive")
	}
	if req.Price.IsNegative() {
		return nil, newError(KindInvalidInput, op, "Price must not be negative")
	}

	plan := &model.PlanDefinition{
		ID:           planID,
		Name:         req.Name,
		Price:        req.Price.Round(2),
		DurationDays: req.DurationDays,
		Features:     req.Features,
		MaxGroups:    req.MaxGroups,
		Priority:     req.Priority,
	}
	if plan.Features == nil {
		plan.Features = []string{}
	}

	if err := c.store.WithContext(ctx).Plans.Upsert(plan); err != nil {
		return nil, storageError(op, err)
	}

	log.Info().Str("plan", planID).Msg("plan saved, reload required")
	return plan, nil
}
