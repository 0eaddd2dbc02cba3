package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/model"
	"github.com/qs3c/group_sub_server/internal/pkg/keylock"
	"github.com/qs3c/group_sub_server/internal/pkg/metrics"
	"github.com/qs3c/group_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/group_sub_server/internal/repository"
)

// planFeatureMap 套餐标签到具体功能的映射，未登记的标签不产生功能
var planFeatureMap = map[string][]string{
	"basic_auto_reply": {"auto_reply"},
	"all_auto_reply":   {"auto_reply", "welcome_message", "goodbye_message"},
	"moderation":       {"moderation", "anti_spam", "anti_flood"},
	"scheduling":       {"scheduled_messages", "prayer_alerts"},
	"all_features":     {"auto_reply", "moderation", "intelligence", "analytics"},
	"priority_support": {"priority_support"},
	"customization":    {"custom_messages", "custom_keywords"},
}

// PaidFeatures 取消或到期时关闭
var PaidFeatures = []string{
	"moderation", "anti_spam", "anti_flood", "anti_link",
	"scheduled_messages", "prayer_alerts", "night_mode",
	"intelligence", "analytics", "priority_support",
}

// FreeFeatures 取消或到期后保持开启，在关闭付费功能之后写入
var FreeFeatures = []string{"auto_reply", "welcome_message", "goodbye_message"}

var knownFeatures = func() map[string]struct{} {
	all := lo.Flatten(lo.Values(planFeatureMap))
	all = append(all, PaidFeatures...)
	all = append(all, FreeFeatures...)
	return lo.SliceToMap(all, func(f string) (string, struct{}) {
		return f, struct{}{}
	})
}()

// FeaturesForTags 解析套餐标签，去重后排序
func FeaturesForTags(tags []string) []string {
	features := lo.Uniq(lo.FlatMap(tags, func(tag string, _ int) []string {
		return planFeatureMap[tag]
	}))
	sort.Strings(features)
	return features
}

// KnownFeatures 所有可开关的功能
func KnownFeatures() []string {
	features := lo.Keys(knownFeatures)
	sort.Strings(features)
	return features
}

func IsKnownFeature(feature string) bool {
	_, ok := knownFeatures[feature]
	return ok
}

// FeatureGate 群组功能开关，带审计记录
type FeatureGate struct {
	store  *repository.Store
	clock  clockwork.Clock
	cfg    *config.Config
	locks  *keylock.Table
	events EventPublisher
}

func NewFeatureGate(store *repository.Store, clock clockwork.Clock, cfg *config.Config, locks *keylock.Table, events EventPublisher) *FeatureGate {
	if events == nil {
		events = nopPublisher{}
	}
	return &FeatureGate{
		store:  store,
		clock:  clock,
		cfg:    cfg,
		locks:  locks,
		events: events,
	}
}

// setIn 在事务内写入功能状态。状态未变化时不写入，返回是否发生变化。
func (g *FeatureGate) setIn(tx *repository.Store, groupID int64, feature string, enabled bool, actor int64, now time.Time) (bool, error) {
	grant, err := tx.Features.Get(groupID, feature)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	current := grant != nil && grant.Enabled
	if current == enabled {
		return false, nil
	}

	err = tx.Features.Upsert(&model.FeatureGrant{
		GroupID:   groupID,
		Feature:   feature,
		Enabled:   enabled,
		ChangedBy: actor,
		ChangedAt: now,
	})
	if err != nil {
		return false, err
	}

	err = tx.Features.AppendChange(&model.FeatureChange{
		GroupID:   groupID,
		Feature:   feature,
		Enabled:   enabled,
		ChangedBy: actor,
		ChangedAt: now,
	})
	if err != nil {
		return false, err
	}

	metrics.RecordFeatureChange(enabled)
	return true, nil
}

// UnlockPlanIn 开启套餐对应的全部功能，已开启的其他功能保持不变
func (g *FeatureGate) UnlockPlanIn(tx *repository.Store, groupID int64, tags []string, actor int64, now time.Time) ([]string, error) {
	features := FeaturesForTags(tags)
	for _, f := range features {
		if _, err := g.setIn(tx, groupID, f, true, actor, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Features.TrimChanges(g.cfg.Subscription.FeatureLogLimit); err != nil {
		return nil, err
	}
	return features, nil
}

// DowngradeIn 先关闭付费功能，再开启免费功能
func (g *FeatureGate) DowngradeIn(tx *repository.Store, groupID int64, actor int64, now time.Time) error {
	for _, f := range PaidFeatures {
		if _, err := g.setIn(tx, groupID, f, false, actor, now); err != nil {
			return err
		}
	}
	for _, f := range FreeFeatures {
		if _, err := g.setIn(tx, groupID, f, true, actor, now); err != nil {
			return err
		}
	}
	return tx.Features.TrimChanges(g.cfg.Subscription.FeatureLogLimit)
}

func (g *FeatureGate) Enable(ctx context.Context, groupID int64, feature string, actor int64) error {
	_, err := g.set(ctx, "feature.enable", groupID, feature, actor, func(bool) bool { return true })
	return err
}

func (g *FeatureGate) Disable(ctx context.Context, groupID int64, feature string, actor int64) error {
	_, err := g.set(ctx, "feature.disable", groupID, feature, actor, func(bool) bool { return false })
	return err
}

// Toggle 切换功能状态，返回切换后的状态
func (g *FeatureGate) Toggle(ctx context.Context, groupID int64, feature string, actor int64) (bool, error) {
	return g.set(ctx, "feature.toggle", groupID, feature, actor, func(current bool) bool { return !current })
}

// ForceUnlock 管理员强制开启，不检查群组套餐
func (g *FeatureGate) ForceUnlock(ctx context.Context, groupID int64, feature string, actor int64) error {
	if _, err := g.set(ctx, "feature.force_unlock", groupID, feature, actor, func(bool) bool { return true }); err != nil {
		return err
	}
	log.Warn().
		Int64("group_id", groupID).
		Str("feature", feature).
		Int64("actor", actor).
		Msg("feature force-unlocked")
	return nil
}

func (g *FeatureGate) set(ctx context.Context, op string, groupID int64, feature string, actor int64, next func(current bool) bool) (bool, error) {
	if !IsKnownFeature(feature) {
		return false, newError(KindInvalidInput, op, "Unknown feature: "+feature)
	}

	unlock, err := g.locks.Lock(ctx, groupID)
	if err != nil {
		return false, storageError(op, err)
	}
	defer unlock()

	now := g.clock.Now()
	var (
		target  bool
		changed bool
	)
	err = g.store.Atomic(ctx, func(tx *repository.Store) error {
		grant, err := tx.Features.Get(groupID, feature)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		target = next(grant != nil && grant.Enabled)

		changed, err = g.setIn(tx, groupID, feature, target, actor, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return tx.Features.TrimChanges(g.cfg.Subscription.FeatureLogLimit)
	})
	if err != nil {
		return false, storageError(op, err)
	}

	if changed {
		publish(ctx, g.events, &pubsub.EntitlementEvent{
			Type:    pubsub.EventFeature,
			GroupID: groupID,
			Actor:   actor,
			Feature: feature,
			Reason:  op,
			At:      now,
		})
		log.Info().
			Int64("group_id", groupID).
			Str("feature", feature).
			Bool("enabled", target).
			Int64("actor", actor).
			Msg("feature updated")
	}
	return target, nil
}

// IsEnabled 未记录的 (group, feature) 视为关闭
func (g *FeatureGate) IsEnabled(ctx context.Context, groupID int64, feature string) (bool, error) {
	grant, err := g.store.WithContext(ctx).Features.Get(groupID, feature)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("feature.is_enabled", err)
	}
	return grant.Enabled, nil
}

func (g *FeatureGate) EnabledFeatures(ctx context.Context, groupID int64) ([]string, error) {
	features, err := g.store.WithContext(ctx).Features.ListEnabled(groupID)
	if err != nil {
		return nil, storageError("feature.enabled", err)
	}
	if features == nil {
		features = []string{}
	}
	return features, nil
}

// Grants 群组全部开关记录，包括已关闭的
func (g *FeatureGate) Grants(ctx context.Context, groupID int64) ([]*model.FeatureGrant, error) {
	grants, err := g.store.WithContext(ctx).Features.ListByGroup(groupID)
	if err != nil {
		return nil, storageError("feature.grants", err)
	}
	return grants, nil
}

// Changes 审计记录，最新在前；groupID 为 0 时返回全部
func (g *FeatureGate) Changes(ctx context.Context, groupID int64, limit int) ([]*model.FeatureChange, error) {
	changes, err := g.store.WithContext(ctx).Features.ListChanges(groupID, limit)
	if err != nil {
		return nil, storageError("feature.changes", err)
	}
	return changes, nil
}
