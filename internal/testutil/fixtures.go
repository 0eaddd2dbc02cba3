package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/group_sub_server/internal/model"
)

// BaseTime 测试使用的固定时间
var BaseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestPlans 写入默认套餐
func TestPlans(t *testing.T, db *gorm.DB) []model.PlanDefinition {
	t.Helper()

	plans := model.DefaultPlans()
	if err := db.Create(&plans).Error; err != nil {
		t.Fatalf("Failed to create test plans: %v", err)
	}
	return plans
}

// TestRequest 创建待审批请求
func TestRequest(t *testing.T, db *gorm.DB, groupID int64, planID string, opts ...func(*model.PaymentRequest)) *model.PaymentRequest {
	t.Helper()

	req := &model.PaymentRequest{
		GroupID:   groupID,
		UserID:    55,
		PlanID:    planID,
		Context:   map[string]interface{}{},
		Status:    model.RequestStatusPending,
		CreatedAt: BaseTime,
	}

	for _, opt := range opts {
		opt(req)
	}

	if err := db.Create(req).Error; err != nil {
		t.Fatalf("Failed to create test request: %v", err)
	}
	return req
}

// WithRequestStatus 设置请求状态
func WithRequestStatus(status string) func(*model.PaymentRequest) {
	return func(r *model.PaymentRequest) {
		r.Status = status
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.PaymentRequest) {
	return func(r *model.PaymentRequest) {
		r.CreatedAt = at
	}
}

// TestEntitlement 创建有效订阅
func TestEntitlement(t *testing.T, db *gorm.DB, groupID int64, planID string, expiresAt time.Time, opts ...func(*model.Entitlement)) *model.Entitlement {
	t.Helper()

	paidAt := expiresAt.Add(-30 * 24 * time.Hour)
	ent := &model.Entitlement{
		GroupID:       groupID,
		PlanID:        planID,
		Active:        true,
		ExpiresAt:     &expiresAt,
		LastPayment:   &paidAt,
		PaymentStatus: model.PaymentStatusPaid,
	}

	for _, opt := range opts {
		opt(ent)
	}

	if err := db.Create(ent).Error; err != nil {
		t.Fatalf("Failed to create test entitlement: %v", err)
	}
	return ent
}

// WithInactive 设置为未激活
func WithInactive() func(*model.Entitlement) {
	return func(e *model.Entitlement) {
		e.Active = false
	}
}

// WithLastEvent 设置最近事件
func WithLastEvent(ev model.LifecycleEvent) func(*model.Entitlement) {
	return func(e *model.Entitlement) {
		e.LastEvent = model.NewLastEvent(ev)
	}
}

// TestFeature 写入功能开关
func TestFeature(t *testing.T, db *gorm.DB, groupID int64, feature string, enabled bool) *model.FeatureGrant {
	t.Helper()

	grant := &model.FeatureGrant{
		GroupID:   groupID,
		Feature:   feature,
		Enabled:   enabled,
		ChangedBy: 1,
		ChangedAt: BaseTime,
	}
	if err := db.Create(grant).Error; err != nil {
		t.Fatalf("Failed to create test feature grant: %v", err)
	}
	return grant
}

// TestOperator 创建运营账号
func TestOperator(t *testing.T, db *gorm.DB, username, passwordHash string) *model.Operator {
	t.Helper()

	op := &model.Operator{
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := db.Create(op).Error; err != nil {
		t.Fatalf("Failed to create test operator: %v", err)
	}
	return op
}

// SetupTestRedis 启动 miniredis
func SetupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}
