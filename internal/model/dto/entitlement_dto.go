package dto

import "time"

// CancelRequest 取消订阅
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RestoreRequest 恢复订阅，duration_days <= 0 时使用默认时长
type RestoreRequest struct {
	PlanID       string `json:"plan_id" binding:"required"`
	DurationDays int    `json:"duration_days"`
}

// ServiceStatus 群组服务状态
type ServiceStatus struct {
	GroupID         int64      `json:"group_id"`
	HasPlan         bool       `json:"has_plan"`
	PlanID          string     `json:"plan,omitempty"`
	Active          bool       `json:"active"`
	IsExpired       bool       `json:"is_expired"`
	ExpiresAt       *time.Time `json:"expiry,omitempty"`
	DaysRemaining   int        `json:"days_remaining"`
	PaymentStatus   string     `json:"payment_status,omitempty"`
	LastEvent       string     `json:"last_event,omitempty"`
	DesiredFeatures []string   `json:"desired_features"`
	EnabledFeatures []string   `json:"enabled_features"`
	MissingFeatures []string   `json:"missing_features"`
}
