package model

import (
	"time"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

type PaymentRequest struct {
	ID           int64                  `gorm:"primaryKey" json:"id"`
	GroupID      int64                  `gorm:"not null;index" json:"group_id"`
	UserID       int64                  `gorm:"not null" json:"user_id"`
	PlanID       string                 `gorm:"size:32;not null" json:"plan_id"`
	Context      map[string]interface{} `gorm:"type:text;serializer:json" json:"context"`
	Status       string                 `gorm:"size:20;not null;index" json:"status"`
	CreatedAt    time.Time              `gorm:"index" json:"created_at"`
	ProcessedBy  *int64                 `json:"processed_by,omitempty"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty"`
	Reason       string                 `gorm:"type:text" json:"reason,omitempty"`
	DurationDays *int                   `json:"duration_days,omitempty"` // 审批时覆盖的时长
}

func (PaymentRequest) TableName() string {
	return "payment_requests"
}

func (r *PaymentRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
