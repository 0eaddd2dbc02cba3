package model

import (
	"time"
)

const (
	ActionApproved = "approved"
	ActionRejected = "rejected"
)

// ApprovalRecord 审批历史，只追加
type ApprovalRecord struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	RequestID    int64      `gorm:"not null;index" json:"request_id"`
	GroupID      int64      `gorm:"not null;index" json:"group_id"`
	UserID       int64      `json:"user_id"`
	PlanID       string     `gorm:"size:32" json:"plan_id"`
	Action       string     `gorm:"size:20;not null" json:"action"`
	ProcessedBy  int64      `json:"processed_by"`
	DurationDays int        `json:"duration_days,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Reason       string     `gorm:"type:text" json:"reason,omitempty"`
	ProcessedAt  time.Time  `gorm:"index" json:"processed_at"`
}

func (ApprovalRecord) TableName() string {
	return "approval_records"
}

// CancellationRecord 取消/过期日志
type CancellationRecord struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	GroupID     int64     `gorm:"not null;index" json:"group_id"`
	PlanID      string    `gorm:"size:32" json:"plan_id"`
	CancelledBy int64     `json:"cancelled_by"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CancelledAt time.Time `gorm:"index" json:"cancelled_at"`
}

func (CancellationRecord) TableName() string {
	return "cancellation_records"
}
