package model

import (
	"time"
)

// ExpiryAlert 到期提醒日志，(group_id, threshold, day) 唯一，用于去重
type ExpiryAlert struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	GroupID   int64     `gorm:"not null;uniqueIndex:idx_alert_group_threshold_day" json:"group_id"`
	Threshold int       `gorm:"not null;uniqueIndex:idx_alert_group_threshold_day" json:"threshold"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:idx_alert_group_threshold_day" json:"day"` // YYYY-MM-DD
	PlanID    string    `gorm:"size:32" json:"plan_id"`
	Message   string    `gorm:"type:text" json:"message"`
	Delivered bool      `json:"delivered"`
	SentAt    time.Time `gorm:"index" json:"sent_at"`
}

func (ExpiryAlert) TableName() string {
	return "expiry_alerts"
}

const TrackerID int64 = 1

// ExpiryTracker 巡检计数器，仅供观察，权威状态以 Entitlement 为准
type ExpiryTracker struct {
	ID              int64      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	TotalAlertsSent int64      `json:"total_alerts_sent"`
	LastCheck       *time.Time `json:"last_check,omitempty"`
	GroupsChecked   int        `json:"total_groups_checked"`
	ExpiringGroups  int        `json:"expiring_groups"`
	ExpiredGroups   int        `json:"expired_groups"`
	AlertsSent      int        `json:"alerts_sent"`
	ExpiredHandled  int        `json:"expired_handled"`
	Failures        int        `json:"failures"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (ExpiryTracker) TableName() string {
	return "expiry_trackers"
}
