package dto

import "time"

// SweepResult 一次扫描的汇总
type SweepResult struct {
	CheckedAt      time.Time     `json:"checked_at"`
	GroupsChecked  int           `json:"groups_checked"`
	ExpiringGroups int           `json:"expiring_groups"`
	ExpiredGroups  int           `json:"expired_groups"`
	AlertsSent     int           `json:"alerts_sent"`
	ExpiredHandled int           `json:"expired_handled"`
	Failures       int           `json:"failures"`
	Duration       time.Duration `json:"duration_ns"`
}

// ExpiryStats 到期统计
type ExpiryStats struct {
	ActiveGroups    int        `json:"active_groups"`
	ExpiringSoon    int        `json:"expiring_soon"`
	ExpiredGroups   int        `json:"expired_groups"`
	TotalAlertsSent int64      `json:"total_alerts_sent"`
	LastCheck       *time.Time `json:"last_check,omitempty"`
	LastResults     *SweepInfo `json:"last_check_results,omitempty"`
	Thresholds      []int      `json:"alert_thresholds"`
}

// SweepInfo 上次扫描结果
type SweepInfo struct {
	GroupsChecked  int `json:"total_groups_checked"`
	ExpiringGroups int `json:"expiring_groups"`
	ExpiredGroups  int `json:"expired_groups"`
	AlertsSent     int `json:"alerts_sent"`
	ExpiredHandled int `json:"expired_handled"`
	Failures       int `json:"failures"`
}
