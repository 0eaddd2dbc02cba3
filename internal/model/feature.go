package model

import (
	"time"
)

// FeatureGrant 群组功能开关，锁定时只置为 false，不删除记录
type FeatureGrant struct {
	GroupID   int64     `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	Feature   string    `gorm:"primaryKey;size:64" json:"feature"`
	Enabled   bool      `json:"enabled"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

func (FeatureGrant) TableName() string {
	return "feature_grants"
}

// FeatureChange 功能开关审计日志
type FeatureChange struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	GroupID   int64     `gorm:"not null;index" json:"group_id"`
	Feature   string    `gorm:"size:64;not null" json:"feature"`
	Enabled   bool      `json:"enabled"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `gorm:"index" json:"changed_at"`
}

func (FeatureChange) TableName() string {
	return "feature_changes"
}
