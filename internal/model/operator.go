package model

import (
	"time"
)

type Operator struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Operator) TableName() string {
	return "operators"
}

// All 需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&PlanDefinition{},
		&PaymentRequest{},
		&Entitlement{},
		&FeatureGrant{},
		&FeatureChange{},
		&ExpiryAlert{},
		&ExpiryTracker{},
		&ApprovalRecord{},
		&CancellationRecord{},
		&Operator{},
	}
}
