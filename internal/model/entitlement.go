package model

import (
	"math"
	"time"
)

const (
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusExpired   = "expired"
)

// Entitlement 群组当前的订阅记录，每个群组一条，从不删除
type Entitlement struct {
	GroupID       int64      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	PlanID        string     `gorm:"size:32;not null" json:"plan_id"`
	Active        bool       `gorm:"index" json:"active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	LastPayment   *time.Time `json:"last_payment,omitempty"`
	PaymentStatus string     `gorm:"size:20" json:"payment_status"`
	LastEvent     LastEvent  `gorm:"type:text" json:"last_event"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}

// IsExpired now 严格晚于过期时间才算过期
func (e *Entitlement) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// DaysUntilExpiry 向下取整的剩余天数；没有过期时间时返回 -1
func (e *Entitlement) DaysUntilExpiry(now time.Time) int {
	if e.ExpiresAt == nil {
		return -1
	}
	days := e.ExpiresAt.Sub(now).Hours() / 24
	return int(math.Floor(days))
}
