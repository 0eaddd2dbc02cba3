package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanDefinition 套餐定义，进程运行期间只读，修改后需显式 reload
type PlanDefinition struct {
	ID           string          `gorm:"primaryKey;size:32" json:"id"`
	Name         string          `gorm:"size:100;not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	Features     []string        `gorm:"type:text;serializer:json" json:"features"` // 套餐标签，按顺序
	MaxGroups    int             `json:"max_groups"`
	Priority     int             `gorm:"index" json:"priority"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (PlanDefinition) TableName() string {
	return "plans"
}

// DefaultPlans 首次启动时写入的内置套餐
func DefaultPlans() []PlanDefinition {
	return []PlanDefinition{
		{
			ID:           "free",
			Name:         "Free Trial",
			Price:        decimal.Zero,
			DurationDays: 30,
			Features:     []string{"basic_auto_reply", "welcome_message"},
			MaxGroups:    1,
			Priority:     0,
		},
		{
			ID:           "basic",
			Name:         "30 Days",
			Price:        decimal.NewFromInt(60),
			DurationDays: 30,
			Features:     []string{"all_auto_reply", "moderation", "scheduling"},
			MaxGroups:    3,
			Priority:     1,
		},
		{
			ID:           "standard",
			Name:         "90 Days",
			Price:        decimal.NewFromInt(100),
			DurationDays: 90,
			Features:     []string{"all_features", "priority_support"},
			MaxGroups:    10,
			Priority:     2,
		},
		{
			ID:           "premium",
			Name:         "8 Months",
			Price:        decimal.NewFromInt(200),
			DurationDays: 240,
			Features:     []string{"all_features", "highest_priority", "customization"},
			MaxGroups:    50,
			Priority:     3,
		},
	}
}
