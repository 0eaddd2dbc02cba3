package dto

import "github.com/shopspring/decimal"

// UpsertPlanRequest 套餐编辑请求，保存后需 reload 才生效
type UpsertPlanRequest struct {
	Name         string          `json:"name" binding:"required,max=100"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days" binding:"required,min=1"`
	Features     []string        `json:"features"`
	MaxGroups    int             `json:"max_groups" binding:"min=0"`
	Priority     int             `json:"priority"`
}

// ReloadResponse 重新加载结果
type ReloadResponse struct {
	Plans int `json:"plans"`
}
