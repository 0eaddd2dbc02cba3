package dto

import "time"

// SubmitRequest 提交付款请求
type SubmitRequest struct {
	GroupID int64                  `json:"group_id" binding:"required"`
	UserID  int64                  `json:"user_id" binding:"required"`
	PlanID  string                 `json:"plan_id" binding:"required"`
	Context map[string]interface{} `json:"context"`
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	RequestID int64 `json:"request_id"`
}

// ApproveRequest 审批请求，duration_days 为空时使用套餐时长
type ApproveRequest struct {
	DurationDays *int `json:"duration_days"`
}

// RejectRequest 拒绝请求
type RejectRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// ApprovalResult 审批结果
type ApprovalResult struct {
	RequestID    int64     `json:"request_id"`
	GroupID      int64     `json:"group_id"`
	PlanID       string    `json:"plan_id"`
	DurationDays int       `json:"duration_days"`
	ExpiresAt    time.Time `json:"expires_at"`
	Features     []string  `json:"features"`
}

// RequestStats 请求统计
type RequestStats struct {
	TotalRequests  int64 `json:"total_requests"`
	Pending        int64 `json:"pending"`
	Approved       int64 `json:"approved"`
	Rejected       int64 `json:"rejected"`
	TotalHistory   int64 `json:"total_history"`
	TodayApprovals int   `json:"today_approvals"`
}
