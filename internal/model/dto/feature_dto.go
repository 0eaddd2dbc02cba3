package dto

// SetFeatureRequest 开关功能
type SetFeatureRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// FeatureState 单个功能状态
type FeatureState struct {
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
}

// GroupFeatures 群组已开启功能
type GroupFeatures struct {
	GroupID  int64    `json:"group_id"`
	Features []string `json:"features"`
}
