package dto

// LoginRequest 运营登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    string        `json:"token"`
	Operator *OperatorInfo `json:"operator"`
}

// OperatorInfo 运营信息
type OperatorInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
