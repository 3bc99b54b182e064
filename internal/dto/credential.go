package dto

import "time"

// SetCredentialRequest 设置 Untis 凭据请求
// 密码仅在请求体中以明文出现一次，落库前即加密
type SetCredentialRequest struct {
	School   string `json:"school"   binding:"required,max=100"`
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=255"`
}

// CredentialInfo 凭据信息响应（不含任何密钥材料）
type CredentialInfo struct {
	School     string    `json:"school"`
	Username   string    `json:"username"`
	KeyVersion int       `json:"key_version"`
	UpdatedAt  time.Time `json:"updated_at"`
}
