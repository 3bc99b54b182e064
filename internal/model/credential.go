package model

import "time"

// Credential Untis 凭据表 — 对应 credentials
// 密码为 AES-GCM 密文（secret + nonce），key_version 指向配置中的解密密钥。
type Credential struct {
	OwnerID    string    `gorm:"type:uuid;primaryKey"               json:"owner_id"`
	School     string    `gorm:"type:varchar(100);not null"         json:"school"`
	Username   string    `gorm:"type:varchar(100);not null"         json:"username"`
	Secret     []byte    `gorm:"type:bytea;not null"                json:"-"`
	Nonce      []byte    `gorm:"type:bytea;not null"                json:"-"`
	KeyVersion int       `gorm:"not null;default:1"                 json:"key_version"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }
