package model

import "time"

// HomeworkRecord 作业记录表 — 对应 homework_records
// 按 (owner_id, upstream_id) upsert，本核心不删除。
type HomeworkRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"           json:"id"`
	UpstreamID  int64     `gorm:"not null"                           json:"upstream_id"`
	OwnerID     string    `gorm:"type:uuid;not null"                 json:"owner_id"`
	LessonID    *int64    `json:"lesson_id,omitempty"`
	DueDate     int       `gorm:"not null"                           json:"due_date"` // YYYYMMDD
	SubjectID   int64     `gorm:"not null;default:0"                 json:"subject_id"`
	SubjectName string    `gorm:"type:varchar(255);not null;default:''" json:"subject_name"`
	Text        string    `gorm:"not null;default:''"                json:"text"`
	Remark      string    `gorm:"not null;default:''"                json:"remark"`
	Completed   bool      `gorm:"not null;default:false"             json:"completed"`
	FetchedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"fetched_at"`
}

func (HomeworkRecord) TableName() string { return "homework_records" }
