package model

import "time"

// ExamRecord 考试记录表 — 对应 exam_records
// 按 (owner_id, upstream_id) upsert，本核心不删除。
type ExamRecord struct {
	ID          int64       `gorm:"primaryKey;autoIncrement"           json:"id"`
	UpstreamID  int64       `gorm:"not null"                           json:"upstream_id"`
	OwnerID     string      `gorm:"type:uuid;not null"                 json:"owner_id"`
	ExamDate    int         `gorm:"not null"                           json:"exam_date"`  // YYYYMMDD
	StartTime   int         `gorm:"not null;default:0"                 json:"start_time"` // HHMM
	EndTime     int         `gorm:"not null;default:0"                 json:"end_time"`   // HHMM
	SubjectID   int64       `gorm:"not null;default:0"                 json:"subject_id"`
	SubjectName string      `gorm:"type:varchar(255);not null;default:''" json:"subject_name"`
	Name        string      `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Text        string      `gorm:"not null;default:''"                json:"text"`
	Teachers    StringArray `gorm:"type:text[]"                        json:"teachers,omitempty"`
	Rooms       StringArray `gorm:"type:text[]"                        json:"rooms,omitempty"`
	FetchedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"fetched_at"`
}

func (ExamRecord) TableName() string { return "exam_records" }
