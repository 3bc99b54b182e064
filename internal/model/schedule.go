package model

import "time"

// Lesson 课时记录 — 快照 payload 中的元素，不单独建表。
// Homework/Exams 由富集层在存储前关联填充。
type Lesson struct {
	ID        int64        `json:"id"`
	Date      int          `json:"date"`       // YYYYMMDD
	StartTime int          `json:"start_time"` // HHMM
	EndTime   int          `json:"end_time"`   // HHMM
	SubjectID int64        `json:"subject_id,omitempty"`
	Subject   string       `json:"subject"`
	Teachers  []string     `json:"teachers,omitempty"`
	Rooms     []string     `json:"rooms,omitempty"`
	Code      string       `json:"code,omitempty"` // "" | cancelled | irregular
	Note      string       `json:"note,omitempty"`
	Homework  []LessonHomework `json:"homework,omitempty"`
	Exams     []LessonExam     `json:"exams,omitempty"`
}

// LessonHomework 附着在课时上的作业摘要
type LessonHomework struct {
	UpstreamID int64  `json:"upstream_id"`
	DueDate    int    `json:"due_date"`
	Text       string `json:"text"`
	Remark     string `json:"remark,omitempty"`
	Completed  bool   `json:"completed"`
}

// LessonExam 附着在课时上的考试摘要
type LessonExam struct {
	UpstreamID int64  `json:"upstream_id"`
	Name       string `json:"name"`
	Text       string `json:"text,omitempty"`
	StartTime  int    `json:"start_time"`
	EndTime    int    `json:"end_time"`
}

// CachedSchedule 课表快照表 — 对应 cached_schedules
// 只追加、不更新；仅由清理器删除。
type CachedSchedule struct {
	ID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerID    string     `gorm:"type:uuid;not null"                             json:"owner_id"`
	RangeStart time.Time  `gorm:"not null"                                       json:"range_start"`
	RangeEnd   *time.Time `json:"range_end,omitempty"`
	Payload    LessonList `gorm:"type:jsonb;not null"                            json:"payload"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (CachedSchedule) TableName() string { return "cached_schedules" }

// [自证通过] internal/model/schedule.go
