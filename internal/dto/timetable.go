package dto

import (
	"fmt"
	"time"
)

// ScheduleQuery 课表查询参数（query string）
// start/end 为 2006-01-02 格式，任一端可缺省
type ScheduleQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

// Bounds 解析查询参数为可缺省的时间边界
func (q *ScheduleQuery) Bounds() (start, end *time.Time, err error) {
	if q.Start != "" {
		t, err := time.Parse("2006-01-02", q.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("start 日期格式无效（应为 2006-01-02）: %w", err)
		}
		start = &t
	}
	if q.End != "" {
		t, err := time.Parse("2006-01-02", q.End)
		if err != nil {
			return nil, nil, fmt.Errorf("end 日期格式无效（应为 2006-01-02）: %w", err)
		}
		end = &t
	}
	return start, end, nil
}
