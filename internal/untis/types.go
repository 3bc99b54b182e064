package untis

// ── WebUntis JSON-RPC 线上类型 ──
//
// 字段名与上游响应保持一致，仅在本包内使用；
// 对外的规范化类型见 internal/model。

// IDName 上游的 {id, name, longname} 三元组（科目/教师/教室/班级通用）
type IDName struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LongName string `json:"longname,omitempty"`
}

// RawLesson 上游课时记录
// 自由文本可能出现在多个字段名下（不同实例/代课场景不一致），
// 富集层会将它们合并为一条规范化备注。
type RawLesson struct {
	ID         int64    `json:"id"`
	Date       int      `json:"date"`      // YYYYMMDD
	StartTime  int      `json:"startTime"` // HHMM
	EndTime    int      `json:"endTime"`   // HHMM
	Subjects   []IDName `json:"su"`
	Teachers   []IDName `json:"te"`
	Rooms      []IDName `json:"ro"`
	Classes    []IDName `json:"kl"`
	Code       string   `json:"code,omitempty"` // "" | cancelled | irregular
	LsText     string   `json:"lstext,omitempty"`
	Info       string   `json:"info,omitempty"`
	SubstText  string   `json:"substText,omitempty"`
	Text       string   `json:"txt,omitempty"`
	PeriodText string   `json:"periodText,omitempty"`
}

// FreeTexts 按固定顺序返回所有备选自由文本字段
func (l *RawLesson) FreeTexts() []string {
	return []string{l.LsText, l.Info, l.SubstText, l.Text, l.PeriodText}
}

// RawHomework 上游作业记录
// LessonID 为 0 表示上游未关联课时，只能按日期+科目回退匹配。
type RawHomework struct {
	ID        int64  `json:"id"`
	LessonID  int64  `json:"lessonId"`
	DueDate   int    `json:"dueDate"` // YYYYMMDD
	SubjectID int64  `json:"subjectId"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	Remark    string `json:"remark"`
	Completed bool   `json:"completed"`
}

// RawExam 上游考试记录
type RawExam struct {
	ID        int64    `json:"id"`
	Date      int      `json:"examDate"`  // YYYYMMDD
	StartTime int      `json:"startTime"` // HHMM
	EndTime   int      `json:"endTime"`   // HHMM
	SubjectID int64    `json:"subjectId"`
	Subject   string   `json:"subject"`
	Name      string   `json:"name"`
	Text      string   `json:"text"`
	Teachers  []string `json:"teachers"`
	Rooms     []string `json:"rooms"`
}

// FetchResult 单次会话拉取的全部原始数据
// Homework/Exams 的子拉取失败会降级为空列表，不影响整体成功。
type FetchResult struct {
	Lessons  []RawLesson
	Homework []RawHomework
	Exams    []RawExam
}

// Credentials 解密后的 Untis 登录凭据
type Credentials struct {
	School   string
	Username string
	Password string
}
