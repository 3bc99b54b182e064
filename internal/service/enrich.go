package service

import (
	"strings"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/model"
	"github.com/LimoEisbxr/untis-pro-sub002/internal/untis"
)

// ── 富集层：作业/考试关联 + 备注合成 ──
//
// 上游的课时、作业、考试三路数据之间没有统一的科目标识符，
// 只能"先精确、后启发式"地对齐：
//   - 作业：优先按 lessonId 关联；缺失时回退到 同日 + 宽容科目匹配
//   - 考试：日期必须精确相等；再宽容科目匹配，仅当一侧缺科目时
//     回退到时间窗重叠
// 宽容匹配（子串包含、限定词剥离）可能在共享词元的不同科目间误判，
// 这是尽力而为的近似，不是正确性保证。
// 一条作业/考试可以附着到多个课时；本层不做跨课时去重。

// subjectQualifiers 科目名中的层次/类型限定词，剥离后再比较
// （如 "Mathe LK" 与 "Mathe"）
var subjectQualifiers = map[string]bool{
	"lk":            true,
	"gk":            true,
	"ag":            true,
	"kurs":          true,
	"grundkurs":     true,
	"leistungskurs": true,
}

// noteSeparator 备注合成时的字段连接符
const noteSeparator = " | "

// EnrichLessons 将原始课时转为规范化课时，并关联作业/考试、合成备注
func EnrichLessons(lessons []untis.RawLesson, homework []untis.RawHomework, exams []untis.RawExam) []model.Lesson {
	result := make([]model.Lesson, 0, len(lessons))

	for _, raw := range lessons {
		lesson := toLesson(&raw)

		for i := range homework {
			if homeworkMatches(&homework[i], &raw) {
				lesson.Homework = append(lesson.Homework, model.LessonHomework{
					UpstreamID: homework[i].ID,
					DueDate:    homework[i].DueDate,
					Text:       homework[i].Text,
					Remark:     homework[i].Remark,
					Completed:  homework[i].Completed,
				})
			}
		}

		for i := range exams {
			if examMatches(&exams[i], &raw) {
				lesson.Exams = append(lesson.Exams, model.LessonExam{
					UpstreamID: exams[i].ID,
					Name:       exams[i].Name,
					Text:       exams[i].Text,
					StartTime:  exams[i].StartTime,
					EndTime:    exams[i].EndTime,
				})
			}
		}

		result = append(result, lesson)
	}

	return result
}

// toLesson 原始课时 → 规范化课时（不含作业/考试）
func toLesson(raw *untis.RawLesson) model.Lesson {
	lesson := model.Lesson{
		ID:        raw.ID,
		Date:      raw.Date,
		StartTime: raw.StartTime,
		EndTime:   raw.EndTime,
		Code:      raw.Code,
		Note:      SynthesizeNote(raw.FreeTexts()),
	}
	if len(raw.Subjects) > 0 {
		lesson.SubjectID = raw.Subjects[0].ID
		lesson.Subject = subjectDisplayName(raw.Subjects[0])
	}
	for _, t := range raw.Teachers {
		lesson.Teachers = append(lesson.Teachers, t.Name)
	}
	for _, r := range raw.Rooms {
		lesson.Rooms = append(lesson.Rooms, r.Name)
	}
	return lesson
}

func subjectDisplayName(s untis.IDName) string {
	if s.LongName != "" {
		return s.LongName
	}
	return s.Name
}

// homeworkMatches 作业是否附着到课时
// 主路径：lessonId == 课时 id；回退：同日 + 宽容科目匹配。
func homeworkMatches(hw *untis.RawHomework, lesson *untis.RawLesson) bool {
	if hw.LessonID != 0 {
		return hw.LessonID == lesson.ID
	}
	if hw.DueDate != lesson.Date {
		return false
	}
	return subjectsMatch(hw.Subject, lessonSubjectNames(lesson))
}

// examMatches 考试是否附着到课时
// 日期必须精确相等；科目宽容匹配，仅当一侧缺科目时回退到时间窗重叠。
func examMatches(exam *untis.RawExam, lesson *untis.RawLesson) bool {
	if exam.Date != lesson.Date {
		return false
	}

	lessonSubjects := lessonSubjectNames(lesson)
	if exam.Subject != "" && len(lessonSubjects) > 0 {
		return subjectsMatch(exam.Subject, lessonSubjects)
	}

	// 一侧无科目：按时间窗重叠回退
	return timesOverlap(exam.StartTime, exam.EndTime, lesson.StartTime, lesson.EndTime)
}

func lessonSubjectNames(lesson *untis.RawLesson) []string {
	var names []string
	for _, s := range lesson.Subjects {
		if s.Name != "" {
			names = append(names, s.Name)
		}
		if s.LongName != "" {
			names = append(names, s.LongName)
		}
	}
	return names
}

// subjectsMatch 宽容科目匹配：大小写不敏感相等 → 双向子串包含 →
// 剥离限定词/标点后相等
func subjectsMatch(subject string, candidates []string) bool {
	a := strings.ToLower(strings.TrimSpace(subject))
	if a == "" {
		return false
	}
	for _, candidate := range candidates {
		b := strings.ToLower(strings.TrimSpace(candidate))
		if b == "" {
			continue
		}
		if a == b {
			return true
		}
		if strings.Contains(a, b) || strings.Contains(b, a) {
			return true
		}
		if stripped := stripQualifiers(a); stripped != "" && stripped == stripQualifiers(b) {
			return true
		}
	}
	return false
}

// stripQualifiers 去除标点、数字词元与限定词，用于最后一级比较
func stripQualifiers(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == ' ':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			// 数字归入词元，随限定词一起丢弃（如 "ma1"）
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	var kept []string
	for _, token := range strings.Fields(b.String()) {
		if subjectQualifiers[token] {
			continue
		}
		if isAllDigits(token) {
			continue
		}
		kept = append(kept, strings.TrimRight(token, "0123456789"))
	}
	return strings.Join(kept, " ")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// timesOverlap HHMM 时间窗是否重叠（半开区间）
func timesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	if aEnd <= aStart || bEnd <= bStart {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// SynthesizeNote 合成课时备注
// 上游在不同响应变体中把同一段信息放在不同字段名下；
// 这里按固定顺序取所有非空字段，大小写不敏感去重后拼接。
func SynthesizeNote(texts []string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, noteSeparator)
}

// [自证通过] internal/service/enrich.go
