package service

import (
	"testing"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/untis"
)

func mathLesson() untis.RawLesson {
	return untis.RawLesson{
		ID:        101,
		Date:      20240304,
		StartTime: 800,
		EndTime:   845,
		Subjects:  []untis.IDName{{ID: 10, Name: "MATHE", LongName: "Mathematik"}},
		Teachers:  []untis.IDName{{ID: 1, Name: "MUE"}},
		Rooms:     []untis.IDName{{ID: 5, Name: "R101"}},
	}
}

func TestEnrich_HomeworkByLessonID(t *testing.T) {
	// 按 lessonId 精确关联，科目大小写差异不影响
	lessons := []untis.RawLesson{mathLesson()}
	homework := []untis.RawHomework{
		{ID: 7, LessonID: 101, DueDate: 20240304, Subject: "mathe", Text: "S. 42 Nr. 1-5"},
	}

	enriched := EnrichLessons(lessons, homework, nil)
	if len(enriched) != 1 {
		t.Fatalf("期望 1 条课时, 实际 %d", len(enriched))
	}
	if len(enriched[0].Homework) != 1 {
		t.Fatalf("期望附着 1 条作业, 实际 %d", len(enriched[0].Homework))
	}
	if enriched[0].Homework[0].UpstreamID != 7 {
		t.Errorf("作业 UpstreamID 期望 7, 实际 %d", enriched[0].Homework[0].UpstreamID)
	}
}

func TestEnrich_HomeworkByLessonID_WrongID(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	homework := []untis.RawHomework{
		{ID: 7, LessonID: 999, DueDate: 20240304, Subject: "Mathe", Text: "x"},
	}

	enriched := EnrichLessons(lessons, homework, nil)
	if len(enriched[0].Homework) != 0 {
		t.Error("lessonId 不匹配时不应附着（有 id 时不回退）")
	}
}

func TestEnrich_HomeworkFallback_DateAndSubject(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	homework := []untis.RawHomework{
		{ID: 8, LessonID: 0, DueDate: 20240304, Subject: "mathe", Text: "y"},
	}

	enriched := EnrichLessons(lessons, homework, nil)
	if len(enriched[0].Homework) != 1 {
		t.Error("同日 + 大小写不敏感科目相等应回退附着")
	}
}

func TestEnrich_HomeworkFallback_WrongDate(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	homework := []untis.RawHomework{
		{ID: 8, LessonID: 0, DueDate: 20240305, Subject: "Mathe", Text: "y"},
	}

	enriched := EnrichLessons(lessons, homework, nil)
	if len(enriched[0].Homework) != 0 {
		t.Error("日期不同不应回退附着")
	}
}

func TestEnrich_HomeworkAttachesToMultipleLessons(t *testing.T) {
	l1 := mathLesson()
	l2 := mathLesson()
	l2.ID = 102
	l2.StartTime, l2.EndTime = 900, 945

	homework := []untis.RawHomework{
		{ID: 9, LessonID: 0, DueDate: 20240304, Subject: "Mathe", Text: "z"},
	}

	enriched := EnrichLessons([]untis.RawLesson{l1, l2}, homework, nil)
	if len(enriched[0].Homework) != 1 || len(enriched[1].Homework) != 1 {
		t.Error("一条作业可附着到多个匹配课时，不做跨课时去重")
	}
}

func TestEnrich_SubjectMatch_QualifierStripped(t *testing.T) {
	lesson := mathLesson()
	lesson.Subjects = []untis.IDName{{ID: 10, Name: "Physik LK"}}

	homework := []untis.RawHomework{
		{ID: 10, LessonID: 0, DueDate: 20240304, Subject: "physik", Text: "q"},
	}

	enriched := EnrichLessons([]untis.RawLesson{lesson}, homework, nil)
	if len(enriched[0].Homework) != 1 {
		t.Error("剥离限定词后相等的科目应匹配 (Physik LK ↔ physik)")
	}
}

func TestEnrich_ExamByDateAndSubject(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	exams := []untis.RawExam{
		{ID: 21, Date: 20240304, StartTime: 800, EndTime: 930, Subject: "Mathematik", Name: "Klausur 1"},
	}

	enriched := EnrichLessons(lessons, nil, exams)
	if len(enriched[0].Exams) != 1 {
		t.Fatal("同日 + 科目匹配的考试应附着")
	}
	if enriched[0].Exams[0].Name != "Klausur 1" {
		t.Errorf("考试名期望 Klausur 1, 实际 %s", enriched[0].Exams[0].Name)
	}
}

func TestEnrich_ExamDateMustBeExact(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	exams := []untis.RawExam{
		{ID: 21, Date: 20240305, Subject: "Mathe", Name: "Klausur"},
	}

	enriched := EnrichLessons(lessons, nil, exams)
	if len(enriched[0].Exams) != 0 {
		t.Error("考试日期不同不应附着（日期无回退）")
	}
}

func TestEnrich_ExamTimeOverlapFallback(t *testing.T) {
	lesson := mathLesson()
	exams := []untis.RawExam{
		// 无科目 → 回退到时间窗重叠 (800-930 与 800-845 重叠)
		{ID: 22, Date: 20240304, StartTime: 830, EndTime: 930, Name: "Test"},
	}

	enriched := EnrichLessons([]untis.RawLesson{lesson}, nil, exams)
	if len(enriched[0].Exams) != 1 {
		t.Error("缺科目的考试应按时间窗重叠附着")
	}

	// 不重叠的时间窗不附着
	exams[0].StartTime, exams[0].EndTime = 1000, 1100
	enriched = EnrichLessons([]untis.RawLesson{lesson}, nil, exams)
	if len(enriched[0].Exams) != 0 {
		t.Error("时间窗不重叠不应附着")
	}
}

func TestEnrich_ExamSubjectMismatchNoTimeFallback(t *testing.T) {
	lessons := []untis.RawLesson{mathLesson()}
	exams := []untis.RawExam{
		// 双方都有科目且不匹配：即使时间窗重叠也不回退
		{ID: 23, Date: 20240304, StartTime: 800, EndTime: 845, Subject: "Chemie", Name: "Test"},
	}

	enriched := EnrichLessons(lessons, nil, exams)
	if len(enriched[0].Exams) != 0 {
		t.Error("双方均有科目且不匹配时，不应按时间窗回退")
	}
}

func TestSynthesizeNote_DeduplicatesCaseInsensitive(t *testing.T) {
	note := SynthesizeNote([]string{"Vertretung", "", "  vertretung  ", "Raumänderung"})
	want := "Vertretung | Raumänderung"
	if note != want {
		t.Errorf("备注合成期望 %q, 实际 %q", want, note)
	}
}

func TestSynthesizeNote_PreservesOrder(t *testing.T) {
	note := SynthesizeNote([]string{"b", "a", "c"})
	if note != "b | a | c" {
		t.Errorf("备注应保持字段顺序, 实际 %q", note)
	}
}

func TestSynthesizeNote_AllEmpty(t *testing.T) {
	if note := SynthesizeNote([]string{"", "  ", ""}); note != "" {
		t.Errorf("全空字段应得到空备注, 实际 %q", note)
	}
}

func TestEnrich_NoteFromAlternateFields(t *testing.T) {
	lesson := mathLesson()
	lesson.LsText = "Vertretung"
	lesson.Info = "vertretung" // 同一信息出现在两个字段名下
	lesson.SubstText = "Frau Müller"

	enriched := EnrichLessons([]untis.RawLesson{lesson}, nil, nil)
	if enriched[0].Note != "Vertretung | Frau Müller" {
		t.Errorf("备注合成错误: %q", enriched[0].Note)
	}
}

func TestEnrich_CancelledCodePreserved(t *testing.T) {
	lesson := mathLesson()
	lesson.Code = "cancelled"

	enriched := EnrichLessons([]untis.RawLesson{lesson}, nil, nil)
	if enriched[0].Code != "cancelled" {
		t.Errorf("状态码应保留, 实际 %q", enriched[0].Code)
	}
}
