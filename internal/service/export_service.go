package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/LimoEisbxr/untis-pro-sub002/internal/model"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoLessons    = errors.New("该区间内无课时可导出")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 课表导出接口
//
// 设计说明：
//   - 导出复用课表读路径（含缓存与预取），不另走上游
//   - ICS 以字符串返回（text/calendar），Excel 以 bytes.Buffer 返回，
//     由 Handler 层设置响应头后写入 Response
//   - 已取消课时 (code=cancelled) 不进入导出结果
type ExportService interface {
	// ExportICS 导出 iCalendar (RFC 5545)
	ExportICS(ctx context.Context, requesterID, ownerID string, start, end *time.Time) (string, string, error)
	// ExportXLSX 导出 Excel
	ExportXLSX(ctx context.Context, requesterID, ownerID string, start, end *time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	timetable TimetableService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(timetable TimetableService, logger *zap.Logger) ExportService {
	return &exportService{timetable: timetable, logger: logger}
}

func (s *exportService) ExportICS(ctx context.Context, requesterID, ownerID string, start, end *time.Time) (string, string, error) {
	result, err := s.timetable.GetOrFetchSchedule(ctx, requesterID, ownerID, start, end)
	if err != nil {
		return "", "", err
	}
	if len(result.Lessons) == 0 {
		return "", "", ErrExportNoLessons
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//untis-pro//timetable//DE")

	for _, lesson := range result.Lessons {
		if lesson.Code == "cancelled" {
			continue
		}

		startAt, err := lessonTime(lesson.Date, lesson.StartTime)
		if err != nil {
			s.logger.Warn("课时时间无法解析，跳过导出",
				zap.Int64("lessonID", lesson.ID), zap.Error(err))
			continue
		}
		endAt, err := lessonTime(lesson.Date, lesson.EndTime)
		if err != nil {
			endAt = startAt.Add(45 * time.Minute)
		}

		event := cal.AddEvent(fmt.Sprintf("lesson-%d-%d@untis-pro", lesson.ID, lesson.Date))
		event.SetDtStampTime(result.FetchedAt)
		event.SetStartAt(startAt)
		event.SetEndAt(endAt)
		event.SetSummary(lesson.Subject)
		if len(lesson.Rooms) > 0 {
			event.SetLocation(strings.Join(lesson.Rooms, ", "))
		}
		if desc := lessonDescription(&lesson); desc != "" {
			event.SetDescription(desc)
		}
	}

	filename := fmt.Sprintf("stundenplan_%s.ics", result.RangeStart.Format("2006-01-02"))
	return cal.Serialize(), filename, nil
}

func (s *exportService) ExportXLSX(ctx context.Context, requesterID, ownerID string, start, end *time.Time) (*bytes.Buffer, string, error) {
	result, err := s.timetable.GetOrFetchSchedule(ctx, requesterID, ownerID, start, end)
	if err != nil {
		return nil, "", err
	}
	if len(result.Lessons) == 0 {
		return nil, "", ErrExportNoLessons
	}

	lessons := make([]lessonRow, 0, len(result.Lessons))
	for _, lesson := range result.Lessons {
		lessons = append(lessons, lessonRow{
			date:     lesson.Date,
			start:    lesson.StartTime,
			end:      lesson.EndTime,
			subject:  lesson.Subject,
			teachers: strings.Join(lesson.Teachers, ", "),
			rooms:    strings.Join(lesson.Rooms, ", "),
			status:   lesson.Code,
			note:     lesson.Note,
			homework: len(lesson.Homework),
			exams:    len(lesson.Exams),
		})
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].date != lessons[j].date {
			return lessons[i].date < lessons[j].date
		}
		return lessons[i].start < lessons[j].start
	})

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Stundenplan"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 8)
	f.SetColWidth(sheetName, "D", "D", 24)
	f.SetColWidth(sheetName, "E", "F", 16)
	f.SetColWidth(sheetName, "G", "G", 12)
	f.SetColWidth(sheetName, "H", "H", 32)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"Datum", "Von", "Bis", "Fach", "Lehrer", "Raum", "Status", "Notizen"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheetName, cell(col, 1), h)
		f.SetCellStyle(sheetName, cell(col, 1), cell(col, 1), headerStyle)
	}

	row := 2
	for _, l := range lessons {
		f.SetCellValue(sheetName, cell("A", row), formatDateInt(l.date))
		f.SetCellValue(sheetName, cell("B", row), formatTimeInt(l.start))
		f.SetCellValue(sheetName, cell("C", row), formatTimeInt(l.end))
		f.SetCellValue(sheetName, cell("D", row), l.subject)
		f.SetCellValue(sheetName, cell("E", row), l.teachers)
		f.SetCellValue(sheetName, cell("F", row), l.rooms)
		f.SetCellValue(sheetName, cell("G", row), l.status)

		notes := l.note
		if l.homework > 0 {
			notes = appendNotePart(notes, fmt.Sprintf("%d Hausaufgabe(n)", l.homework))
		}
		if l.exams > 0 {
			notes = appendNotePart(notes, fmt.Sprintf("%d Klausur(en)", l.exams))
		}
		f.SetCellValue(sheetName, cell("H", row), notes)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("stundenplan_%s.xlsx", result.RangeStart.Format("2006-01-02"))
	return buf, filename, nil
}

// ── 辅助函数 ──

type lessonRow struct {
	date     int
	start    int
	end      int
	subject  string
	teachers string
	rooms    string
	status   string
	note     string
	homework int
	exams    int
}

// lessonTime 将 YYYYMMDD + HHMM 组合为 time.Time
func lessonTime(date, hhmm int) (time.Time, error) {
	if date < 10000101 || hhmm < 0 || hhmm > 2359 {
		return time.Time{}, fmt.Errorf("无效的日期时间: %d %d", date, hhmm)
	}
	year, month, day := date/10000, (date/100)%100, date%100
	hour, minute := hhmm/100, hhmm%100
	if month < 1 || month > 12 || day < 1 || day > 31 || minute > 59 {
		return time.Time{}, fmt.Errorf("无效的日期时间: %d %d", date, hhmm)
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local), nil
}

// lessonDescription 拼装 ICS DESCRIPTION：备注 + 作业 + 考试
func lessonDescription(lesson *model.Lesson) string {
	var parts []string
	if lesson.Note != "" {
		parts = append(parts, lesson.Note)
	}
	for _, hw := range lesson.Homework {
		parts = append(parts, "Hausaufgabe: "+hw.Text)
	}
	for _, exam := range lesson.Exams {
		parts = append(parts, "Klausur: "+exam.Name)
	}
	return strings.Join(parts, "\n")
}

func formatDateInt(date int) string {
	return fmt.Sprintf("%04d-%02d-%02d", date/10000, (date/100)%100, date%100)
}

func formatTimeInt(hhmm int) string {
	return fmt.Sprintf("%02d:%02d", hhmm/100, hhmm%100)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func appendNotePart(existing, part string) string {
	if existing == "" {
		return part
	}
	return existing + noteSeparator + part
}
