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
	"gorm.io/gorm"

	"acadtrack/backend/internal/dto"
	"acadtrack/backend/internal/model"
	"acadtrack/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportCourseNotFound = errors.New("课程不存在")
	ErrExportNoRecords      = errors.New("该课程暂无考勤记录")
	ErrExportGenerateFail   = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - Excel 导出按学生逐行呈现统计，一体化课程理论/实验为独立列组
//   - ICS 导出将课程的会话集合（去重后）发布为日历事件
//   - 导出以 bytes.Buffer / 字符串返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportAttendanceXLSX 导出课程考勤统计为 Excel
	ExportAttendanceXLSX(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (*bytes.Buffer, string, error)
	// ExportSessionsICS 导出课程会话为 iCalendar
	ExportSessionsICS(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (string, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendanceXLSX — 导出考勤统计为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 普通课程：注册号 | 姓名 | 专业 | 总课次 | 出勤 | 出勤率(%) | 预警
//   - 一体化课程：理论/实验各一组 总课次 | 出勤 | 出勤率(%) 列
//   - 行按注册号升序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAttendanceXLSX(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (*bytes.Buffer, string, error) {
	course, byStudent, err := s.loadCourseRecords(ctx, courseID, req)
	if err != nil {
		return nil, "", err
	}
	if len(byStudent) == 0 {
		return nil, "", ErrExportNoRecords
	}

	students := s.studentDirectory(ctx, byStudent)
	rows := buildExportRows(byStudent, students, course.IsIntegrated())

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤表"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "B", 22)
	f.SetColWidth(sheetName, "C", "C", 20)
	lastCol := "G"
	if course.IsIntegrated() {
		lastCol = "I"
	}
	f.SetColWidth(sheetName, "D", lastCol, 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s — 考勤表", course.Code, course.Name))
	f.MergeCell(sheetName, "A1", lastCol+"1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "注册号")
	f.SetCellValue(sheetName, cell("B", row), "姓名")
	f.SetCellValue(sheetName, cell("C", row), "专业")
	if course.IsIntegrated() {
		headers := []string{"理论课次", "理论出勤", "理论出勤率(%)", "实验课次", "实验出勤", "实验出勤率(%)"}
		for i, h := range headers {
			f.SetCellValue(sheetName, cell(colName(3+i), row), h)
		}
	} else {
		headers := []string{"总课次", "出勤", "出勤率(%)", "预警"}
		for i, h := range headers {
			f.SetCellValue(sheetName, cell(colName(3+i), row), h)
		}
	}

	// 数据行
	row = 3
	for _, r := range rows {
		f.SetCellValue(sheetName, cell("A", row), r.registrationNumber)
		f.SetCellValue(sheetName, cell("B", row), r.name)
		f.SetCellValue(sheetName, cell("C", row), r.program)
		if course.IsIntegrated() {
			f.SetCellValue(sheetName, cell("D", row), r.theory.TotalClasses)
			f.SetCellValue(sheetName, cell("E", row), r.theory.PresentClasses)
			f.SetCellValue(sheetName, cell("F", row), r.theory.AttendancePercentage)
			f.SetCellValue(sheetName, cell("G", row), r.lab.TotalClasses)
			f.SetCellValue(sheetName, cell("H", row), r.lab.PresentClasses)
			f.SetCellValue(sheetName, cell("I", row), r.lab.AttendancePercentage)
		} else {
			f.SetCellValue(sheetName, cell("D", row), r.overall.TotalClasses)
			f.SetCellValue(sheetName, cell("E", row), r.overall.PresentClasses)
			f.SetCellValue(sheetName, cell("F", row), r.overall.AttendancePercentage)
			warning := "-"
			if r.overall.BelowThreshold {
				warning = "低于阈值"
			}
			f.SetCellValue(sheetName, cell("G", row), warning)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤表_%s.xlsx", course.Code)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportSessionsICS — 导出会话日历
// ═══════════════════════════════════════════════════════════
//
// 每个去重后的会话 (日期, 时段) 生成一个事件；时段为空的会话生成全天事件。

func (s *exportService) ExportSessionsICS(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (string, string, error) {
	course, byStudent, err := s.loadCourseRecords(ctx, courseID, req)
	if err != nil {
		return "", "", err
	}

	sessions := buildSessions(byStudent)
	if len(sessions) == 0 {
		return "", "", ErrExportNoRecords
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//acadtrack//attendance//CN")

	now := time.Now()
	for _, sess := range sessions {
		date, err := time.ParseInLocation(dateLayout, sess.Date, time.Local)
		if err != nil {
			continue
		}

		uid := fmt.Sprintf("%s-%s-%s@acadtrack", course.CourseID, sess.Date, strings.ReplaceAll(sess.TimeSlot, ":", ""))
		event := cal.AddEvent(uid)
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetSummary(fmt.Sprintf("%s %s", course.Code, course.Name))
		event.SetDescription("成分: " + strings.Join(sess.Components, ", "))

		start, end, ok := parseTimeSlot(date, sess.TimeSlot)
		if ok {
			event.SetStartAt(start)
			event.SetEndAt(end)
		} else {
			event.SetAllDayStartAt(date)
			event.SetAllDayEndAt(date.AddDate(0, 0, 1))
		}
	}

	filename := fmt.Sprintf("考勤日历_%s.ics", course.Code)
	return cal.Serialize(), filename, nil
}

// ── 内部辅助方法 ──

// loadCourseRecords 加载课程与按学生合并后的记录集
func (s *exportService) loadCourseRecords(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (*model.Course, map[string][]model.AttendanceRecord, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrExportCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, nil, err
	}

	var filter model.RecordFilter
	if req != nil {
		filter.Component = req.Component
		filter.AcademicYear = req.AcademicYear
		if req.StartDate != "" {
			if t, err := time.Parse(dateLayout, req.StartDate); err == nil {
				filter.StartDate = t
			}
		}
		if req.EndDate != "" {
			if t, err := time.Parse(dateLayout, req.EndDate); err == nil {
				filter.EndDate = t
			}
		}
	}

	docs, err := s.repo.Attendance.ListByCourse(ctx, course.CourseID, filter)
	if err != nil {
		s.logger.Error("加载考勤文档失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, nil, err
	}

	return course, mergeByStudent(docs), nil
}

// studentDirectory 学生名录补全
func (s *exportService) studentDirectory(ctx context.Context, byStudent map[string][]model.AttendanceRecord) map[string]*model.Student {
	ids := studentIDs(byStudent)
	result := make(map[string]*model.Student, len(ids))
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("学生名录补全失败", zap.Error(err))
		return result
	}
	for i := range students {
		result[students[i].StudentID] = &students[i]
	}
	return result
}

// exportRow 导出表格单行数据
type exportRow struct {
	registrationNumber string
	name               string
	program            string
	overall            dto.AttendanceStats
	theory             dto.AttendanceStats
	lab                dto.AttendanceStats
}

// buildExportRows 构建导出行并按注册号排序
func buildExportRows(byStudent map[string][]model.AttendanceRecord, students map[string]*model.Student, integrated bool) []exportRow {
	rows := make([]exportRow, 0, len(byStudent))
	for _, sid := range studentIDs(byStudent) {
		records := byStudent[sid]
		r := exportRow{registrationNumber: sid}
		if st := students[sid]; st != nil {
			r.registrationNumber = st.RegistrationNumber
			r.name = st.Name
			r.program = st.Program
		}
		if integrated {
			r.theory = computeStats(records, model.ComponentTheory)
			r.lab = computeStats(records, model.ComponentLab)
		} else {
			r.overall = computeStats(records, "")
		}
		rows = append(rows, r)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].registrationNumber < rows[j].registrationNumber
	})
	return rows
}

// parseTimeSlot 将 "HH:MM-HH:MM" 时段落到具体日期上
func parseTimeSlot(date time.Time, slot string) (time.Time, time.Time, bool) {
	parts := strings.SplitN(slot, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse("15:04", parts[0])
	end, err2 := time.Parse("15:04", parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}

	at := func(t time.Time) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
	}
	return at(start), at(end), true
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
