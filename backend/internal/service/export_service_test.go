package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"acadtrack/backend/internal/model"
	"acadtrack/backend/internal/repository"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *mockAttendanceRepo) {
	courseRepo := newMockCourseRepo()
	courseRepo.courses[theoryCourseID] = &model.Course{
		CourseID: theoryCourseID, Code: "CSE2001", Name: "数据结构", Type: "Theory",
	}
	courseRepo.courses[integratedCourseID] = &model.Course{
		CourseID: integratedCourseID, Code: "CSE3002", Name: "操作系统", Type: "Theory-Integrated",
	}

	studentRepo := newMockStudentRepo()
	studentRepo.students[studentOneID] = &model.Student{
		StudentID: studentOneID, RegistrationNumber: "21BCE1001", Name: "学生一", Program: "B.Tech CSE",
	}

	attRepo := newMockAttendanceRepo()
	repo := &repository.Repository{
		Course:     courseRepo,
		Student:    studentRepo,
		Attendance: attRepo,
	}
	return NewExportService(repo, zap.NewNop()), attRepo
}

func seedExportDoc(attRepo *mockAttendanceRepo, courseID string, records model.RecordList) {
	attRepo.docs[docKey(courseID, studentOneID, testYear)] = &model.AttendanceDocument{
		AttendanceID: "att-exp", CourseID: courseID, StudentID: studentOneID,
		AcademicYear: testYear, Records: records,
	}
}

// ── Excel 导出测试 ──

func TestExportService_XLSX_Success(t *testing.T) {
	svc, attRepo := setupTestExportService()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	seedExportDoc(attRepo, theoryCourseID, model.RecordList{
		{Date: day, Status: model.StatusPresent, StartTime: "09:00", EndTime: "10:00"},
	})

	buf, filename, err := svc.ExportAttendanceXLSX(context.Background(), theoryCourseID, nil)
	if err != nil {
		t.Fatalf("ExportAttendanceXLSX 应成功: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("导出内容不应为空")
	}
	if !strings.Contains(filename, "CSE2001") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应含课程代码且以 .xlsx 结尾，实际=%s", filename)
	}
}

func TestExportService_XLSX_NoRecords(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportAttendanceXLSX(context.Background(), theoryCourseID, nil)
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("期望 ErrExportNoRecords，实际: %v", err)
	}
}

func TestExportService_XLSX_CourseNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportAttendanceXLSX(context.Background(), "33333333-3333-4333-8333-333333333333", nil)
	if !errors.Is(err, ErrExportCourseNotFound) {
		t.Errorf("期望 ErrExportCourseNotFound，实际: %v", err)
	}
}

// ── ICS 导出测试 ──

func TestExportService_ICS_Success(t *testing.T) {
	svc, attRepo := setupTestExportService()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	seedExportDoc(attRepo, theoryCourseID, model.RecordList{
		{Date: day, Status: model.StatusPresent, StartTime: "09:00", EndTime: "10:00"},
		{Date: day, Status: model.StatusAbsent}, // 无时段 → 全天事件
	})

	content, filename, err := svc.ExportSessionsICS(context.Background(), theoryCourseID, nil)
	if err != nil {
		t.Fatalf("ExportSessionsICS 应成功: %v", err)
	}
	if !strings.Contains(content, "BEGIN:VCALENDAR") || !strings.Contains(content, "BEGIN:VEVENT") {
		t.Error("导出内容应为合法 iCalendar")
	}
	if !strings.Contains(content, "CSE2001") {
		t.Error("事件摘要应含课程代码")
	}
	if strings.Count(content, "BEGIN:VEVENT") != 2 {
		t.Errorf("期望2个事件，实际=%d", strings.Count(content, "BEGIN:VEVENT"))
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}
}

func TestExportService_ICS_NoSessions(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportSessionsICS(context.Background(), theoryCourseID, nil)
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("期望 ErrExportNoRecords，实际: %v", err)
	}
}

// ── 纯函数测试 ──

func TestParseTimeSlot(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)

	start, end, ok := parseTimeSlot(day, "09:00-10:30")
	if !ok {
		t.Fatal("合法时段应解析成功")
	}
	if start.Hour() != 9 || start.Minute() != 0 || end.Hour() != 10 || end.Minute() != 30 {
		t.Errorf("时段解析错误: %v → %v", start, end)
	}
	if start.Day() != 10 || end.Day() != 10 {
		t.Error("解析结果应落在给定日期上")
	}

	if _, _, ok := parseTimeSlot(day, ""); ok {
		t.Error("空时段不应解析成功")
	}
	if _, _, ok := parseTimeSlot(day, "0900"); ok {
		t.Error("无分隔符时段不应解析成功")
	}
}

func TestBuildExportRows_IntegratedSplit(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	byStudent := map[string][]model.AttendanceRecord{
		studentOneID: {
			{Date: day, Status: model.StatusPresent, Component: model.ComponentTheory, StartTime: "09:00", EndTime: "10:00"},
			{Date: day, Status: model.StatusAbsent, Component: model.ComponentLab, StartTime: "14:00", EndTime: "16:00"},
		},
	}
	students := map[string]*model.Student{
		studentOneID: {StudentID: studentOneID, RegistrationNumber: "21BCE1001", Name: "学生一"},
	}

	rows := buildExportRows(byStudent, students, true)
	if len(rows) != 1 {
		t.Fatalf("期望1行，实际=%d", len(rows))
	}
	if rows[0].theory.TotalClasses != 1 || rows[0].lab.TotalClasses != 1 {
		t.Errorf("理论/实验应独立统计，实际 theory=%d lab=%d",
			rows[0].theory.TotalClasses, rows[0].lab.TotalClasses)
	}
	if rows[0].theory.AttendancePercentage != 100 || rows[0].lab.AttendancePercentage != 0 {
		t.Errorf("出勤率错误: theory=%v lab=%v",
			rows[0].theory.AttendancePercentage, rows[0].lab.AttendancePercentage)
	}
}
