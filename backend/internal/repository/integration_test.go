//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"acadtrack/backend/internal/model"
	"acadtrack/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=acadtrack password=acadtrack_password dbname=acadtrack_test sslmode=disable TimeZone=Asia/Kolkata"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.Course{},
		&model.Student{},
		&model.AttendanceDocument{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (course *model.Course, student *model.Student, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	course = &model.Course{
		Code: fmt.Sprintf("TST%d", time.Now().UnixNano()%1000000),
		Name: "测试课程",
		Type: "Theory-Integrated",
	}
	if err := testDB.WithContext(ctx).Create(course).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	student = &model.Student{
		RegistrationNumber: fmt.Sprintf("REG%d", time.Now().UnixNano()),
		Name:               "测试学生",
		Program:            "B.Tech CSE",
	}
	if err := testDB.WithContext(ctx).Create(student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("course_id = ?", course.CourseID).Delete(&model.AttendanceDocument{})
		testDB.Unscoped().Where("student_id = ?", student.StudentID).Delete(&model.Student{})
		testDB.Unscoped().Where("course_id = ?", course.CourseID).Delete(&model.Course{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// AttendanceRepository Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceRepo_JSONBRoundTrip(t *testing.T) {
	course, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAttendanceRepo(testDB)
	ctx := context.Background()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	doc, err := repo.FindOrCreate(ctx, course.CourseID, student.StudentID, "2024-25")
	if err != nil {
		t.Fatalf("FindOrCreate 应成功: %v", err)
	}
	if doc.AttendanceID != "" {
		t.Error("新文档不应预先落库")
	}

	doc.Records = append(doc.Records, model.AttendanceRecord{
		Date: day, Status: model.StatusPresent, Component: model.ComponentTheory,
		StartTime: "09:00", EndTime: "10:00", Remarks: "备注内容",
	})
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	loaded, err := repo.ListByCourseAndStudent(ctx, course.CourseID, student.StudentID, model.RecordFilter{})
	if err != nil {
		t.Fatalf("ListByCourseAndStudent 应成功: %v", err)
	}
	if len(loaded) != 1 || len(loaded[0].Records) != 1 {
		t.Fatalf("期望1份文档1条记录，实际 docs=%d", len(loaded))
	}
	rec := loaded[0].Records[0]
	if rec.SessionKey() != doc.Records[0].SessionKey() {
		t.Errorf("JSONB 往返后会话键不一致: %q vs %q", rec.SessionKey(), doc.Records[0].SessionKey())
	}
	if rec.Remarks != "备注内容" {
		t.Errorf("备注字段丢失: %q", rec.Remarks)
	}
}

func TestAttendanceRepo_UniqueTuple(t *testing.T) {
	course, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAttendanceRepo(testDB)
	ctx := context.Background()

	doc, _ := repo.FindOrCreate(ctx, course.CourseID, student.StudentID, "2024-25")
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	// 再次 FindOrCreate 必须返回已有文档而非新建
	again, err := repo.FindOrCreate(ctx, course.CourseID, student.StudentID, "2024-25")
	if err != nil {
		t.Fatalf("FindOrCreate 应成功: %v", err)
	}
	if again.AttendanceID != doc.AttendanceID {
		t.Errorf("同 (课程,学生,学年) 应返回同一文档: %s vs %s", again.AttendanceID, doc.AttendanceID)
	}

	// 直接插入重复元组应被唯一约束拒绝
	dup := &model.AttendanceDocument{
		CourseID: course.CourseID, StudentID: student.StudentID,
		AcademicYear: "2024-25", Records: model.RecordList{},
	}
	if err := testDB.WithContext(ctx).Create(dup).Error; err == nil {
		t.Error("重复 (课程,学生,学年) 元组应违反唯一约束")
		testDB.Unscoped().Where("attendance_id = ?", dup.AttendanceID).Delete(&model.AttendanceDocument{})
	}
}

func TestAttendanceRepo_BulkDeleteMatching(t *testing.T) {
	course, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAttendanceRepo(testDB)
	ctx := context.Background()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	otherDay := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	doc, _ := repo.FindOrCreate(ctx, course.CourseID, student.StudentID, "2024-25")
	doc.Records = model.RecordList{
		{Date: day, Status: model.StatusPresent, StartTime: "09:00", EndTime: "10:00"},
		{Date: day, Status: model.StatusAbsent, StartTime: "11:00", EndTime: "12:00"},
		{Date: otherDay, Status: model.StatusPresent, StartTime: "09:00", EndTime: "10:00"},
	}
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	// 日历日窗口删除：不带时段，当日两条都应移除
	modified, err := repo.BulkDeleteMatching(ctx, course.CourseID, "", model.SessionFilter{Date: day})
	if err != nil {
		t.Fatalf("BulkDeleteMatching 应成功: %v", err)
	}
	if modified != 1 {
		t.Errorf("期望修改1份文档，实际=%d", modified)
	}

	loaded, err := repo.ListByCourseAndStudent(ctx, course.CourseID, student.StudentID, model.RecordFilter{})
	if err != nil {
		t.Fatalf("ListByCourseAndStudent 应成功: %v", err)
	}
	if len(loaded[0].Records) != 1 {
		t.Fatalf("期望仅剩1条记录，实际=%d", len(loaded[0].Records))
	}
	if !model.SameDay(loaded[0].Records[0].Date, otherDay) {
		t.Error("剩余记录应为另一日的会话")
	}
}

func TestAttendanceRepo_RecordLevelFilter(t *testing.T) {
	course, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewAttendanceRepo(testDB)
	ctx := context.Background()
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	doc, _ := repo.FindOrCreate(ctx, course.CourseID, student.StudentID, "2024-25")
	doc.Records = model.RecordList{
		{Date: day, Status: model.StatusPresent, Component: model.ComponentTheory, StartTime: "09:00", EndTime: "10:00"},
		{Date: day, Status: model.StatusPresent, Component: model.ComponentLab, StartTime: "14:00", EndTime: "16:00"},
	}
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("Save 应成功: %v", err)
	}

	docs, err := repo.ListByCourse(ctx, course.CourseID, model.RecordFilter{Component: model.ComponentLab})
	if err != nil {
		t.Fatalf("ListByCourse 应成功: %v", err)
	}
	if len(docs) != 1 || len(docs[0].Records) != 1 {
		t.Fatalf("成分过滤后期望1条记录，实际 docs=%d", len(docs))
	}
	if docs[0].Records[0].Component != model.ComponentLab {
		t.Errorf("期望仅保留 lab 记录，实际=%s", docs[0].Records[0].Component)
	}
}
