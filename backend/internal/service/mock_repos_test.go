package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"acadtrack/backend/internal/model"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context, offset, limit int) ([]model.Course, int64, error) {
	var result []model.Course
	for _, c := range m.courses {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students    map[string]*model.Student
	getByIDsErr error // GetByIDs 注入的错误
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByIDs(_ context.Context, ids []string) ([]model.Student, error) {
	if m.getByIDsErr != nil {
		return nil, m.getByIDsErr
	}
	var result []model.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockStudentRepo) List(_ context.Context, offset, limit int) ([]model.Student, int64, error) {
	var result []model.Student
	for _, s := range m.students {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RegistrationNumber < result[j].RegistrationNumber
	})
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock AttendanceRepository ──

// 文档按 course|student|year 作为键存储；读取时返回副本，
// 模拟真实仓储"每次查询都是数据库新加载"的语义
type mockAttendanceRepo struct {
	docs    map[string]*model.AttendanceDocument
	nextID  int
	saveErr map[string]error // student_id → 保存时注入的错误
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{
		docs:    make(map[string]*model.AttendanceDocument),
		saveErr: make(map[string]error),
	}
}

func docKey(courseID, studentID, academicYear string) string {
	return courseID + "|" + studentID + "|" + academicYear
}

func cloneDoc(d *model.AttendanceDocument) model.AttendanceDocument {
	c := *d
	c.Records = append(model.RecordList{}, d.Records...)
	return c
}

func (m *mockAttendanceRepo) ListByCourse(_ context.Context, courseID string, f model.RecordFilter) ([]model.AttendanceDocument, error) {
	var result []model.AttendanceDocument
	for _, d := range m.docs {
		if d.CourseID != courseID {
			continue
		}
		if f.AcademicYear != "" && d.AcademicYear != f.AcademicYear {
			continue
		}
		doc := cloneDoc(d)
		applyRecordFilter(&doc, f)
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StudentID != result[j].StudentID {
			return result[i].StudentID < result[j].StudentID
		}
		return result[i].AcademicYear < result[j].AcademicYear
	})
	return result, nil
}

func (m *mockAttendanceRepo) ListByCourseAndStudent(_ context.Context, courseID, studentID string, f model.RecordFilter) ([]model.AttendanceDocument, error) {
	var result []model.AttendanceDocument
	for _, d := range m.docs {
		if d.CourseID != courseID || d.StudentID != studentID {
			continue
		}
		if f.AcademicYear != "" && d.AcademicYear != f.AcademicYear {
			continue
		}
		doc := cloneDoc(d)
		applyRecordFilter(&doc, f)
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AcademicYear < result[j].AcademicYear
	})
	return result, nil
}

func (m *mockAttendanceRepo) FindOrCreate(_ context.Context, courseID, studentID, academicYear string) (*model.AttendanceDocument, error) {
	if d, ok := m.docs[docKey(courseID, studentID, academicYear)]; ok {
		doc := cloneDoc(d)
		return &doc, nil
	}
	return &model.AttendanceDocument{
		CourseID:     courseID,
		StudentID:    studentID,
		AcademicYear: academicYear,
		Records:      model.RecordList{},
	}, nil
}

func (m *mockAttendanceRepo) Save(_ context.Context, doc *model.AttendanceDocument) error {
	if err := m.saveErr[doc.StudentID]; err != nil {
		return err
	}
	if doc.AttendanceID == "" {
		m.nextID++
		doc.AttendanceID = fmt.Sprintf("att-%03d", m.nextID)
	}
	stored := cloneDoc(doc)
	m.docs[docKey(doc.CourseID, doc.StudentID, doc.AcademicYear)] = &stored
	return nil
}

func (m *mockAttendanceRepo) BulkDeleteMatching(_ context.Context, courseID, academicYear string, f model.SessionFilter) (int64, error) {
	var modified int64
	for _, d := range m.docs {
		if d.CourseID != courseID {
			continue
		}
		if academicYear != "" && d.AcademicYear != academicYear {
			continue
		}
		kept := d.Records[:0:0]
		for _, rec := range d.Records {
			if !f.Matches(rec) {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(d.Records) {
			continue
		}
		d.Records = kept
		modified++
	}
	return modified, nil
}

func applyRecordFilter(doc *model.AttendanceDocument, f model.RecordFilter) {
	if f.Component == "" && f.StartDate.IsZero() && f.EndDate.IsZero() {
		return
	}
	kept := doc.Records[:0:0]
	for _, rec := range doc.Records {
		if f.Matches(rec) {
			kept = append(kept, rec)
		}
	}
	doc.Records = kept
}
