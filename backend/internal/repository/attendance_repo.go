package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"acadtrack/backend/internal/model"
)

// AttendanceRepository 考勤文档存取适配器
// 文档按 (course_id, student_id, academic_year) 唯一；记录内嵌于 JSONB 列，
// 成分/日期范围的记录级过滤在此层完成，学年过滤下推到 SQL。
type AttendanceRepository interface {
	// ListByCourse 加载课程下全部考勤文档并按过滤条件裁剪内嵌记录
	ListByCourse(ctx context.Context, courseID string, f model.RecordFilter) ([]model.AttendanceDocument, error)
	// ListByCourseAndStudent 加载某学生在该课程下的全部文档（跨学年合并的数据源）
	ListByCourseAndStudent(ctx context.Context, courseID, studentID string, f model.RecordFilter) ([]model.AttendanceDocument, error)
	// FindOrCreate 返回已有文档或一份未持久化的空文档（由调用方在变更后保存）
	FindOrCreate(ctx context.Context, courseID, studentID, academicYear string) (*model.AttendanceDocument, error)
	// Save 持久化单份文档（新文档插入，已有文档整体更新）
	Save(ctx context.Context, doc *model.AttendanceDocument) error
	// BulkDeleteMatching 从课程下所有文档中剔除命中会话过滤条件的记录，
	// 返回发生变更的文档数；academicYear 为空表示不限学年
	BulkDeleteMatching(ctx context.Context, courseID, academicYear string, f model.SessionFilter) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) ListByCourse(ctx context.Context, courseID string, f model.RecordFilter) ([]model.AttendanceDocument, error) {
	q := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if f.AcademicYear != "" {
		q = q.Where("academic_year = ?", f.AcademicYear)
	}

	var docs []model.AttendanceDocument
	if err := q.Order("student_id ASC, academic_year ASC").Find(&docs).Error; err != nil {
		return nil, err
	}

	filterRecords(docs, f)
	return docs, nil
}

func (r *attendanceRepo) ListByCourseAndStudent(ctx context.Context, courseID, studentID string, f model.RecordFilter) ([]model.AttendanceDocument, error) {
	q := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID)
	if f.AcademicYear != "" {
		q = q.Where("academic_year = ?", f.AcademicYear)
	}

	var docs []model.AttendanceDocument
	if err := q.Order("academic_year ASC").Find(&docs).Error; err != nil {
		return nil, err
	}

	filterRecords(docs, f)
	return docs, nil
}

func (r *attendanceRepo) FindOrCreate(ctx context.Context, courseID, studentID, academicYear string) (*model.AttendanceDocument, error) {
	var doc model.AttendanceDocument
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ? AND academic_year = ?", courseID, studentID, academicYear).
		First(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 惰性创建：不落库，由调用方在追加记录后 Save
	return &model.AttendanceDocument{
		CourseID:     courseID,
		StudentID:    studentID,
		AcademicYear: academicYear,
		Records:      model.RecordList{},
	}, nil
}

func (r *attendanceRepo) Save(ctx context.Context, doc *model.AttendanceDocument) error {
	if doc.AttendanceID == "" {
		return r.db.WithContext(ctx).Create(doc).Error
	}
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *attendanceRepo) BulkDeleteMatching(ctx context.Context, courseID, academicYear string, f model.SessionFilter) (int64, error) {
	q := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if academicYear != "" {
		q = q.Where("academic_year = ?", academicYear)
	}

	var docs []model.AttendanceDocument
	if err := q.Find(&docs).Error; err != nil {
		return 0, err
	}

	// 逐文档读改写；单份失败不回滚其余（与按学生部分成功语义一致）
	var modified int64
	var firstErr error
	for i := range docs {
		kept := docs[i].Records[:0:0]
		for _, rec := range docs[i].Records {
			if !f.Matches(rec) {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(docs[i].Records) {
			continue
		}
		docs[i].Records = kept
		if err := r.db.WithContext(ctx).Save(&docs[i]).Error; err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		modified++
	}
	return modified, firstErr
}

// filterRecords 按过滤条件裁剪每份文档的内嵌记录（学年过滤已在 SQL 层完成）
func filterRecords(docs []model.AttendanceDocument, f model.RecordFilter) {
	if f.Component == "" && f.StartDate.IsZero() && f.EndDate.IsZero() {
		return
	}
	for i := range docs {
		kept := docs[i].Records[:0:0]
		for _, rec := range docs[i].Records {
			if f.Matches(rec) {
				kept = append(kept, rec)
			}
		}
		docs[i].Records = kept
	}
}
