package repository

import (
	"context"

	"gorm.io/gorm"

	"acadtrack/backend/internal/model"
)

// CourseRepository 课程数据访问接口（考勤引擎的外部协作方，只读）
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, offset, limit int) ([]model.Course, int64, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, offset, limit int) ([]model.Course, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Course{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []model.Course
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Offset(offset).
		Limit(limit).
		Find(&courses).Error
	return courses, total, err
}
