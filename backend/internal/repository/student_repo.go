package repository

import (
	"context"

	"gorm.io/gorm"

	"acadtrack/backend/internal/model"
)

// StudentRepository 学生名录数据访问接口（仅用于结果补全与存在性校验）
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Student, error)
	List(ctx context.Context, offset, limit int) ([]model.Student, int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("student_id IN ?", ids).
		Find(&students).Error
	return students, err
}

func (r *studentRepo) List(ctx context.Context, offset, limit int) ([]model.Student, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Student{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var students []model.Student
	err := r.db.WithContext(ctx).
		Order("registration_number ASC").
		Offset(offset).
		Limit(limit).
		Find(&students).Error
	return students, total, err
}
