package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acadtrack/backend/internal/dto"
	"acadtrack/backend/internal/model"
	"acadtrack/backend/internal/repository"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound  = errors.New("学生不存在")
	ErrStudentInvalidID = errors.New("学生ID格式无效")
)

// StudentService 学生名录查询业务接口（名录管理属外部系统，此处只读）
type StudentService interface {
	GetByID(ctx context.Context, id string) (*dto.StudentResponse, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.StudentResponse, int64, error)
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStudentInvalidID
	}
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", id), zap.Error(err))
		return nil, err
	}
	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.StudentResponse, int64, error) {
	students, total, err := s.repo.Student.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学生列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, toStudentResponse(&students[i]))
	}
	return result, total, nil
}

// toStudentResponse 学生模型 → 响应
func toStudentResponse(st *model.Student) dto.StudentResponse {
	return dto.StudentResponse{
		ID:                 st.StudentID,
		RegistrationNumber: st.RegistrationNumber,
		Name:               st.Name,
		Program:            st.Program,
	}
}
