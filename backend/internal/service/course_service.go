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

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrCourseInvalidID = errors.New("课程ID格式无效")
)

// CourseService 课程查询业务接口（课程管理属外部系统，此处只读）
type CourseService interface {
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.CourseResponse, int64, error)
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrCourseInvalidID
	}
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *courseService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.CourseResponse, int64, error) {
	courses, total, err := s.repo.Course.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, toCourseResponse(&courses[i]))
	}
	return result, total, nil
}

// toCourseResponse 课程模型 → 响应
func toCourseResponse(c *model.Course) dto.CourseResponse {
	return dto.CourseResponse{
		ID:         c.CourseID,
		Code:       c.Code,
		Name:       c.Name,
		Type:       c.Type,
		Credits:    c.Credits,
		Integrated: c.IsIntegrated(),
	}
}
