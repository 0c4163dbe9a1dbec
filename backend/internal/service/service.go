package service

import (
	"go.uber.org/zap"

	"acadtrack/backend/config"
	"acadtrack/backend/internal/repository"
	"acadtrack/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Attendance AttendanceService
	Course     CourseService
	Student    StudentService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Attendance: NewAttendanceService(cfg, repo, cache, logger),
		Course:     NewCourseService(repo, logger),
		Student:    NewStudentService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}
