package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/backend/config"
	"acadtrack/backend/internal/api/handler"
	"acadtrack/backend/internal/api/middleware"
	"acadtrack/backend/pkg/redis"
)

// 变更接口的限流参数：每 IP 每分钟 60 次
const (
	mutationRateLimit  = 60
	mutationRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学生名录（只读，名录管理属外部系统）
		students := v1.Group("/students")
		{
			students.GET("", h.Student.ListStudents)
			students.GET("/:id", h.Student.GetStudent)
		}

		// 课程模块（只读）+ 课程下的考勤子资源
		courses := v1.Group("/courses")
		{
			courses.GET("", h.Course.ListCourses)
			courses.GET("/:id", h.Course.GetCourse)

			// 考勤查询
			courses.GET("/:id/attendance", h.Attendance.ListCourseAttendance)
			courses.GET("/:id/attendance/summary", h.Attendance.GetSummary)
			courses.GET("/:id/attendance/students/:sid", h.Attendance.GetStudentAttendance)

			// 考勤变更（限流保护）
			mutate := courses.Group("")
			mutate.Use(middleware.RateLimit(rdb, mutationRateLimit, mutationRateWindow))
			{
				mutate.POST("/:id/attendance", h.Attendance.TakeAttendance)
				mutate.PUT("/:id/attendance", h.Attendance.ModifyAttendance)
				mutate.DELETE("/:id/attendance", h.Attendance.DeleteAttendance)
			}

			// 导出
			courses.GET("/:id/attendance/export/xlsx", h.Export.ExportAttendanceXLSX)
			courses.GET("/:id/attendance/export/ics", h.Export.ExportSessionsICS)
		}
	}

	return r
}
