package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"acadtrack/backend/internal/dto"
	"acadtrack/backend/internal/service"
	"acadtrack/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// ListCourseAttendance 获取课程全员考勤聚合
// GET /api/v1/courses/:id/attendance
func (h *AttendanceHandler) ListCourseAttendance(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.AttendanceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.ListCourseAttendance(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": result})
}

// GetSummary 获取课程考勤汇总
// GET /api/v1/courses/:id/attendance/summary
func (h *AttendanceHandler) GetSummary(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.AttendanceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	summary, err := h.attendanceSvc.GetSummary(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, summary)
}

// GetStudentAttendance 获取单个学生的考勤聚合
// GET /api/v1/courses/:id/attendance/students/:sid
func (h *AttendanceHandler) GetStudentAttendance(c *gin.Context) {
	courseID := c.Param("id")
	studentID := c.Param("sid")
	if courseID == "" || studentID == "" {
		response.BadRequest(c, 10001, "课程ID/学生ID不能为空")
		return
	}

	var req dto.AttendanceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.GetStudentAttendance(c.Request.Context(), courseID, studentID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// TakeAttendance 记录一堂课的考勤
// POST /api/v1/courses/:id/attendance
func (h *AttendanceHandler) TakeAttendance(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.TakeAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Take(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ModifyAttendance 修改/移动一个会话
// PUT /api/v1/courses/:id/attendance
func (h *AttendanceHandler) ModifyAttendance(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.ModifyAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Modify(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteAttendance 按日窗口批量删除会话
// DELETE /api/v1/courses/:id/attendance
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.DeleteAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Delete(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAttendanceError 统一处理考勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceCourseNotFound):
		response.NotFound(c, 13001, "课程不存在")
	case errors.Is(err, service.ErrAttendanceStudentNotFound):
		response.NotFound(c, 13002, "学生不存在")
	case errors.Is(err, service.ErrAttendanceInvalidID):
		response.BadRequest(c, 13003, "ID 格式无效")
	case errors.Is(err, service.ErrAttendanceInvalidDate):
		response.BadRequest(c, 13004, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrAttendanceInvalidTime):
		response.BadRequest(c, 13005, "时间格式无效，应为 24 小时制 HH:MM")
	case errors.Is(err, service.ErrAttendanceInvalidComponent):
		response.BadRequest(c, 13006, "成分无效，应为 theory 或 lab")
	case errors.Is(err, service.ErrAttendanceComponentRequired):
		response.BadRequest(c, 13007, "一体化课程考勤必须指定 theory/lab 成分")
	case errors.Is(err, service.ErrAttendanceInvalidAcademicYear):
		response.BadRequest(c, 13008, "学年格式无效，应为 YYYY-YY")
	default:
		response.InternalError(c)
	}
}
