package dto

// ── 考勤模块请求 ──

// AttendanceFilterRequest 考勤查询过滤参数
type AttendanceFilterRequest struct {
	Component    string `form:"component"     binding:"omitempty,oneof=theory lab"`
	StartDate    string `form:"start_date"    binding:"omitempty"` // YYYY-MM-DD
	EndDate      string `form:"end_date"      binding:"omitempty"` // YYYY-MM-DD
	AcademicYear string `form:"academic_year" binding:"omitempty"` // YYYY-YY；为空时跨学年合并
}

// StudentStatusEntry 单个学生的考勤状态条目
// 状态/学生ID 无效的条目在服务层跳过而非整批失败，故此处不做 oneof 约束
type StudentStatusEntry struct {
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status"     binding:"required"`
	Remarks   string `json:"remarks"`
}

// TakeAttendanceRequest 记录考勤请求
type TakeAttendanceRequest struct {
	Date         string               `json:"date" binding:"required"` // YYYY-MM-DD
	StartTime    string               `json:"start_time"`              // HH:MM
	EndTime      string               `json:"end_time"`                // HH:MM
	Component    string               `json:"component"`               // 一体化课程必填
	AcademicYear string               `json:"academic_year"`           // 缺省用配置默认学年
	Students     []StudentStatusEntry `json:"students"`
}

// SessionDescriptor 会话描述符（修改操作的定位与目标）
type SessionDescriptor struct {
	Date      string `json:"date" binding:"required"` // YYYY-MM-DD
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Component string `json:"component"`
}

// ModifyAttendanceRequest 修改/移动会话请求
type ModifyAttendanceRequest struct {
	Original     SessionDescriptor    `json:"original" binding:"required"`
	Updated      SessionDescriptor    `json:"updated"  binding:"required"`
	AcademicYear string               `json:"academic_year"`
	Students     []StudentStatusEntry `json:"students"`
}

// DeleteAttendanceRequest 删除会话请求（查询参数绑定）
type DeleteAttendanceRequest struct {
	Date         string `form:"date" binding:"required"` // YYYY-MM-DD
	StartTime    string `form:"start_time"`              // 为空表示不限时段
	EndTime      string `form:"end_time"`
	Component    string `form:"component" binding:"omitempty,oneof=theory lab"`
	AcademicYear string `form:"academic_year"` // 为空表示全部学年
}

// ── 考勤模块响应 ──

// AttendanceStats 单组考勤统计
type AttendanceStats struct {
	TotalClasses         int     `json:"total_classes"`
	PresentClasses       int     `json:"present_classes"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	BelowThreshold       bool    `json:"below_threshold"`
}

// AttendanceRecordResponse 单条考勤记录响应
type AttendanceRecordResponse struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	Component string `json:"component,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
}

// StudentAttendanceResponse 单个学生的考勤聚合响应
// 一体化课程未指定成分时返回 Theory/Lab 两组统计，否则返回 Overall 一组
type StudentAttendanceResponse struct {
	StudentID          string                     `json:"student_id"`
	RegistrationNumber string                     `json:"registration_number,omitempty"`
	Name               string                     `json:"name,omitempty"`
	Program            string                     `json:"program,omitempty"`
	Records            []AttendanceRecordResponse `json:"records"`
	Overall            *AttendanceStats           `json:"overall,omitempty"`
	Theory             *AttendanceStats           `json:"theory,omitempty"`
	Lab                *AttendanceStats           `json:"lab,omitempty"`
}

// SessionResponse 一次课堂会话（日期 + 时段 + 出现过的成分）
type SessionResponse struct {
	Date       string   `json:"date"`
	TimeSlot   string   `json:"time_slot"`
	Components []string `json:"components"`
}

// SummaryBlock 课程级汇总统计块
type SummaryBlock struct {
	TotalStudents       int     `json:"total_students"`
	TotalClasses        int     `json:"total_classes"`
	BelowThresholdCount int     `json:"below_threshold_count"`
	AverageAttendance   float64 `json:"average_attendance"`
}

// CourseAttendanceSummaryResponse 课程考勤汇总响应
// 一体化课程未指定成分时 Theory/Lab 各为独立块，绝不合并为单一数字
type CourseAttendanceSummaryResponse struct {
	CourseID   string            `json:"course_id"`
	Integrated bool              `json:"integrated"`
	Overall    *SummaryBlock     `json:"overall,omitempty"`
	Theory     *SummaryBlock     `json:"theory,omitempty"`
	Lab        *SummaryBlock     `json:"lab,omitempty"`
	Sessions   []SessionResponse `json:"attendance_sessions"`
}

// MutationResultResponse 记录/修改考勤的结果（部分成功语义）
type MutationResultResponse struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"` // 被跳过的 student_id
}

// DeleteResultResponse 删除会话的结果
type DeleteResultResponse struct {
	DocumentsModified int64 `json:"documents_modified"`
}
