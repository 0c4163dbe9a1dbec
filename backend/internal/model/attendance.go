package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ── 考勤状态与成分常量 ──

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"

	ComponentTheory = "theory"
	ComponentLab    = "lab"

	// 成分缺省时会话键使用的占位值：保证无成分记录不会与具体成分记录误合并
	componentDefault = "default"
)

const dateLayout = "2006-01-02"

var (
	timePattern         = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	academicYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// IsValidStatus 校验考勤状态
func IsValidStatus(s string) bool {
	return s == StatusPresent || s == StatusAbsent
}

// IsValidComponent 校验成分（theory | lab）
func IsValidComponent(s string) bool {
	return s == ComponentTheory || s == ComponentLab
}

// IsValidTime 校验 24 小时制 HH:MM 时间串
func IsValidTime(s string) bool {
	return timePattern.MatchString(s)
}

// IsValidAcademicYear 校验 YYYY-YY 学年格式
func IsValidAcademicYear(s string) bool {
	return academicYearPattern.MatchString(s)
}

// NormalizeTime 时段字段归一化：仅去除首尾空白
// 归一化集中在 DTO→模型 转换处执行一次，SessionKey 本身只做精确比较
func NormalizeTime(s string) string {
	return strings.TrimSpace(s)
}

// FormatTimeSlot 组合展示用时段串；起止均为空时返回空串
func FormatTimeSlot(start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	return start + "-" + end
}

// ── 会话键推导（唯一推导点）──

// SessionKey 推导会话标识：日历日 + 起止时间 + 成分
// 两条记录属于同一堂课当且仅当推导出的键相等；
// 缺失的起止时间折叠为空串，缺失的成分折叠为 "default"。
// 日期按记录存储形态截断到日历日，不做时区换算。
func SessionKey(date time.Time, startTime, endTime, component string) string {
	comp := component
	if comp == "" {
		comp = componentDefault
	}
	return date.Format(dateLayout) + "_" + startTime + endTime + "_" + comp
}

// ── 考勤记录 ──

// AttendanceRecord 单次考勤记录（内嵌于考勤文档，不可独立寻址）
type AttendanceRecord struct {
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`               // present | absent
	Component string    `json:"component,omitempty"`  // theory | lab；一体化课程必填
	StartTime string    `json:"start_time,omitempty"` // HH:MM
	EndTime   string    `json:"end_time,omitempty"`   // HH:MM
	Remarks   string    `json:"remarks,omitempty"`
}

// SessionKey 推导本记录的会话键
func (r AttendanceRecord) SessionKey() string {
	return SessionKey(r.Date, r.StartTime, r.EndTime, r.Component)
}

// TimeSlot 展示用时段串
func (r AttendanceRecord) TimeSlot() string {
	return FormatTimeSlot(r.StartTime, r.EndTime)
}

// SameDay 两个时间值是否落在同一日历日（按存储形态比较，不换时区）
func SameDay(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}

// StartOfDay 当日 00:00:00
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay 当日 23:59:59.999999999
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// ── 记录过滤 ──

// RecordFilter 查询期过滤条件（成分 / 日期范围 / 学年）
type RecordFilter struct {
	Component    string    // 为空表示不过滤
	StartDate    time.Time // 零值表示不限
	EndDate      time.Time // 零值表示不限
	AcademicYear string    // 为空表示合并全部学年文档
}

// Matches 判断记录是否通过过滤条件（学年在文档层过滤，此处不参与）
func (f RecordFilter) Matches(r AttendanceRecord) bool {
	if f.Component != "" && r.Component != f.Component {
		return false
	}
	if !f.StartDate.IsZero() && r.Date.Before(StartOfDay(f.StartDate)) {
		return false
	}
	if !f.EndDate.IsZero() && r.Date.After(EndOfDay(f.EndDate)) {
		return false
	}
	return true
}

// SessionFilter 会话级批量删除过滤条件
// Date 按日历日窗口匹配；时间/成分字段为空表示不参与过滤，
// 支持"删除当日全部记录（无论时段）"的场景。
type SessionFilter struct {
	Date      time.Time
	StartTime string
	EndTime   string
	Component string
}

// Matches 判断记录是否命中删除条件
func (f SessionFilter) Matches(r AttendanceRecord) bool {
	if !SameDay(f.Date, r.Date) {
		return false
	}
	if f.StartTime != "" && r.StartTime != f.StartTime {
		return false
	}
	if f.EndTime != "" && r.EndTime != f.EndTime {
		return false
	}
	if f.Component != "" && r.Component != f.Component {
		return false
	}
	return true
}

// SessionRef 会话描述符（修改操作的定位依据）
// 与 SessionFilter 不同：时间与成分做精确相等比较，空值要求记录同为空，
// 避免移动无时段会话时误命中有时段记录。
type SessionRef struct {
	Date      time.Time
	StartTime string
	EndTime   string
	Component string
}

// Matches 按日历日窗口 + 时段/成分精确相等定位记录
// 记录日期允许携带非零时间部分（窗口匹配，而非键相等）。
func (ref SessionRef) Matches(r AttendanceRecord) bool {
	return SameDay(ref.Date, r.Date) &&
		r.StartTime == ref.StartTime &&
		r.EndTime == ref.EndTime &&
		r.Component == ref.Component
}

// ── 考勤文档 ──

// RecordList 考勤记录数组，对应 PostgreSQL JSONB 列
type RecordList []AttendanceRecord

// Scan 将 JSONB 文本反序列化为记录数组
func (l *RecordList) Scan(src interface{}) error {
	if src == nil {
		*l = RecordList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("RecordList.Scan: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = RecordList{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Value 将记录数组序列化为 JSONB 文本
func (l RecordList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// GormDataType 指定列类型
func (RecordList) GormDataType() string { return "jsonb" }

// AttendanceDocument 考勤文档表 — 对应 attendance_documents
// 每个 (课程, 学生, 学年) 至多一份；首次录入时惰性创建
type AttendanceDocument struct {
	AttendanceID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	CourseID     string     `gorm:"type:uuid;not null"                             json:"course_id"`
	StudentID    string     `gorm:"type:uuid;not null"                             json:"student_id"`
	AcademicYear string     `gorm:"type:varchar(7);not null"                       json:"academic_year"`
	Records      RecordList `gorm:"type:jsonb;not null;default:'[]'"               json:"records"`
	BaseModel

	// 关联
	Course  *Course  `gorm:"foreignKey:CourseID;references:CourseID"    json:"course,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID"  json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceDocument) TableName() string { return "attendance_documents" }

// IndexByKey 返回与给定会话键相等的记录下标，未找到返回 -1
// 变更引擎凭此实现"替换而非追加"，保证文档内会话键唯一
func (d *AttendanceDocument) IndexByKey(key string) int {
	for i := range d.Records {
		if d.Records[i].SessionKey() == key {
			return i
		}
	}
	return -1
}

// IndexByRef 返回与会话描述符匹配的记录下标，未找到返回 -1
func (d *AttendanceDocument) IndexByRef(ref SessionRef) int {
	for i := range d.Records {
		if ref.Matches(d.Records[i]) {
			return i
		}
	}
	return -1
}
