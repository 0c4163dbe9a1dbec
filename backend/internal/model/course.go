package model

import "strings"

// 一体化课程的类型标记子串；课程类型含该子串时理论/实验分开考勤
const integratedMarker = "Integrated"

// Course 课程表 — 对应 courses
// 课程管理属外部协作方，考勤引擎只消费 Type 判断是否一体化课程
type Course struct {
	CourseID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Code     string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name     string `gorm:"type:varchar(200);not null"                     json:"name"`
	Type     string `gorm:"type:varchar(50);not null;default:'Theory'"     json:"type"` // Theory | Lab | Theory-Integrated | Lab-Integrated
	Credits  int    `gorm:"type:smallint;not null;default:0"               json:"credits"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// IsIntegrated 是否一体化课程（理论/实验需分开考勤）
func (c *Course) IsIntegrated() bool {
	return strings.Contains(c.Type, integratedMarker)
}
