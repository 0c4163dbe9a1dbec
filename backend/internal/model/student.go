package model

// Student 学生表 — 对应 students
// 学生名录属外部协作方，考勤引擎仅在返回结果时做信息补全
type Student struct {
	StudentID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	RegistrationNumber string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"registration_number"`
	Name               string `gorm:"type:varchar(100);not null"                     json:"name"`
	Program            string `gorm:"type:varchar(100);not null;default:''"          json:"program"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
