package dto

// CourseResponse 课程描述符响应
type CourseResponse struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Credits    int    `json:"credits"`
	Integrated bool   `json:"integrated"`
}

// StudentResponse 学生名录响应
type StudentResponse struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registration_number"`
	Name               string `json:"name"`
	Program            string `json:"program"`
}
