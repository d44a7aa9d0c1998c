package dto

type EnrollmentView struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Progress   int    `json:"progress"`
	PricePaid  *int64 `json:"price_paid,omitempty"`
	EnrolledAt string `json:"enrolled_at"`
}

type EnrollmentListResponse struct {
	Enrollments []EnrollmentView `json:"enrollments"`
}
