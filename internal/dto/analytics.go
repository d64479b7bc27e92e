package dto

// RevenuePoint is one day of the revenue series.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// TopCourse summarizes one of the instructor's best sellers.
type TopCourse struct {
	CourseID    int64   `json:"course_id"`
	Title       string  `json:"title"`
	Enrollments int     `json:"enrollments"`
	Revenue     float64 `json:"revenue"`
}

// InstructorDashboard aggregates the instructor analytics page. Revenue
// figures are net of the platform share.
type InstructorDashboard struct {
	TotalStudents    int            `json:"total_students"`
	TotalCourses     int            `json:"total_courses"`
	TotalRevenue     float64        `json:"total_revenue"`
	AverageRating    float64        `json:"average_rating"`
	RevenueSeries    []RevenuePoint `json:"revenue_series"`
	TopCourses       []TopCourse    `json:"top_courses"`
	PendingQuestions int            `json:"pending_questions"`
}

// StudentStats is the learner-facing progress overview.
type StudentStats struct {
	XPPoints         int     `json:"xp_points"`
	EnrolledCourses  int     `json:"enrolled_courses"`
	CompletedCourses int     `json:"completed_courses"`
	CompletedLessons int     `json:"completed_lessons"`
	Certificates     int     `json:"certificates"`
	AverageProgress  float64 `json:"average_progress"`
}
