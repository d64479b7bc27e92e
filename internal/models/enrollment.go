package models

import "time"

// Enrollment grants a user access to a course. Unique per (user, course).
// Progress runs 0..100; reaching 100 triggers certificate issuance.
type Enrollment struct {
	ID         int64     `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user"`
	CourseID   int64     `db:"course_id" json:"course"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Progress   int       `db:"progress" json:"progress"`
}

// EnrollmentDetail enriches Enrollment with the course title for listings.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle string `db:"course_title" json:"course_title"`
}

// LessonProgress tracks per-lesson completion. Unique per (user, lesson).
type LessonProgress struct {
	ID          int64     `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"-"`
	LessonID    int64     `db:"lesson_id" json:"-"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// Certificate is issued once per (user, course) when progress hits 100.
type Certificate struct {
	ID           int64     `db:"id" json:"-"`
	UserID       string    `db:"user_id" json:"-"`
	CourseID     int64     `db:"course_id" json:"-"`
	SerialNumber string    `db:"serial_number" json:"certificate_id"`
	IssuedAt     time.Time `db:"issued_at" json:"issued_at"`
}

// CertificateDetail enriches Certificate with display names.
type CertificateDetail struct {
	Certificate
	CourseTitle string `db:"course_title" json:"course_title"`
	StudentName string `db:"student_name" json:"student_name"`
}
