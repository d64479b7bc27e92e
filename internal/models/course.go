package models

import "time"

// LessonType enumerates the kinds of lessons a section may contain.
type LessonType string

// Possible lesson types.
const (
	LessonTypeVideo      LessonType = "video"
	LessonTypeArticle    LessonType = "article"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
)

// Course is the root of the curriculum tree. Sections hang off it ordered
// by their order field.
type Course struct {
	ID               int64     `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Slug             string    `db:"slug" json:"slug"`
	Description      string    `db:"description" json:"description"`
	ShortDescription string    `db:"short_description" json:"short_description"`
	Category         string    `db:"category" json:"category"`
	Level            string    `db:"level" json:"level"`
	Language         string    `db:"language" json:"language"`
	Thumbnail        *string   `db:"thumbnail" json:"thumbnail,omitempty"`
	VideoPreviewURL  string    `db:"video_preview_url" json:"video_preview_url"`
	InstructorID     string    `db:"instructor_id" json:"instructor"`
	Price            float64   `db:"price" json:"price"`
	DiscountPrice    *float64  `db:"discount_price" json:"discount_price,omitempty"`
	DurationHours    int       `db:"duration_hours" json:"duration_hours"`
	Requirements     string    `db:"requirements" json:"requirements"`
	Outcomes         string    `db:"outcomes" json:"outcomes"`
	IsPublished      bool      `db:"is_published" json:"is_published"`
	IsFeatured       bool      `db:"is_featured" json:"is_featured"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Section groups lessons inside a course.
type Section struct {
	ID          int64  `db:"id" json:"id"`
	CourseID    int64  `db:"course_id" json:"-"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Order       int    `db:"position" json:"order"`
}

// Lesson is a single unit of content. Quiz and Assignment are optional
// one-to-one attachments.
type Lesson struct {
	ID        int64      `db:"id" json:"id"`
	SectionID int64      `db:"section_id" json:"-"`
	Title     string     `db:"title" json:"title"`
	Type      LessonType `db:"lesson_type" json:"lesson_type"`
	VideoURL  *string    `db:"video_url" json:"video_url"`
	VideoFile *string    `db:"video_file" json:"video_file"`
	Content   string     `db:"content" json:"content"`
	Summary   string     `db:"summary" json:"summary"`
	Order     int        `db:"position" json:"order"`
	Duration  string     `db:"duration" json:"duration"`
	IsPreview bool       `db:"is_preview" json:"is_preview"`
}

// Resource is a downloadable attachment on a lesson.
type Resource struct {
	ID        int64     `db:"id" json:"id"`
	LessonID  int64     `db:"lesson_id" json:"-"`
	Title     string    `db:"title" json:"title"`
	FilePath  string    `db:"file_path" json:"file"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  string    `db:"file_size" json:"file_size"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseStats joins a course with its listing aggregates.
type CourseStats struct {
	Course
	InstructorName  string  `db:"instructor_name"`
	EnrollmentCount int     `db:"enrollment_count"`
	AverageRating   float64 `db:"average_rating"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	Search       string
	Category     string
	Level        string
	InstructorID string
	Featured     *bool
	EnrolledUser string
	Ordering     string
	Page         int
	PageSize     int
}
