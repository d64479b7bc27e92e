package dto

import (
	"time"

	"github.com/emra-dev/lms-api/internal/models"
)

// CourseSummary is the listing projection of a course. Viewer-dependent
// fields are computed per request, never stored.
type CourseSummary struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Slug               string   `json:"slug"`
	ShortDescription   string   `json:"short_description"`
	Category           string   `json:"category"`
	Level              string   `json:"level"`
	Language           string   `json:"language"`
	Thumbnail          *string  `json:"thumbnail"`
	InstructorID       string   `json:"instructor"`
	InstructorName     string   `json:"instructor_name"`
	Price              float64  `json:"price"`
	DiscountPrice      *float64 `json:"discount_price"`
	DurationHours      int      `json:"duration_hours"`
	IsPublished        bool     `json:"is_published"`
	IsFeatured         bool     `json:"is_featured"`
	EnrollmentCount    int      `json:"enrollment_count"`
	AverageRating      float64  `json:"average_rating"`
	IsEnrolled         bool     `json:"is_enrolled"`
	ProgressPercentage float64  `json:"progress_percentage"`
}

// CourseDetail is the full course page with the curriculum tree attached.
type CourseDetail struct {
	CourseSummary
	Description     string        `json:"description"`
	VideoPreviewURL string        `json:"video_preview_url"`
	Requirements    string        `json:"requirements"`
	Outcomes        string        `json:"outcomes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Sections        []SectionView `json:"sections"`
}

// SectionView is a section with its lessons, ordered.
type SectionView struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Order       int          `json:"order"`
	Lessons     []LessonView `json:"lessons"`
}

// LessonView is the per-viewer lesson projection. For viewers without
// access the protected fields are cleared before serialization.
type LessonView struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Type        models.LessonType  `json:"lesson_type"`
	VideoURL    *string            `json:"video_url"`
	VideoFile   *string            `json:"video_file"`
	Content     string             `json:"content"`
	Summary     string             `json:"summary"`
	Order       int                `json:"order"`
	Duration    string             `json:"duration"`
	IsPreview   bool               `json:"is_preview"`
	IsCompleted bool               `json:"is_completed"`
	Resources   []models.Resource  `json:"resources"`
	Quiz        *QuizView          `json:"quiz"`
	Assignment  *models.Assignment `json:"assignment"`
}

// Redact clears everything a non-enrolled viewer must not see. Titles,
// ordering and durations stay visible so the outline still renders.
func (l *LessonView) Redact() {
	l.VideoURL = nil
	l.VideoFile = nil
	l.Content = ""
	l.Resources = []models.Resource{}
	l.Quiz = nil
	l.Assignment = nil
}

// QuizView is a quiz with its questions for an authorized viewer. Choice
// correctness is stripped for students.
type QuizView struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	XPReward  int            `json:"xp_reward"`
	Questions []QuestionView `json:"questions"`
}

// QuestionView is one question with its answer options.
type QuestionView struct {
	ID          int64        `json:"id"`
	Text        string       `json:"text"`
	Explanation string       `json:"explanation"`
	Choices     []ChoiceView `json:"choices"`
}

// ChoiceView hides correctness unless the viewer owns the course.
type ChoiceView struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}
