package models

// CurriculumTree is the fully loaded content of one course, keyed by
// parent id so callers can assemble the nested view in one pass.
type CurriculumTree struct {
	Sections    []Section
	Lessons     map[int64][]Lesson    // section id -> lessons
	Resources   map[int64][]Resource  // lesson id -> resources
	Quizzes     map[int64]*Quiz       // lesson id -> quiz
	Questions   map[int64][]Question  // quiz id -> questions
	Choices     map[int64][]Choice    // question id -> choices
	Assignments map[int64]*Assignment // lesson id -> assignment
}
