package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
)

func newCurriculumMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func intPtr(v int) *int { return &v }

func TestCurriculumRepositoryCreateCourse(t *testing.T) {
	db, mock, cleanup := newCurriculumMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO courses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("SELECT id FROM sections WHERE course_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO sections").
		WithArgs(int64(7), "Basics", "", 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(20)))
	mock.ExpectQuery("SELECT id FROM lessons WHERE section_id").
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO lessons").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(30)))
	mock.ExpectQuery("INSERT INTO quizzes").
		WithArgs(int64(30), "Checkpoint", 25).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(40)))
	mock.ExpectExec("DELETE FROM questions WHERE quiz_id").
		WithArgs(int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO questions").
		WithArgs(int64(40), "2+2?", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(50)))
	mock.ExpectExec("INSERT INTO choices").
		WithArgs(int64(50), "4", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO choices").
		WithArgs(int64(50), "5", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM lessons WHERE section_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM sections WHERE course_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	course := &models.Course{Title: "Go 101", Slug: "go-101", InstructorID: "inst-1", Level: "beginner", Language: "en"}
	sections := []dto.SectionInput{{
		Title: "Basics",
		Lessons: []dto.LessonInput{{
			Title: "Intro",
			Quiz: &dto.QuizInput{
				Title:    "Checkpoint",
				XPReward: 25,
				Questions: []dto.QuestionInput{{
					Text: "2+2?",
					Choices: []dto.ChoiceInput{
						{Text: "4", IsCorrect: true},
						{Text: "5", IsCorrect: false},
					},
				}},
			},
		}},
	}}

	err := repo.CreateCourse(context.Background(), course, sections)
	require.NoError(t, err)
	assert.Equal(t, int64(7), course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurriculumRepositoryUpdateReconcilesSections(t *testing.T) {
	db, mock, cleanup := newCurriculumMock(t)
	defer cleanup()
	repo := NewCurriculumRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE courses SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM sections WHERE course_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	// Section id 1 is kept and updated in place.
	mock.ExpectExec("UPDATE sections SET").
		WithArgs(int64(1), "Renamed", "", 0, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM lessons WHERE section_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec("UPDATE lessons SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM lessons WHERE section_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// The temporary string id does not resolve, so a new section is created.
	mock.ExpectQuery("INSERT INTO sections").
		WithArgs(int64(7), "Added", "", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectQuery("SELECT id FROM lessons WHERE section_id").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("DELETE FROM lessons WHERE section_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Section id 2 is absent from the payload and gets pruned.
	mock.ExpectExec("DELETE FROM sections WHERE course_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	course := &models.Course{ID: 7, Title: "Go 101", InstructorID: "inst-1"}
	sections := []dto.SectionInput{
		{
			ID:    dto.NewNodeID(1),
			Title: "Renamed",
			Lessons: []dto.LessonInput{
				{ID: dto.NewNodeID(5), Title: "Intro"},
			},
		},
		{
			Title: "Added",
			Order: intPtr(3),
		},
	}

	var tempID dto.NodeID
	require.NoError(t, tempID.UnmarshalJSON([]byte(`"temp-abc"`)))
	sections[1].ID = tempID

	err := repo.UpdateCourse(context.Background(), course, sections)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNodeIDUnmarshal(t *testing.T) {
	var numeric dto.NodeID
	require.NoError(t, numeric.UnmarshalJSON([]byte(`42`)))
	id, ok := numeric.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	var numericString dto.NodeID
	require.NoError(t, numericString.UnmarshalJSON([]byte(`"42"`)))
	id, ok = numericString.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	var temp dto.NodeID
	require.NoError(t, temp.UnmarshalJSON([]byte(`"new-lesson-1"`)))
	_, ok = temp.Int64()
	assert.False(t, ok)

	var absent dto.NodeID
	require.NoError(t, absent.UnmarshalJSON([]byte(`null`)))
	_, ok = absent.Int64()
	assert.False(t, ok)
}
