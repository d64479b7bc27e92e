package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnrollmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	return sqlmock.NewRows([]string{"id", "user_id", "course_id", "enrolled_at", "progress"}).
		AddRow(int64(3), "user-1", int64(7), time.Now(), 0)
}

func TestEnrollmentRepositoryGetOrCreateNew(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs("user-1", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, user_id, course_id, enrolled_at, progress FROM enrollments").
		WithArgs("user-1", int64(7)).
		WillReturnRows(enrollmentRows(t))

	enrollment, created, err := repo.GetOrCreate(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(3), enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryGetOrCreateExisting(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs("user-1", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, course_id, enrolled_at, progress FROM enrollments").
		WithArgs("user-1", int64(7)).
		WillReturnRows(enrollmentRows(t))

	enrollment, created, err := repo.GetOrCreate(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
