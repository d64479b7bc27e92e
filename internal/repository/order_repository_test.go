package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emra-dev/lms-api/internal/models"
)

func newOrderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOrderRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newOrderMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	order := &models.Order{UserID: "user-1", CourseID: 7, Amount: 5000}
	require.NoError(t, repo.Create(context.Background(), order))
	assert.Equal(t, int64(11), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryCompleteAndEnroll(t *testing.T) {
	db, mock, cleanup := newOrderMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(11), models.OrderStatusCompleted, "txn-1", models.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	completed, err := repo.CompleteAndEnroll(context.Background(), 11, "txn-1")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryCompleteAndEnrollAlreadySettled(t *testing.T) {
	db, mock, cleanup := newOrderMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(11), models.OrderStatusCompleted, "txn-2", models.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	completed, err := repo.CompleteAndEnroll(context.Background(), 11, "txn-2")
	require.NoError(t, err)
	assert.False(t, completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryRefundRequiresCompleted(t *testing.T) {
	db, mock, cleanup := newOrderMock(t)
	defer cleanup()
	repo := NewOrderRepository(db)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(11), models.OrderStatusRefunded, models.OrderStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	refunded, err := repo.Refund(context.Background(), 11)
	require.NoError(t, err)
	assert.False(t, refunded)
	assert.NoError(t, mock.ExpectationsWereMet())
}
