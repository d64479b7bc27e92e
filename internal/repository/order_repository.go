package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// OrderRepository manages payment orders. Completion is a compare-and-set
// on the pending status so a confirmation and an IPN racing each other
// settle an order exactly once.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create opens a pending order.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO orders (user_id, course_id, amount, status, provider_transaction_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &order.ID, query, order.UserID, order.CourseID, order.Amount, order.Status,
		order.ProviderTransactionID, order.CreatedAt); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// FindByID fetches one order.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	const query = `SELECT id, user_id, course_id, amount, status, provider_transaction_id, created_at FROM orders WHERE id = $1`
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteAndEnroll marks a pending order completed and enrolls the buyer
// in the same transaction. It returns false without error when the order
// was already settled, so duplicate confirmations are harmless.
func (r *OrderRepository) CompleteAndEnroll(ctx context.Context, orderID int64, transactionID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete order: %w", err)
	}
	defer tx.Rollback()

	const complete = `UPDATE orders SET status = $2, provider_transaction_id = $3 WHERE id = $1 AND status = $4`
	result, err := tx.ExecContext(ctx, complete, orderID, models.OrderStatusCompleted, transactionID, models.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const enroll = `INSERT INTO enrollments (user_id, course_id, enrolled_at, progress)
        SELECT o.user_id, o.course_id, $2, 0 FROM orders o WHERE o.id = $1
        ON CONFLICT (user_id, course_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, enroll, orderID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("enroll buyer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit complete order: %w", err)
	}
	return true, nil
}

// MarkFailed moves a pending order to failed.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID int64) error {
	const query = `UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, orderID, models.OrderStatusFailed, models.OrderStatusPending); err != nil {
		return fmt.Errorf("fail order: %w", err)
	}
	return nil
}

// Refund moves a completed order to refunded.
func (r *OrderRepository) Refund(ctx context.Context, orderID int64) (bool, error) {
	const query = `UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, orderID, models.OrderStatusRefunded, models.OrderStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("refund order: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("refund order: %w", err)
	}
	return affected > 0, nil
}

// ListByUser returns the user's order history with course titles.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]models.OrderDetail, error) {
	const query = `SELECT o.id, o.user_id, o.course_id, o.amount, o.status, o.provider_transaction_id, o.created_at, c.title AS course_title
        FROM orders o JOIN courses c ON c.id = o.course_id WHERE o.user_id = $1 ORDER BY o.created_at DESC`
	var orders []models.OrderDetail
	if err := r.db.SelectContext(ctx, &orders, query, userID); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// HasCompletedOrder reports whether the user already paid for the course.
func (r *OrderRepository) HasCompletedOrder(ctx context.Context, userID string, courseID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND course_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID, models.OrderStatusCompleted); err != nil {
		return false, fmt.Errorf("check completed order: %w", err)
	}
	return exists, nil
}
