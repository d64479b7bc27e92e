package models

import "time"

// OrderStatus is the payment lifecycle state. It advances
// pending→{completed|failed} and never regresses except via an explicit
// refund action.
type OrderStatus string

// Possible order statuses.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Order ties a user's purchase of a course to a provider transaction.
type Order struct {
	ID                    int64       `db:"id" json:"id"`
	UserID                string      `db:"user_id" json:"user"`
	CourseID              int64       `db:"course_id" json:"course"`
	Amount                float64     `db:"amount" json:"amount"`
	Status                OrderStatus `db:"status" json:"status"`
	ProviderTransactionID *string     `db:"provider_transaction_id" json:"provider_transaction_id,omitempty"`
	CreatedAt             time.Time   `db:"created_at" json:"created_at"`
}

// OrderDetail enriches Order with the course title for listings.
type OrderDetail struct {
	Order
	CourseTitle string `db:"course_title" json:"course_title"`
}
