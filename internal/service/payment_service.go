package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/payment/paydunya"
)

// amountTolerance absorbs floating point drift between the provider's
// reported amount and the stored order total.
const amountTolerance = 0.01

type orderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	CompleteAndEnroll(ctx context.Context, orderID int64, transactionID string) (bool, error)
	MarkFailed(ctx context.Context, orderID int64) error
	Refund(ctx context.Context, orderID int64) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.OrderDetail, error)
}

type paymentProvider interface {
	CreateInvoice(ctx context.Context, inv paydunya.Invoice) (*paydunya.Checkout, error)
	Confirm(ctx context.Context, token string) (*paydunya.Confirmation, error)
	DirectPay(ctx context.Context, req paydunya.DirectPayRequest) (string, error)
}

type paymentNotifier interface {
	Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error
}

// PaymentConfig tunes the payment flows.
type PaymentConfig struct {
	MinimumAmount float64
	CallbackURL   string
	FrontendURL   string
}

// PaymentService reconciles provider payments with orders and enrollments.
// Settlement is idempotent: however many confirmations arrive for an
// order, it completes once and enrolls the buyer once.
type PaymentService struct {
	orders      orderStore
	courses     courseReader
	enrollments enrollmentChecker
	provider    paymentProvider
	notifier    paymentNotifier
	cfg         PaymentConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(orders orderStore, courses courseReader, enrollments enrollmentChecker, provider paymentProvider, notifier paymentNotifier, cfg PaymentConfig, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinimumAmount <= 0 {
		cfg.MinimumAmount = 200
	}
	return &PaymentService{
		orders:      orders,
		courses:     courses,
		enrollments: enrollments,
		provider:    provider,
		notifier:    notifier,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// CreateIntent opens a pending order for a paid course and hands the
// client an opaque secret to echo back on confirmation.
func (s *PaymentService) CreateIntent(ctx context.Context, viewer Viewer, req dto.CreateIntentRequest) (*dto.CreateIntentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	_, amount, err := s.prepare(ctx, viewer, req.CourseID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{UserID: viewer.UserID, CourseID: req.CourseID, Amount: amount}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	return &dto.CreateIntentResponse{
		OrderID:      order.ID,
		ClientSecret: fmt.Sprintf("pi_%d_%s", order.ID, uuid.NewString()),
		Amount:       order.Amount,
		Currency:     "XOF",
	}, nil
}

// Confirm settles a pending order against the client-reported result. The
// reported amount must match the stored order within tolerance.
func (s *PaymentService) Confirm(ctx context.Context, viewer Viewer, req dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if order.UserID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "order belongs to another user")
	}
	if math.Abs(req.Amount-order.Amount) > amountTolerance {
		s.logger.Warn("payment amount mismatch",
			zap.Int64("order_id", order.ID),
			zap.Float64("expected", order.Amount),
			zap.Float64("reported", req.Amount))
		return nil, appErrors.Clone(appErrors.ErrAmountMismatch, "")
	}

	return s.settle(ctx, order, req.TransactionID)
}

// Checkout creates a hosted checkout invoice and returns its redirect URL.
func (s *PaymentService) Checkout(ctx context.Context, viewer Viewer, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkout payload")
	}

	course, amount, err := s.prepare(ctx, viewer, req.CourseID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{UserID: viewer.UserID, CourseID: req.CourseID, Amount: amount}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	checkout, err := s.provider.CreateInvoice(ctx, paydunya.Invoice{
		Amount:      amount,
		ItemName:    course.Title,
		Description: fmt.Sprintf("Inscription au cours %s", course.Title),
		CallbackURL: s.cfg.CallbackURL,
		ReturnURL:   fmt.Sprintf("%s/payment/success", s.cfg.FrontendURL),
		CancelURL:   fmt.Sprintf("%s/payment/cancel", s.cfg.FrontendURL),
		CustomData:  map[string]interface{}{"order_id": order.ID},
	})
	if err != nil {
		if markErr := s.orders.MarkFailed(ctx, order.ID); markErr != nil {
			s.logger.Error("failed to mark order failed", zap.Int64("order_id", order.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "checkout creation failed")
	}

	return &dto.CheckoutResponse{OrderID: order.ID, Token: checkout.Token, CheckoutURL: checkout.RedirectURL}, nil
}

// DirectPay charges a mobile-money wallet. The provider pushes the charge
// to the customer's phone; success settles the order immediately.
func (s *PaymentService) DirectPay(ctx context.Context, viewer Viewer, req dto.DirectPayRequest) (*dto.ConfirmPaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	course, amount, err := s.prepare(ctx, viewer, req.CourseID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{UserID: viewer.UserID, CourseID: req.CourseID, Amount: amount}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	token, err := s.provider.DirectPay(ctx, paydunya.DirectPayRequest{
		Amount:        amount,
		ItemName:      course.Title,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.PhoneNumber,
		CallbackURL:   s.cfg.CallbackURL,
		CustomData:    map[string]interface{}{"order_id": order.ID},
	})
	if err != nil {
		if markErr := s.orders.MarkFailed(ctx, order.ID); markErr != nil {
			s.logger.Error("failed to mark order failed", zap.Int64("order_id", order.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "mobile money payment failed")
	}

	return s.settle(ctx, order, token)
}

// HandleIPN processes the provider's server-to-server notification. The
// payload is untrusted: the transaction state is re-fetched by token.
func (s *PaymentService) HandleIPN(ctx context.Context, token string) error {
	if token == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing invoice token")
	}

	confirmation, err := s.provider.Confirm(ctx, token)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, "failed to confirm invoice")
	}
	if confirmation.Status != paydunya.StatusCompleted {
		s.logger.Info("ignoring non-completed ipn", zap.String("token", token), zap.String("status", confirmation.Status))
		return nil
	}

	orderID, ok := orderIDFromCustomData(confirmation.CustomData)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "invoice carries no order reference")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if math.Abs(confirmation.TotalAmount-order.Amount) > amountTolerance {
		s.logger.Warn("ipn amount mismatch",
			zap.Int64("order_id", order.ID),
			zap.Float64("expected", order.Amount),
			zap.Float64("reported", confirmation.TotalAmount))
		return appErrors.Clone(appErrors.ErrAmountMismatch, "")
	}

	_, err = s.settle(ctx, order, confirmation.TransactionID)
	return err
}

// Refund reverses a completed order. Only the course instructor may refund.
func (s *PaymentService) Refund(ctx context.Context, viewer Viewer, orderID int64) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	course, err := s.courses.FindByID(ctx, order.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.InstructorID != viewer.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the course instructor can refund")
	}
	refunded, err := s.orders.Refund(ctx, orderID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refund order")
	}
	if !refunded {
		return appErrors.Clone(appErrors.ErrConflict, "order is not completed")
	}
	return nil
}

// ListOrders returns the caller's order history.
func (s *PaymentService) ListOrders(ctx context.Context, viewer Viewer) ([]models.OrderDetail, error) {
	orders, err := s.orders.ListByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orders")
	}
	return orders, nil
}

// prepare loads the course and computes the charge amount, rejecting free
// courses and duplicate purchases.
func (s *PaymentService) prepare(ctx context.Context, viewer Viewer, courseID int64) (*models.CourseStats, float64, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	price := course.Price
	if course.DiscountPrice != nil && *course.DiscountPrice > 0 && *course.DiscountPrice < price {
		price = *course.DiscountPrice
	}
	if price <= 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "course is free, enroll directly")
	}

	enrolled, err := s.enrollments.Exists(ctx, viewer.UserID, courseID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, 0, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	}

	// The gateway rejects XOF invoices below its minimum.
	if price < s.cfg.MinimumAmount {
		price = s.cfg.MinimumAmount
	}
	return course, price, nil
}

// settle completes the order once and enrolls the buyer. Repeat calls for
// an already-settled order succeed without side effects.
func (s *PaymentService) settle(ctx context.Context, order *models.Order, transactionID string) (*dto.ConfirmPaymentResponse, error) {
	completed, err := s.orders.CompleteAndEnroll(ctx, order.ID, transactionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle order")
	}
	if !completed {
		// The CAS also loses when the order already failed or was
		// refunded; re-read so the response reflects the real state.
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
		}
		message := "order already settled"
		if current.Status != models.OrderStatusCompleted {
			message = fmt.Sprintf("order is %s, not pending", current.Status)
		}
		return &dto.ConfirmPaymentResponse{
			OrderID:  order.ID,
			Status:   string(current.Status),
			Enrolled: false,
			Message:  message,
		}, nil
	}

	if s.notifier != nil {
		link := fmt.Sprintf("/courses/%d", order.CourseID)
		if err := s.notifier.Notify(ctx, order.UserID, models.NotificationCourse, "Inscription réussie",
			"Votre paiement a été confirmé. Bon apprentissage !", &link); err != nil {
			s.logger.Warn("enrollment notification failed", zap.String("user_id", order.UserID), zap.Error(err))
		}
	}

	return &dto.ConfirmPaymentResponse{
		OrderID:  order.ID,
		Status:   string(models.OrderStatusCompleted),
		Enrolled: true,
		Message:  "payment confirmed",
	}, nil
}

func orderIDFromCustomData(data map[string]interface{}) (int64, bool) {
	raw, ok := data["order_id"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
