package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type paymentService interface {
	CreateIntent(ctx context.Context, viewer service.Viewer, req dto.CreateIntentRequest) (*dto.CreateIntentResponse, error)
	Confirm(ctx context.Context, viewer service.Viewer, req dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error)
	Checkout(ctx context.Context, viewer service.Viewer, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	DirectPay(ctx context.Context, viewer service.Viewer, req dto.DirectPayRequest) (*dto.ConfirmPaymentResponse, error)
	HandleIPN(ctx context.Context, token string) error
	Refund(ctx context.Context, viewer service.Viewer, orderID int64) error
	ListOrders(ctx context.Context, viewer service.Viewer) ([]models.OrderDetail, error)
}

// PaymentHandler exposes the purchase and settlement endpoints.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateIntent godoc
// @Summary Open a pending order for a paid course
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateIntentRequest true "Intent payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.ErrorBody
// @Router /payments/create-intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	res, err := h.service.CreateIntent(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Confirm godoc
// @Summary Settle a pending order
// @Description Idempotent: confirming an already-settled order reports
// @Description enrolled=false without side effects.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ConfirmPaymentRequest true "Confirmation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Router /payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid confirmation payload"))
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Checkout godoc
// @Summary Create a hosted PayDunya checkout
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CheckoutRequest true "Checkout payload"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.ErrorBody
// @Router /payments/paydunya/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkout payload"))
		return
	}

	res, err := h.service.Checkout(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// DirectPay godoc
// @Summary Charge a mobile-money wallet
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DirectPayRequest true "Mobile money payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.ErrorBody
// @Router /payments/paydunya/direct [post]
func (h *PaymentHandler) DirectPay(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	var req dto.DirectPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	res, err := h.service.DirectPay(c.Request.Context(), viewer, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// IPN godoc
// @Summary PayDunya server-to-server notification
// @Description Unauthenticated webhook. Only the invoice token is read; the
// @Description transaction state is re-fetched from the provider.
// @Tags Payments
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/paydunya/ipn [post]
func (h *PaymentHandler) IPN(c *gin.Context) {
	var req dto.IPNRequest
	if err := c.ShouldBind(&req); err != nil || req.Token == "" {
		// Fall back to the raw form field the gateway actually posts.
		req.Token = c.PostForm("data[invoice][token]")
	}

	if err := h.service.HandleIPN(c.Request.Context(), req.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}

// Refund godoc
// @Summary Refund a completed order
// @Tags Payments
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /payments/orders/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	orderID, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.service.Refund(c.Request.Context(), viewer, orderID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListOrders godoc
// @Summary Caller's order history
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /payments/orders [get]
func (h *PaymentHandler) ListOrders(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, nil)
}
