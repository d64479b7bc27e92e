package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/middleware"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type fakePaymentSrv struct {
	confirmResp *dto.ConfirmPaymentResponse
	err         error
	lastToken   string
	lastConfirm dto.ConfirmPaymentRequest
	lastRefund  int64
}

func (f *fakePaymentSrv) CreateIntent(ctx context.Context, viewer service.Viewer, req dto.CreateIntentRequest) (*dto.CreateIntentResponse, error) {
	return &dto.CreateIntentResponse{OrderID: 1, Amount: 5000, Currency: "XOF"}, f.err
}

func (f *fakePaymentSrv) Confirm(ctx context.Context, viewer service.Viewer, req dto.ConfirmPaymentRequest) (*dto.ConfirmPaymentResponse, error) {
	f.lastConfirm = req
	return f.confirmResp, f.err
}

func (f *fakePaymentSrv) Checkout(ctx context.Context, viewer service.Viewer, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	return &dto.CheckoutResponse{OrderID: 1, Token: "tok-1"}, f.err
}

func (f *fakePaymentSrv) DirectPay(ctx context.Context, viewer service.Viewer, req dto.DirectPayRequest) (*dto.ConfirmPaymentResponse, error) {
	return f.confirmResp, f.err
}

func (f *fakePaymentSrv) HandleIPN(ctx context.Context, token string) error {
	f.lastToken = token
	return f.err
}

func (f *fakePaymentSrv) Refund(ctx context.Context, viewer service.Viewer, orderID int64) error {
	f.lastRefund = orderID
	return f.err
}

func (f *fakePaymentSrv) ListOrders(ctx context.Context, viewer service.Viewer) ([]models.OrderDetail, error) {
	return nil, f.err
}

func TestPaymentHandlerIPNExtractsFormToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{}
	handler := NewPaymentHandler(srv)

	form := url.Values{"data[invoice][token]": {"tok-abc"}}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/paydunya/ipn", strings.NewReader(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	handler.IPN(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-abc", srv.lastToken)
}

func TestPaymentHandlerIPNMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{err: appErrors.Clone(appErrors.ErrValidation, "missing invoice token")}
	handler := NewPaymentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/paydunya/ipn", nil)

	handler.IPN(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHandlerConfirmBindsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{confirmResp: &dto.ConfirmPaymentResponse{OrderID: 9, Enrolled: true}}
	handler := NewPaymentHandler(srv)

	body := `{"order_id":9,"transaction_id":"txn-1","amount":5000}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.Confirm(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), srv.lastConfirm.OrderID)
	assert.Equal(t, 5000.0, srv.lastConfirm.Amount)
}

func TestPaymentHandlerConfirmAmountMismatchStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{err: appErrors.Clone(appErrors.ErrAmountMismatch, "")}
	handler := NewPaymentHandler(srv)

	body := `{"order_id":9,"transaction_id":"txn-1","amount":1}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.Confirm(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "AMOUNT_MISMATCH", envelope.Code)
}

func TestPaymentHandlerRefundParsesOrderID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{}
	handler := NewPaymentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments/orders/12/refund", nil)
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleTeacher})

	handler.Refund(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(12), srv.lastRefund)
}
