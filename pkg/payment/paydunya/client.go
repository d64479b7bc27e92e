package paydunya

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	liveBaseURL    = "https://app.paydunya.com/api/v1"
	sandboxBaseURL = "https://app.paydunya.com/sandbox-api/v1"

	// StatusCompleted is the provider's terminal success state.
	StatusCompleted = "completed"

	responseOK = "00"
)

// Config carries the PayDunya credentials and store identity.
type Config struct {
	MasterKey  string
	PrivateKey string
	Token      string
	StoreName  string
	Sandbox    bool
	Timeout    time.Duration
}

// Client is a thin JSON client for the PayDunya checkout and SoftPay APIs.
// The wire protocol is treated as opaque: callers only see tokens and
// confirmation snapshots.
type Client struct {
	http   *resty.Client
	store  string
	logger *zap.Logger
}

// Invoice describes a checkout invoice to create.
type Invoice struct {
	Amount      float64
	ItemName    string
	Description string
	CallbackURL string
	ReturnURL   string
	CancelURL   string
	CustomData  map[string]interface{}
}

// Checkout is the result of invoice creation.
type Checkout struct {
	Token       string
	RedirectURL string
}

// Confirmation is the provider's view of a transaction.
type Confirmation struct {
	Status        string
	TransactionID string
	TotalAmount   float64
	CustomData    map[string]interface{}
}

// DirectPayRequest initiates a SoftPay mobile-money charge.
type DirectPayRequest struct {
	Amount        float64
	ItemName      string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Channel       string
	CallbackURL   string
	CustomData    map[string]interface{}
}

// New constructs a client. Credentials ride on every request as headers.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	base := liveBaseURL
	if cfg.Sandbox {
		base = sandboxBaseURL
	}

	http := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("PAYDUNYA-MASTER-KEY", cfg.MasterKey).
		SetHeader("PAYDUNYA-PRIVATE-KEY", cfg.PrivateKey).
		SetHeader("PAYDUNYA-TOKEN", cfg.Token)

	return &Client{http: http, store: cfg.StoreName, logger: logger}
}

type checkoutResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Description  string `json:"description"`
	Token        string `json:"token"`
}

// CreateInvoice creates a hosted checkout invoice and returns its token
// plus the redirect URL.
func (c *Client) CreateInvoice(ctx context.Context, inv Invoice) (*Checkout, error) {
	body := map[string]interface{}{
		"invoice": map[string]interface{}{
			"total_amount": int64(inv.Amount),
			"description":  inv.Description,
			"items": map[string]interface{}{
				"item_0": map[string]interface{}{
					"name":        inv.ItemName,
					"quantity":    1,
					"unit_price":  int64(inv.Amount),
					"total_price": int64(inv.Amount),
					"description": inv.Description,
				},
			},
		},
		"store": map[string]interface{}{
			"name": c.store,
		},
		"actions": map[string]interface{}{
			"callback_url": inv.CallbackURL,
			"return_url":   inv.ReturnURL,
			"cancel_url":   inv.CancelURL,
		},
		"custom_data": inv.CustomData,
	}

	var out checkoutResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/checkout-invoice/create")
	if err != nil {
		return nil, fmt.Errorf("paydunya create invoice: %w", err)
	}
	if resp.IsError() || out.ResponseCode != responseOK {
		c.logger.Warn("paydunya invoice creation rejected",
			zap.Int("http_status", resp.StatusCode()),
			zap.String("response_code", out.ResponseCode),
			zap.String("response_text", out.ResponseText))
		return nil, fmt.Errorf("paydunya create invoice rejected: %s", out.ResponseText)
	}

	return &Checkout{Token: out.Token, RedirectURL: out.ResponseText}, nil
}

type confirmResponse struct {
	ResponseCode  string                 `json:"response_code"`
	ResponseText  string                 `json:"response_text"`
	Status        string                 `json:"status"`
	TransactionID string                 `json:"transaction_id"`
	CustomData    map[string]interface{} `json:"custom_data"`
	Invoice       struct {
		TotalAmount float64 `json:"total_amount"`
	} `json:"invoice"`
}

// Confirm looks up the state of an invoice by token.
func (c *Client) Confirm(ctx context.Context, token string) (*Confirmation, error) {
	var out confirmResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/checkout-invoice/confirm/" + token)
	if err != nil {
		return nil, fmt.Errorf("paydunya confirm %s: %w", token, err)
	}
	if resp.IsError() || out.ResponseCode != responseOK {
		return nil, fmt.Errorf("paydunya confirm rejected: %s", out.ResponseText)
	}

	return &Confirmation{
		Status:        out.Status,
		TransactionID: out.TransactionID,
		TotalAmount:   out.Invoice.TotalAmount,
		CustomData:    out.CustomData,
	}, nil
}

type softPayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// DirectPay initiates a SoftPay mobile-money payment (Wave, Orange Money).
// The customer approves the charge on their phone; the outcome arrives on
// the callback URL.
func (c *Client) DirectPay(ctx context.Context, req DirectPayRequest) (string, error) {
	body := map[string]interface{}{
		"item_name":       req.ItemName,
		"amount":          int64(req.Amount),
		"customer_name":   req.CustomerName,
		"customer_email":  req.CustomerEmail,
		"customer_phone":  req.CustomerPhone,
		"wallet_provider": req.Channel,
		"callback_url":    req.CallbackURL,
		"custom_data":     req.CustomData,
	}

	var out softPayResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/softpay/senegal-mobile-money")
	if err != nil {
		return "", fmt.Errorf("paydunya softpay: %w", err)
	}
	if resp.IsError() || !out.Success {
		c.logger.Warn("paydunya softpay rejected",
			zap.Int("http_status", resp.StatusCode()),
			zap.String("message", out.Message))
		return "", fmt.Errorf("paydunya softpay rejected: %s", out.Message)
	}

	return out.Token, nil
}
