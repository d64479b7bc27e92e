package dto

// CreateIntentRequest opens a pending order for a paid course.
type CreateIntentRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// CreateIntentResponse returns the order reference the client confirms later.
type CreateIntentResponse struct {
	OrderID      int64   `json:"order_id"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// ConfirmPaymentRequest settles a pending order with the provider result.
type ConfirmPaymentRequest struct {
	OrderID       int64   `json:"order_id" validate:"required,gt=0"`
	TransactionID string  `json:"transaction_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
}

// ConfirmPaymentResponse reports the settled order and whether the call
// actually completed it (false when the order was already completed).
type ConfirmPaymentResponse struct {
	OrderID  int64  `json:"order_id"`
	Status   string `json:"status"`
	Enrolled bool   `json:"enrolled"`
	Message  string `json:"message"`
}

// CheckoutRequest starts a hosted checkout session.
type CheckoutRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// CheckoutResponse carries the redirect URL for the hosted page.
type CheckoutResponse struct {
	OrderID     int64  `json:"order_id"`
	Token       string `json:"token"`
	CheckoutURL string `json:"checkout_url"`
}

// DirectPayRequest charges a mobile-money wallet without redirection.
type DirectPayRequest struct {
	CourseID      int64  `json:"course_id" validate:"required,gt=0"`
	PhoneNumber   string `json:"phone_number" validate:"required,min=9,max=15"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// IPNRequest is the server-to-server notification from the provider. Only
// the token is trusted; everything else is re-fetched from the provider.
type IPNRequest struct {
	Token string `form:"data[invoice][token]" json:"token"`
}
