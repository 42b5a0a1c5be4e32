package api

import (
	"github.com/slotbook/appointment-api/internal/booking"
)

type CreateOrderRequest struct {
	Amount   int64    `json:"amount"`
	Currency string   `json:"currency"`
	Slots    []string `json:"slots"`
	Date     string   `json:"date"`
}

type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
}

// VerifyPaymentRequest carries the checkout callback. The razorpay_* field
// names are delivered by the payment widget as-is and must not change.
type VerifyPaymentRequest struct {
	OrderID   string       `json:"razorpay_order_id"`
	PaymentID string       `json:"razorpay_payment_id"`
	Signature string       `json:"razorpay_signature"`
	Form      booking.Form `json:"formData"`
}

type AttemptedRequest struct {
	Attempted *bool `json:"attempted"`
}

type SlotsResponse struct {
	Date      string   `json:"date"`
	Available []string `json:"available"`
	Booked    []string `json:"booked"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
