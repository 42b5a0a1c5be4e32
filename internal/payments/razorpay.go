package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

var (
	ErrOrderTimeout = errors.New("payment provider order creation timed out")
)

// OrderCreator creates a pending payment-provider order and returns its id.
type OrderCreator interface {
	Create(ctx context.Context, amount int64, currency, receipt string) (string, error)
}

// RazorpayOrders implements OrderCreator against the Razorpay Orders API.
type RazorpayOrders struct {
	client  *razorpay.Client
	timeout time.Duration
}

func NewRazorpayOrders(keyID, keySecret string, timeout time.Duration) *RazorpayOrders {
	return &RazorpayOrders{
		client:  razorpay.NewClient(keyID, keySecret),
		timeout: timeout,
	}
}

type orderResult struct {
	id  string
	err error
}

// Create requests a new order for amount in the smallest currency unit.
// The SDK call is not context aware, so it runs in a goroutine and the caller
// is released on cancellation or timeout; a late provider response is dropped.
func (r *RazorpayOrders) Create(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan orderResult, 1)
	go func() {
		body, err := r.client.Order.Create(map[string]interface{}{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
		}, nil)
		if err != nil {
			ch <- orderResult{err: fmt.Errorf("create razorpay order: %w", err)}
			return
		}
		id, ok := body["id"].(string)
		if !ok || id == "" {
			ch <- orderResult{err: errors.New("razorpay order response missing id")}
			return
		}
		ch <- orderResult{id: id}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrOrderTimeout
		}
		return "", ctx.Err()
	case res := <-ch:
		return res.id, res.err
	}
}
