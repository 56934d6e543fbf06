package api

import (
	"context"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// PaymentInput is the payload for creating a payment.
type PaymentInput struct {
	AffiliateID string  `json:"affiliate_id"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method,omitempty"`
}

type paymentStatusRequest struct {
	Status string `json:"status"`
}

// ListPayments returns the payments visible to the current user.
func (c *Client) ListPayments(ctx context.Context) ([]Payment, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.PaymentsKey(), func(ctx context.Context) (any, error) {
		var out []Payment
		if err := c.get(ctx, "/api/payments", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Payment), nil
}

// GetPayment returns a single payment by id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.PaymentByIDKey(id), func(ctx context.Context) (any, error) {
		var out Payment
		if err := c.get(ctx, "/api/payments/"+id, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Payment), nil
}

// CreatePayment records a payout and invalidates the payments collection and
// the recipient's balance.
func (c *Client) CreatePayment(ctx context.Context, input PaymentInput) (*Payment, error) {
	var out Payment
	if err := c.post(ctx, "/api/payments", input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.PaymentsKey(), cache.AffiliateBalanceKey(input.AffiliateID))
	return &out, nil
}

// UpdatePaymentStatus transitions a payment's status and invalidates the
// collection and the entity entry.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id, status string) (*Payment, error) {
	var out Payment
	if err := c.put(ctx, "/api/payments/"+id+"/status", paymentStatusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.PaymentsKey(), cache.PaymentByIDKey(id))
	return &out, nil
}
