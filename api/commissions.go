package api

import (
	"context"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// CommissionInput is the payload for creating or updating a commission.
type CommissionInput struct {
	SaleID      string  `json:"sale_id,omitempty"`
	AffiliateID string  `json:"affiliate_id,omitempty"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status,omitempty"`
}

// ListCommissions returns the commissions visible to the current user.
func (c *Client) ListCommissions(ctx context.Context) ([]Commission, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.CommissionsKey(), func(ctx context.Context) (any, error) {
		var out []Commission
		if err := c.get(ctx, "/api/commissions", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Commission), nil
}

// GetCommission returns a single commission by id.
func (c *Client) GetCommission(ctx context.Context, id string) (*Commission, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.CommissionByIDKey(id), func(ctx context.Context) (any, error) {
		var out Commission
		if err := c.get(ctx, "/api/commissions/"+id, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Commission), nil
}

// CreateCommission records a commission and invalidates the collection.
func (c *Client) CreateCommission(ctx context.Context, input CommissionInput) (*Commission, error) {
	var out Commission
	if err := c.post(ctx, "/api/commissions", input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.CommissionsKey())
	return &out, nil
}

// UpdateCommission modifies a commission and invalidates the collection and
// the entity entry.
func (c *Client) UpdateCommission(ctx context.Context, id string, input CommissionInput) (*Commission, error) {
	var out Commission
	if err := c.put(ctx, "/api/commissions/"+id, input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.CommissionsKey(), cache.CommissionByIDKey(id))
	return &out, nil
}

// DeleteCommission removes a commission and invalidates the collection and
// the entity entry.
func (c *Client) DeleteCommission(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/api/commissions/"+id); err != nil {
		return err
	}
	c.invalidate(cache.CommissionsKey(), cache.CommissionByIDKey(id))
	return nil
}
