package api

import (
	"context"
	"net/url"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// SaleInput is the payload for creating or updating a sale.
type SaleInput struct {
	CampaignID  string  `json:"campaign_id,omitempty"`
	AffiliateID string  `json:"affiliate_id,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Status      string  `json:"status,omitempty"`
}

func (f SaleFilters) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.CampaignID != "" {
		q.Set("campaign_id", f.CampaignID)
	}
	return q
}

func (f SaleFilters) cacheKey() cache.Key {
	segments := []string{}
	if f.Status != "" {
		segments = append(segments, "status", f.Status)
	}
	if f.CampaignID != "" {
		segments = append(segments, "campaign", f.CampaignID)
	}
	if len(segments) == 0 {
		return cache.SalesKey()
	}
	return cache.SalesFilteredKey(segments...)
}

// ListSales returns sales matching the filters, served from cache when fresh.
func (c *Client) ListSales(ctx context.Context, filters SaleFilters) ([]Sale, error) {
	data, err := c.cache.GetOrFetch(ctx, filters.cacheKey(), func(ctx context.Context) (any, error) {
		var out []Sale
		if err := c.get(ctx, "/api/sales", filters.query(), &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Sale), nil
}

// GetSale returns a single sale by id.
func (c *Client) GetSale(ctx context.Context, id string) (*Sale, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.SaleByIDKey(id), func(ctx context.Context) (any, error) {
		var out Sale
		if err := c.get(ctx, "/api/sales/"+id, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Sale), nil
}

// GetSalesStats returns the aggregate sales stats.
func (c *Client) GetSalesStats(ctx context.Context) (*SalesStats, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.SalesStatsKey(), func(ctx context.Context) (any, error) {
		var out SalesStats
		if err := c.get(ctx, "/api/sales/stats", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*SalesStats), nil
}

// CreateSale records a new sale. On success the sales collection (and every
// narrower sales entry) is invalidated.
func (c *Client) CreateSale(ctx context.Context, input SaleInput) (*Sale, error) {
	var out Sale
	if err := c.post(ctx, "/api/sales", input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.SalesKey())
	return &out, nil
}

// UpdateSale modifies an existing sale and invalidates both the collection
// and the entity entry.
func (c *Client) UpdateSale(ctx context.Context, id string, input SaleInput) (*Sale, error) {
	var out Sale
	if err := c.put(ctx, "/api/sales/"+id, input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.SalesKey(), cache.SaleByIDKey(id))
	return &out, nil
}

// DeleteSale removes a sale and invalidates the collection and entity entry.
func (c *Client) DeleteSale(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/api/sales/"+id); err != nil {
		return err
	}
	c.invalidate(cache.SalesKey(), cache.SaleByIDKey(id))
	return nil
}
