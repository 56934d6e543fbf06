package api

import (
	"context"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// ListAffiliates returns the affiliates visible to the current user.
func (c *Client) ListAffiliates(ctx context.Context) ([]Affiliate, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.AffiliatesKey(), func(ctx context.Context) (any, error) {
		var out []Affiliate
		if err := c.get(ctx, "/api/affiliates", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Affiliate), nil
}

// GetAffiliate returns a single affiliate by id.
func (c *Client) GetAffiliate(ctx context.Context, id string) (*Affiliate, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.AffiliateByIDKey(id), func(ctx context.Context) (any, error) {
		var out Affiliate
		if err := c.get(ctx, "/api/affiliates/"+id, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Affiliate), nil
}

// GetAffiliateBalance returns the payable balance for an affiliate.
func (c *Client) GetAffiliateBalance(ctx context.Context, id string) (*Balance, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.AffiliateBalanceKey(id), func(ctx context.Context) (any, error) {
		var out Balance
		if err := c.get(ctx, "/api/affiliates/"+id+"/balance", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Balance), nil
}

// ListAdvertisers returns the advertiser accounts.
func (c *Client) ListAdvertisers(ctx context.Context) ([]Advertiser, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.AdvertisersKey(), func(ctx context.Context) (any, error) {
		var out []Advertiser
		if err := c.get(ctx, "/api/advertisers", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Advertiser), nil
}
