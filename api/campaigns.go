package api

import (
	"context"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// CampaignInput is the payload for creating or updating a campaign.
type CampaignInput struct {
	Name           string  `json:"name"`
	Status         string  `json:"status,omitempty"`
	CommissionRate float64 `json:"commission_rate,omitempty"`
}

// ListCampaigns returns the campaigns visible to the current user.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.CampaignsKey(), func(ctx context.Context) (any, error) {
		var out []Campaign
		if err := c.get(ctx, "/api/campaigns", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.([]Campaign), nil
}

// GetCampaign returns a single campaign by id.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.CampaignByIDKey(id), func(ctx context.Context) (any, error) {
		var out Campaign
		if err := c.get(ctx, "/api/campaigns/"+id, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Campaign), nil
}

// CreateCampaign starts a campaign and invalidates the collection.
func (c *Client) CreateCampaign(ctx context.Context, input CampaignInput) (*Campaign, error) {
	var out Campaign
	if err := c.post(ctx, "/api/campaigns", input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.CampaignsKey())
	return &out, nil
}

// UpdateCampaign modifies a campaign and invalidates the collection and the
// entity entry.
func (c *Client) UpdateCampaign(ctx context.Context, id string, input CampaignInput) (*Campaign, error) {
	var out Campaign
	if err := c.put(ctx, "/api/campaigns/"+id, input, &out); err != nil {
		return nil, err
	}
	c.invalidate(cache.CampaignsKey(), cache.CampaignByIDKey(id))
	return &out, nil
}

// DeleteCampaign removes a campaign and invalidates the collection and the
// entity entry.
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/api/campaigns/"+id); err != nil {
		return err
	}
	c.invalidate(cache.CampaignsKey(), cache.CampaignByIDKey(id))
	return nil
}
