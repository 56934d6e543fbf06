package api

import (
	"context"
	"net/url"

	"github.com/epitaphe360/shareyoursales-go/cache"
)

// GetDashboard returns the landing payload for the current user.
func (c *Client) GetDashboard(ctx context.Context) (*Dashboard, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.DashboardKey(), func(ctx context.Context) (any, error) {
		var out Dashboard
		if err := c.get(ctx, "/api/dashboard", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*Dashboard), nil
}

// GetDashboardStats returns the stats block for a role.
func (c *Client) GetDashboardStats(ctx context.Context, role RoleType) (*DashboardStats, error) {
	data, err := c.cache.GetOrFetch(ctx, cache.DashboardStatsKey(string(role)), func(ctx context.Context) (any, error) {
		q := url.Values{}
		q.Set("role", string(role))
		var out DashboardStats
		if err := c.get(ctx, "/api/dashboard/stats", q, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return data.(*DashboardStats), nil
}
