package api

import "time"

// RoleType represents a platform role carried in the user record.
type RoleType string

const (
	RoleAdmin      RoleType = "admin"
	RoleMerchant   RoleType = "merchant"
	RoleInfluencer RoleType = "influencer"
)

// User is the authenticated user record returned by /api/auth/me and login.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        RoleType  `json:"role"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Sale is a tracked marketplace sale.
type Sale struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	AffiliateID string    `json:"affiliate_id,omitempty"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// SaleFilters narrows a sales listing. Zero values are omitted from the
// query string.
type SaleFilters struct {
	Status     string
	CampaignID string
}

// SalesStats is the aggregate returned by /api/sales/stats.
type SalesStats struct {
	TotalSales  int     `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency,omitempty"`
}

// Commission is an affiliate commission attached to a sale.
type Commission struct {
	ID          string    `json:"id"`
	SaleID      string    `json:"sale_id,omitempty"`
	AffiliateID string    `json:"affiliate_id,omitempty"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Payment statuses used by the backend and the live event vocabulary.
const (
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentPending   = "pending"
)

// Payment is a payout to an affiliate.
type Payment struct {
	ID          string    `json:"id"`
	AffiliateID string    `json:"affiliate_id,omitempty"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Method      string    `json:"method,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Affiliate is an influencer account visible to merchants and admins.
type Affiliate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Balance is an affiliate's payable balance.
type Balance struct {
	AffiliateID string  `json:"affiliate_id"`
	Available   float64 `json:"available"`
	Pending     float64 `json:"pending"`
	Currency    string  `json:"currency,omitempty"`
}

// Advertiser is a merchant account running campaigns.
type Advertiser struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status,omitempty"`
}

// Campaign is an affiliate-marketing campaign.
type Campaign struct {
	ID             string    `json:"id"`
	AdvertiserID   string    `json:"advertiser_id,omitempty"`
	Name           string    `json:"name"`
	Status         string    `json:"status,omitempty"`
	CommissionRate float64   `json:"commission_rate,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Dashboard is the landing payload for the current user's dashboard.
type Dashboard struct {
	RecentSales       []Sale       `json:"recent_sales,omitempty"`
	RecentCommissions []Commission `json:"recent_commissions,omitempty"`
}

// DashboardStats is the per-role stats block.
type DashboardStats struct {
	Role             RoleType `json:"role"`
	TotalSales       int      `json:"total_sales"`
	TotalRevenue     float64  `json:"total_revenue"`
	TotalCommissions float64  `json:"total_commissions"`
	ActiveCampaigns  int      `json:"active_campaigns"`
}
