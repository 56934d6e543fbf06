package api

import (
	"context"
)

// LoginRequest is the credential pair sent to /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login outcome. When the account has a second factor
// enabled the backend withholds the access token and returns a temporary
// token for the follow-up verification step instead.
type LoginResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	User              *User  `json:"user,omitempty"`
	RequiresTwoFactor bool   `json:"requires_2fa,omitempty"`
	TempToken         string `json:"temp_token,omitempty"`
}

// TwoFactorRequest completes a two-factor login.
type TwoFactorRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// Login exchanges credentials for a token, or for a two-factor challenge.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTwoFactor exchanges a temporary token and code for a full session.
func (c *Client) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/api/auth/verify-2fa", TwoFactorRequest{TempToken: tempToken, Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user record for the current bearer token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the token server-side. Callers treat failures as
// non-fatal: local teardown proceeds regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/auth/logout", nil, nil)
}
