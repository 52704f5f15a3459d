package apiclient

import (
	"context"
	"net/http"

	"attendance-portal/internal/apperror"
)

// User is the backend's view of the signed-in account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token       string       `json:"token"`
	User        User         `json:"user"`
	NetworkInfo *NetworkInfo `json:"network_info,omitempty"`
}

// VerifyResult is the identity the backend extracts from a token.
type VerifyResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a token. A 401 here means bad credentials,
// not an expired session, so it is reported as ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login", payload, &out); err != nil {
		if apperror.IsUnauthenticated(err) {
			return nil, apperror.New(apperror.CodeInvalidCredentials, apperror.Message(err, apperror.ErrInvalidCredentials.Message), http.StatusUnauthorized)
		}
		return nil, err
	}
	if out.Token == "" {
		return nil, apperror.New(apperror.CodeInternalError, "Login response did not include a token", http.StatusBadGateway)
	}
	return &out, nil
}

// Verify checks the token carried by ctx.
func (c *Client) Verify(ctx context.Context) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.getJSON(ctx, "/api/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend the token carried by ctx is no longer in use.
func (c *Client) Logout(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}
