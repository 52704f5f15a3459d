package apiclient

import (
	"context"
	"fmt"
	"net/http"
)

// ManagedUser is a user row in the admin panel.
type ManagedUser struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// UserInput creates or updates a user. Password is write-only and omitted
// when empty; Username is only sent on creation.
type UserInput struct {
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// SystemStats feeds the admin dashboard.
type SystemStats struct {
	TotalUsers           int        `json:"total_users"`
	TodayAttendance      int        `json:"today_attendance"`
	PendingLeaveRequests int        `json:"pending_leave_requests"`
	ActiveUsersWeek      int        `json:"active_users_week"`
	RecentActivities     []Activity `json:"recent_activities"`
}

// Activity is one recent check-in shown on the admin dashboard.
type Activity struct {
	FullName string     `json:"full_name"`
	Username string     `json:"username"`
	CheckIn  *Timestamp `json:"check_in"`
}

func (c *Client) ListUsers(ctx context.Context) ([]ManagedUser, error) {
	var out struct {
		Users []ManagedUser `json:"users"`
	}
	if err := c.getJSON(ctx, "/api/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/admin/users", in, nil)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in UserInput) error {
	in.Username = ""
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", id), in, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), nil, nil)
}

func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	var out SystemStats
	if err := c.getJSON(ctx, "/api/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
