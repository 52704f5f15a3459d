package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// LeaveRequest is a leave request as stored by the backend.
type LeaveRequest struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username,omitempty"`
	FullName        string     `json:"full_name,omitempty"`
	Type            string     `json:"type"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
	ApprovedAt      *Timestamp `json:"approved_at,omitempty"`
}

// LeaveSubmission is the payload of a new leave request.
type LeaveSubmission struct {
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

// SubmitLeave creates a leave request for the signed-in user.
func (c *Client) SubmitLeave(ctx context.Context, s LeaveSubmission) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/leave/request", s, nil)
}

// LeaveRequests lists leave requests visible to the token; status filters
// when non-empty.
func (c *Client) LeaveRequests(ctx context.Context, status string) ([]LeaveRequest, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	var out struct {
		Requests []LeaveRequest `json:"requests"`
	}
	if err := c.getJSON(ctx, "/api/leave/requests", q, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// ApproveLeave approves a pending request (admin).
func (c *Client) ApproveLeave(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/leave/approve/%d", id), nil, nil)
}

// RejectLeave rejects a pending request with an optional reason (admin).
func (c *Client) RejectLeave(ctx context.Context, id int64, reason string) error {
	payload := map[string]string{"reason": reason}
	return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/api/leave/reject/%d", id), payload, nil)
}

// CancelLeave withdraws one of the user's own pending requests.
func (c *Client) CancelLeave(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/leave/requests/%d", id), nil, nil)
}
