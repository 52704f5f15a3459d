package apiclient

import (
	"context"
	"net/url"
	"strconv"
)

// CheckInResult is the backend's answer to a recognised check-in or check-out.
type CheckInResult struct {
	Action string `json:"action"`
	User   struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	} `json:"user"`
	Confidence     float64   `json:"confidence"`
	Timestamp      Timestamp `json:"timestamp"`
	LivenessPassed bool      `json:"liveness_passed"`
	LivenessScore  *float64  `json:"liveness_score"`
	Message        string    `json:"message,omitempty"`
}

// CheckIn submits a captured frame. employeeID is optional.
func (c *Client) CheckIn(ctx context.Context, image []byte, filename, employeeID string) (*CheckInResult, error) {
	if filename == "" {
		filename = "attendance.jpg"
	}
	var out CheckInResult
	fields := map[string]string{"employee_id": employeeID}
	if err := c.sendMultipart(ctx, "/api/attendance/check", fields, "image", filename, image, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Record is one attendance row.
type Record struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	CheckInTime  *Timestamp `json:"check_in_time"`
	CheckOutTime *Timestamp `json:"check_out_time"`
	Date         string     `json:"date"`
	Status       string     `json:"status"`
}

// HistoryQuery selects one page of attendance history.
type HistoryQuery struct {
	StartDate string
	EndDate   string
	Search    string
	Page      int
	Limit     int
}

func (q HistoryQuery) values() url.Values {
	v := url.Values{}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
		v.Set("per_page", strconv.Itoa(q.Limit))
	}
	return v
}

// HistoryPage is one page of records plus the totals used for pagination.
type HistoryPage struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Pagination *struct {
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
		Total   int `json:"total"`
		Pages   int `json:"pages"`
	} `json:"pagination,omitempty"`
}

// History fetches one page of attendance history.
func (c *Client) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	var out HistoryPage
	if err := c.getJSON(ctx, "/api/attendance/history", q.values(), &out); err != nil {
		return nil, err
	}
	if p := out.Pagination; p != nil {
		if out.Total == 0 {
			out.Total = p.Total
		}
		if out.TotalPages == 0 {
			out.TotalPages = p.Pages
		}
	}
	if out.TotalPages == 0 && q.Limit > 0 {
		out.TotalPages = (out.Total + q.Limit - 1) / q.Limit
	}
	return &out, nil
}

// TodayStatus is one user's attendance for the current day.
type TodayStatus struct {
	Date         string     `json:"date"`
	IsCheckedIn  bool       `json:"is_checked_in"`
	CheckInTime  *Timestamp `json:"check_in_time"`
	CheckOutTime *Timestamp `json:"check_out_time"`
	Status       string     `json:"status"`
}

// TodayStatus fetches today's attendance for userID.
func (c *Client) TodayStatus(ctx context.Context, userID int64) (*TodayStatus, error) {
	var out TodayStatus
	q := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	if err := c.getJSON(ctx, "/api/attendance/extended/status", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
