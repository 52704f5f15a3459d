// Package leave holds the leave-request form and its display helpers.
package leave

import (
	"strings"
	"time"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
)

const dateLayout = "2006-01-02"

var ErrEndBeforeStart = apperror.New(apperror.CodeInvalidInput, "End date must be on or after start date", 400)

type Option struct {
	Value string
	Label string
}

// Types are the leave types offered by the request form.
var Types = []Option{
	{Value: "vacation", Label: "Vacation"},
	{Value: "sick", Label: "Sick Leave"},
	{Value: "personal", Label: "Personal"},
	{Value: "emergency", Label: "Emergency"},
}

// Form is the leave submission form; all fields are required.
type Form struct {
	Type      string `form:"type" binding:"required,oneof=vacation sick personal emergency"`
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	Reason    string `form:"reason" binding:"required"`
}

// Submission checks the dates and builds the backend payload.
func (f Form) Submission() (apiclient.LeaveSubmission, error) {
	start, err := time.Parse(dateLayout, strings.TrimSpace(f.StartDate))
	if err != nil {
		return apiclient.LeaveSubmission{}, apperror.InvalidField("Start date")
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(f.EndDate))
	if err != nil {
		return apiclient.LeaveSubmission{}, apperror.InvalidField("End date")
	}
	if end.Before(start) {
		return apiclient.LeaveSubmission{}, ErrEndBeforeStart
	}
	reason := strings.TrimSpace(f.Reason)
	if reason == "" {
		return apiclient.LeaveSubmission{}, apperror.RequiredField("Reason")
	}
	return apiclient.LeaveSubmission{
		Type:      f.Type,
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Reason:    reason,
	}, nil
}

// Duration is the inclusive number of calendar days between start and end,
// in either order. Unparseable dates give 0.
func Duration(start, end string) int {
	s, err := parseDate(start)
	if err != nil {
		return 0
	}
	e, err := parseDate(end)
	if err != nil {
		return 0
	}
	days := int(e.Sub(s).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days + 1
}

// parseDate accepts plain dates and the backend's timestamp forms.
func parseDate(s string) (time.Time, error) {
	ts, err := apiclient.ParseTimestamp(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	t := ts.Time
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func StatusLabel(status string) string {
	switch status {
	case apiclient.LeaveApproved:
		return "Approved"
	case apiclient.LeaveRejected:
		return "Rejected"
	}
	return "Pending"
}

func TypeLabel(value string) string {
	for _, o := range Types {
		if o.Value == value {
			return o.Label
		}
	}
	if value == "" {
		return "Leave"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

// Item is a leave request as listed.
type Item struct {
	apiclient.LeaveRequest
	Days       int
	StatusText string
	TypeText   string
	Pending    bool
	Requester  string
}

func Items(reqs []apiclient.LeaveRequest) []Item {
	out := make([]Item, 0, len(reqs))
	for _, r := range reqs {
		status := r.Status
		if status == "" {
			status = apiclient.LeavePending
		}
		who := r.FullName
		if who == "" {
			who = r.Username
		}
		out = append(out, Item{
			LeaveRequest: r,
			Days:         Duration(r.StartDate, r.EndDate),
			StatusText:   StatusLabel(status),
			TypeText:     TypeLabel(r.Type),
			Pending:      status == apiclient.LeavePending,
			Requester:    who,
		})
	}
	return out
}

// FilterStatus keeps requests whose status matches; "" or "all" keeps all.
func FilterStatus(items []Item, status string) []Item {
	if status == "" || status == "all" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		s := it.Status
		if s == "" {
			s = apiclient.LeavePending
		}
		if s == status {
			out = append(out, it)
		}
	}
	return out
}

// CountPending returns how many items await a decision.
func CountPending(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Pending {
			n++
		}
	}
	return n
}
