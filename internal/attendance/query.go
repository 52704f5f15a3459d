// Package attendance shapes attendance history for display: the filter and
// page query kept per session, the per-row projection and the Excel export.
package attendance

import (
	"net/http"
	"strings"
	"time"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
)

const DateLayout = "2006-01-02"

var ErrDateRange = apperror.New(apperror.CodeInvalidInput, "Start date must be on or before end date", http.StatusBadRequest)

// Filters narrow the history list. Changing any of them resets paging.
type Filters struct {
	StartDate string `form:"start_date" json:"start_date"`
	EndDate   string `form:"end_date" json:"end_date"`
	Search    string `form:"search" json:"search"`
}

// Normalize trims the search term.
func (f Filters) Normalize() Filters {
	f.Search = strings.TrimSpace(f.Search)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	return f
}

// Validate checks date formats and ordering. Empty dates are allowed.
func (f Filters) Validate() error {
	var start, end time.Time
	var err error
	if f.StartDate != "" {
		if start, err = time.Parse(DateLayout, f.StartDate); err != nil {
			return apperror.InvalidField("Start date")
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(DateLayout, f.EndDate); err != nil {
			return apperror.InvalidField("End date")
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return ErrDateRange
	}
	return nil
}

// Query is the last history query a session issued.
type Query struct {
	Filters
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultQuery covers the month containing now, first page.
func DefaultQuery(now time.Time, limit int) Query {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return Query{
		Filters: Filters{StartDate: first.Format(DateLayout), EndDate: last.Format(DateLayout)},
		Page:    1,
		Limit:   limit,
	}
}

// Apply derives the next query from the previous one. A change of filters
// always lands on page 1; otherwise the requested page is kept.
func (q Query) Apply(f Filters, page int) Query {
	f = f.Normalize()
	next := Query{Filters: f, Page: page, Limit: q.Limit}
	if f != q.Filters || next.Page < 1 {
		next.Page = 1
	}
	return next
}

// API converts the query to the backend's parameters.
func (q Query) API() apiclient.HistoryQuery {
	return apiclient.HistoryQuery{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Search:    q.Search,
		Page:      q.Page,
		Limit:     q.Limit,
	}
}
