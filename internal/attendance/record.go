package attendance

import (
	"fmt"
	"time"

	"attendance-portal/internal/apiclient"
)

// FullDay is the worked duration at which a closed record counts as complete.
const FullDay = 8 * time.Hour

type Status string

const (
	StatusActive   Status = "Active"
	StatusComplete Status = "Complete"
	StatusPartial  Status = "Partial"
)

// Row is one history record as displayed.
type Row struct {
	ID        int64
	Name      string
	Username  string
	Date      string
	CheckIn   string
	CheckOut  string
	WorkHours string
	Worked    time.Duration
	Status    Status
}

// Badge is the CSS modifier for the status label.
func (r Row) Badge() string {
	switch r.Status {
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	}
	return "partial"
}

// Derive projects a backend record: no check-out is Active with work hours
// "In progress"; otherwise Complete at FullDay or more, Partial below.
func Derive(rec apiclient.Record) Row {
	row := Row{
		ID:       rec.ID,
		Name:     rec.FullName,
		Username: rec.Username,
		Date:     rec.Date,
		CheckIn:  "-",
		CheckOut: "-",
	}
	if row.Name == "" {
		row.Name = rec.Username
	}
	if rec.CheckInTime != nil && !rec.CheckInTime.IsZero() {
		row.CheckIn = rec.CheckInTime.Format("15:04:05")
		if row.Date == "" {
			row.Date = rec.CheckInTime.Format(DateLayout)
		}
	}

	if rec.CheckOutTime == nil || rec.CheckOutTime.IsZero() {
		row.WorkHours = "In progress"
		row.Status = StatusActive
		return row
	}
	row.CheckOut = rec.CheckOutTime.Format("15:04:05")

	if rec.CheckInTime != nil {
		row.Worked = rec.CheckOutTime.Sub(rec.CheckInTime.Time)
	}
	row.WorkHours = FormatDuration(row.Worked)
	if row.Worked >= FullDay {
		row.Status = StatusComplete
	} else {
		row.Status = StatusPartial
	}
	return row
}

// Rows projects a page of records.
func Rows(recs []apiclient.Record) []Row {
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, Derive(r))
	}
	return rows
}

// FormatDuration renders d as "Xh Ym", truncating to whole minutes.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
