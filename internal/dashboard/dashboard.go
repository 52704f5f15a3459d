// Package dashboard loads the signed-in user's landing page data.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/leave"
)

type Backend interface {
	TodayStatus(ctx context.Context, userID int64) (*apiclient.TodayStatus, error)
	LeaveRequests(ctx context.Context, status string) ([]apiclient.LeaveRequest, error)
}

// Today summarises the current day's attendance.
type Today struct {
	CheckedIn  bool
	CheckedOut bool
	CheckIn    string
	CheckOut   string
	WorkHours  string
	Status     string
}

type View struct {
	Today         Today
	PendingLeaves []leave.Item
}

// Load fetches today's status and pending leave requests together. Either
// failing fails the whole load.
func Load(ctx context.Context, api Backend, userID int64) (*View, error) {
	var (
		today   *apiclient.TodayStatus
		pending []apiclient.LeaveRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		today, err = api.TodayStatus(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = api.LeaveRequests(gctx, apiclient.LeavePending)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &View{Today: summarise(today, time.Now()), PendingLeaves: leave.Items(pending)}, nil
}

func summarise(t *apiclient.TodayStatus, now time.Time) Today {
	out := Today{CheckIn: "-", CheckOut: "-", WorkHours: "-"}
	if t == nil {
		return out
	}
	in := t.CheckInTime != nil && !t.CheckInTime.IsZero()
	outDone := t.CheckOutTime != nil && !t.CheckOutTime.IsZero()
	out.CheckedIn = t.IsCheckedIn || in
	out.CheckedOut = outDone
	out.Status = t.Status
	if in {
		out.CheckIn = t.CheckInTime.Format("15:04")
	}
	if outDone {
		out.CheckOut = t.CheckOutTime.Format("15:04")
	}
	switch {
	case in && outDone:
		out.WorkHours = attendance.FormatDuration(t.CheckOutTime.Sub(t.CheckInTime.Time))
	case in:
		out.WorkHours = "In progress (" + attendance.FormatDuration(now.Sub(t.CheckInTime.Time)) + ")"
	}
	return out
}
