// Package checkin holds the capture → confirm → result state machine used by
// both the signed-in and the public kiosk check-in pages.
package checkin

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/metrics"
)

type State string

const (
	StateIdle       State = "idle"
	StateCaptured   State = "captured"
	StateProcessing State = "processing"
	StateResult     State = "result"
)

var ErrInvalidState = apperror.New(apperror.CodeInvalidState, "That step is not available right now", http.StatusConflict)

// Submitter sends a captured frame to the recognition backend.
type Submitter interface {
	CheckIn(ctx context.Context, image []byte, filename, employeeID string) (*apiclient.CheckInResult, error)
}

// Outcome is what the result screen shows after a recognised check-in.
type Outcome struct {
	Action         string    `json:"action"`
	FullName       string    `json:"full_name"`
	Username       string    `json:"username"`
	Confidence     float64   `json:"confidence"`
	LivenessPassed bool      `json:"liveness_passed"`
	LivenessScore  *float64  `json:"liveness_score,omitempty"`
	At             time.Time `json:"at"`
}

// CheckedOut reports whether the backend recorded a check-out.
func (o *Outcome) CheckedOut() bool {
	return o != nil && o.Action == "check_out"
}

// Flow is the per-browser check-in state. The zero value is idle.
type Flow struct {
	State      State    `json:"state"`
	Frame      []byte   `json:"frame,omitempty"`
	EmployeeID string   `json:"employee_id,omitempty"`
	Error      string   `json:"error,omitempty"`
	Result     *Outcome `json:"result,omitempty"`

	// StartedAt is when the pending submission began.
	StartedAt time.Time `json:"started_at,omitempty"`
}

const msgInterrupted = "The previous attempt did not finish, please try again"

func (f *Flow) Current() State {
	if f.State == "" {
		return StateIdle
	}
	return f.State
}

// Capture stores an already normalised frame. A retake from captured simply
// replaces the frame; capturing while a submission is pending is refused.
func (f *Flow) Capture(frame []byte) error {
	switch f.Current() {
	case StateIdle, StateCaptured:
	default:
		return ErrInvalidState
	}
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	f.State = StateCaptured
	f.Frame = frame
	f.Error = ""
	f.Result = nil
	return nil
}

// Retake discards the captured frame.
func (f *Flow) Retake() error {
	if f.Current() != StateCaptured {
		return ErrInvalidState
	}
	f.State = StateIdle
	f.Frame = nil
	f.Error = ""
	return nil
}

// Confirm submits the captured frame. While the request is pending the flow is
// in StateProcessing; onProcessing, when set, runs once that state is entered.
// A failure returns the flow to StateCaptured with Error set and the frame kept
// for another attempt.
func (f *Flow) Confirm(ctx context.Context, sub Submitter, onProcessing func()) error {
	if f.Current() != StateCaptured || len(f.Frame) == 0 {
		return ErrInvalidState
	}
	f.State = StateProcessing
	f.StartedAt = time.Now()
	f.Error = ""
	if onProcessing != nil {
		onProcessing()
	}

	res, err := sub.CheckIn(ctx, f.Frame, "attendance.jpg", f.EmployeeID)
	f.StartedAt = time.Time{}
	if err != nil {
		f.State = StateCaptured
		f.Error = apperror.Message(err, "Check-in failed, please try again")
		metrics.CheckIn("failure")
		return err
	}
	if res == nil {
		f.State = StateCaptured
		f.Error = "Check-in failed, please try again"
		metrics.CheckIn("failure")
		return errors.New("empty check-in response")
	}

	f.State = StateResult
	f.Frame = nil
	f.Result = &Outcome{
		Action:         res.Action,
		FullName:       res.User.FullName,
		Username:       res.User.Username,
		Confidence:     res.Confidence,
		LivenessPassed: res.LivenessPassed,
		LivenessScore:  res.LivenessScore,
		At:             res.Timestamp.Time,
	}
	if f.Result.At.IsZero() {
		f.Result.At = time.Now()
	}
	metrics.CheckIn("success")
	return nil
}

// Abandon turns a submission pending for longer than after back into a
// captured frame, so a flow stored mid-request by a process that never
// finished it can be retried. It reports whether the flow changed.
func (f *Flow) Abandon(now time.Time, after time.Duration) bool {
	if f.Current() != StateProcessing {
		return false
	}
	if !f.StartedAt.IsZero() && now.Sub(f.StartedAt) <= after {
		return false
	}
	f.StartedAt = time.Time{}
	f.Error = msgInterrupted
	if len(f.Frame) == 0 {
		f.State = StateIdle
		return true
	}
	f.State = StateCaptured
	return true
}

// Reset returns to idle, ready for the next employee.
func (f *Flow) Reset() {
	*f = Flow{State: StateIdle}
}

// Preview returns the captured frame as a JPEG data URL, empty when there is
// no frame.
func (f *Flow) Preview() string {
	if len(f.Frame) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Frame)
}
