package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-portal/internal/apiclient"
)

type fakeBackend struct {
	TodayStatusFn   func(ctx context.Context, userID int64) (*apiclient.TodayStatus, error)
	LeaveRequestsFn func(ctx context.Context, status string) ([]apiclient.LeaveRequest, error)
}

func (f *fakeBackend) TodayStatus(ctx context.Context, userID int64) (*apiclient.TodayStatus, error) {
	return f.TodayStatusFn(ctx, userID)
}

func (f *fakeBackend) LeaveRequests(ctx context.Context, status string) ([]apiclient.LeaveRequest, error) {
	return f.LeaveRequestsFn(ctx, status)
}

func TestLoad(t *testing.T) {
	in, _ := apiclient.ParseTimestamp("2025-06-02T08:05:00")
	api := &fakeBackend{
		TodayStatusFn: func(ctx context.Context, userID int64) (*apiclient.TodayStatus, error) {
			assert.Equal(t, int64(7), userID)
			return &apiclient.TodayStatus{IsCheckedIn: true, CheckInTime: &in, Status: "present"}, nil
		},
		LeaveRequestsFn: func(ctx context.Context, status string) ([]apiclient.LeaveRequest, error) {
			assert.Equal(t, "pending", status)
			return []apiclient.LeaveRequest{{ID: 4, StartDate: "2025-07-10", EndDate: "2025-07-12", Status: "pending"}}, nil
		},
	}

	v, err := Load(context.Background(), api, 7)
	require.NoError(t, err)
	assert.True(t, v.Today.CheckedIn)
	assert.Equal(t, "08:05", v.Today.CheckIn)
	assert.Contains(t, v.Today.WorkHours, "In progress")
	assert.Equal(t, "present", v.Today.Status)
	require.Len(t, v.PendingLeaves, 1)
	assert.Equal(t, 3, v.PendingLeaves[0].Days)
}

func TestLoad_OneFailureFailsBatch(t *testing.T) {
	api := &fakeBackend{
		TodayStatusFn: func(ctx context.Context, userID int64) (*apiclient.TodayStatus, error) {
			return &apiclient.TodayStatus{}, nil
		},
		LeaveRequestsFn: func(ctx context.Context, status string) ([]apiclient.LeaveRequest, error) {
			return nil, errors.New("leave service down")
		},
	}

	v, err := Load(context.Background(), api, 7)
	assert.Error(t, err)
	assert.Nil(t, v)
}

func TestSummarise_WorkHours(t *testing.T) {
	in, _ := apiclient.ParseTimestamp("2025-06-02T08:00:00")
	out, _ := apiclient.ParseTimestamp("2025-06-02T16:30:00")
	s := summarise(&apiclient.TodayStatus{IsCheckedIn: true, CheckInTime: &in, CheckOutTime: &out}, time.Now())
	assert.True(t, s.CheckedOut)
	assert.Equal(t, "8h 30m", s.WorkHours)

	s = summarise(&apiclient.TodayStatus{IsCheckedIn: true, CheckInTime: &in}, in.Add(90*time.Minute))
	assert.Equal(t, "In progress (1h 30m)", s.WorkHours)

	empty := summarise(nil, time.Now())
	assert.False(t, empty.CheckedIn)
	assert.Equal(t, "-", empty.WorkHours)
}
