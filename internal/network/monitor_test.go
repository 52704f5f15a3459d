package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
)

type fakeBackend struct {
	statusCalls     atomic.Int32
	featureCalls    atomic.Int32
	NetworkStatusFn func(ctx context.Context) (*apiclient.NetworkInfo, error)
	FeaturesFn      func(ctx context.Context) (apiclient.FeatureMap, error)
	CheckAccessFn   func(ctx context.Context, feature string) (*apiclient.FeatureAccess, error)
}

func (f *fakeBackend) NetworkStatus(ctx context.Context) (*apiclient.NetworkInfo, error) {
	f.statusCalls.Add(1)
	return f.NetworkStatusFn(ctx)
}

func (f *fakeBackend) Features(ctx context.Context) (apiclient.FeatureMap, error) {
	f.featureCalls.Add(1)
	return f.FeaturesFn(ctx)
}

func (f *fakeBackend) CheckAccess(ctx context.Context, feature string) (*apiclient.FeatureAccess, error) {
	return f.CheckAccessFn(ctx, feature)
}

func internalBackend() *fakeBackend {
	return &fakeBackend{
		NetworkStatusFn: func(ctx context.Context) (*apiclient.NetworkInfo, error) {
			return &apiclient.NetworkInfo{ClientIP: "10.0.0.5", IsInternal: true, NetworkType: "internal"}, nil
		},
		FeaturesFn: func(ctx context.Context) (apiclient.FeatureMap, error) {
			return apiclient.FeatureMap{"face_attendance": true}, nil
		},
	}
}

func TestMonitor_SnapshotUnknownUntilRefresh(t *testing.T) {
	api := internalBackend()
	m := NewMonitor(api, time.Minute, time.Hour, zap.NewNop())

	snap := m.Snapshot("10.0.0.5")
	assert.False(t, snap.Known())
	assert.Equal(t, "unknown", snap.NetworkType())
	assert.Equal(t, int32(0), api.statusCalls.Load())

	snap, err := m.Refresh(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.True(t, snap.Known())
	assert.True(t, snap.Internal())
	assert.True(t, snap.Features.Enabled("face_attendance"))
	assert.Equal(t, snap, m.Snapshot("10.0.0.5"))
}

func TestMonitor_ForwardsClientIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "203.0.113.7", r.Header.Get("X-Forwarded-For"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/network/status":
			_, _ = w.Write([]byte(`{"success":true,"data":{"client_ip":"203.0.113.7","is_internal":false,"network_type":"external"}}`))
		case "/api/network/features":
			_, _ = w.Write([]byte(`{"success":true,"data":{"features":{"face_attendance":false,"leave_requests":true}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m := NewMonitor(apiclient.New(srv.URL, time.Second, nil), time.Minute, time.Hour, nil)
	snap, err := m.Refresh(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "external", snap.NetworkType())
	assert.False(t, snap.Features.Enabled("face_attendance"))
	assert.True(t, snap.Features.Enabled("leave_requests"))
}

func TestMonitor_BatchFailureKeepsPrevious(t *testing.T) {
	api := internalBackend()
	m := NewMonitor(api, time.Minute, time.Hour, nil)
	_, err := m.Refresh(context.Background(), "10.0.0.5")
	require.NoError(t, err)

	api.FeaturesFn = func(ctx context.Context) (apiclient.FeatureMap, error) {
		return nil, errors.New("features down")
	}
	api.NetworkStatusFn = func(ctx context.Context) (*apiclient.NetworkInfo, error) {
		return &apiclient.NetworkInfo{NetworkType: "external"}, nil
	}

	snap, err := m.Refresh(context.Background(), "10.0.0.5")
	require.Error(t, err)
	assert.Equal(t, "internal", snap.NetworkType())
	assert.Equal(t, "features down", snap.Err)
	assert.True(t, snap.Features.Enabled("face_attendance"))
}

func TestMonitor_CoalescesConcurrentRefreshes(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	api := internalBackend()
	api.NetworkStatusFn = func(ctx context.Context) (*apiclient.NetworkInfo, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return &apiclient.NetworkInfo{IsInternal: true, NetworkType: "internal"}, nil
	}
	m := NewMonitor(api, time.Minute, time.Hour, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.Refresh(context.Background(), "10.0.0.5")
	}()
	<-entered

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Refresh(context.Background(), "10.0.0.5")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, api.statusCalls.Load(), int32(2))
	assert.True(t, m.Snapshot("10.0.0.5").Known())
}

func TestMonitor_EvictedClientResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := internalBackend()
	api.NetworkStatusFn = func(ctx context.Context) (*apiclient.NetworkInfo, error) {
		close(entered)
		<-release
		return &apiclient.NetworkInfo{IsInternal: true}, nil
	}
	m := NewMonitor(api, time.Minute, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		_, _ = m.Refresh(context.Background(), "10.0.0.9")
		close(done)
	}()
	<-entered

	m.mu.Lock()
	delete(m.clients, "10.0.0.9")
	m.gens.Forget("10.0.0.9")
	m.mu.Unlock()

	close(release)
	<-done
	assert.Equal(t, 0, m.Tracked())
}

func TestMonitor_TickEvictsIdleAndPollsRest(t *testing.T) {
	api := internalBackend()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewMonitor(api, time.Minute, 10*time.Minute, nil)
	m.now = func() time.Time { return now }

	m.Snapshot("10.0.0.1")
	now = now.Add(9 * time.Minute)
	m.Snapshot("10.0.0.2")
	now = now.Add(2 * time.Minute)

	m.tick(context.Background())

	assert.Equal(t, 1, m.Tracked())
	assert.True(t, m.Snapshot("10.0.0.2").Known())
	assert.Equal(t, int32(1), api.statusCalls.Load())
	assert.Equal(t, int32(1), api.featureCalls.Load())
}

func TestMonitor_StartStop(t *testing.T) {
	api := internalBackend()
	m := NewMonitor(api, 5*time.Millisecond, time.Hour, nil)
	m.Snapshot("10.0.0.5")

	m.Start(context.Background())
	m.Start(context.Background())
	require.Eventually(t, func() bool {
		return m.Snapshot("10.0.0.5").Known()
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	calls := api.statusCalls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, api.statusCalls.Load())
}

func TestMonitor_CheckFeatureAccessIsLive(t *testing.T) {
	var calls int
	api := internalBackend()
	api.CheckAccessFn = func(ctx context.Context, feature string) (*apiclient.FeatureAccess, error) {
		calls++
		return &apiclient.FeatureAccess{Feature: feature, HasAccess: true, NetworkType: "internal", UserRole: "user"}, nil
	}
	m := NewMonitor(api, time.Minute, time.Hour, nil)

	for i := 0; i < 2; i++ {
		res, err := m.CheckFeatureAccess(context.Background(), "face_attendance")
		require.NoError(t, err)
		assert.True(t, res.HasAccess)
	}
	assert.Equal(t, 2, calls)
}

func TestMonitor_CheckFeatureAccessFailureDenies(t *testing.T) {
	api := internalBackend()
	api.CheckAccessFn = func(ctx context.Context, feature string) (*apiclient.FeatureAccess, error) {
		return nil, errors.New("timeout")
	}
	m := NewMonitor(api, time.Minute, time.Hour, nil)

	res, err := m.CheckFeatureAccess(context.Background(), "face_attendance")
	assert.Error(t, err)
	assert.False(t, res.HasAccess)
	assert.Equal(t, "face_attendance", res.Feature)
}
