// Package network keeps the latest network classification and feature flags
// for every client address the portal is serving, refreshed by one poller.
package network

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/latest"
	"attendance-portal/internal/metrics"
)

const maxParallelPolls = 8

// Backend is the part of the API client that classifies clients.
type Backend interface {
	NetworkStatus(ctx context.Context) (*apiclient.NetworkInfo, error)
	Features(ctx context.Context) (apiclient.FeatureMap, error)
	CheckAccess(ctx context.Context, feature string) (*apiclient.FeatureAccess, error)
}

// Snapshot is the last successfully fetched state for one client address.
// Err holds the most recent refresh failure, if it came after UpdatedAt.
type Snapshot struct {
	ClientIP  string                 `json:"client_ip"`
	Info      *apiclient.NetworkInfo `json:"info,omitempty"`
	Features  apiclient.FeatureMap   `json:"features,omitempty"`
	UpdatedAt time.Time              `json:"updated_at,omitempty"`
	Err       string                 `json:"error,omitempty"`
}

// Known reports whether at least one refresh has succeeded.
func (s Snapshot) Known() bool { return s.Info != nil }

func (s Snapshot) Internal() bool { return s.Info != nil && s.Info.IsInternal }

// NetworkType is "internal", "external" or "unknown".
func (s Snapshot) NetworkType() string {
	if s.Info == nil || s.Info.NetworkType == "" {
		return "unknown"
	}
	return s.Info.NetworkType
}

type client struct {
	snap     Snapshot
	lastSeen time.Time
}

// Monitor polls the backend every interval for each tracked address. An
// address not read for idleTTL stops being polled.
type Monitor struct {
	api      Backend
	interval time.Duration
	idleTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	clients map[string]*client

	group singleflight.Group
	gens  *latest.Tracker

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewMonitor(api Backend, interval, idleTTL time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		api:      api,
		interval: interval,
		idleTTL:  idleTTL,
		logger:   logger.Named("network"),
		now:      time.Now,
		clients:  make(map[string]*client),
		gens:     latest.NewTracker(),
	}
}

// Start launches the poller. Calling it again has no effect.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		ctx, m.cancel = context.WithCancel(ctx)
		m.done = make(chan struct{})
		go m.run(ctx)
	})
}

// Stop halts the poller and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick drops idle addresses and refreshes the rest.
func (m *Monitor) tick(ctx context.Context) {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	ips := make([]string, 0, len(m.clients))
	for ip, c := range m.clients {
		if c.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
			m.gens.Forget(ip)
			continue
		}
		ips = append(ips, ip)
	}
	m.mu.Unlock()
	metrics.TrackedClients(len(ips))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPolls)
	for _, ip := range ips {
		ip := ip
		g.Go(func() error {
			if _, err := m.refresh(gctx, ip); err != nil {
				m.logger.Debug("network refresh failed", zap.String("client_ip", ip), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) track(ip string) *client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[ip]
	if !ok {
		c = &client{snap: Snapshot{ClientIP: ip}}
		m.clients[ip] = c
		metrics.TrackedClients(len(m.clients))
	}
	c.lastSeen = m.now()
	return c
}

// Snapshot returns the cached state for ip and keeps ip under polling. It
// never calls the backend.
func (m *Monitor) Snapshot(ip string) Snapshot {
	m.track(ip)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[ip]; ok {
		return c.snap
	}
	return Snapshot{ClientIP: ip}
}

// Refresh fetches status and features for ip now. Concurrent refreshes of the
// same address share one backend round trip.
func (m *Monitor) Refresh(ctx context.Context, ip string) (Snapshot, error) {
	m.track(ip)
	return m.refresh(ctx, ip)
}

func (m *Monitor) refresh(ctx context.Context, ip string) (Snapshot, error) {
	v, err, _ := m.group.Do(ip, func() (any, error) {
		return m.fetch(context.WithoutCancel(ctx), ip)
	})
	snap, _ := v.(Snapshot)
	return snap, err
}

// fetch loads status and features as one batch: if either fails, neither is
// applied. A result is applied only if no newer refresh began meanwhile and
// the address is still tracked.
func (m *Monitor) fetch(ctx context.Context, ip string) (Snapshot, error) {
	gen := m.gens.Begin(ip)
	ctx = apiclient.WithClientIP(ctx, ip)

	var (
		info     *apiclient.NetworkInfo
		features apiclient.FeatureMap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = m.api.NetworkStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		features, err = m.api.Features(gctx)
		return err
	})
	err := g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[ip]
	if !ok || !m.gens.IsLatest(ip, gen) {
		metrics.PollResult("stale")
		if ok {
			return c.snap, err
		}
		return Snapshot{ClientIP: ip}, err
	}
	if err != nil {
		metrics.PollResult("error")
		c.snap.Err = err.Error()
		return c.snap, err
	}
	metrics.PollResult("ok")
	c.snap = Snapshot{
		ClientIP:  ip,
		Info:      info,
		Features:  features,
		UpdatedAt: m.now(),
	}
	return c.snap, nil
}

// Tracked returns the number of addresses under polling.
func (m *Monitor) Tracked() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CheckFeatureAccess asks the backend directly, bypassing the cache. Any
// failure yields HasAccess=false together with the error.
func (m *Monitor) CheckFeatureAccess(ctx context.Context, feature string) (apiclient.FeatureAccess, error) {
	res, err := m.api.CheckAccess(ctx, feature)
	if err != nil {
		m.logger.Debug("feature access check failed", zap.String("feature", feature), zap.Error(err))
		return apiclient.FeatureAccess{Feature: feature, NetworkType: "unknown"}, err
	}
	if res == nil {
		return apiclient.FeatureAccess{Feature: feature, NetworkType: "unknown"}, nil
	}
	return *res, nil
}
