// Package auth moves a session between anonymous and authenticated and guards
// routes that need a signed-in user or a role.
package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/metrics"
	"attendance-portal/internal/session"
)

// Backend is the part of the API client that issues and checks tokens.
type Backend interface {
	Login(ctx context.Context, username, password string) (*apiclient.LoginResult, error)
	Verify(ctx context.Context) (*apiclient.VerifyResult, error)
	Logout(ctx context.Context) error
}

type Manager struct {
	api         Backend
	verifyEvery time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewManager(api Backend, verifyEvery time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, verifyEvery: verifyEvery, logger: logger.Named("auth"), now: time.Now}
}

// Login authenticates and stores the token and user in d.
func (m *Manager) Login(ctx context.Context, d *session.Data, username, password string) (*apiclient.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.RequiredField("Username")
	}
	if password == "" {
		return nil, apperror.RequiredField("Password")
	}
	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	d.SignOut()
	d.SignIn(res.Token, res.User, m.now())
	m.logger.Info("user signed in", zap.String("username", res.User.Username), zap.String("role", res.User.Role))
	return res, nil
}

// Logout notifies the backend (best effort) and clears d.
func (m *Manager) Logout(ctx context.Context, d *session.Data) {
	if d.Token != "" {
		if err := m.api.Logout(apiclient.WithToken(ctx, d.Token)); err != nil {
			m.logger.Debug("backend logout failed", zap.Error(err))
		}
	}
	if d.Authenticated() {
		metrics.Logout("user")
	}
	d.SignOut()
}

// Restore re-validates a stored token: a locally expired token or a 401 from
// verify signs the session out; other verify failures keep it. It reports
// whether d changed and should be saved.
func (m *Manager) Restore(ctx context.Context, d *session.Data) bool {
	if !d.Authenticated() {
		return false
	}
	now := m.now()
	if Expired(d.Token, now) {
		d.SignOut()
		metrics.Logout("expired")
		return true
	}
	if m.verifyEvery > 0 && !d.VerifiedAt.IsZero() && now.Sub(d.VerifiedAt) < m.verifyEvery {
		return false
	}

	res, err := m.api.Verify(apiclient.WithToken(ctx, d.Token))
	if err != nil {
		if apperror.IsUnauthenticated(err) {
			d.SignOut()
			metrics.Logout("unauthenticated")
			return true
		}
		m.logger.Warn("token verify failed, keeping session", zap.Error(err))
		return false
	}
	d.VerifiedAt = now
	if res.Role != "" {
		d.User.Role = res.Role
	}
	if res.Username != "" {
		d.User.Username = res.Username
	}
	return true
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
