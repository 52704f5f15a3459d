package session

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/metrics"
)

const (
	CookieName = "portal_session"

	sidKey     = "sid"
	contextKey = "portal.session"
)

const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// Toast is a one-shot notification carried in the cookie to the next page.
type Toast struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Toast{})
}

// CookieStore returns the signed cookie store that carries the session id
// and pending toasts.
func CookieStore(secret string, ttl time.Duration, secure bool) sessions.Store {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Manager loads session data for each request and persists it on demand.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, ttl: ttl, logger: logger.Named("session"), now: time.Now}
}

// Middleware must run after sessions.Sessions. It attaches the request's Data
// and, once handlers finish, ends the session if any of them recorded an
// unauthenticated backend error.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		data := m.load(c)
		c.Set(contextKey, data)
		c.Set(managerKey, m)

		c.Next()

		if !data.Authenticated() {
			return
		}
		for _, e := range c.Errors {
			if apperror.IsUnauthenticated(e.Err) {
				data.SignOut()
				metrics.Logout("unauthenticated")
				m.save(c.Request.Context(), data)
				return
			}
		}
	}
}

const managerKey = "portal.session.manager"

func (m *Manager) load(c *gin.Context) *Data {
	cs := sessions.Default(c)
	sid, _ := cs.Get(sidKey).(string)
	if sid != "" {
		data, err := m.store.Load(c.Request.Context(), sid)
		if err == nil {
			data.ID = sid
			return data
		}
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("load session failed", zap.String("sid", sid), zap.Error(err))
		}
		return &Data{ID: sid, CreatedAt: m.now()}
	}

	sid = uuid.NewString()
	cs.Set(sidKey, sid)
	if err := cs.Save(); err != nil {
		m.logger.Warn("write session cookie failed", zap.Error(err))
	}
	return &Data{ID: sid, CreatedAt: m.now()}
}

func (m *Manager) save(ctx context.Context, d *Data) error {
	d.UpdatedAt = m.now()
	if err := m.store.Save(ctx, d, m.ttl); err != nil {
		m.logger.Error("save session failed", zap.String("sid", d.ID), zap.Error(err))
		return err
	}
	return nil
}

// From returns the request's session data. Without the middleware it returns
// an empty, anonymous Data.
func From(c *gin.Context) *Data {
	if v, ok := c.Get(contextKey); ok {
		if d, ok := v.(*Data); ok {
			return d
		}
	}
	d := &Data{}
	c.Set(contextKey, d)
	return d
}

// Save persists the request's session data.
func Save(c *gin.Context) error {
	v, ok := c.Get(managerKey)
	if !ok {
		return nil
	}
	return v.(*Manager).save(c.Request.Context(), From(c))
}

// Renew moves the request's session to a fresh id and drops the copy stored
// under the old one, which it returns. Call it whenever the session changes
// hands between anonymous and signed in.
func Renew(c *gin.Context) (string, error) {
	d := From(c)
	old := d.ID
	d.ID = uuid.NewString()

	v, ok := c.Get(managerKey)
	if !ok {
		return old, nil
	}
	m := v.(*Manager)
	cs := sessions.Default(c)
	cs.Set(sidKey, d.ID)
	if err := cs.Save(); err != nil {
		return old, err
	}
	if old != "" {
		if err := m.store.Delete(c.Request.Context(), old); err != nil {
			m.logger.Warn("drop renewed session failed", zap.String("sid", old), zap.Error(err))
		}
	}
	return old, nil
}

// APIContext returns the request context carrying the session token and the
// browser's address for backend calls.
func APIContext(c *gin.Context) context.Context {
	ctx := apiclient.WithClientIP(c.Request.Context(), c.ClientIP())
	if d := From(c); d.Token != "" {
		ctx = apiclient.WithToken(ctx, d.Token)
	}
	return ctx
}

// EndIfUnauthenticated signs the session out when err says the backend no
// longer accepts its token, leaving a toast for the login page. It reports
// whether it did so.
func EndIfUnauthenticated(c *gin.Context, err error) bool {
	if !apperror.IsUnauthenticated(err) {
		return false
	}
	d := From(c)
	if d.Authenticated() {
		d.SignOut()
		metrics.Logout("unauthenticated")
		_ = Save(c)
	}
	Flash(c, ToastError, apperror.ErrUnauthenticated.Message)
	return true
}

// Flash queues a toast for the next rendered page.
func Flash(c *gin.Context, kind, message string) {
	cs := sessions.Default(c)
	cs.AddFlash(Toast{Kind: kind, Message: message})
	_ = cs.Save()
}

// Toasts drains pending toasts. Call it before writing the response body.
func Toasts(c *gin.Context) []Toast {
	cs := sessions.Default(c)
	flashes := cs.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	_ = cs.Save()
	out := make([]Toast, 0, len(flashes))
	for _, f := range flashes {
		if t, ok := f.(Toast); ok {
			out = append(out, t)
		}
	}
	return out
}
