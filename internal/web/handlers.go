// Package web serves the portal's pages and JSON endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/auth"
	"attendance-portal/internal/config"
	"attendance-portal/internal/latest"
	"attendance-portal/internal/network"
	"attendance-portal/internal/session"
)

// Backend is every attendance API operation the pages use.
type Backend interface {
	auth.Backend

	CheckIn(ctx context.Context, image []byte, filename, employeeID string) (*apiclient.CheckInResult, error)
	History(ctx context.Context, q apiclient.HistoryQuery) (*apiclient.HistoryPage, error)
	TodayStatus(ctx context.Context, userID int64) (*apiclient.TodayStatus, error)

	SubmitLeave(ctx context.Context, s apiclient.LeaveSubmission) error
	LeaveRequests(ctx context.Context, status string) ([]apiclient.LeaveRequest, error)
	ApproveLeave(ctx context.Context, id int64) error
	RejectLeave(ctx context.Context, id int64, reason string) error
	CancelLeave(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]apiclient.ManagedUser, error)
	CreateUser(ctx context.Context, in apiclient.UserInput) error
	UpdateUser(ctx context.Context, id int64, in apiclient.UserInput) error
	DeleteUser(ctx context.Context, id int64) error
	SystemStats(ctx context.Context) (*apiclient.SystemStats, error)

	Chat(ctx context.Context, message string) (*apiclient.ChatReply, error)
	EnrollFace(ctx context.Context, userID int64, image []byte, filename string) (*apiclient.EnrollResult, error)
}

// historyIdle is how long a session's live-filter sequence outlives its last
// fetch.
const historyIdle = 15 * time.Minute

// HealthFunc reports the state of the portal's own dependencies.
type HealthFunc func(ctx context.Context) map[string]bool

type Deps struct {
	Config   config.App
	API      Backend
	Auth     *auth.Manager
	Network  *network.Monitor
	Sessions *session.Manager
	Health   HealthFunc
	Logger   *zap.Logger
}

type Handlers struct {
	cfg      config.App
	api      Backend
	auth     *auth.Manager
	network  *network.Monitor
	sessions *session.Manager
	health   HealthFunc
	logger   *zap.Logger

	// history fetches per session; a superseded fetch is not served
	history *latest.Tracker
	now     func() time.Time
}

func New(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	health := d.Health
	if health == nil {
		health = func(context.Context) map[string]bool { return map[string]bool{} }
	}
	return &Handlers{
		cfg:      d.Config,
		api:      d.API,
		auth:     d.Auth,
		network:  d.Network,
		sessions: d.Sessions,
		health:   health,
		logger:   logger.Named("web"),
		history:  latest.NewExpiringTracker(historyIdle),
		now:      time.Now,
	}
}

// fail handles a failed action: an expired session goes to the login page,
// anything else returns to back with the error as a toast.
func (h *Handlers) fail(c *gin.Context, err error, fallback, back string) {
	_ = c.Error(err)
	if session.EndIfUnauthenticated(c, err) {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	h.logger.Debug("action failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	session.Flash(c, session.ToastError, apperror.Message(err, fallback))
	c.Redirect(http.StatusSeeOther, back)
}

// loadFailed reports a failed page load. It redirects to the login page and
// returns true when the session has expired; otherwise it queues the error
// toast for the page about to render.
func (h *Handlers) loadFailed(c *gin.Context, err error, fallback string) bool {
	_ = c.Error(err)
	if session.EndIfUnauthenticated(c, err) {
		c.Redirect(http.StatusFound, "/login")
		return true
	}
	h.logger.Debug("page load failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	session.Flash(c, session.ToastError, apperror.Message(err, fallback))
	return false
}

// done saves the session and sends the browser back with a success toast.
func (h *Handlers) done(c *gin.Context, message, to string) {
	if message != "" {
		session.Flash(c, session.ToastSuccess, message)
	}
	_ = session.Save(c)
	c.Redirect(http.StatusSeeOther, to)
}

func (h *Handlers) jsonError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)
	c.JSON(apperror.Status(err), gin.H{"success": false, "error": apperror.Message(err, fallback)})
}
