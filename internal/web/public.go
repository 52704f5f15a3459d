package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/apperror"
	"attendance-portal/internal/auth"
	"attendance-portal/internal/session"
)

func (h *Handlers) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", gin.H{"Title": "Face Attendance"})
}

// startCheckIn classifies the client with a fresh network round trip: an
// internal client goes straight to the kiosk, an external one to login.
func (h *Handlers) startCheckIn(c *gin.Context) {
	ip := c.ClientIP()
	snap, err := h.network.Refresh(c.Request.Context(), ip)
	if err != nil || !snap.Known() {
		session.Flash(c, session.ToastError, "Unable to verify network status. Please try again.")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	shown := snap.Info.ClientIP
	if shown == "" {
		shown = ip
	}
	if snap.Internal() {
		session.Flash(c, session.ToastSuccess, fmt.Sprintf("Internal network detected (%s). Redirecting to attendance check-in...", shown))
		c.Redirect(http.StatusSeeOther, "/public-checkin")
		return
	}
	session.Flash(c, session.ToastError, fmt.Sprintf("External network detected (%s). Redirecting to login for other features.", shown))
	c.Redirect(http.StatusSeeOther, "/login")
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func (h *Handlers) loginPage(c *gin.Context) {
	next := auth.SafeNext(c.Query("next"), "/dashboard")
	if session.From(c).Authenticated() {
		c.Redirect(http.StatusFound, next)
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Sign in", "Next": next})
}

func (h *Handlers) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.loginFailed(c, form, apperror.MapValidationError(err))
		return
	}
	d := session.From(c)
	res, err := h.auth.Login(session.APIContext(c), d, form.Username, form.Password)
	if err != nil {
		h.loginFailed(c, form, err)
		return
	}
	if err := h.renew(c); err != nil {
		h.loginFailed(c, form, apperror.ErrInternal)
		return
	}
	if err := session.Save(c); err != nil {
		h.loginFailed(c, form, apperror.ErrInternal)
		return
	}
	name := res.User.FullName
	if name == "" {
		name = res.User.Username
	}
	session.Flash(c, session.ToastSuccess, "Welcome back, "+name+"!")
	c.Redirect(http.StatusSeeOther, auth.SafeNext(form.Next, "/dashboard"))
}

func (h *Handlers) loginFailed(c *gin.Context, form loginForm, err error) {
	_ = c.Error(err)
	h.logger.Info("login failed", zap.String("username", form.Username), zap.Error(err))
	session.Flash(c, session.ToastError, apperror.Message(err, "Login failed"))
	h.render(c, apperror.Status(err), "login.html", gin.H{
		"Title":    "Sign in",
		"Next":     auth.SafeNext(form.Next, "/dashboard"),
		"Username": form.Username,
	})
}

// loginLimited answers a throttled login attempt.
func (h *Handlers) loginLimited(c *gin.Context) {
	session.Flash(c, session.ToastError, "Too many login attempts, please wait a minute")
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handlers) logout(c *gin.Context) {
	d := session.From(c)
	h.auth.Logout(session.APIContext(c), d)
	if err := h.renew(c); err != nil {
		h.logger.Warn("renew session on logout failed", zap.Error(err))
	}
	_ = session.Save(c)
	session.Flash(c, session.ToastSuccess, "You have been signed out")
	c.Redirect(http.StatusSeeOther, "/")
}

// renew gives the session a new id and drops per-session state kept under the
// old one.
func (h *Handlers) renew(c *gin.Context) error {
	old, err := session.Renew(c)
	if old != "" {
		h.history.Forget(old)
	}
	return err
}
