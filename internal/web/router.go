package web

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/auth"
	"attendance-portal/internal/guard"
	"attendance-portal/internal/httpmiddleware"
	"attendance-portal/internal/metrics"
	"attendance-portal/internal/session"
)

// NewRouter wires middleware and routes. The cookie store carries the session
// id and toasts; everything else lives in the session store.
func NewRouter(h *Handlers, cookies sessions.Store) (*gin.Engine, error) {
	tpl, err := Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	if len(h.cfg.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(h.cfg.TrustedProxies); err != nil {
			return nil, err
		}
	} else if err := r.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tpl)

	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(h.logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.StaticFS("/static", StaticFS())

	app := r.Group("/")
	app.Use(sessions.Sessions(session.CookieName, cookies))
	app.Use(h.sessions.Middleware())
	app.Use(auth.Restore(h.auth))

	limiter := httpmiddleware.NewIPRateLimiter(h.cfg.RateLimitPerMin)
	// a kiosk serves a whole office from one address
	kioskLimiter := httpmiddleware.NewIPRateLimiter(4 * h.cfg.RateLimitPerMin)

	app.GET("/", h.home)
	app.POST("/start-checkin", h.startCheckIn)
	app.GET("/login", h.loginPage)
	app.POST("/login", limiter.Limit(h.loginLimited), h.login)
	app.POST("/logout", h.logout)

	kiosk := app.Group("")
	kiosk.Use(kioskLimiter.Limit(nil))
	h.mountFlow(kiosk, kioskFlow)

	api := app.Group("/api")
	api.GET("/network", h.networkStatus)
	api.GET("/access/:feature", h.featureAccess)

	member := app.Group("")
	member.Use(auth.RequireAuth())
	member.GET("/dashboard", h.dashboard)
	member.GET("/attendance", h.attendancePage)
	member.GET("/attendance/records", h.attendanceRecords)
	member.GET("/attendance/export.xlsx", h.exportAttendance)
	member.GET("/chat", h.chatPage)
	member.POST("/chat", h.chatAsk)
	member.POST("/chat/reset", h.chatReset)

	checkins := member.Group("")
	checkins.Use(guard.Require(h.network, guard.FaceAttendance, h, nil))
	h.mountFlow(checkins, memberFlow)

	leaves := member.Group("/leave")
	leaves.Use(guard.Require(h.network, guard.LeaveRequests, h, nil))
	leaves.GET("", h.leavePage)
	leaves.POST("", h.submitLeave)
	leaves.POST("/:id/cancel", h.cancelLeave)

	admins := member.Group("")
	admins.Use(auth.RequireRole(apiclient.RoleAdmin, h.forbidden))

	enroll := admins.Group("/enroll")
	enroll.Use(guard.Require(h.network, guard.FaceEnrollment, h, nil))
	enroll.GET("", h.enrollPage)
	enroll.POST("", h.enroll)

	panel := admins.Group("/admin")
	panel.Use(guard.Require(h.network, guard.AdminPanel, h, nil))
	panel.GET("", h.adminHome)
	panel.GET("/leave", h.adminLeave)
	panel.POST("/leave/:id/approve", h.approveLeave)
	panel.POST("/leave/:id/reject", h.rejectLeave)

	users := panel.Group("/users")
	users.Use(guard.Require(h.network, guard.UserManagement, h, nil))
	users.GET("", h.users)
	users.GET("/new", h.newUser)
	users.POST("", h.createUser)
	users.GET("/:id/edit", h.editUser)
	users.POST("/:id", h.updateUser)
	users.GET("/:id/delete", h.confirmDelete)
	users.POST("/:id/delete", h.deleteUser)

	r.NoRoute(sessions.Sessions(session.CookieName, cookies), h.sessions.Middleware(), h.notFound)
	return r, nil
}

func (h *Handlers) allowedOrigins() []string {
	if len(h.cfg.AllowedOrigins) > 0 {
		return h.cfg.AllowedOrigins
	}
	return []string{"http://localhost:" + h.cfg.HTTPPort}
}

func (h *Handlers) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found.html", gin.H{"Title": "Page not found"})
}
