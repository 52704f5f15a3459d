package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/apperror"
	"attendance-portal/internal/session"
)

// Restore re-validates the session token before handlers run.
func Restore(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := session.From(c)
		if m.Restore(session.APIContext(c), d) {
			_ = session.Save(c)
		}
		c.Next()
	}
}

// WantsJSON reports whether the request is an API call rather than a page.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// RequireAuth stops anonymous requests before any protected content renders:
// pages redirect to /login?next=<path>, API calls get 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.From(c).Authenticated() {
			c.Next()
			return
		}
		if WantsJSON(c) {
			e := apperror.ErrUnauthenticated
			c.AbortWithStatusJSON(e.HTTPStatus, gin.H{"success": false, "error": e.Message, "code": e.Code})
			return
		}
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// RequireRole lets through only users holding role. Others are handed to
// deny, which renders the refusal; API calls get a 403 JSON body.
func RequireRole(role string, deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := session.From(c)
		if d.Authenticated() && d.User.Role == role {
			c.Next()
			return
		}
		if WantsJSON(c) || deny == nil {
			e := apperror.ErrForbidden
			c.AbortWithStatusJSON(e.HTTPStatus, gin.H{"success": false, "error": e.Message, "code": e.Code})
			return
		}
		deny(c)
		c.Abort()
	}
}
