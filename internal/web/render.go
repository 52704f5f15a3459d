package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/guard"
	"attendance-portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"clock": func(t *apiclient.Timestamp) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 15:04")
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("Jan 2, 2006 15:04:05")
	},
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	// Frames are server-produced JPEG data URLs.
	"dataURL": func(s string) template.URL { return template.URL(s) },
	"add":     func(a, b int) int { return a + b },
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// StaticFS serves the embedded scripts and stylesheets.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// render draws a full page with the layout's shared data: the signed-in
// user, the client's network snapshot and pending toasts.
func (h *Handlers) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	d := session.From(c)
	data["User"] = d.User
	data["IsAdmin"] = d.IsAdmin()
	data["Path"] = c.Request.URL.Path
	if h.network != nil {
		data["Network"] = h.network.Snapshot(c.ClientIP())
	}
	data["Toasts"] = session.Toasts(c)
	c.HTML(status, name, data)
}

// Loading implements guard.Renderer: the page re-requests itself until the
// network snapshot is known.
func (h *Handlers) Loading(c *gin.Context, feature string) {
	c.Header("Refresh", "2")
	h.render(c, http.StatusAccepted, "loading.html", gin.H{"Title": "Checking access", "Feature": feature})
}

// Denied implements guard.Renderer.
func (h *Handlers) Denied(c *gin.Context, res guard.Result) {
	h.render(c, http.StatusForbidden, "denied.html", gin.H{"Title": "Access Denied", "Result": res})
}

// forbidden is the wrong-role page.
func (h *Handlers) forbidden(c *gin.Context) {
	role := "guest"
	if d := session.From(c); d.Authenticated() {
		role = d.User.Role
	}
	h.render(c, http.StatusForbidden, "denied.html", gin.H{
		"Title": "Access Denied",
		"Result": guard.Result{
			Decision: guard.Denied,
			Role:     role,
			Message:  "You don't have permission to access this page.",
		},
	})
}
