// Package guard gates pages behind a feature flag, deciding from the shared
// network snapshot on every request.
package guard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/network"
	"attendance-portal/internal/session"
)

const (
	FaceAttendance = "face_attendance"
	FaceEnrollment = "face_enrollment"
	LeaveRequests  = "leave_requests"
	AdminPanel     = "admin_panel"
	UserManagement = "user_management"
)

// adminOnly features are granted by role, whatever the feature map says.
var adminOnly = map[string]bool{
	FaceEnrollment: true,
	AdminPanel:     true,
	UserManagement: true,
}

const (
	msgExternalFace = "Face attendance is blocked from external networks for security reasons."
	msgDenied       = "You don't have permission to access this feature."
)

type Decision int

const (
	Loading Decision = iota
	Granted
	Denied
)

// Result is the outcome of a guard evaluation, with what the denial panel
// shows.
type Result struct {
	Decision    Decision
	Feature     string
	NetworkType string
	Role        string
	Message     string
}

// Evaluate decides access to feature for a user with role, given the client's
// snapshot. Admin-only features need the admin role; others need the feature
// map entry to be true, a missing entry counting as denied. Without a known
// snapshot the answer is Loading.
func Evaluate(feature string, snap network.Snapshot, role string) Result {
	res := Result{Feature: feature, NetworkType: snap.NetworkType(), Role: role}
	if res.Role == "" {
		res.Role = "guest"
	}

	if adminOnly[feature] {
		if role == apiclient.RoleAdmin {
			res.Decision = Granted
			return res
		}
		res.Decision = Denied
		res.Message = msgDenied
		return res
	}

	if !snap.Known() {
		res.Decision = Loading
		return res
	}
	if snap.Features.Enabled(feature) {
		res.Decision = Granted
		return res
	}
	res.Decision = Denied
	res.Message = msgDenied
	if feature == FaceAttendance && !snap.Internal() {
		res.Message = msgExternalFace
	}
	return res
}

// Source provides network snapshots by client address.
type Source interface {
	Snapshot(ip string) network.Snapshot
	Refresh(ctx context.Context, ip string) (network.Snapshot, error)
}

// Renderer draws the loading and denial pages.
type Renderer interface {
	Loading(c *gin.Context, feature string)
	Denied(c *gin.Context, res Result)
}

// Require gates the route behind feature. When the snapshot is still unknown
// a synchronous refresh is attempted before falling back to the loading page.
// A denied request runs fallback when given, otherwise the denial panel.
func Require(src Source, feature string, r Renderer, fallback gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ""
		if d := session.From(c); d.Authenticated() {
			role = d.User.Role
		}

		ip := c.ClientIP()
		snap := src.Snapshot(ip)
		if !snap.Known() && !adminOnly[feature] {
			snap, _ = src.Refresh(c.Request.Context(), ip)
		}

		res := Evaluate(feature, snap, role)
		switch res.Decision {
		case Granted:
			c.Set(resultKey, res)
			c.Next()
		case Loading:
			r.Loading(c, feature)
			c.Abort()
		default:
			if fallback != nil {
				fallback(c)
			} else {
				r.Denied(c, res)
			}
			c.Abort()
		}
	}
}

const resultKey = "guard.result"

// FromContext returns the grant recorded by Require, if any.
func FromContext(c *gin.Context) (Result, bool) {
	v, ok := c.Get(resultKey)
	if !ok {
		return Result{}, false
	}
	res, ok := v.(Result)
	return res, ok
}

// JSONRenderer answers guard outcomes as JSON, for API routes.
type JSONRenderer struct{}

func (JSONRenderer) Loading(c *gin.Context, feature string) {
	c.JSON(http.StatusAccepted, gin.H{"success": false, "feature": feature, "message": "Checking network access"})
}

func (JSONRenderer) Denied(c *gin.Context, res Result) {
	c.JSON(http.StatusForbidden, gin.H{
		"success":      false,
		"error":        res.Message,
		"feature":      res.Feature,
		"network_type": res.NetworkType,
		"user_role":    res.Role,
	})
}
