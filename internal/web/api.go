package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/session"
)

// networkStatus returns the cached snapshot for the caller, refreshing it
// first when nothing is known yet.
func (h *Handlers) networkStatus(c *gin.Context) {
	ip := c.ClientIP()
	snap := h.network.Snapshot(ip)
	if !snap.Known() {
		snap, _ = h.network.Refresh(c.Request.Context(), ip)
	}
	c.JSON(http.StatusOK, gin.H{"success": snap.Known(), "data": snap})
}

// featureAccess always asks the backend.
func (h *Handlers) featureAccess(c *gin.Context) {
	feature := c.Param("feature")
	res, err := h.network.CheckFeatureAccess(session.APIContext(c), feature)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusOK, gin.H{"success": false, "data": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func (h *Handlers) healthz(c *gin.Context) {
	deps := h.health(c.Request.Context())
	status := http.StatusOK
	for _, ok := range deps {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body := gin.H{"status": "ok", "tracked_clients": h.network.Tracked()}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	for name, ok := range deps {
		body[name] = ok
	}
	c.JSON(status, body)
}
