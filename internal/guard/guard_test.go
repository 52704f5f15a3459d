package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/network"
	"attendance-portal/internal/session"
)

func snapshot(internal bool, features apiclient.FeatureMap) network.Snapshot {
	typ := "external"
	if internal {
		typ = "internal"
	}
	return network.Snapshot{
		Info:     &apiclient.NetworkInfo{IsInternal: internal, NetworkType: typ},
		Features: features,
	}
}

func TestEvaluate(t *testing.T) {
	internal := snapshot(true, apiclient.FeatureMap{"face_attendance": true, "leave_requests": true, "admin_panel": false})
	external := snapshot(false, apiclient.FeatureMap{"face_attendance": false, "leave_requests": true})

	tests := []struct {
		name     string
		feature  string
		snap     network.Snapshot
		role     string
		decision Decision
		message  string
	}{
		{"unknown snapshot loads", "face_attendance", network.Snapshot{}, "user", Loading, ""},
		{"enabled flag grants", "face_attendance", internal, "user", Granted, ""},
		{"external face attendance", "face_attendance", external, "user", Denied, msgExternalFace},
		{"missing flag denies", "attendance_history", internal, "user", Denied, msgDenied},
		{"admin-only by role", "admin_panel", internal, "admin", Granted, ""},
		{"admin-only ignores flag for user", "admin_panel", internal, "user", Denied, msgDenied},
		{"admin-only without snapshot", "face_enrollment", network.Snapshot{}, "admin", Granted, ""},
		{"leave on external", "leave_requests", external, "user", Granted, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.feature, tt.snap, tt.role)
			assert.Equal(t, tt.decision, res.Decision)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestEvaluate_DenialShowsContext(t *testing.T) {
	res := Evaluate("face_attendance", snapshot(false, nil), "")
	assert.Equal(t, "external", res.NetworkType)
	assert.Equal(t, "guest", res.Role)
}

type fakeSource struct {
	snap       network.Snapshot
	refreshed  network.Snapshot
	refreshErr error
	refreshes  int
}

func (f *fakeSource) Snapshot(ip string) network.Snapshot { return f.snap }

func (f *fakeSource) Refresh(ctx context.Context, ip string) (network.Snapshot, error) {
	f.refreshes++
	return f.refreshed, f.refreshErr
}

type recordingRenderer struct {
	loading bool
	denied  *Result
}

func (r *recordingRenderer) Loading(c *gin.Context, feature string) {
	r.loading = true
	c.Status(http.StatusAccepted)
}

func (r *recordingRenderer) Denied(c *gin.Context, res Result) {
	r.denied = &res
	c.Status(http.StatusForbidden)
}

func serve(src Source, rr Renderer, fallback gin.HandlerFunc, d *session.Data) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/checkin", func(c *gin.Context) {
		*session.From(c) = *d
		c.Next()
	}, Require(src, FaceAttendance, rr, fallback), func(c *gin.Context) {
		c.String(http.StatusOK, "camera")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/checkin", nil))
	return w
}

func user(role string) *session.Data {
	d := &session.Data{}
	d.SignIn("tok", apiclient.User{ID: 1, Role: role}, time.Now())
	return d
}

func TestRequire_Granted(t *testing.T) {
	src := &fakeSource{snap: snapshot(true, apiclient.FeatureMap{"face_attendance": true})}
	w := serve(src, &recordingRenderer{}, nil, user("user"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camera", w.Body.String())
	assert.Equal(t, 0, src.refreshes)
}

func TestRequire_UnknownRefreshesThenLoads(t *testing.T) {
	src := &fakeSource{refreshErr: errors.New("backend down")}
	rr := &recordingRenderer{}
	w := serve(src, rr, nil, user("user"))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, rr.loading)
	assert.Equal(t, 1, src.refreshes)
}

func TestRequire_UnknownRefreshGrants(t *testing.T) {
	src := &fakeSource{refreshed: snapshot(true, apiclient.FeatureMap{"face_attendance": true})}
	w := serve(src, &recordingRenderer{}, nil, user("user"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequire_DeniedPanel(t *testing.T) {
	src := &fakeSource{snap: snapshot(false, apiclient.FeatureMap{"face_attendance": false})}
	rr := &recordingRenderer{}
	w := serve(src, rr, nil, user("user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	if assert.NotNil(t, rr.denied) {
		assert.Equal(t, msgExternalFace, rr.denied.Message)
		assert.Equal(t, "user", rr.denied.Role)
	}
}

func TestRequire_DeniedFallback(t *testing.T) {
	src := &fakeSource{snap: snapshot(false, apiclient.FeatureMap{})}
	rr := &recordingRenderer{}
	w := serve(src, rr, func(c *gin.Context) {
		c.String(http.StatusOK, "use the kiosk on site")
	}, user("user"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "use the kiosk on site", w.Body.String())
	assert.Nil(t, rr.denied)
}

func TestRequire_ReevaluatesEachRequest(t *testing.T) {
	src := &fakeSource{snap: snapshot(true, apiclient.FeatureMap{"face_attendance": true})}
	assert.Equal(t, http.StatusOK, serve(src, &recordingRenderer{}, nil, user("user")).Code)

	src.snap = snapshot(false, apiclient.FeatureMap{"face_attendance": false})
	assert.Equal(t, http.StatusForbidden, serve(src, &recordingRenderer{}, nil, user("user")).Code)
}
