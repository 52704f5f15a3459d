package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/session"
)

type fakeBackend struct {
	LoginFn  func(ctx context.Context, username, password string) (*apiclient.LoginResult, error)
	VerifyFn func(ctx context.Context) (*apiclient.VerifyResult, error)
	LogoutFn func(ctx context.Context) error
}

func (f *fakeBackend) Login(ctx context.Context, u, p string) (*apiclient.LoginResult, error) {
	return f.LoginFn(ctx, u, p)
}

func (f *fakeBackend) Verify(ctx context.Context) (*apiclient.VerifyResult, error) {
	return f.VerifyFn(ctx)
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	if f.LogoutFn == nil {
		return nil
	}
	return f.LogoutFn(ctx)
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": 1, "exp": exp.Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-key"))
	require.NoError(t, err)
	return tok
}

func signedIn(token string, verifiedAt time.Time) *session.Data {
	d := &session.Data{ID: "s1"}
	d.SignIn(token, apiclient.User{ID: 1, Username: "ana", Role: "user"}, verifiedAt)
	return d
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired(signToken(t, now.Add(time.Hour)), now))
	assert.True(t, Expired(signToken(t, now.Add(-time.Minute)), now))
	assert.False(t, Expired("opaque-token", now))

	exp, ok := ExpiresAt(signToken(t, time.Unix(2000000000, 0)))
	require.True(t, ok)
	assert.Equal(t, int64(2000000000), exp.Unix())
}

func TestManager_Login(t *testing.T) {
	api := &fakeBackend{LoginFn: func(ctx context.Context, u, p string) (*apiclient.LoginResult, error) {
		assert.Equal(t, "ana", u)
		return &apiclient.LoginResult{Token: "tok", User: apiclient.User{ID: 1, Username: "ana", Role: "admin"}}, nil
	}}
	m := NewManager(api, time.Minute, zap.NewNop())
	d := &session.Data{ID: "s1"}

	_, err := m.Login(context.Background(), d, " ana ", "pw")
	require.NoError(t, err)
	assert.True(t, d.Authenticated())
	assert.True(t, d.IsAdmin())
	assert.False(t, d.VerifiedAt.IsZero())
}

func TestManager_LoginFailureStaysAnonymous(t *testing.T) {
	api := &fakeBackend{LoginFn: func(ctx context.Context, u, p string) (*apiclient.LoginResult, error) {
		return nil, apperror.ErrInvalidCredentials
	}}
	m := NewManager(api, time.Minute, nil)
	d := &session.Data{ID: "s1"}

	_, err := m.Login(context.Background(), d, "ana", "bad")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	assert.False(t, d.Authenticated())

	_, err = m.Login(context.Background(), d, "", "pw")
	assert.Equal(t, "Username is required", apperror.Message(err, ""))
}

func TestManager_Logout(t *testing.T) {
	called := false
	api := &fakeBackend{LogoutFn: func(ctx context.Context) error {
		called = true
		return errors.New("backend down")
	}}
	m := NewManager(api, time.Minute, nil)
	d := signedIn("tok", time.Now())

	m.Logout(context.Background(), d)
	assert.True(t, called)
	assert.False(t, d.Authenticated())
}

func TestManager_Restore(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	valid := signToken(t, now.Add(time.Hour))

	tests := []struct {
		name       string
		data       *session.Data
		verify     func(ctx context.Context) (*apiclient.VerifyResult, error)
		changed    bool
		authed     bool
		verifyCall bool
	}{
		{
			name:    "anonymous untouched",
			data:    &session.Data{},
			changed: false,
			authed:  false,
		},
		{
			name:    "expired token signs out without a call",
			data:    signedIn(signToken(t, now.Add(-time.Second)), now),
			changed: true,
			authed:  false,
		},
		{
			name:   "recently verified skips call",
			data:   signedIn(valid, now.Add(-10*time.Second)),
			authed: true,
		},
		{
			name: "401 signs out",
			data: signedIn(valid, now.Add(-time.Hour)),
			verify: func(ctx context.Context) (*apiclient.VerifyResult, error) {
				return nil, apperror.FromStatus(http.StatusUnauthorized, "Token revoked")
			},
			changed:    true,
			authed:     false,
			verifyCall: true,
		},
		{
			name: "transient failure keeps session",
			data: signedIn(valid, now.Add(-time.Hour)),
			verify: func(ctx context.Context) (*apiclient.VerifyResult, error) {
				return nil, apperror.ErrUnavailable
			},
			changed:    false,
			authed:     true,
			verifyCall: true,
		},
		{
			name: "success refreshes role",
			data: signedIn(valid, now.Add(-time.Hour)),
			verify: func(ctx context.Context) (*apiclient.VerifyResult, error) {
				return &apiclient.VerifyResult{UserID: 1, Username: "ana", Role: "admin"}, nil
			},
			changed:    true,
			authed:     true,
			verifyCall: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			api := &fakeBackend{VerifyFn: func(ctx context.Context) (*apiclient.VerifyResult, error) {
				called = true
				return tt.verify(ctx)
			}}
			m := NewManager(api, time.Minute, nil)
			m.now = func() time.Time { return now }

			assert.Equal(t, tt.changed, m.Restore(context.Background(), tt.data))
			assert.Equal(t, tt.authed, tt.data.Authenticated())
			assert.Equal(t, tt.verifyCall, called)
		})
	}
}

func TestManager_RestoreRefreshesRole(t *testing.T) {
	api := &fakeBackend{VerifyFn: func(ctx context.Context) (*apiclient.VerifyResult, error) {
		return &apiclient.VerifyResult{Role: "admin"}, nil
	}}
	m := NewManager(api, 0, nil)
	d := signedIn("opaque", time.Now())
	require.True(t, m.Restore(context.Background(), d))
	assert.True(t, d.IsAdmin())
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/attendance?page=2", SafeNext("/attendance?page=2", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("https://evil.example/", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("//evil.example", "/dashboard"))
	assert.Equal(t, "/dashboard", SafeNext("/\\evil.example", "/dashboard"))
}

func withSession(d *session.Data) gin.HandlerFunc {
	return func(c *gin.Context) {
		*session.From(c) = *d
		c.Next()
	}
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("anonymous page redirects to login", func(t *testing.T) {
		r := gin.New()
		r.GET("/attendance", withSession(&session.Data{}), RequireAuth(), func(c *gin.Context) {
			t.Fatal("protected handler must not run")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance?page=2", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Fattendance%3Fpage%3D2", w.Header().Get("Location"))
	})

	t.Run("anonymous api gets 401", func(t *testing.T) {
		r := gin.New()
		r.GET("/api/network", withSession(&session.Data{}), RequireAuth(), func(c *gin.Context) {
			t.Fatal("protected handler must not run")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/network", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("authenticated passes", func(t *testing.T) {
		r := gin.New()
		r.GET("/attendance", withSession(signedIn("tok", time.Now())), RequireAuth(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deny := func(c *gin.Context) { c.String(http.StatusForbidden, "Access Denied") }

	r := gin.New()
	r.GET("/admin", withSession(signedIn("tok", time.Now())), RequireRole("admin", deny), func(c *gin.Context) {
		t.Fatal("admin handler must not run")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access Denied", w.Body.String())

	admin := signedIn("tok", time.Now())
	admin.User.Role = "admin"
	r2 := gin.New()
	r2.GET("/admin", withSession(admin), RequireRole("admin", deny), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
