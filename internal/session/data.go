// Package session keeps per-browser portal state (token, user, check-in flow,
// chat, history query) server-side, keyed by a signed cookie.
package session

import (
	"time"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/chat"
	"attendance-portal/internal/checkin"
)

// Data is everything the portal remembers about one browser.
type Data struct {
	ID         string          `json:"id"`
	Token      string          `json:"token,omitempty"`
	User       *apiclient.User `json:"user,omitempty"`
	VerifiedAt time.Time       `json:"verified_at,omitempty"`

	CheckIn checkin.Flow `json:"checkin"`
	Kiosk   checkin.Flow `json:"kiosk"`

	Chat         chat.Conversation `json:"chat"`
	HistoryQuery *attendance.Query `json:"history_query,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Authenticated reports whether the session holds a token and a user.
func (d *Data) Authenticated() bool {
	return d != nil && d.Token != "" && d.User != nil
}

// IsAdmin reports whether the signed-in user has the admin role.
func (d *Data) IsAdmin() bool {
	return d.Authenticated() && d.User.IsAdmin()
}

// SignIn stores the credentials returned by a successful login.
func (d *Data) SignIn(token string, user apiclient.User, now time.Time) {
	d.Token = token
	d.User = &user
	d.VerifiedAt = now
}

// SignOut drops the token and everything tied to the signed-in user. The
// public kiosk flow is kept.
func (d *Data) SignOut() {
	d.Token = ""
	d.User = nil
	d.VerifiedAt = time.Time{}
	d.CheckIn = checkin.Flow{}
	d.Chat = chat.Conversation{}
	d.HistoryQuery = nil
}
