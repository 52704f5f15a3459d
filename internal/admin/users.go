// Package admin holds the user-management list filter and forms.
package admin

import (
	"net/http"
	"strings"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
)

// Roles offered by the user form.
var Roles = []string{apiclient.RoleUser, apiclient.RoleAdmin}

// Filter selects users in the admin list. Role "" or "all" matches any role.
type Filter struct {
	Search string `form:"q"`
	Role   string `form:"role"`
}

// Match is a case-insensitive substring test on full name, username and
// email, combined with an exact role test.
func (f Filter) Match(u apiclient.ManagedUser) bool {
	if f.Role != "" && f.Role != "all" && u.Role != f.Role {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{u.FullName, u.Username, u.Email} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// FilterUsers returns the users matching f, preserving order.
func FilterUsers(users []apiclient.ManagedUser, f Filter) []apiclient.ManagedUser {
	out := make([]apiclient.ManagedUser, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

// FindUser returns the user with id, if listed.
func FindUser(users []apiclient.ManagedUser, id int64) (apiclient.ManagedUser, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return apiclient.ManagedUser{}, false
}

// UserForm backs both the create and the edit page. Username is ignored on
// edit; Password is never pre-filled and only sent when non-empty.
type UserForm struct {
	Username string `form:"username"`
	FullName string `form:"full_name" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Role     string `form:"role" binding:"required,oneof=user admin"`
	Password string `form:"password"`
}

// FormFor pre-fills the edit form from an existing user.
func FormFor(u apiclient.ManagedUser) UserForm {
	return UserForm{
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// ToCreate builds the create payload; username and password are required.
func (f UserForm) ToCreate() (apiclient.UserInput, error) {
	username := strings.TrimSpace(f.Username)
	if username == "" {
		return apiclient.UserInput{}, apperror.RequiredField("Username")
	}
	if f.Password == "" {
		return apiclient.UserInput{}, apperror.RequiredField("Password")
	}
	return apiclient.UserInput{
		Username: username,
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Role:     f.Role,
		Password: f.Password,
	}, nil
}

// ToUpdate builds the update payload. Username is dropped so it cannot change.
func (f UserForm) ToUpdate() apiclient.UserInput {
	return apiclient.UserInput{
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Role:     f.Role,
		Password: f.Password,
	}
}

// RoleCounts tallies users per role for the panel header.
func RoleCounts(users []apiclient.ManagedUser) map[string]int {
	counts := make(map[string]int, len(Roles))
	for _, u := range users {
		counts[u.Role]++
	}
	return counts
}

var ErrSelfDelete = apperror.New(apperror.CodeForbidden, "You cannot delete your own account", http.StatusForbidden)
