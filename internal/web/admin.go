package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/admin"
	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/leave"
	"attendance-portal/internal/session"
)

func (h *Handlers) adminHome(c *gin.Context) {
	stats, err := h.api.SystemStats(session.APIContext(c))
	if err != nil {
		if h.loadFailed(c, err, "Failed to load system statistics") {
			return
		}
		stats = &apiclient.SystemStats{}
	}
	h.render(c, http.StatusOK, "admin.html", gin.H{"Title": "Admin Dashboard", "Stats": stats})
}

func (h *Handlers) users(c *gin.Context) {
	var f admin.Filter
	_ = c.ShouldBindQuery(&f)
	all, err := h.api.ListUsers(session.APIContext(c))
	if err != nil && h.loadFailed(c, err, "Failed to load users") {
		return
	}
	h.render(c, http.StatusOK, "users.html", gin.H{
		"Title":  "User Management",
		"Users":  admin.FilterUsers(all, f),
		"Total":  len(all),
		"Counts": admin.RoleCounts(all),
		"Filter": f,
		"Roles":  admin.Roles,
	})
}

func (h *Handlers) userForm(c *gin.Context, status int, form admin.UserForm, id int64) {
	title := "Add New User"
	if id > 0 {
		title = "Edit User"
	}
	h.render(c, status, "user_form.html", gin.H{
		"Title": title,
		"Form":  form,
		"ID":    id,
		"Roles": admin.Roles,
	})
}

func (h *Handlers) newUser(c *gin.Context) {
	h.userForm(c, http.StatusOK, admin.UserForm{Role: apiclient.RoleUser}, 0)
}

func (h *Handlers) createUser(c *gin.Context) {
	var form admin.UserForm
	if err := c.ShouldBind(&form); err != nil {
		h.formFailed(c, form, 0, apperror.MapValidationError(err))
		return
	}
	in, err := form.ToCreate()
	if err != nil {
		h.formFailed(c, form, 0, err)
		return
	}
	if err := h.api.CreateUser(session.APIContext(c), in); err != nil {
		if session.EndIfUnauthenticated(c, err) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		h.formFailed(c, form, 0, err)
		return
	}
	h.logger.Info("user created", zap.String("username", in.Username), zap.String("by", session.From(c).User.Username))
	h.done(c, "User created successfully", "/admin/users")
}

// loadUser finds the user named by the :id parameter in a fresh list.
func (h *Handlers) loadUser(c *gin.Context) (apiclient.ManagedUser, bool) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/admin/users")
		return apiclient.ManagedUser{}, false
	}
	all, err := h.api.ListUsers(session.APIContext(c))
	if err != nil {
		h.fail(c, err, "Failed to load users", "/admin/users")
		return apiclient.ManagedUser{}, false
	}
	u, found := admin.FindUser(all, id)
	if !found {
		h.fail(c, apperror.ErrNotFound, "", "/admin/users")
		return apiclient.ManagedUser{}, false
	}
	return u, true
}

func (h *Handlers) editUser(c *gin.Context) {
	u, ok := h.loadUser(c)
	if !ok {
		return
	}
	h.userForm(c, http.StatusOK, admin.FormFor(u), u.ID)
}

func (h *Handlers) updateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/admin/users")
		return
	}
	var form admin.UserForm
	if err := c.ShouldBind(&form); err != nil {
		h.formFailed(c, form, id, apperror.MapValidationError(err))
		return
	}
	if err := h.api.UpdateUser(session.APIContext(c), id, form.ToUpdate()); err != nil {
		if session.EndIfUnauthenticated(c, err) {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		h.formFailed(c, form, id, err)
		return
	}
	h.done(c, "User updated successfully", "/admin/users")
}

// formFailed re-renders the user form with what was typed, minus the password.
func (h *Handlers) formFailed(c *gin.Context, form admin.UserForm, id int64, err error) {
	_ = c.Error(err)
	session.Flash(c, session.ToastError, apperror.Message(err, "Failed to save user"))
	form.Password = ""
	status := apperror.Status(err)
	if status < 400 || status >= 500 {
		status = http.StatusUnprocessableEntity
	}
	h.userForm(c, status, form, id)
}

// confirmDelete asks before deleting; its cancel link goes back to the list
// without contacting the backend.
func (h *Handlers) confirmDelete(c *gin.Context) {
	u, ok := h.loadUser(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "user_delete.html", gin.H{"Title": "Delete User", "Target": u})
}

func (h *Handlers) deleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/admin/users")
		return
	}
	if me := session.From(c).User; me != nil && me.ID == id {
		h.fail(c, admin.ErrSelfDelete, "", "/admin/users")
		return
	}
	if err := h.api.DeleteUser(session.APIContext(c), id); err != nil {
		h.fail(c, err, "Failed to delete user", "/admin/users")
		return
	}
	h.done(c, "User deleted successfully", "/admin/users")
}

func (h *Handlers) adminLeave(c *gin.Context) {
	status := c.DefaultQuery("status", apiclient.LeavePending)
	reqs, err := h.api.LeaveRequests(session.APIContext(c), "")
	if err != nil && h.loadFailed(c, err, "Failed to load leave requests") {
		return
	}
	items := leave.Items(reqs)
	h.render(c, http.StatusOK, "admin_leave.html", gin.H{
		"Title":    "Leave Management",
		"Items":    leave.FilterStatus(items, status),
		"Status":   status,
		"Pending":  leave.CountPending(items),
		"Statuses": []string{apiclient.LeavePending, apiclient.LeaveApproved, apiclient.LeaveRejected, "all"},
	})
}

func (h *Handlers) approveLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/admin/leave")
		return
	}
	if err := h.api.ApproveLeave(session.APIContext(c), id); err != nil {
		h.fail(c, err, "Failed to approve leave request", "/admin/leave")
		return
	}
	h.done(c, "Leave request approved", "/admin/leave")
}

func (h *Handlers) rejectLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/admin/leave")
		return
	}
	reason := strings.TrimSpace(c.PostForm("reason"))
	if err := h.api.RejectLeave(session.APIContext(c), id, reason); err != nil {
		h.fail(c, err, "Failed to reject leave request", "/admin/leave")
		return
	}
	h.done(c, "Leave request rejected", "/admin/leave")
}

func (h *Handlers) enrollPage(c *gin.Context) {
	all, err := h.api.ListUsers(session.APIContext(c))
	if err != nil && h.loadFailed(c, err, "Failed to load users") {
		return
	}
	h.render(c, http.StatusOK, "enroll.html", gin.H{"Title": "Face Enrollment", "Users": all})
}

func (h *Handlers) enroll(c *gin.Context) {
	userID, err := strconv.ParseInt(c.PostForm("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		h.fail(c, apperror.RequiredField("User"), "", "/enroll")
		return
	}
	frame, err := h.readFrame(c)
	if err != nil {
		h.fail(c, err, "Please capture an image first", "/enroll")
		return
	}
	res, err := h.api.EnrollFace(session.APIContext(c), userID, frame, "face.jpg")
	if err != nil {
		h.fail(c, err, "Face enrollment failed", "/enroll")
		return
	}
	msg := res.Message
	if msg == "" {
		msg = "Face enrolled successfully"
	}
	h.done(c, msg, "/enroll")
}
