package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendance-portal/internal/apperror"
	"attendance-portal/internal/chat"
	"attendance-portal/internal/dashboard"
	"attendance-portal/internal/leave"
	"attendance-portal/internal/session"
)

func (h *Handlers) dashboard(c *gin.Context) {
	d := session.From(c)
	view, err := dashboard.Load(session.APIContext(c), h.api, d.User.ID)
	if err != nil {
		if h.loadFailed(c, err, "Failed to load dashboard data") {
			return
		}
		view = &dashboard.View{}
	}
	h.render(c, http.StatusOK, "dashboard.html", gin.H{"Title": "Dashboard", "View": view})
}

func (h *Handlers) leavePage(c *gin.Context) {
	reqs, err := h.api.LeaveRequests(session.APIContext(c), "")
	if err != nil && h.loadFailed(c, err, "Failed to load leave requests") {
		return
	}
	items := leave.Items(reqs)
	h.render(c, http.StatusOK, "leave.html", gin.H{
		"Title":   "Leave Requests",
		"Items":   items,
		"Pending": leave.CountPending(items),
		"Types":   leave.Types,
		"Form":    leave.Form{Type: leave.Types[0].Value},
	})
}

func (h *Handlers) submitLeave(c *gin.Context) {
	var form leave.Form
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, apperror.MapValidationError(err), "", "/leave")
		return
	}
	sub, err := form.Submission()
	if err != nil {
		h.fail(c, err, "", "/leave")
		return
	}
	if err := h.api.SubmitLeave(session.APIContext(c), sub); err != nil {
		h.fail(c, err, "Failed to submit leave request", "/leave")
		return
	}
	h.done(c, "Leave request submitted successfully!", "/leave")
}

func (h *Handlers) cancelLeave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.fail(c, apperror.ErrNotFound, "", "/leave")
		return
	}
	if err := h.api.CancelLeave(session.APIContext(c), id); err != nil {
		h.fail(c, err, "Failed to cancel leave request", "/leave")
		return
	}
	h.done(c, "Leave request cancelled", "/leave")
}

func (h *Handlers) chatPage(c *gin.Context) {
	d := session.From(c)
	if len(d.Chat.Messages) == 0 {
		d.Chat = chat.Start(h.now())
		_ = session.Save(c)
	}
	h.render(c, http.StatusOK, "chat.html", gin.H{
		"Title":       "AI Assistant",
		"Messages":    d.Chat.Messages,
		"Suggestions": suggestionsFor(d.Chat),
	})
}

func suggestionsFor(conv chat.Conversation) []string {
	if conv.Fresh() {
		return chat.Suggestions
	}
	return nil
}

func (h *Handlers) chatAsk(c *gin.Context) {
	d := session.From(c)
	err := d.Chat.Ask(session.APIContext(c), h.api, c.PostForm("message"), h.now)
	if err != nil {
		// the apology is part of the conversation, keep it
		_ = session.Save(c)
		h.fail(c, err, "Failed to get response from AI assistant", "/chat")
		return
	}
	h.done(c, "", "/chat")
}

func (h *Handlers) chatReset(c *gin.Context) {
	session.From(c).Chat = chat.Start(h.now())
	h.done(c, "", "/chat")
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
