package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/attendance"
	"attendance-portal/internal/pagination"
	"attendance-portal/internal/session"
)

const exportPageSize = 100

// nextQuery derives the query for this request from the session's previous
// one. Without filter parameters the previous filters stay; a filter change
// lands on page 1. Invalid filters are reported and the previous query kept.
func (h *Handlers) nextQuery(c *gin.Context, d *session.Data) (attendance.Query, error) {
	prev := attendance.DefaultQuery(h.now(), h.cfg.HistoryPageSize)
	if d.HistoryQuery != nil {
		prev = *d.HistoryQuery
	}
	if prev.Limit < 1 {
		prev.Limit = h.cfg.HistoryPageSize
	}

	f := prev.Filters
	if hasAnyQuery(c, "start_date", "end_date", "search") {
		f = attendance.Filters{}
		if err := c.ShouldBindQuery(&f); err != nil {
			return prev, apperror.ErrInvalidInput
		}
	}
	if err := f.Normalize().Validate(); err != nil {
		return prev, err
	}

	page := prev.Page
	if v, ok := c.GetQuery("page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	return prev.Apply(f, page), nil
}

func hasAnyQuery(c *gin.Context, keys ...string) bool {
	for _, k := range keys {
		if _, ok := c.GetQuery(k); ok {
			return true
		}
	}
	return false
}

// fetchHistory loads q, stepping back to the last page when q points past it.
func (h *Handlers) fetchHistory(c *gin.Context, q attendance.Query) (attendance.Query, *apiclient.HistoryPage, error) {
	ctx := session.APIContext(c)
	res, err := h.api.History(ctx, q.API())
	if err != nil {
		return q, nil, err
	}
	pager := pagination.New(q.Page, q.Limit, res.Total, res.TotalPages)
	if last := pager.Clamp(q.Page); last != q.Page {
		q.Page = last
		if res, err = h.api.History(ctx, q.API()); err != nil {
			return q, nil, err
		}
	}
	return q, res, nil
}

func (h *Handlers) attendancePage(c *gin.Context) {
	d := session.From(c)
	q, err := h.nextQuery(c, d)
	if err != nil {
		session.Flash(c, session.ToastError, apperror.Message(err, "Invalid filters"))
	}

	q, res, err := h.fetchHistory(c, q)
	if err != nil {
		if h.loadFailed(c, err, "Failed to load attendance history") {
			return
		}
		res = &apiclient.HistoryPage{}
	}
	d.HistoryQuery = &q
	_ = session.Save(c)

	pager := pagination.New(q.Page, q.Limit, res.Total, res.TotalPages)
	from, to := pager.Range()
	h.render(c, http.StatusOK, "attendance.html", gin.H{
		"Title": "Attendance History",
		"Query": q,
		"Rows":  attendance.Rows(res.Records),
		"Pager": pager,
		"From":  from,
		"To":    to,
	})
}

// attendanceRecords is the JSON variant used by the page's live filter. Each
// fetch is tagged; one overtaken by a newer fetch from the same session
// answers 204 instead of stale rows.
func (h *Handlers) attendanceRecords(c *gin.Context) {
	d := session.From(c)
	q, err := h.nextQuery(c, d)
	if err != nil {
		h.jsonError(c, err, "Invalid filters")
		return
	}

	seq := h.history.Begin(d.ID)
	q, res, err := h.fetchHistory(c, q)
	if !h.history.IsLatest(d.ID, seq) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		h.jsonError(c, err, "Failed to load attendance history")
		return
	}
	d.HistoryQuery = &q
	_ = session.Save(c)

	pager := pagination.New(q.Page, q.Limit, res.Total, res.TotalPages)
	from, to := pager.Range()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seq":     seq,
		"records": attendance.Rows(res.Records),
		"query":   q,
		"pagination": gin.H{
			"page":          pager.Page,
			"limit":         pager.Limit,
			"total":         pager.Total,
			"total_pages":   pager.TotalPages(),
			"prev_disabled": pager.PrevDisabled(),
			"next_disabled": pager.NextDisabled(),
			"prev":          pager.Prev(),
			"next":          pager.Next(),
			"from":          from,
			"to":            to,
		},
	})
}

// exportAttendance writes every record matching the session's current
// filters as an Excel workbook.
func (h *Handlers) exportAttendance(c *gin.Context) {
	d := session.From(c)
	q := attendance.DefaultQuery(h.now(), exportPageSize)
	if d.HistoryQuery != nil {
		q.Filters = d.HistoryQuery.Filters
	}
	q.Limit = exportPageSize

	maxPages := h.cfg.ExportMaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	ctx := session.APIContext(c)
	var recs []apiclient.Record
	truncated := false
	for q.Page = 1; ; q.Page++ {
		res, err := h.api.History(ctx, q.API())
		if err != nil {
			h.fail(c, err, "Export failed", "/attendance")
			return
		}
		recs = append(recs, res.Records...)
		pager := pagination.New(q.Page, q.Limit, res.Total, res.TotalPages)
		if pager.NextDisabled() || len(res.Records) == 0 {
			break
		}
		if q.Page >= maxPages {
			truncated = true
			break
		}
	}
	if truncated {
		h.logger.Warn("attendance export truncated", zap.Int("records", len(recs)))
		session.Flash(c, session.ToastInfo, fmt.Sprintf("Export limited to the first %d records. Narrow the filters to export the rest.", len(recs)))
		c.Header("X-Export-Truncated", "true")
	}

	c.Header("Content-Disposition", `attachment; filename="`+attendance.ExportFilename(q.Filters)+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := attendance.ExportXLSX(c.Writer, attendance.Rows(recs)); err != nil {
		h.logger.Error("attendance export failed", zap.Error(err))
	}
}
