package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/apperror"
	"attendance-portal/internal/checkin"
	"attendance-portal/internal/session"
)

const maxUploadBytes = 8 << 20

var errEmployeeID = apperror.RequiredField("Employee ID")

// flowPage is one mounting of the check-in flow: the signed-in page or the
// public kiosk.
type flowPage struct {
	base   string
	title  string
	public bool
	pick   func(d *session.Data) *checkin.Flow
}

var (
	memberFlow = flowPage{
		base:  "/checkin",
		title: "Face Check-In",
		pick:  func(d *session.Data) *checkin.Flow { return &d.CheckIn },
	}
	kioskFlow = flowPage{
		base:   "/public-checkin",
		title:  "Attendance Check-In",
		public: true,
		pick:   func(d *session.Data) *checkin.Flow { return &d.Kiosk },
	}
)

func (h *Handlers) mountFlow(g gin.IRoutes, p flowPage) {
	g.GET(p.base, h.flowShow(p))
	g.POST(p.base+"/capture", h.flowCapture(p))
	g.POST(p.base+"/retake", h.flowRetake(p))
	g.POST(p.base+"/confirm", h.flowConfirm(p))
	g.POST(p.base+"/next", h.flowNext(p))
}

// flow returns the page's flow, first releasing a submission that has been
// pending for longer than a backend call can take.
func (h *Handlers) flow(c *gin.Context, p flowPage) *checkin.Flow {
	f := p.pick(session.From(c))
	if f.Abandon(h.now(), h.cfg.BackendTimeout) {
		h.logger.Warn("abandoned stale check-in", zap.Bool("public", p.public))
		_ = session.Save(c)
	}
	return f
}

func (h *Handlers) flowShow(p flowPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := h.flow(c, p)
		h.render(c, http.StatusOK, "checkin.html", gin.H{
			"Title":   p.title,
			"Base":    p.base,
			"Public":  p.public,
			"Flow":    f,
			"State":   string(f.Current()),
			"Preview": f.Preview(),
		})
	}
}

// readFrame takes the captured still from either the webcam data URL field or
// a file upload and normalises it.
func (h *Handlers) readFrame(c *gin.Context) ([]byte, error) {
	if s := c.PostForm("frame"); s != "" {
		raw, err := checkin.DecodeDataURL(s)
		if err != nil {
			return nil, err
		}
		return checkin.Normalize(raw, h.cfg.FrameMaxWidth)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, checkin.ErrEmptyFrame
	}
	file, err := fh.Open()
	if err != nil {
		return nil, checkin.ErrInvalidFrame
	}
	defer file.Close()
	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, checkin.ErrInvalidFrame
	}
	return checkin.Normalize(raw, h.cfg.FrameMaxWidth)
}

func (h *Handlers) flowCapture(p flowPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := h.flow(c, p)
		frame, err := h.readFrame(c)
		if err != nil {
			h.fail(c, err, "Please capture an image first", p.base)
			return
		}
		if err := f.Capture(frame); err != nil {
			h.fail(c, err, "Please capture an image first", p.base)
			return
		}
		if p.public {
			f.EmployeeID = strings.TrimSpace(c.PostForm("employee_id"))
		}
		h.done(c, "", p.base)
	}
}

func (h *Handlers) flowRetake(p flowPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := h.flow(c, p)
		if err := f.Retake(); err != nil {
			h.fail(c, err, "", p.base)
			return
		}
		h.done(c, "", p.base)
	}
}

// flowConfirm submits the captured frame. The processing state is saved
// before the backend call so a reload in the meantime shows it.
func (h *Handlers) flowConfirm(p flowPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := h.flow(c, p)
		if p.public {
			if id := strings.TrimSpace(c.PostForm("employee_id")); id != "" {
				f.EmployeeID = id
			}
			if f.EmployeeID == "" {
				h.fail(c, errEmployeeID, "Please enter your Employee ID", p.base)
				return
			}
		}
		err := f.Confirm(session.APIContext(c), h.api, func() { _ = session.Save(c) })
		if err != nil {
			_ = session.Save(c)
			h.logger.Info("check-in rejected", zap.Bool("public", p.public), zap.Error(err))
			h.fail(c, err, "Failed to process attendance", p.base)
			return
		}
		msg := "Attendance recorded successfully!"
		if f.Result.CheckedOut() {
			msg = "Check-out recorded successfully!"
		}
		h.done(c, msg, p.base)
	}
}

func (h *Handlers) flowNext(p flowPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.pick(session.From(c)).Reset()
		h.done(c, "", p.base)
	}
}
