package checkin

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"attendance-portal/internal/apperror"
)

const (
	jpegQuality = 90

	// MaxFrameSide bounds either side of a decoded frame.
	MaxFrameSide = 4096
)

var (
	ErrEmptyFrame    = apperror.New(apperror.CodeInvalidInput, "No image was captured", http.StatusBadRequest)
	ErrInvalidFrame  = apperror.New(apperror.CodeInvalidInput, "The captured image could not be read", http.StatusBadRequest)
	ErrFrameTooLarge = apperror.New(apperror.CodeInvalidInput, "The captured image is too large", http.StatusRequestEntityTooLarge)
)

// DecodeDataURL extracts the bytes of a base64 data URL such as the one
// produced by canvas.toDataURL.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyFrame
	}
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrInvalidFrame
	}
	meta, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidFrame
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperror.Wrap(err, ErrInvalidFrame.Code, ErrInvalidFrame.Message, ErrInvalidFrame.HTTPStatus)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	return data, nil
}

// Normalize decodes a JPEG, PNG or WebP frame, scales it down to at most
// maxWidth pixels wide and re-encodes it as JPEG. Frames with a side over
// MaxFrameSide are refused before any pixels are decoded.
func Normalize(data []byte, maxWidth int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(err, ErrInvalidFrame.Code, ErrInvalidFrame.Message, ErrInvalidFrame.HTTPStatus)
	}
	if cfg.Width > MaxFrameSide || cfg.Height > MaxFrameSide {
		return nil, ErrFrameTooLarge
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(err, ErrInvalidFrame.Code, ErrInvalidFrame.Message, ErrInvalidFrame.HTTPStatus)
	}

	img := src
	b := src.Bounds()
	if maxWidth > 0 && b.Dx() > maxWidth {
		h := b.Dy() * maxWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "Could not prepare the image", http.StatusInternalServerError)
	}
	return buf.Bytes(), nil
}
