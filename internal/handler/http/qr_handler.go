package http

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/simplesagar/dub/internal/qr"
	"github.com/simplesagar/dub/pkg/validator"
)

var qrLevels = []string{"L", "M", "Q", "H"}

// QRCode handles GET /api/qr?url=...&size=&fgColor=&bgColor=&level=
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	const op = "qrCode"
	q := r.URL.Query()

	var verrs validator.Errors

	target, err := validator.NormalizeURL(q.Get("url"))
	switch {
	case errors.Is(err, validator.ErrEmptyURL):
		verrs = append(verrs, &validator.FieldError{
			Field:   "url",
			Code:    validator.CodeMissingRequiredField,
			Message: "url is required",
		})
	case err != nil:
		verrs = append(verrs, &validator.FieldError{
			Field:   "url",
			Code:    validator.CodeInvalidURL,
			Message: err.Error(),
			Value:   q.Get("url"),
		})
	}

	size := 0
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			verrs = append(verrs, &validator.FieldError{
				Field:   "size",
				Code:    validator.CodeInvalidType,
				Message: "size must be a non-negative integer",
				Value:   raw,
			})
		}
		size = n
	}

	level := strings.ToUpper(q.Get("level"))
	if level != "" && !slices.Contains(qrLevels, level) {
		verrs = append(verrs, &validator.FieldError{
			Field:   "level",
			Code:    validator.CodeInvalidEnumValue,
			Message: "level must be one of: L, M, Q, H",
			Value:   level,
			Allowed: qrLevels,
		})
	}

	if len(verrs) > 0 {
		respondValidation(w, op, verrs)
		return
	}

	png, err := qr.PNG(qr.Options{
		Content: target,
		Size:    size,
		FgColor: q.Get("fgColor"),
		BgColor: q.Get("bgColor"),
		Level:   level,
	})
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to render QR code", "error", err)
		respondError(w, http.StatusInternalServerError, CodeInternal, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
