// Package qr renders short links as QR code PNGs.
package qr

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Size bounds, in pixels.
const (
	DefaultSize = 600
	MinSize     = 64
	MaxSize     = 2048
)

var ErrEmptyContent = errors.New("qr content cannot be empty")

// Options controls rendering. Colours are "#rrggbb"; invalid or empty
// colours fall back to black on white.
type Options struct {
	Content string
	Size    int
	FgColor string
	BgColor string
	// Level is the error correction level: "L", "M", "Q" or "H".
	Level string
}

// PNG encodes opts.Content as a QR code PNG. Size is clamped to
// [MinSize, MaxSize]; zero means DefaultSize.
func PNG(opts Options) ([]byte, error) {
	if strings.TrimSpace(opts.Content) == "" {
		return nil, ErrEmptyContent
	}

	code, err := qrcode.New(opts.Content, recoveryLevel(opts.Level))
	if err != nil {
		return nil, err
	}
	code.ForegroundColor = parseHexColor(opts.FgColor, color.Black)
	code.BackgroundColor = parseHexColor(opts.BgColor, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, code.Image(clampSize(opts.Size))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

func recoveryLevel(level string) qrcode.RecoveryLevel {
	switch strings.ToUpper(level) {
	case "M":
		return qrcode.Medium
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Low
	}
}

func parseHexColor(s string, fallback color.Color) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return fallback
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexNibble(s[2*i])
		lo, ok2 := hexNibble(s[2*i+1])
		if !ok1 || !ok2 {
			return fallback
		}
		rgb[i] = hi<<4 | lo
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
