package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered image edge in pixels, large enough for
// reliable scanning at pickup counters.
const DefaultSize = 256

var ErrEmptyToken = errors.New("qr: empty redemption token")

// Encode renders a redemption token as a PNG QR image. Encoding is
// deterministic: the same token always produces the same bytes.
func Encode(token string, size int) ([]byte, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if size <= 0 {
		size = DefaultSize
	}
	data, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return data, nil
}

// Decode reads a QR PNG back to the embedded token string.
func Decode(data []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("qr: decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("qr: prepare bitmap: %w", err)
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("qr: decode: %w", err)
	}
	return res.GetText(), nil
}
