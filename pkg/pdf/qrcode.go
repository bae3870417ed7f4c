package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// qrRenderScale is the number of PNG pixels rendered per point of QR size.
const qrRenderScale = 4

func qrPixels(size float64) int {
	px := int(size * qrRenderScale)
	if px < 64 {
		px = 64
	}
	return px
}

// EncodeQRCode encodes content as a QR code scaled to px×px.
func EncodeQRCode(content string, px int) (barcode.Barcode, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	scaled, err := barcode.Scale(code, px, px)
	if err != nil {
		return nil, fmt.Errorf("failed to scale QR code: %w", err)
	}
	return scaled, nil
}

// renderQRCode returns an 8-bit grayscale PNG. The barcode image is 16-bit,
// which gofpdf refuses to embed.
func renderQRCode(content string, px int) ([]byte, error) {
	code, err := EncodeQRCode(content, px)
	if err != nil {
		return nil, err
	}

	bounds := code.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, code, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("failed to encode QR image: %w", err)
	}
	return buf.Bytes(), nil
}
