package pdf

// Color is an RGB text color with components in 0..255.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Options configures name placement and the verification QR code.
// All lengths are PDF points.
type Options struct {
	FontSize float64 `json:"font_size"`
	// VerticalOffset moves the name baseline away from the vertical center of the page.
	// Positive values move it up.
	VerticalOffset      float64 `json:"vertical_offset"`
	Color               Color   `json:"color"`
	FontPath            string  `json:"font_path,omitempty"` // TrueType font; Helvetica Bold when empty
	QREnabled           bool    `json:"qr_enabled"`
	QRSize              float64 `json:"qr_size"`
	QRBottomOffset      float64 `json:"qr_bottom_offset"`
	VerificationBaseURL string  `json:"verification_base_url"`
}

// DefaultOptions returns default compositor options
func DefaultOptions() Options {
	return Options{
		FontSize:            60,
		VerticalOffset:      -30,
		Color:               Color{R: 51, G: 51, B: 51},
		QREnabled:           true,
		QRSize:              100,
		QRBottomOffset:      50,
		VerificationBaseURL: "http://localhost:3000",
	}
}

// Point is a position in PDF user space (origin at the bottom-left corner).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the computed placement of everything drawn on the first page.
type Layout struct {
	PageWidth       float64 `json:"page_width"`
	PageHeight      float64 `json:"page_height"`
	TextWidth       float64 `json:"text_width"`
	Name            Point   `json:"name"` // baseline origin
	QR              Point   `json:"qr"`   // lower-left corner
	VerificationURL string  `json:"verification_url,omitempty"`
}

// ComputeLayout places the name centered horizontally with its baseline at
// height/2 + VerticalOffset, and the QR code centered QRBottomOffset above the page bottom.
// Text taller or wider than the page is not clipped.
func ComputeLayout(pageWidth, pageHeight, textWidth float64, options Options) Layout {
	return Layout{
		PageWidth:  pageWidth,
		PageHeight: pageHeight,
		TextWidth:  textWidth,
		Name: Point{
			X: (pageWidth - textWidth) / 2,
			Y: pageHeight/2 + options.VerticalOffset,
		},
		QR: Point{
			X: (pageWidth - options.QRSize) / 2,
			Y: options.QRBottomOffset,
		},
	}
}

// MeasureText returns the rendered width of name with the compositor's font and size.
func (c *Compositor) MeasureText(name string) (float64, error) {
	return measureText(name, c.options, c.font)
}

func measureText(name string, options Options, font []byte) (float64, error) {
	doc := newDocument()
	text, err := selectFont(doc, name, options, font)
	if err != nil {
		return 0, err
	}
	return doc.GetStringWidth(text), nil
}
