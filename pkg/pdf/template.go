package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SampleOptions describes a placeholder certificate template.
type SampleOptions struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle"`
	Footer      string  `json:"footer"`
	BorderColor Color   `json:"border_color"`
}

// DefaultSampleOptions returns an A4 landscape participation certificate.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		Width:       842,
		Height:      595,
		Title:       "Certificate of Participation",
		Subtitle:    "This is to certify that",
		Footer:      "Has successfully participated in the event.",
		BorderColor: Color{R: 51, G: 102, B: 204},
	}
}

// SampleTemplate renders a single-page template with a background, a border
// and centered headings, leaving the middle of the page free for the name.
func SampleTemplate(options SampleOptions) ([]byte, error) {
	doc := newDocument()
	doc.AddPageFormat("P", gofpdf.SizeType{Wd: options.Width, Ht: options.Height})

	// Background
	doc.SetFillColor(242, 242, 242)
	doc.Rect(0, 0, options.Width, options.Height, "F")

	// Border
	doc.SetDrawColor(options.BorderColor.R, options.BorderColor.G, options.BorderColor.B)
	doc.SetLineWidth(5)
	doc.SetFillColor(255, 255, 255)
	doc.Rect(20, 20, options.Width-40, options.Height-40, "FD")

	doc.SetFont(coreFontFamily, coreFontStyle, 30)
	doc.SetTextColor(options.BorderColor.R, options.BorderColor.G, options.BorderColor.B)
	centerText(doc, options.Width, 150, options.Title)

	doc.SetFont(coreFontFamily, coreFontStyle, 20)
	doc.SetTextColor(77, 77, 77)
	centerText(doc, options.Width, 220, options.Subtitle)

	doc.SetFont(coreFontFamily, coreFontStyle, 15)
	centerText(doc, options.Width, options.Height-150, options.Footer)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render sample template: %w", err)
	}
	return buf.Bytes(), nil
}

func centerText(doc *gofpdf.Fpdf, pageWidth, top float64, text string) {
	if text == "" {
		return
	}
	text = doc.UnicodeTranslatorFromDescriptor("")(text)
	doc.Text((pageWidth-doc.GetStringWidth(text))/2, top, text)
}
