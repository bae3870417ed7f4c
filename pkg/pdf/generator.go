package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrTemplateCorrupt is returned when the template bytes cannot be read as a PDF.
	ErrTemplateCorrupt = errors.New("template is not a readable PDF")
	// ErrFontLoad is returned when the configured font cannot be embedded.
	ErrFontLoad = errors.New("font could not be loaded")
)

// Generator composes a personalized certificate from a template.
type Generator interface {
	Compose(template []byte, name, ticketID string) ([]byte, error)
}

// documentDate pins CreationDate and ModDate so identical inputs produce identical output.
var documentDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	coreFontFamily   = "Helvetica"
	coreFontStyle    = "B"
	customFontFamily = "certificate"
	qrImageName      = "verification-qr"
	pageBox          = "/MediaBox"
)

// Compositor draws attendee names and verification QR codes onto templates.
type Compositor struct {
	options Options
	font    []byte
}

// NewCompositor creates a compositor. A configured font file is read once here.
func NewCompositor(options Options) (*Compositor, error) {
	c := &Compositor{options: options}
	if options.FontPath != "" {
		data, err := os.ReadFile(options.FontPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
		}
		c.font = data
	}
	return c, nil
}

// Options returns the options the compositor was built with.
func (c *Compositor) Options() Options {
	return c.options
}

// Compose renders name and the verification QR code for ticketID onto the first page of template.
func (c *Compositor) Compose(template []byte, name, ticketID string) ([]byte, error) {
	return compose(template, name, ticketID, c.options, c.font)
}

// Compose is the one-shot form of Compositor.Compose.
func Compose(template []byte, name, ticketID string, options Options) ([]byte, error) {
	var font []byte
	if options.FontPath != "" {
		data, err := os.ReadFile(options.FontPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
		}
		font = data
	}
	return compose(template, name, ticketID, options, font)
}

// VerificationURL builds the link encoded in the QR code.
func VerificationURL(baseURL, ticketID string) string {
	return baseURL + "/verify/" + url.PathEscape(ticketID)
}

func compose(template []byte, name, ticketID string, options Options, font []byte) (out []byte, err error) {
	// gofpdi panics on unparseable input instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrTemplateCorrupt, r)
		}
	}()

	if !hasPDFHeader(template) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrTemplateCorrupt)
	}

	doc := newDocument()
	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl := imp.ImportPageFromStream(doc, &rs, 1, pageBox)
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateCorrupt, err)
	}

	width, height, err := firstPageSize(imp.GetPageSizes())
	if err != nil {
		return nil, err
	}

	doc.AddPageFormat("P", gofpdf.SizeType{Wd: width, Ht: height})
	imp.UseImportedTemplate(doc, tpl, 0, 0, width, height)

	text, err := selectFont(doc, name, options, font)
	if err != nil {
		return nil, err
	}

	layout := ComputeLayout(width, height, doc.GetStringWidth(text), options)

	doc.SetTextColor(options.Color.R, options.Color.G, options.Color.B)
	doc.Text(layout.Name.X, toTop(height, layout.Name.Y), text)

	if options.QREnabled {
		layout.VerificationURL = VerificationURL(options.VerificationBaseURL, ticketID)
		png, err := renderQRCode(layout.VerificationURL, qrPixels(options.QRSize))
		if err != nil {
			return nil, err
		}
		imageOptions := gofpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(qrImageName, imageOptions, bytes.NewReader(png))
		doc.ImageOptions(qrImageName,
			layout.QR.X, toTop(height, layout.QR.Y+options.QRSize),
			options.QRSize, options.QRSize,
			false, imageOptions, 0, "")
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to draw certificate: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize certificate: %w", err)
	}
	out, err = canonicalize(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize certificate: %w", err)
	}
	return out, nil
}

func newDocument() *gofpdf.Fpdf {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		SizeStr:        "A4",
	})
	doc.SetCatalogSort(true)
	doc.SetCreationDate(documentDate)
	doc.SetModificationDate(documentDate)
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)
	return doc
}

// selectFont sets the font on doc and returns name encoded for it.
func selectFont(doc *gofpdf.Fpdf, name string, options Options, font []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrFontLoad, r)
		}
	}()

	if len(font) > 0 {
		doc.AddUTF8FontFromBytes(customFontFamily, "", font)
		if err := doc.Error(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFontLoad, err)
		}
		doc.SetFont(customFontFamily, "", options.FontSize)
		if err := doc.Error(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFontLoad, err)
		}
		return name, nil
	}

	doc.SetFont(coreFontFamily, coreFontStyle, options.FontSize)
	if err := doc.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	// The core font only covers cp1252; anything else would be drawn as '.'.
	encoded, err := charmap.Windows1252.NewEncoder().String(name)
	if err != nil {
		return "", fmt.Errorf("%w: name not representable in core font; configure font_path", ErrFontLoad)
	}
	return encoded, nil
}

func firstPageSize(sizes map[int]map[string]map[string]float64) (float64, float64, error) {
	box, ok := sizes[1][pageBox]
	if !ok {
		return 0, 0, fmt.Errorf("%w: first page has no %s", ErrTemplateCorrupt, pageBox)
	}
	width, height := box["w"], box["h"]
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid page size %.2fx%.2f", ErrTemplateCorrupt, width, height)
	}
	return width, height, nil
}

func hasPDFHeader(data []byte) bool {
	// The header may be preceded by junk bytes within the first 1024 bytes.
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	return bytes.Contains(data[:limit], []byte("%PDF-"))
}

// toTop converts a bottom-left y coordinate into gofpdf's top-left system.
func toTop(pageHeight, y float64) float64 {
	return pageHeight - y
}

// Validate reports whether template can be used by the compositor.
func Validate(template []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTemplateCorrupt, r)
		}
	}()

	if !hasPDFHeader(template) {
		return fmt.Errorf("%w: missing %%PDF header", ErrTemplateCorrupt)
	}
	doc := newDocument()
	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	imp.ImportPageFromStream(doc, &rs, 1, pageBox)
	if err := doc.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateCorrupt, err)
	}
	_, _, err = firstPageSize(imp.GetPageSizes())
	return err
}
