package pdfsvc

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/certificate"
)

// A4 landscape, mm
const (
	pageWidth  = 297.0
	pageHeight = 210.0
)

// Renderer writes certificate PDFs to the configured storage directory,
// one file per certificate number. Rendering the same number again
// overwrites the previous file.
type Renderer struct {
	storageDir string
	logoPath   string
}

var _ certificate.Renderer = (*Renderer)(nil)

func NewRenderer(conf *core.Config) *Renderer {
	return &Renderer{
		storageDir: conf.Certificate.StorageDir,
		logoPath:   conf.Certificate.LogoPath,
	}
}

func (r *Renderer) Render(ctx context.Context, req certificate.RenderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.storageDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating certificate storage dir")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	r.drawBorder(pdf, req.Template.Border)
	r.drawLogo(pdf, req.Template.Logo)
	for _, el := range req.Template.Elements {
		r.drawText(pdf, el)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(r.storageDir, req.CertificateNumber+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", errors.Wrap(err, "writing certificate document")
	}
	return path, nil
}

func (r *Renderer) drawBorder(pdf *gofpdf.Fpdf, border certificate.Border) {
	red, green, blue := hexToRGB(border.Color)
	pdf.SetDrawColor(red, green, blue)
	pdf.SetLineWidth(border.Width)

	const margin = 8.0
	pdf.Rect(margin, margin, pageWidth-2*margin, pageHeight-2*margin, "D")
	if border.Style == "double" {
		inner := margin + 3
		pdf.SetLineWidth(border.Width / 2)
		pdf.Rect(inner, inner, pageWidth-2*inner, pageHeight-2*inner, "D")
	}
}

func (r *Renderer) drawLogo(pdf *gofpdf.Fpdf, box certificate.LogoBox) {
	if r.logoPath == "" {
		return
	}
	if _, err := os.Stat(r.logoPath); err != nil {
		return
	}
	pdf.ImageOptions(
		r.logoPath,
		box.X/100*pageWidth,
		box.Y/100*pageHeight,
		box.Width/100*pageWidth,
		box.Height/100*pageHeight,
		false,
		gofpdf.ImageOptions{ReadDpi: true},
		0,
		"",
	)
}

func (r *Renderer) drawText(pdf *gofpdf.Fpdf, el certificate.TextElement) {
	style := ""
	if el.Bold {
		style = "B"
	}
	pdf.SetFont(el.Font, style, el.Size)

	red, green, blue := hexToRGB(el.Color)
	pdf.SetTextColor(red, green, blue)

	// center a full-width cell on the element's Y; alignment handles X
	y := el.Y / 100 * pageHeight
	switch el.Align {
	case "L":
		pdf.SetXY(el.X/100*pageWidth, y)
		pdf.CellFormat(0, 10, el.Content, "", 0, "L", false, 0, "")
	case "R":
		pdf.SetXY(0, y)
		pdf.CellFormat(el.X/100*pageWidth, 10, el.Content, "", 0, "R", false, 0, "")
	default:
		pdf.SetXY(0, y)
		pdf.CellFormat(pageWidth, 10, el.Content, "", 0, "C", false, 0, "")
	}
}

func hexToRGB(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	parse := func(s string) int {
		v, err := strconv.ParseInt(s, 16, 32)
		if err != nil {
			return 0
		}
		return int(v)
	}
	return parse(hex[1:3]), parse(hex[3:5]), parse(hex[5:7])
}
