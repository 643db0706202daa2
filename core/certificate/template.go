package certificate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
)

// Placeholder keys substituted into template text elements before rendering.
const (
	PlaceholderOrganization = "[Organization Name]"
	PlaceholderRank         = "[Rank]"
	PlaceholderScore        = "[Score]"
	PlaceholderNumber       = "[Certificate Number]"
	PlaceholderDate         = "[Date]"
	PlaceholderPath         = "[Path]"
	PlaceholderIssuedBy     = "[Issued By]"
)

type (
	// Border styles the certificate frame.
	Border struct {
		Color string  `json:"color"` // hex, e.g. "#B9F2FF"
		Width float64 `json:"width"` // mm
		Style string  `json:"style"` // "solid" | "double"
	}

	// LogoBox positions the issuer logo; coordinates are percentages of the page.
	LogoBox struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	// TextElement is one positioned line of literal or placeholder content;
	// X and Y are percentages of the page.
	TextElement struct {
		Content string  `json:"content"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Font    string  `json:"font"`
		Size    float64 `json:"size"` // pt
		Color   string  `json:"color"`
		Align   string  `json:"align"` // "L" | "C" | "R"
		Bold    bool    `json:"bold"`
	}

	// Template is the rank-keyed certificate layout.
	Template struct {
		Border   Border        `json:"border"`
		Logo     LogoBox       `json:"logo"`
		Elements []TextElement `json:"elements"` // rendered in order
	}

	// RenderRequest is the renderer's input contract: everything the document
	// needs, with placeholder substitution already applied to the template.
	RenderRequest struct {
		CertificateID     string       `json:"certificate_id"`
		CertificateNumber string       `json:"certificate_number"`
		OrganizationName  string       `json:"organization_name"`
		Rank              scoring.Rank `json:"rank"`
		Percentage        float64      `json:"percentage"`
		Path              catalog.Path `json:"path"`
		IssuedAt          time.Time    `json:"issued_at"`
		IssuerName        string       `json:"issuer_name"`
		Template          Template     `json:"template"`
	}

	// Renderer produces a fixed-size landscape certificate document and
	// returns its storage location. Re-rendering the same request must
	// overwrite the same location (idempotent retries).
	Renderer interface {
		Render(ctx context.Context, req RenderRequest) (documentPath string, err error)
	}

	// RenderQueue dispatches render requests asynchronously, fire-and-forget.
	RenderQueue interface {
		Enqueue(req RenderRequest)
	}
)

// Substituted returns a copy of the template with all placeholders in text
// elements replaced from the request's data.
func (t Template) Substituted(req RenderRequest) Template {
	replacer := strings.NewReplacer(
		PlaceholderOrganization, req.OrganizationName,
		PlaceholderRank, strings.Title(string(req.Rank)),
		PlaceholderScore, strconv.FormatFloat(req.Percentage, 'f', 1, 64)+"%",
		PlaceholderNumber, req.CertificateNumber,
		PlaceholderDate, req.IssuedAt.Format("January 2, 2006"),
		PlaceholderPath, strings.Title(string(req.Path)),
		PlaceholderIssuedBy, req.IssuerName,
	)

	subst := t
	subst.Elements = make([]TextElement, len(t.Elements))
	for i, el := range t.Elements {
		el.Content = replacer.Replace(el.Content)
		subst.Elements[i] = el
	}
	return subst
}

// DefaultTemplates returns the built-in rank-keyed certificate layouts.
func DefaultTemplates() map[scoring.Rank]Template {
	base := func(borderColor, accentColor string, borderStyle string) Template {
		return Template{
			Border: Border{Color: borderColor, Width: 1.2, Style: borderStyle},
			Logo:   LogoBox{X: 44, Y: 8, Width: 12, Height: 14},
			Elements: []TextElement{
				{Content: "Certificate of Achievement", X: 50, Y: 30, Font: "Times", Size: 34, Color: "#333333", Align: "C", Bold: true},
				{Content: "This certifies that", X: 50, Y: 42, Font: "Helvetica", Size: 12, Color: "#555555", Align: "C"},
				{Content: PlaceholderOrganization, X: 50, Y: 50, Font: "Times", Size: 26, Color: "#111111", Align: "C", Bold: true},
				{Content: "has completed the " + PlaceholderPath + " certification path", X: 50, Y: 58, Font: "Helvetica", Size: 12, Color: "#555555", Align: "C"},
				{Content: "with a score of " + PlaceholderScore + " and earned the rank of", X: 50, Y: 64, Font: "Helvetica", Size: 12, Color: "#555555", Align: "C"},
				{Content: PlaceholderRank, X: 50, Y: 73, Font: "Times", Size: 28, Color: accentColor, Align: "C", Bold: true},
				{Content: PlaceholderNumber, X: 12, Y: 88, Font: "Helvetica", Size: 9, Color: "#777777", Align: "L"},
				{Content: PlaceholderDate, X: 50, Y: 88, Font: "Helvetica", Size: 9, Color: "#777777", Align: "C"},
				{Content: PlaceholderIssuedBy, X: 88, Y: 88, Font: "Helvetica", Size: 9, Color: "#777777", Align: "R"},
			},
		}
	}

	return map[scoring.Rank]Template{
		scoring.RankDiamond: base("#7FD4E8", "#3BA7C4", "double"),
		scoring.RankGold:    base("#D4AF37", "#A8842C", "double"),
		scoring.RankSilver:  base("#C0C0C0", "#8E8E8E", "solid"),
		scoring.RankBronze:  base("#CD7F32", "#9C5F26", "solid"),
	}
}
