package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
)

func TestTemplateSubstituted(t *testing.T) {
	tmpl := Template{
		Elements: []TextElement{
			{Content: PlaceholderOrganization},
			{Content: "with a score of " + PlaceholderScore + " and earned the rank of"},
			{Content: PlaceholderRank},
			{Content: PlaceholderNumber},
			{Content: PlaceholderDate},
			{Content: PlaceholderPath},
			{Content: PlaceholderIssuedBy},
		},
	}
	req := RenderRequest{
		CertificateNumber: "CERT-STR-2026-0007-0042",
		OrganizationName:  "Acme Corp",
		Rank:              scoring.RankGold,
		Percentage:        87.5,
		Path:              catalog.PathStrategic,
		IssuedAt:          time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		IssuerName:        "Shield Certification Board",
	}

	got := tmpl.Substituted(req)

	want := []string{
		"Acme Corp",
		"with a score of 87.5% and earned the rank of",
		"Gold",
		"CERT-STR-2026-0007-0042",
		"March 9, 2026",
		"Strategic",
		"Shield Certification Board",
	}
	for i, w := range want {
		if got.Elements[i].Content != w {
			t.Errorf("Elements[%d].Content = %q, want %q", i, got.Elements[i].Content, w)
		}
	}

	// the original template is untouched
	if tmpl.Elements[0].Content != PlaceholderOrganization {
		t.Errorf("source template was mutated: %q", tmpl.Elements[0].Content)
	}
}

func TestDefaultTemplates(t *testing.T) {
	templates := DefaultTemplates()

	for _, rank := range []scoring.Rank{scoring.RankDiamond, scoring.RankGold, scoring.RankSilver, scoring.RankBronze} {
		tmpl, ok := templates[rank]
		if !ok {
			t.Fatalf("no template for rank %q", rank)
		}
		if len(tmpl.Elements) == 0 {
			t.Fatalf("template for rank %q has no elements", rank)
		}

		var joined strings.Builder
		for _, el := range tmpl.Elements {
			joined.WriteString(el.Content)
		}
		for _, ph := range []string{PlaceholderOrganization, PlaceholderRank, PlaceholderScore, PlaceholderNumber, PlaceholderDate, PlaceholderIssuedBy} {
			if !strings.Contains(joined.String(), ph) {
				t.Errorf("template for rank %q is missing placeholder %q", rank, ph)
			}
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		path  catalog.Path
		year  int
		orgID int
		seq   int
		want  string
	}{
		{catalog.PathStrategic, 2026, 1, 1, "CERT-STR-2026-0001-0001"},
		{catalog.PathOperational, 2026, 42, 117, "CERT-OPS-2026-0042-0117"},
		{catalog.PathHR, 2027, 9999, 10000, "CERT-HRC-2027-9999-10000"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.path, tt.year, tt.orgID, tt.seq); got != tt.want {
			t.Errorf("FormatNumber(%q, %d, %d, %d) = %q, want %q", tt.path, tt.year, tt.orgID, tt.seq, got, tt.want)
		}
	}
}
