package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"subroflow/contexts/subrogation/demand-service/domain/entities"
	"subroflow/contexts/subrogation/demand-service/ports"
)

const (
	pageWidth  = 595.0 // A4 points
	pageHeight = 842.0
	marginLeft = 56.0
	marginTop  = 56.0
	lineHeight = 18.0
	bodySize   = 11
	titleSize  = 18
)

// CoverRenderer builds the demand package PDF: a cover sheet with the case
// financials followed by an index of the included supporting documents in
// display order.
type CoverRenderer struct{}

var _ ports.CoverRenderer = CoverRenderer{}

func NewCoverRenderer() CoverRenderer {
	return CoverRenderer{}
}

type textElement struct {
	Value    string    `json:"value"`
	Position []float64 `json:"position"`
	Font     fontSpec  `json:"font"`
}

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type pageContent struct {
	Content struct {
		Text []textElement `json:"text"`
	} `json:"content"`
}

type createSpec struct {
	Paper string                 `json:"paper"`
	Pages map[string]pageContent `json:"pages"`
}

func (r CoverRenderer) Render(c entities.Case, p entities.Package) ([]byte, int, error) {
	lines := coverLines(c, p)

	spec := createSpec{
		Paper: "A4",
		Pages: map[string]pageContent{},
	}
	pageNumber := 1
	y := pageHeight - marginTop
	page := pageContent{}
	flush := func() {
		if len(page.Content.Text) > 0 {
			spec.Pages[fmt.Sprintf("%d", pageNumber)] = page
			pageNumber++
			page = pageContent{}
			y = pageHeight - marginTop
		}
	}
	for _, line := range lines {
		if y < marginTop+lineHeight {
			flush()
		}
		size := bodySize
		font := "Helvetica"
		if line.title {
			size = titleSize
			font = "Helvetica-Bold"
		} else if line.heading {
			font = "Helvetica-Bold"
		}
		if line.text != "" {
			page.Content.Text = append(page.Content.Text, textElement{
				Value:    line.text,
				Position: []float64{marginLeft, y},
				Font:     fontSpec{Name: font, Size: size},
			})
		}
		y -= lineHeight
		if line.title {
			y -= lineHeight / 2
		}
	}
	flush()

	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, 0, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(raw), &buf, conf); err != nil {
		return nil, 0, fmt.Errorf("create demand pdf: %w", err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(buf.Bytes()), conf)
	if err != nil {
		return nil, 0, fmt.Errorf("count demand pdf pages: %w", err)
	}
	return buf.Bytes(), pageCount, nil
}

type coverLine struct {
	text    string
	title   bool
	heading bool
}

func coverLines(c entities.Case, p entities.Package) []coverLine {
	lines := []coverLine{
		{text: "Subrogation Demand Package", title: true},
		{text: fmt.Sprintf("Claim %s  /  Version %d", c.ClaimID, p.VersionNumber)},
		{text: fmt.Sprintf("Policy Number: %s", c.PolicyNumber)},
		{text: fmt.Sprintf("Date of Loss: %s", c.LossDate.Format("January 2, 2006"))},
		{},
		{text: "Recovery Summary", heading: true},
		{text: fmt.Sprintf("Recovery Sought: $%s", c.RecoverySought.StringFixed(2))},
		{text: fmt.Sprintf("Total Paid Indemnity: $%s", c.TotalPaidIndemnity.StringFixed(2))},
		{text: fmt.Sprintf("Total Paid Expense: $%s", c.TotalPaidExpense.StringFixed(2))},
		{text: fmt.Sprintf("Outstanding Reserves: $%s", c.OutstandingReserves.StringFixed(2))},
		{text: fmt.Sprintf("Liability Split: insured %s%% / third party %s%%",
			c.InsuredLiabilityPercent.StringFixed(0), c.ThirdPartyLiabilityPercent.StringFixed(0))},
	}

	if strings.TrimSpace(c.InternalNotes) != "" {
		lines = append(lines, coverLine{}, coverLine{text: "Notes", heading: true})
		for _, note := range wrapText(c.InternalNotes, 90) {
			lines = append(lines, coverLine{text: note})
		}
	}

	included := make([]entities.Document, 0, len(p.Documents))
	for _, doc := range p.Documents {
		if doc.IsIncluded {
			included = append(included, doc)
		}
	}
	sort.SliceStable(included, func(i, j int) bool {
		return included[i].DisplayOrder < included[j].DisplayOrder
	})

	lines = append(lines, coverLine{}, coverLine{text: "Enclosed Documents", heading: true})
	if len(included) == 0 {
		lines = append(lines, coverLine{text: "None"})
	}
	for i, doc := range included {
		label := fmt.Sprintf("%d. %s (%s)", i+1, doc.DocumentName, documentKindLabel(doc.Kind))
		lines = append(lines, coverLine{text: label})
	}
	return lines
}

func documentKindLabel(kind entities.DocumentKind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			out = append(out, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(out, current)
}
