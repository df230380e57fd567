package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"subroflow/contexts/subrogation/demand-service/domain/entities"
)

func sampleCase() entities.Case {
	return entities.Case{
		ID:                         "case-1",
		TenantID:                   "tenant-a",
		ClaimID:                    "CLM-1001",
		PolicyNumber:               "POL-88",
		LossDate:                   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		InsuredLiabilityPercent:    decimal.NewFromInt(20),
		ThirdPartyLiabilityPercent: decimal.NewFromInt(80),
		TotalPaidIndemnity:         decimal.RequireFromString("9800.00"),
		TotalPaidExpense:           decimal.RequireFromString("1200.50"),
		OutstandingReserves:        decimal.RequireFromString("500.00"),
		RecoverySought:             decimal.RequireFromString("12500.00"),
		Status:                     entities.CaseStatusDraft,
	}
}

func samplePackage() entities.Package {
	return entities.Package{
		ID:            "pkg-1",
		CaseID:        "case-1",
		TenantID:      "tenant-a",
		VersionNumber: 1,
		Status:        entities.PackageStatusGenerating,
		Documents: []entities.Document{
			{
				ID:           "doc-2",
				DocumentName: "Repair estimate",
				Kind:         entities.DocumentKindEstimate,
				DisplayOrder: 2,
				IsIncluded:   true,
			},
			{
				ID:           "doc-1",
				DocumentName: "Police report",
				Kind:         entities.DocumentKindPoliceReport,
				DisplayOrder: 1,
				IsIncluded:   true,
			},
			{
				ID:           "doc-3",
				DocumentName: "Internal memo",
				Kind:         entities.DocumentKindOther,
				DisplayOrder: 3,
				IsIncluded:   false,
			},
		},
	}
}

func TestRenderProducesValidPDF(t *testing.T) {
	content, pageCount, err := NewCoverRenderer().Render(sampleCase(), samplePackage())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		t.Fatalf("output is not a pdf, starts with %q", content[:min(8, len(content))])
	}
	if pageCount < 1 {
		t.Fatalf("expected at least 1 page, got %d", pageCount)
	}
	if len(content) == 0 {
		t.Fatal("empty pdf content")
	}
}

func TestRenderLongNotesSpanPages(t *testing.T) {
	c := sampleCase()
	c.InternalNotes = strings.Repeat("Recovery pursued against the third party carrier following the liability investigation. ", 120)

	content, pageCount, err := NewCoverRenderer().Render(c, samplePackage())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		t.Fatal("output is not a pdf")
	}
	if pageCount < 2 {
		t.Fatalf("long notes should overflow onto a second page, got %d page(s)", pageCount)
	}
}

func TestCoverLinesIndexIncludedDocumentsInOrder(t *testing.T) {
	lines := coverLines(sampleCase(), samplePackage())

	var index []string
	inIndex := false
	for _, line := range lines {
		if line.heading && line.text == "Enclosed Documents" {
			inIndex = true
			continue
		}
		if inIndex && line.text != "" {
			index = append(index, line.text)
		}
	}
	want := []string{
		"1. Police report (police report)",
		"2. Repair estimate (estimate)",
	}
	if len(index) != len(want) {
		t.Fatalf("expected %d index lines, got %v", len(want), index)
	}
	for i, line := range want {
		if index[i] != line {
			t.Fatalf("index line %d: expected %q, got %q", i, line, index[i])
		}
	}
}
