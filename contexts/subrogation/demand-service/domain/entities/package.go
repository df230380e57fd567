package entities

import "time"

type PackageStatus string

const (
	PackageStatusDraft      PackageStatus = "draft"
	PackageStatusGenerating PackageStatus = "generating"
	PackageStatusGenerated  PackageStatus = "generated"
	PackageStatusSent       PackageStatus = "sent"
	PackageStatusFailed     PackageStatus = "failed"
)

// CanTransitionTo reports whether next is a legal package status transition.
// Generating is reachable from any state: re-triggering generation on an
// already generated package overwrites the prior artifact, it is not a new
// version. Sent accepts Sent as predecessor so duplicate delivery
// completions stay idempotent.
func (s PackageStatus) CanTransitionTo(next PackageStatus) bool {
	switch next {
	case PackageStatusGenerating:
		return true
	case PackageStatusGenerated:
		return s == PackageStatusGenerating
	case PackageStatusFailed:
		return s == PackageStatusGenerating
	case PackageStatusSent:
		return s == PackageStatusGenerated || s == PackageStatusSent
	default:
		return false
	}
}

// PackageStatusesAllowing returns the statuses from which next is a legal
// transition, for repositories that enforce the lifecycle as a
// compare-and-set.
func PackageStatusesAllowing(next PackageStatus) []PackageStatus {
	all := []PackageStatus{
		PackageStatusDraft,
		PackageStatusGenerating,
		PackageStatusGenerated,
		PackageStatusSent,
		PackageStatusFailed,
	}
	var from []PackageStatus
	for _, s := range all {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// Package is one versioned, assembled document bundle for a case.
// Artifact fields stay zero until the status reaches generated.
type Package struct {
	ID       string
	CaseID   string
	TenantID string

	VersionNumber int
	Status        PackageStatus

	GeneratedPDFPath string
	PDFHash          string
	PDFSizeBytes     int64
	PageCount        int

	Documents []Document

	CreatedBy string
	CreatedAt time.Time
}

// GeneratedArtifact is the set of fields written atomically with the
// transition into generated.
type GeneratedArtifact struct {
	BlobPath  string
	Hash      string
	SizeBytes int64
	PageCount int
}

type DocumentKind string

const (
	DocumentKindPoliceReport   DocumentKind = "police_report"
	DocumentKindEstimate       DocumentKind = "estimate"
	DocumentKindPhoto          DocumentKind = "photo"
	DocumentKindMedicalBill    DocumentKind = "medical_bill"
	DocumentKindRepairInvoice  DocumentKind = "repair_invoice"
	DocumentKindCorrespondence DocumentKind = "correspondence"
	DocumentKindOther          DocumentKind = "other"
)

type DocumentSource string

const (
	DocumentSourceClaimSystem DocumentSource = "claim_system"
	DocumentSourceUserUpload  DocumentSource = "user_upload"
)

// Document is one binary asset attached to a package. DisplayOrder defines
// render order inside the assembled PDF; ties break on UploadedAt.
type Document struct {
	ID        string
	PackageID string

	DocumentName       string
	Kind               DocumentKind
	Source             DocumentSource
	BlobPath           string
	ExternalDocumentID string

	DisplayOrder int
	IsIncluded   bool
	IsSensitive  bool

	UploadedAt time.Time
}
