package httptransport

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateCaseRequest struct {
	ClaimID                    string `json:"claim_id"`
	PolicyNumber               string `json:"policy_number"`
	LossDate                   string `json:"loss_date"`
	InsuredLiabilityPercent    string `json:"insured_liability_percent"`
	ThirdPartyLiabilityPercent string `json:"third_party_liability_percent"`
	TotalPaidIndemnity         string `json:"total_paid_indemnity"`
	TotalPaidExpense           string `json:"total_paid_expense"`
	OutstandingReserves        string `json:"outstanding_reserves"`
	RecoverySought             string `json:"recovery_sought"`
	PaymentBreakdown           string `json:"payment_breakdown,omitempty"`
	InternalNotes              string `json:"internal_notes,omitempty"`
}

type CaseDTO struct {
	CaseID                     string `json:"case_id"`
	TenantID                   string `json:"tenant_id"`
	ClaimID                    string `json:"claim_id"`
	PolicyNumber               string `json:"policy_number"`
	LossDate                   string `json:"loss_date"`
	InsuredLiabilityPercent    string `json:"insured_liability_percent"`
	ThirdPartyLiabilityPercent string `json:"third_party_liability_percent"`
	TotalPaidIndemnity         string `json:"total_paid_indemnity"`
	TotalPaidExpense           string `json:"total_paid_expense"`
	OutstandingReserves        string `json:"outstanding_reserves"`
	RecoverySought             string `json:"recovery_sought"`
	PaymentBreakdown           string `json:"payment_breakdown,omitempty"`
	Status                     string `json:"status"`
	InternalNotes              string `json:"internal_notes,omitempty"`
	CreatedBy                  string `json:"created_by"`
	CreatedAt                  string `json:"created_at"`
	ModifiedBy                 string `json:"modified_by,omitempty"`
	ModifiedAt                 string `json:"modified_at,omitempty"`
}

type UpdateCaseStatusRequest struct {
	Status string `json:"status"`
}

type CaseResponse struct {
	Case CaseDTO `json:"case"`
}

type ListCasesResponse struct {
	Items []CaseDTO `json:"items"`
}

type CreatePackageRequest struct {
	CaseID string `json:"case_id"`
}

type PackageDTO struct {
	PackageID        string        `json:"package_id"`
	CaseID           string        `json:"case_id"`
	TenantID         string        `json:"tenant_id"`
	VersionNumber    int           `json:"version_number"`
	Status           string        `json:"status"`
	GeneratedPDFPath string        `json:"generated_pdf_path,omitempty"`
	PDFHash          string        `json:"pdf_hash,omitempty"`
	PDFSizeBytes     int64         `json:"pdf_size_bytes,omitempty"`
	PageCount        int           `json:"page_count,omitempty"`
	Documents        []DocumentDTO `json:"documents,omitempty"`
	CreatedBy        string        `json:"created_by"`
	CreatedAt        string        `json:"created_at"`
}

type PackageResponse struct {
	Package PackageDTO `json:"package"`
}

type ListPackagesResponse struct {
	Items []PackageDTO `json:"items"`
}

type AddDocumentRequest struct {
	DocumentName       string `json:"document_name"`
	Kind               string `json:"kind"`
	BlobPath           string `json:"blob_path"`
	ExternalDocumentID string `json:"external_document_id,omitempty"`
	IsIncluded         bool   `json:"is_included"`
	IsSensitive        bool   `json:"is_sensitive"`
}

type DocumentDTO struct {
	DocumentID         string `json:"document_id"`
	PackageID          string `json:"package_id"`
	DocumentName       string `json:"document_name"`
	Kind               string `json:"kind"`
	Source             string `json:"source"`
	BlobPath           string `json:"blob_path"`
	ExternalDocumentID string `json:"external_document_id,omitempty"`
	DisplayOrder       int    `json:"display_order"`
	IsIncluded         bool   `json:"is_included"`
	IsSensitive        bool   `json:"is_sensitive"`
	UploadedAt         string `json:"uploaded_at"`
}

type DocumentResponse struct {
	Document DocumentDTO `json:"document"`
}

type ReorderDocumentsRequest struct {
	Orders map[string]int `json:"orders"`
}

type SendPackageRequest struct {
	Recipients   []string `json:"recipients"`
	CcRecipients []string `json:"cc_recipients,omitempty"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Action       string   `json:"action,omitempty"`
}

type CommunicationDTO struct {
	CommunicationID    string `json:"communication_id"`
	PackageID          string `json:"package_id"`
	TenantID           string `json:"tenant_id"`
	Action             string `json:"action"`
	Channel            string `json:"channel"`
	Recipients         string `json:"recipients"`
	CcRecipients       string `json:"cc_recipients,omitempty"`
	EmailSubject       string `json:"email_subject"`
	FromAddress        string `json:"from_address"`
	Status             string `json:"status"`
	DeliveryTrackingID string `json:"delivery_tracking_id,omitempty"`
	SentAt             string `json:"sent_at,omitempty"`
	DeliveredAt        string `json:"delivered_at,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	InitiatedBy        string `json:"initiated_by"`
	CreatedAt          string `json:"created_at"`
}

type CommunicationResponse struct {
	Communication CommunicationDTO `json:"communication"`
}

type ListCommunicationsResponse struct {
	Items []CommunicationDTO `json:"items"`
}
