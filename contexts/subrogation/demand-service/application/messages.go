package application

import "time"

// Queue names shared by the orchestrating commands and the consumers.
const (
	QueuePDFGeneration = "pdf-generation"
	QueueEmailDelivery = "email-delivery"
)

// Blob containers and the deterministic paths inside them. Paths are stable
// and recomputable so re-generation overwrites rather than accumulates.
const (
	ContainerDocuments = "documents"
	ContainerPackages  = "packages"
)

func DocumentBlobPath(tenantID, packageID, fileName string) string {
	return tenantID + "/" + packageID + "/" + fileName
}

func PackageBlobPath(tenantID, packageID string) string {
	return tenantID + "/" + packageID + "/package.pdf"
}

// PDFGenerationMessage triggers the assembly worker.
type PDFGenerationMessage struct {
	PackageID   string    `json:"package_id"`
	TenantID    string    `json:"tenant_id"`
	CaseID      string    `json:"case_id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// EmailDeliveryMessage triggers the delivery worker. PDFBlobPath is empty
// when the communication carries no attachment.
type EmailDeliveryMessage struct {
	CommunicationID string    `json:"communication_id"`
	PackageID       string    `json:"package_id"`
	TenantID        string    `json:"tenant_id"`
	Recipients      []string  `json:"recipients"`
	CcRecipients    []string  `json:"cc_recipients,omitempty"`
	Subject         string    `json:"subject"`
	Body            string    `json:"body"`
	PDFBlobPath     string    `json:"pdf_blob_path,omitempty"`
	RequestedAt     time.Time `json:"requested_at"`
}
