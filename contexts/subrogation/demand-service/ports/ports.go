package ports

import (
	"context"
	"time"

	"subroflow/contexts/subrogation/demand-service/domain/entities"
)

type CaseRepository interface {
	CreateCase(ctx context.Context, c entities.Case) error
	GetCase(ctx context.Context, caseID string) (entities.Case, error)
	ListCasesByTenant(ctx context.Context, tenantID string, offset, limit int) ([]entities.Case, error)
	UpdateCaseStatus(ctx context.Context, caseID string, status entities.CaseStatus, modifiedBy string, modifiedAt time.Time) error
}

type PackageRepository interface {
	CreatePackage(ctx context.Context, p entities.Package) error
	GetPackage(ctx context.Context, packageID string) (entities.Package, error)
	// GetPackageWithDocuments loads the document list ordered by display
	// order, ties broken by upload time.
	GetPackageWithDocuments(ctx context.Context, packageID string) (entities.Package, error)
	ListPackagesByCase(ctx context.Context, caseID string) ([]entities.Package, error)
	// LatestPackageVersion returns 0 when the case has no packages yet.
	LatestPackageVersion(ctx context.Context, caseID string) (int, error)
	// UpdatePackageStatus enforces the package lifecycle: writes that the
	// current status does not allow fail with ErrInvalidTransition.
	UpdatePackageStatus(ctx context.Context, packageID string, status entities.PackageStatus) error
	// UpdateGeneratedArtifact writes the artifact fields and the generated
	// status in one idempotent update. A sent package keeps its delivered
	// artifact; the write fails with ErrInvalidTransition.
	UpdateGeneratedArtifact(ctx context.Context, packageID string, artifact entities.GeneratedArtifact) error

	AddDocument(ctx context.Context, d entities.Document) error
	GetDocument(ctx context.Context, documentID string) (entities.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	UpdateDocumentOrder(ctx context.Context, orders map[string]int) error
}

type CommunicationRepository interface {
	CreateCommunication(ctx context.Context, log entities.CommunicationLog) error
	GetCommunication(ctx context.Context, communicationID string) (entities.CommunicationLog, error)
	ListCommunicationsByPackage(ctx context.Context, packageID string) ([]entities.CommunicationLog, error)
	// UpdateCommunicationStatus advances the delivery status. SentAt and
	// DeliveredAt are stamped on first entry into sent/delivered and never
	// overwritten. trackingID is recorded when non-empty.
	UpdateCommunicationStatus(ctx context.Context, communicationID string, status entities.CommunicationStatus, trackingID string, at time.Time) error
	UpdateCommunicationError(ctx context.Context, communicationID string, message string) error
}

// ObjectStore is the blob gateway. Paths are plain hierarchical strings,
// deterministic per entity, so re-uploads overwrite instead of accumulating.
type ObjectStore interface {
	Upload(ctx context.Context, container, path string, content []byte, contentType string) error
	Download(ctx context.Context, container, path string) ([]byte, error)
	Delete(ctx context.Context, container, path string) error
}

// QueueMessage is one delivery from a named queue. MessageID and
// ContentType are transport metadata, distinct from the business ids inside
// Body. DeliveryCount starts at 1.
type QueueMessage struct {
	MessageID     string
	ContentType   string
	Body          []byte
	DeliveryCount int
}

type QueuePublisher interface {
	Send(ctx context.Context, queue string, payload any) error
	SendDelayed(ctx context.Context, queue string, payload any, readyAt time.Time) error
}

type QueueSubscriber interface {
	Subscribe(ctx context.Context, queue, group string, handler func(context.Context, QueueMessage) error) error
}

type EmailAttachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

type OutboundEmail struct {
	From          string
	FromName      string
	To            []string
	Cc            []string
	Subject       string
	PlainTextBody string
	HTMLBody      string
	Attachments   []EmailAttachment
}

// EmailSender returns the transport's tracking id for the accepted message.
type EmailSender interface {
	Send(ctx context.Context, email OutboundEmail) (string, error)
}

// CoverRenderer produces the assembled demand PDF and its page count.
type CoverRenderer interface {
	Render(c entities.Case, p entities.Package) ([]byte, int, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
