package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

const (
	maxUploadBytes     = 50 << 20
	defaultFromAddress = "noreply@subroflow.io"
	defaultFromName    = "Subroflow Demand Management"
)

// allowedUploadTypes is the fixed allow-list for document uploads:
// document, image, office and text formats. Checked before any object-store
// write happens.
var allowedUploadTypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/tiff":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,
}

var allowedUploadExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".tif": true, ".tiff": true, ".doc": true, ".docx": true, ".xls": true,
	".xlsx": true, ".txt": true, ".csv": true,
}

type CreateCaseCommand struct {
	TenantID     string
	ClaimID      string
	PolicyNumber string
	LossDate     time.Time

	InsuredLiabilityPercent    string
	ThirdPartyLiabilityPercent string
	TotalPaidIndemnity         string
	TotalPaidExpense           string
	OutstandingReserves        string
	RecoverySought             string

	PaymentBreakdown string
	InternalNotes    string
}

type CreatePackageCommand struct {
	TenantID string
	CaseID   string
}

type UpdateCaseStatusCommand struct {
	TenantID string
	CaseID   string
	Status   entities.CaseStatus
}

type AddDocumentCommand struct {
	TenantID  string
	PackageID string

	DocumentName       string
	Kind               entities.DocumentKind
	BlobPath           string
	ExternalDocumentID string
	IsIncluded         bool
	IsSensitive        bool
}

type UploadDocumentCommand struct {
	TenantID  string
	PackageID string

	FileName     string
	DocumentName string
	Kind         entities.DocumentKind
	ContentType  string
	Content      []byte
	IsSensitive  bool
}

type DeleteDocumentCommand struct {
	TenantID   string
	DocumentID string
}

type ReorderDocumentsCommand struct {
	TenantID  string
	PackageID string
	Orders    map[string]int
}

type RequestGenerationCommand struct {
	TenantID  string
	PackageID string
}

type RequestDeliveryCommand struct {
	TenantID  string
	PackageID string

	Recipients   []string
	CcRecipients []string
	Subject      string
	Body         string
	Action       entities.CommunicationAction
}

type UseCase struct {
	Cases          ports.CaseRepository
	Packages       ports.PackageRepository
	Communications ports.CommunicationRepository
	Objects        ports.ObjectStore
	Queue          ports.QueuePublisher
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	FromAddress    string
	Logger         *slog.Logger
}

func (uc UseCase) CreateCase(ctx context.Context, identity application.Identity, cmd CreateCaseCommand) (entities.Case, error) {
	logger := application.ResolveLogger(uc.Logger)
	tenantID, err := application.ResolveTenant(identity, cmd.TenantID)
	if err != nil {
		return entities.Case{}, err
	}
	if tenantID == "" || strings.TrimSpace(cmd.ClaimID) == "" {
		logger.Warn("case create invalid input",
			"event", "case_create_invalid_input",
			"module", "subrogation/demand-service",
			"layer", "application",
			"tenant_id", tenantID,
		)
		return entities.Case{}, domainerrors.ErrInvalidInput
	}

	caseID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Case{}, err
	}
	now := uc.now()
	record := entities.Case{
		ID:               caseID,
		TenantID:         tenantID,
		ClaimID:          strings.TrimSpace(cmd.ClaimID),
		PolicyNumber:     strings.TrimSpace(cmd.PolicyNumber),
		LossDate:         cmd.LossDate.UTC(),
		PaymentBreakdown: cmd.PaymentBreakdown,
		Status:           entities.CaseStatusDraft,
		InternalNotes:    cmd.InternalNotes,
		CreatedBy:        identity.UserID,
		CreatedAt:        now,
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{cmd.InsuredLiabilityPercent, &record.InsuredLiabilityPercent},
		{cmd.ThirdPartyLiabilityPercent, &record.ThirdPartyLiabilityPercent},
		{cmd.TotalPaidIndemnity, &record.TotalPaidIndemnity},
		{cmd.TotalPaidExpense, &record.TotalPaidExpense},
		{cmd.OutstandingReserves, &record.OutstandingReserves},
		{cmd.RecoverySought, &record.RecoverySought},
	} {
		if err := parseDecimal(field.raw, field.dst); err != nil {
			logger.Warn("case create invalid decimal",
				"event", "case_create_invalid_decimal",
				"module", "subrogation/demand-service",
				"layer", "application",
				"tenant_id", tenantID,
				"error", err.Error(),
			)
			return entities.Case{}, domainerrors.ErrInvalidInput
		}
	}

	if err := uc.Cases.CreateCase(ctx, record); err != nil {
		logger.Error("case create failed",
			"event", "case_create_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return entities.Case{}, err
	}
	logger.Info("case created",
		"event", "case_created",
		"module", "subrogation/demand-service",
		"layer", "application",
		"case_id", record.ID,
		"tenant_id", tenantID,
	)
	return record, nil
}

// UpdateCaseStatus moves a case through its lifecycle on behalf of an
// adjuster. Delivery also advances draft cases to demand_sent on its own;
// this is the manual path for the later stages.
func (uc UseCase) UpdateCaseStatus(ctx context.Context, identity application.Identity, cmd UpdateCaseStatusCommand) (entities.Case, error) {
	logger := application.ResolveLogger(uc.Logger)
	tenantID, err := application.ResolveTenant(identity, cmd.TenantID)
	if err != nil {
		return entities.Case{}, err
	}
	if tenantID == "" || !cmd.Status.Valid() {
		logger.Warn("case status invalid input",
			"event", "case_status_invalid_input",
			"module", "subrogation/demand-service",
			"layer", "application",
			"case_id", cmd.CaseID,
			"status", cmd.Status,
		)
		return entities.Case{}, domainerrors.ErrInvalidInput
	}

	record, err := uc.Cases.GetCase(ctx, strings.TrimSpace(cmd.CaseID))
	if err != nil {
		return entities.Case{}, err
	}
	if err := application.GuardTenant(record.TenantID, tenantID); err != nil {
		logger.Warn("case status tenant guard rejected",
			"event", "case_status_tenant_guard_rejected",
			"module", "subrogation/demand-service",
			"layer", "application",
			"case_id", record.ID,
			"tenant_id", tenantID,
		)
		return entities.Case{}, err
	}

	now := uc.now()
	if err := uc.Cases.UpdateCaseStatus(ctx, record.ID, cmd.Status, identity.UserID, now); err != nil {
		return entities.Case{}, err
	}
	record.Status = cmd.Status
	record.ModifiedBy = identity.UserID
	record.ModifiedAt = &now
	logger.Info("case status updated",
		"event", "case_status_updated",
		"module", "subrogation/demand-service",
		"layer", "application",
		"case_id", record.ID,
		"tenant_id", tenantID,
		"status", cmd.Status,
	)
	return record, nil
}

// CreatePackage assigns the next version number for the case: one plus the
// highest existing version, or 1 when none exist. Versions are never reused
// regardless of sibling package status.
func (uc UseCase) CreatePackage(ctx context.Context, identity application.Identity, cmd CreatePackageCommand) (entities.Package, error) {
	logger := application.ResolveLogger(uc.Logger)
	tenantID, err := application.ResolveTenant(identity, cmd.TenantID)
	if err != nil {
		return entities.Package{}, err
	}
	if tenantID == "" {
		return entities.Package{}, domainerrors.ErrInvalidInput
	}

	owningCase, err := uc.Cases.GetCase(ctx, strings.TrimSpace(cmd.CaseID))
	if err != nil {
		return entities.Package{}, err
	}
	if err := application.GuardTenant(owningCase.TenantID, tenantID); err != nil {
		logger.Warn("package create tenant guard rejected",
			"event", "package_create_tenant_guard_rejected",
			"module", "subrogation/demand-service",
			"layer", "application",
			"case_id", owningCase.ID,
			"tenant_id", tenantID,
		)
		return entities.Package{}, err
	}

	latest, err := uc.Packages.LatestPackageVersion(ctx, owningCase.ID)
	if err != nil {
		return entities.Package{}, err
	}
	packageID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Package{}, err
	}
	record := entities.Package{
		ID:            packageID,
		CaseID:        owningCase.ID,
		TenantID:      tenantID,
		VersionNumber: latest + 1,
		Status:        entities.PackageStatusDraft,
		CreatedBy:     identity.UserID,
		CreatedAt:     uc.now(),
	}
	if err := uc.Packages.CreatePackage(ctx, record); err != nil {
		logger.Error("package create failed",
			"event", "package_create_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"case_id", owningCase.ID,
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return entities.Package{}, err
	}
	logger.Info("package created",
		"event", "package_created",
		"module", "subrogation/demand-service",
		"layer", "application",
		"package_id", record.ID,
		"case_id", owningCase.ID,
		"version_number", record.VersionNumber,
	)
	return record, nil
}

func (uc UseCase) AddDocument(ctx context.Context, identity application.Identity, cmd AddDocumentCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	pkg, tenantID, err := uc.guardedPackage(ctx, identity, cmd.TenantID, cmd.PackageID)
	if err != nil {
		return entities.Document{}, err
	}
	if strings.TrimSpace(cmd.DocumentName) == "" || strings.TrimSpace(cmd.BlobPath) == "" {
		return entities.Document{}, domainerrors.ErrInvalidInput
	}

	documentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Document{}, err
	}
	record := entities.Document{
		ID:                 documentID,
		PackageID:          pkg.ID,
		DocumentName:       strings.TrimSpace(cmd.DocumentName),
		Kind:               cmd.Kind,
		Source:             entities.DocumentSourceClaimSystem,
		BlobPath:           strings.TrimSpace(cmd.BlobPath),
		ExternalDocumentID: strings.TrimSpace(cmd.ExternalDocumentID),
		DisplayOrder:       uc.nextDisplayOrder(ctx, pkg.ID),
		IsIncluded:         cmd.IsIncluded,
		IsSensitive:        cmd.IsSensitive,
		UploadedAt:         uc.now(),
	}
	if err := uc.Packages.AddDocument(ctx, record); err != nil {
		return entities.Document{}, err
	}
	logger.Info("document added",
		"event", "document_added",
		"module", "subrogation/demand-service",
		"layer", "application",
		"package_id", pkg.ID,
		"document_id", record.ID,
		"tenant_id", tenantID,
	)
	return record, nil
}

// UploadDocument validates type and size before any object-store write, then
// uploads the content and records the document row.
func (uc UseCase) UploadDocument(ctx context.Context, identity application.Identity, cmd UploadDocumentCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	pkg, tenantID, err := uc.guardedPackage(ctx, identity, cmd.TenantID, cmd.PackageID)
	if err != nil {
		return entities.Document{}, err
	}

	fileName := path.Base(strings.TrimSpace(cmd.FileName))
	if fileName == "" || fileName == "." || len(cmd.Content) == 0 {
		return entities.Document{}, domainerrors.ErrInvalidInput
	}
	if int64(len(cmd.Content)) > maxUploadBytes {
		logger.Warn("document upload too large",
			"event", "document_upload_too_large",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"size_bytes", len(cmd.Content),
		)
		return entities.Document{}, domainerrors.ErrFileTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(cmd.ContentType))
	extension := strings.ToLower(path.Ext(fileName))
	if !allowedUploadTypes[contentType] || !allowedUploadExtensions[extension] {
		logger.Warn("document upload type rejected",
			"event", "document_upload_type_rejected",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"content_type", contentType,
			"extension", extension,
		)
		return entities.Document{}, domainerrors.ErrUnsupportedFileType
	}

	blobPath := application.DocumentBlobPath(tenantID, pkg.ID, fileName)
	if err := uc.Objects.Upload(ctx, application.ContainerDocuments, blobPath, cmd.Content, contentType); err != nil {
		logger.Error("document upload store failed",
			"event", "document_upload_store_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"blob_path", blobPath,
			"error", err.Error(),
		)
		return entities.Document{}, err
	}

	documentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Document{}, err
	}
	documentName := strings.TrimSpace(cmd.DocumentName)
	if documentName == "" {
		documentName = fileName
	}
	kind := cmd.Kind
	if kind == "" {
		kind = entities.DocumentKindOther
	}
	record := entities.Document{
		ID:           documentID,
		PackageID:    pkg.ID,
		DocumentName: documentName,
		Kind:         kind,
		Source:       entities.DocumentSourceUserUpload,
		BlobPath:     blobPath,
		DisplayOrder: uc.nextDisplayOrder(ctx, pkg.ID),
		IsIncluded:   true,
		IsSensitive:  cmd.IsSensitive,
		UploadedAt:   uc.now(),
	}
	if err := uc.Packages.AddDocument(ctx, record); err != nil {
		return entities.Document{}, err
	}
	logger.Info("document uploaded",
		"event", "document_uploaded",
		"module", "subrogation/demand-service",
		"layer", "application",
		"package_id", pkg.ID,
		"document_id", record.ID,
		"blob_path", blobPath,
		"size_bytes", len(cmd.Content),
	)
	return record, nil
}

// DeleteDocument removes the backing blob before the row. An orphaned blob
// is tolerated; an orphaned row pointing at deleted content is not.
func (uc UseCase) DeleteDocument(ctx context.Context, identity application.Identity, cmd DeleteDocumentCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	tenantID, err := application.ResolveTenant(identity, cmd.TenantID)
	if err != nil {
		return err
	}
	doc, err := uc.Packages.GetDocument(ctx, strings.TrimSpace(cmd.DocumentID))
	if err != nil {
		return err
	}
	pkg, err := uc.Packages.GetPackage(ctx, doc.PackageID)
	if err != nil {
		return err
	}
	if err := application.GuardTenant(pkg.TenantID, tenantID); err != nil {
		return err
	}

	if err := uc.Objects.Delete(ctx, application.ContainerDocuments, doc.BlobPath); err != nil {
		logger.Error("document blob delete failed",
			"event", "document_blob_delete_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"document_id", doc.ID,
			"blob_path", doc.BlobPath,
			"error", err.Error(),
		)
		return err
	}
	if err := uc.Packages.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	logger.Info("document deleted",
		"event", "document_deleted",
		"module", "subrogation/demand-service",
		"layer", "application",
		"document_id", doc.ID,
		"package_id", doc.PackageID,
	)
	return nil
}

func (uc UseCase) ReorderDocuments(ctx context.Context, identity application.Identity, cmd ReorderDocumentsCommand) error {
	pkg, _, err := uc.guardedPackage(ctx, identity, cmd.TenantID, cmd.PackageID)
	if err != nil {
		return err
	}
	if len(cmd.Orders) == 0 {
		return domainerrors.ErrInvalidInput
	}
	loaded, err := uc.Packages.GetPackageWithDocuments(ctx, pkg.ID)
	if err != nil {
		return err
	}
	owned := make(map[string]bool, len(loaded.Documents))
	for _, doc := range loaded.Documents {
		owned[doc.ID] = true
	}
	for documentID := range cmd.Orders {
		if !owned[documentID] {
			return domainerrors.ErrDocumentNotFound
		}
	}
	return uc.Packages.UpdateDocumentOrder(ctx, cmd.Orders)
}

// RequestGeneration accepts a generation request and enqueues it. Existence
// is the only guard: re-triggering on an already generated package is a
// re-generation that overwrites the prior artifact.
func (uc UseCase) RequestGeneration(ctx context.Context, identity application.Identity, cmd RequestGenerationCommand) (entities.Package, error) {
	logger := application.ResolveLogger(uc.Logger)
	pkg, tenantID, err := uc.guardedPackage(ctx, identity, cmd.TenantID, cmd.PackageID)
	if err != nil {
		return entities.Package{}, err
	}

	if err := uc.Packages.UpdatePackageStatus(ctx, pkg.ID, entities.PackageStatusGenerating); err != nil {
		return entities.Package{}, err
	}
	message := application.PDFGenerationMessage{
		PackageID:   pkg.ID,
		TenantID:    tenantID,
		CaseID:      pkg.CaseID,
		RequestedBy: identity.UserID,
		RequestedAt: uc.now(),
	}
	if err := uc.Queue.Send(ctx, application.QueuePDFGeneration, message); err != nil {
		logger.Error("generation enqueue failed",
			"event", "generation_enqueue_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"tenant_id", tenantID,
			"error", err.Error(),
		)
		return entities.Package{}, err
	}
	logger.Info("generation queued",
		"event", "generation_queued",
		"module", "subrogation/demand-service",
		"layer", "application",
		"package_id", pkg.ID,
		"tenant_id", tenantID,
		"requested_by", identity.UserID,
	)
	pkg.Status = entities.PackageStatusGenerating
	return pkg, nil
}

// RequestDelivery accepts a delivery request only for generated packages.
// The communication log row is created synchronously, before the message is
// enqueued, so its id exists for the worker to reference.
func (uc UseCase) RequestDelivery(ctx context.Context, identity application.Identity, cmd RequestDeliveryCommand) (entities.CommunicationLog, error) {
	logger := application.ResolveLogger(uc.Logger)
	pkg, tenantID, err := uc.guardedPackage(ctx, identity, cmd.TenantID, cmd.PackageID)
	if err != nil {
		return entities.CommunicationLog{}, err
	}
	if pkg.Status != entities.PackageStatusGenerated {
		logger.Warn("delivery rejected package not generated",
			"event", "delivery_rejected_not_generated",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"status", pkg.Status,
		)
		return entities.CommunicationLog{}, domainerrors.ErrPackageNotGenerated
	}
	if len(cmd.Recipients) == 0 || strings.TrimSpace(cmd.Subject) == "" {
		return entities.CommunicationLog{}, domainerrors.ErrInvalidInput
	}

	communicationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.CommunicationLog{}, err
	}
	recipientsJSON, err := json.Marshal(cmd.Recipients)
	if err != nil {
		return entities.CommunicationLog{}, err
	}
	ccJSON := ""
	if len(cmd.CcRecipients) > 0 {
		raw, err := json.Marshal(cmd.CcRecipients)
		if err != nil {
			return entities.CommunicationLog{}, err
		}
		ccJSON = string(raw)
	}
	action := cmd.Action
	if action == "" {
		action = entities.CommunicationActionInitialDemand
	}
	fromAddress := uc.FromAddress
	if fromAddress == "" {
		fromAddress = defaultFromAddress
	}
	now := uc.now()
	record := entities.CommunicationLog{
		ID:               communicationID,
		PackageID:        pkg.ID,
		TenantID:         tenantID,
		Action:           action,
		Channel:          entities.CommunicationChannelEmail,
		RecipientsJSON:   string(recipientsJSON),
		CcRecipientsJSON: ccJSON,
		EmailSubject:     cmd.Subject,
		EmailBody:        cmd.Body,
		FromAddress:      fromAddress,
		Status:           entities.CommunicationStatusQueued,
		InitiatedBy:      identity.UserID,
		CreatedAt:        now,
	}
	if err := uc.Communications.CreateCommunication(ctx, record); err != nil {
		return entities.CommunicationLog{}, err
	}

	message := application.EmailDeliveryMessage{
		CommunicationID: communicationID,
		PackageID:       pkg.ID,
		TenantID:        tenantID,
		Recipients:      cmd.Recipients,
		CcRecipients:    cmd.CcRecipients,
		Subject:         cmd.Subject,
		Body:            cmd.Body,
		PDFBlobPath:     pkg.GeneratedPDFPath,
		RequestedAt:     now,
	}
	if err := uc.Queue.Send(ctx, application.QueueEmailDelivery, message); err != nil {
		logger.Error("delivery enqueue failed",
			"event", "delivery_enqueue_failed",
			"module", "subrogation/demand-service",
			"layer", "application",
			"package_id", pkg.ID,
			"communication_id", communicationID,
			"error", err.Error(),
		)
		return entities.CommunicationLog{}, err
	}
	logger.Info("delivery queued",
		"event", "delivery_queued",
		"module", "subrogation/demand-service",
		"layer", "application",
		"package_id", pkg.ID,
		"communication_id", communicationID,
		"recipient_count", len(cmd.Recipients),
	)
	return record, nil
}

func (uc UseCase) guardedPackage(ctx context.Context, identity application.Identity, suppliedTenant, packageID string) (entities.Package, string, error) {
	tenantID, err := application.ResolveTenant(identity, suppliedTenant)
	if err != nil {
		return entities.Package{}, "", err
	}
	if tenantID == "" {
		return entities.Package{}, "", domainerrors.ErrInvalidInput
	}
	pkg, err := uc.Packages.GetPackage(ctx, strings.TrimSpace(packageID))
	if err != nil {
		return entities.Package{}, "", err
	}
	if err := application.GuardTenant(pkg.TenantID, tenantID); err != nil {
		return entities.Package{}, "", err
	}
	return pkg, tenantID, nil
}

func (uc UseCase) nextDisplayOrder(ctx context.Context, packageID string) int {
	loaded, err := uc.Packages.GetPackageWithDocuments(ctx, packageID)
	if err != nil {
		return 1
	}
	highest := 0
	for _, doc := range loaded.Documents {
		if doc.DisplayOrder > highest {
			highest = doc.DisplayOrder
		}
	}
	return highest + 1
}

// parseDecimal treats an empty string as zero; anything else must parse.
func parseDecimal(raw string, dst *decimal.Decimal) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*dst = decimal.Zero
		return nil
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func (uc UseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
