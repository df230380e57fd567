package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var (
	_ ports.CaseRepository          = (*Repository)(nil)
	_ ports.PackageRepository       = (*Repository)(nil)
	_ ports.CommunicationRepository = (*Repository)(nil)
)

func (r *Repository) CreateCase(ctx context.Context, c entities.Case) error {
	row := caseModelFromEntity(c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetCase(ctx context.Context, caseID string) (entities.Case, error) {
	var row caseModel
	err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Case{}, domainerrors.ErrCaseNotFound
		}
		return entities.Case{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCasesByTenant(ctx context.Context, tenantID string, offset, limit int) ([]entities.Case, error) {
	var rows []caseModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", strings.TrimSpace(tenantID)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Case, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateCaseStatus(ctx context.Context, caseID string, status entities.CaseStatus, modifiedBy string, modifiedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&caseModel{}).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Updates(map[string]any{
			"status":      string(status),
			"modified_by": strings.TrimSpace(modifiedBy),
			"modified_at": modifiedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCaseNotFound
	}
	return nil
}

func (r *Repository) CreatePackage(ctx context.Context, p entities.Package) error {
	row := packageModelFromEntity(p)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		// The (case_id, version_number) unique index turns a lost version
		// race into a retryable conflict instead of a duplicate version.
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetPackage(ctx context.Context, packageID string) (entities.Package, error) {
	var row packageModel
	err := r.db.WithContext(ctx).
		Where("package_id = ?", strings.TrimSpace(packageID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Package{}, domainerrors.ErrPackageNotFound
		}
		return entities.Package{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetPackageWithDocuments(ctx context.Context, packageID string) (entities.Package, error) {
	pkg, err := r.GetPackage(ctx, packageID)
	if err != nil {
		return entities.Package{}, err
	}

	var rows []documentModel
	if err := r.db.WithContext(ctx).
		Where("package_id = ?", pkg.ID).
		Order("display_order ASC, uploaded_at ASC").
		Find(&rows).
		Error; err != nil {
		return entities.Package{}, err
	}
	pkg.Documents = make([]entities.Document, 0, len(rows))
	for _, row := range rows {
		pkg.Documents = append(pkg.Documents, row.toEntity())
	}
	return pkg, nil
}

func (r *Repository) ListPackagesByCase(ctx context.Context, caseID string) ([]entities.Package, error) {
	var rows []packageModel
	if err := r.db.WithContext(ctx).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Order("version_number DESC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Package, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) LatestPackageVersion(ctx context.Context, caseID string) (int, error) {
	var latest *int
	err := r.db.WithContext(ctx).
		Model(&packageModel{}).
		Where("case_id = ?", strings.TrimSpace(caseID)).
		Select("MAX(version_number)").
		Scan(&latest).
		Error
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return *latest, nil
}

// UpdatePackageStatus is a compare-and-set: the row only moves when its
// current status allows the target, so a stale redelivered worker message
// cannot regress a package that has already moved on.
func (r *Repository) UpdatePackageStatus(ctx context.Context, packageID string, status entities.PackageStatus) error {
	id := strings.TrimSpace(packageID)
	result := r.db.WithContext(ctx).
		Model(&packageModel{}).
		Where("package_id = ? AND status IN ?", id, statusStrings(entities.PackageStatusesAllowing(status))).
		Updates(map[string]any{
			"status": string(status),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetPackage(ctx, id); err != nil {
			return err
		}
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

// UpdateGeneratedArtifact overwrites the artifact from any status except
// sent: generating is the normal path, generated a redelivered duplicate
// converging on the same result, failed a retry that finally succeeded. A
// sent package keeps its delivered artifact.
func (r *Repository) UpdateGeneratedArtifact(ctx context.Context, packageID string, artifact entities.GeneratedArtifact) error {
	id := strings.TrimSpace(packageID)
	result := r.db.WithContext(ctx).
		Model(&packageModel{}).
		Where("package_id = ? AND status <> ?", id, string(entities.PackageStatusSent)).
		Updates(map[string]any{
			"status":             string(entities.PackageStatusGenerated),
			"generated_pdf_path": strings.TrimSpace(artifact.BlobPath),
			"pdf_hash":           strings.TrimSpace(artifact.Hash),
			"pdf_size_bytes":     artifact.SizeBytes,
			"page_count":         artifact.PageCount,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetPackage(ctx, id); err != nil {
			return err
		}
		return domainerrors.ErrInvalidTransition
	}
	return nil
}

func statusStrings(statuses []entities.PackageStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return values
}

func (r *Repository) AddDocument(ctx context.Context, d entities.Document) error {
	row := documentModelFromEntity(d)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	var row documentModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Document{}, domainerrors.ErrDocumentNotFound
		}
		return entities.Document{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) DeleteDocument(ctx context.Context, documentID string) error {
	result := r.db.WithContext(ctx).
		Where("document_id = ?", strings.TrimSpace(documentID)).
		Delete(&documentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrDocumentNotFound
	}
	return nil
}

func (r *Repository) UpdateDocumentOrder(ctx context.Context, orders map[string]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for documentID, displayOrder := range orders {
			result := tx.Model(&documentModel{}).
				Where("document_id = ?", strings.TrimSpace(documentID)).
				Updates(map[string]any{
					"display_order": displayOrder,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrDocumentNotFound
			}
		}
		return nil
	})
}

func (r *Repository) CreateCommunication(ctx context.Context, log entities.CommunicationLog) error {
	row := communicationModelFromEntity(log)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetCommunication(ctx context.Context, communicationID string) (entities.CommunicationLog, error) {
	var row communicationModel
	err := r.db.WithContext(ctx).
		Where("communication_id = ?", strings.TrimSpace(communicationID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CommunicationLog{}, domainerrors.ErrCommunicationNotFound
		}
		return entities.CommunicationLog{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCommunicationsByPackage(ctx context.Context, packageID string) ([]entities.CommunicationLog, error) {
	var rows []communicationModel
	if err := r.db.WithContext(ctx).
		Where("package_id = ?", strings.TrimSpace(packageID)).
		Order("created_at DESC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.CommunicationLog, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateCommunicationStatus(ctx context.Context, communicationID string, status entities.CommunicationStatus, trackingID string, at time.Time) error {
	updates := map[string]any{
		"status": string(status),
	}
	if strings.TrimSpace(trackingID) != "" {
		updates["delivery_tracking_id"] = strings.TrimSpace(trackingID)
	}
	// First-entry timestamps stay put on redelivery.
	switch status {
	case entities.CommunicationStatusSent:
		updates["sent_at"] = gorm.Expr("COALESCE(sent_at, ?)", at.UTC())
	case entities.CommunicationStatusDelivered:
		updates["delivered_at"] = gorm.Expr("COALESCE(delivered_at, ?)", at.UTC())
	}

	result := r.db.WithContext(ctx).
		Model(&communicationModel{}).
		Where("communication_id = ?", strings.TrimSpace(communicationID)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCommunicationNotFound
	}
	return nil
}

func (r *Repository) UpdateCommunicationError(ctx context.Context, communicationID string, message string) error {
	result := r.db.WithContext(ctx).
		Model(&communicationModel{}).
		Where("communication_id = ?", strings.TrimSpace(communicationID)).
		Updates(map[string]any{
			"error_message": message,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCommunicationNotFound
	}
	return nil
}

type caseModel struct {
	CaseID                     string          `gorm:"column:case_id;primaryKey"`
	TenantID                   string          `gorm:"column:tenant_id"`
	ClaimID                    string          `gorm:"column:claim_id"`
	PolicyNumber               string          `gorm:"column:policy_number"`
	LossDate                   time.Time       `gorm:"column:loss_date"`
	InsuredLiabilityPercent    decimal.Decimal `gorm:"column:insured_liability_percent;type:numeric(5,2)"`
	ThirdPartyLiabilityPercent decimal.Decimal `gorm:"column:third_party_liability_percent;type:numeric(5,2)"`
	TotalPaidIndemnity         decimal.Decimal `gorm:"column:total_paid_indemnity;type:numeric(18,2)"`
	TotalPaidExpense           decimal.Decimal `gorm:"column:total_paid_expense;type:numeric(18,2)"`
	OutstandingReserves        decimal.Decimal `gorm:"column:outstanding_reserves;type:numeric(18,2)"`
	RecoverySought             decimal.Decimal `gorm:"column:recovery_sought;type:numeric(18,2)"`
	PaymentBreakdown           string          `gorm:"column:payment_breakdown"`
	Status                     string          `gorm:"column:status"`
	InternalNotes              string          `gorm:"column:internal_notes"`
	CreatedBy                  string          `gorm:"column:created_by"`
	CreatedAt                  time.Time       `gorm:"column:created_at"`
	ModifiedBy                 string          `gorm:"column:modified_by"`
	ModifiedAt                 *time.Time      `gorm:"column:modified_at"`
}

func (caseModel) TableName() string {
	return "subrogation_cases"
}

func caseModelFromEntity(item entities.Case) caseModel {
	return caseModel{
		CaseID:                     strings.TrimSpace(item.ID),
		TenantID:                   strings.TrimSpace(item.TenantID),
		ClaimID:                    strings.TrimSpace(item.ClaimID),
		PolicyNumber:               strings.TrimSpace(item.PolicyNumber),
		LossDate:                   item.LossDate.UTC(),
		InsuredLiabilityPercent:    item.InsuredLiabilityPercent,
		ThirdPartyLiabilityPercent: item.ThirdPartyLiabilityPercent,
		TotalPaidIndemnity:         item.TotalPaidIndemnity,
		TotalPaidExpense:           item.TotalPaidExpense,
		OutstandingReserves:        item.OutstandingReserves,
		RecoverySought:             item.RecoverySought,
		PaymentBreakdown:           item.PaymentBreakdown,
		Status:                     string(item.Status),
		InternalNotes:              item.InternalNotes,
		CreatedBy:                  strings.TrimSpace(item.CreatedBy),
		CreatedAt:                  item.CreatedAt.UTC(),
		ModifiedBy:                 strings.TrimSpace(item.ModifiedBy),
		ModifiedAt:                 normalizeOptionalTime(item.ModifiedAt),
	}
}

func (m caseModel) toEntity() entities.Case {
	return entities.Case{
		ID:                         m.CaseID,
		TenantID:                   m.TenantID,
		ClaimID:                    m.ClaimID,
		PolicyNumber:               m.PolicyNumber,
		LossDate:                   m.LossDate.UTC(),
		InsuredLiabilityPercent:    m.InsuredLiabilityPercent,
		ThirdPartyLiabilityPercent: m.ThirdPartyLiabilityPercent,
		TotalPaidIndemnity:         m.TotalPaidIndemnity,
		TotalPaidExpense:           m.TotalPaidExpense,
		OutstandingReserves:        m.OutstandingReserves,
		RecoverySought:             m.RecoverySought,
		PaymentBreakdown:           m.PaymentBreakdown,
		Status:                     entities.CaseStatus(m.Status),
		InternalNotes:              m.InternalNotes,
		CreatedBy:                  m.CreatedBy,
		CreatedAt:                  m.CreatedAt.UTC(),
		ModifiedBy:                 m.ModifiedBy,
		ModifiedAt:                 normalizeOptionalTime(m.ModifiedAt),
	}
}

type packageModel struct {
	PackageID        string    `gorm:"column:package_id;primaryKey"`
	CaseID           string    `gorm:"column:case_id;uniqueIndex:ux_demand_packages_case_version"`
	TenantID         string    `gorm:"column:tenant_id"`
	VersionNumber    int       `gorm:"column:version_number;uniqueIndex:ux_demand_packages_case_version"`
	Status           string    `gorm:"column:status"`
	GeneratedPDFPath string    `gorm:"column:generated_pdf_path"`
	PDFHash          string    `gorm:"column:pdf_hash"`
	PDFSizeBytes     int64     `gorm:"column:pdf_size_bytes"`
	PageCount        int       `gorm:"column:page_count"`
	CreatedBy        string    `gorm:"column:created_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (packageModel) TableName() string {
	return "demand_packages"
}

func packageModelFromEntity(item entities.Package) packageModel {
	return packageModel{
		PackageID:        strings.TrimSpace(item.ID),
		CaseID:           strings.TrimSpace(item.CaseID),
		TenantID:         strings.TrimSpace(item.TenantID),
		VersionNumber:    item.VersionNumber,
		Status:           string(item.Status),
		GeneratedPDFPath: strings.TrimSpace(item.GeneratedPDFPath),
		PDFHash:          strings.TrimSpace(item.PDFHash),
		PDFSizeBytes:     item.PDFSizeBytes,
		PageCount:        item.PageCount,
		CreatedBy:        strings.TrimSpace(item.CreatedBy),
		CreatedAt:        item.CreatedAt.UTC(),
	}
}

func (m packageModel) toEntity() entities.Package {
	return entities.Package{
		ID:               m.PackageID,
		CaseID:           m.CaseID,
		TenantID:         m.TenantID,
		VersionNumber:    m.VersionNumber,
		Status:           entities.PackageStatus(m.Status),
		GeneratedPDFPath: m.GeneratedPDFPath,
		PDFHash:          m.PDFHash,
		PDFSizeBytes:     m.PDFSizeBytes,
		PageCount:        m.PageCount,
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

type documentModel struct {
	DocumentID         string    `gorm:"column:document_id;primaryKey"`
	PackageID          string    `gorm:"column:package_id"`
	DocumentName       string    `gorm:"column:document_name"`
	Kind               string    `gorm:"column:kind"`
	Source             string    `gorm:"column:source"`
	BlobPath           string    `gorm:"column:blob_path"`
	ExternalDocumentID string    `gorm:"column:external_document_id"`
	DisplayOrder       int       `gorm:"column:display_order"`
	IsIncluded         bool      `gorm:"column:is_included"`
	IsSensitive        bool      `gorm:"column:is_sensitive"`
	UploadedAt         time.Time `gorm:"column:uploaded_at"`
}

func (documentModel) TableName() string {
	return "package_documents"
}

func documentModelFromEntity(item entities.Document) documentModel {
	return documentModel{
		DocumentID:         strings.TrimSpace(item.ID),
		PackageID:          strings.TrimSpace(item.PackageID),
		DocumentName:       strings.TrimSpace(item.DocumentName),
		Kind:               string(item.Kind),
		Source:             string(item.Source),
		BlobPath:           strings.TrimSpace(item.BlobPath),
		ExternalDocumentID: strings.TrimSpace(item.ExternalDocumentID),
		DisplayOrder:       item.DisplayOrder,
		IsIncluded:         item.IsIncluded,
		IsSensitive:        item.IsSensitive,
		UploadedAt:         item.UploadedAt.UTC(),
	}
}

func (m documentModel) toEntity() entities.Document {
	return entities.Document{
		ID:                 m.DocumentID,
		PackageID:          m.PackageID,
		DocumentName:       m.DocumentName,
		Kind:               entities.DocumentKind(m.Kind),
		Source:             entities.DocumentSource(m.Source),
		BlobPath:           m.BlobPath,
		ExternalDocumentID: m.ExternalDocumentID,
		DisplayOrder:       m.DisplayOrder,
		IsIncluded:         m.IsIncluded,
		IsSensitive:        m.IsSensitive,
		UploadedAt:         m.UploadedAt.UTC(),
	}
}

type communicationModel struct {
	CommunicationID    string     `gorm:"column:communication_id;primaryKey"`
	PackageID          string     `gorm:"column:package_id"`
	TenantID           string     `gorm:"column:tenant_id"`
	Action             string     `gorm:"column:action"`
	Channel            string     `gorm:"column:channel"`
	Recipients         string     `gorm:"column:recipients"`
	CcRecipients       string     `gorm:"column:cc_recipients"`
	EmailSubject       string     `gorm:"column:email_subject"`
	EmailBody          string     `gorm:"column:email_body"`
	FromAddress        string     `gorm:"column:from_address"`
	Status             string     `gorm:"column:status"`
	DeliveryTrackingID string     `gorm:"column:delivery_tracking_id"`
	SentAt             *time.Time `gorm:"column:sent_at"`
	DeliveredAt        *time.Time `gorm:"column:delivered_at"`
	ErrorMessage       string     `gorm:"column:error_message"`
	InitiatedBy        string     `gorm:"column:initiated_by"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
}

func (communicationModel) TableName() string {
	return "communication_logs"
}

func communicationModelFromEntity(item entities.CommunicationLog) communicationModel {
	return communicationModel{
		CommunicationID:    strings.TrimSpace(item.ID),
		PackageID:          strings.TrimSpace(item.PackageID),
		TenantID:           strings.TrimSpace(item.TenantID),
		Action:             string(item.Action),
		Channel:            string(item.Channel),
		Recipients:         item.RecipientsJSON,
		CcRecipients:       item.CcRecipientsJSON,
		EmailSubject:       item.EmailSubject,
		EmailBody:          item.EmailBody,
		FromAddress:        strings.TrimSpace(item.FromAddress),
		Status:             string(item.Status),
		DeliveryTrackingID: strings.TrimSpace(item.DeliveryTrackingID),
		SentAt:             normalizeOptionalTime(item.SentAt),
		DeliveredAt:        normalizeOptionalTime(item.DeliveredAt),
		ErrorMessage:       item.ErrorMessage,
		InitiatedBy:        strings.TrimSpace(item.InitiatedBy),
		CreatedAt:          item.CreatedAt.UTC(),
	}
}

func (m communicationModel) toEntity() entities.CommunicationLog {
	return entities.CommunicationLog{
		ID:                 m.CommunicationID,
		PackageID:          m.PackageID,
		TenantID:           m.TenantID,
		Action:             entities.CommunicationAction(m.Action),
		Channel:            entities.CommunicationChannel(m.Channel),
		RecipientsJSON:     m.Recipients,
		CcRecipientsJSON:   m.CcRecipients,
		EmailSubject:       m.EmailSubject,
		EmailBody:          m.EmailBody,
		FromAddress:        m.FromAddress,
		Status:             entities.CommunicationStatus(m.Status),
		DeliveryTrackingID: m.DeliveryTrackingID,
		SentAt:             normalizeOptionalTime(m.SentAt),
		DeliveredAt:        normalizeOptionalTime(m.DeliveredAt),
		ErrorMessage:       m.ErrorMessage,
		InitiatedBy:        m.InitiatedBy,
		CreatedAt:          m.CreatedAt.UTC(),
	}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
