package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/application/commands"
	"subroflow/contexts/subrogation/demand-service/application/queries"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	httptransport "subroflow/contexts/subrogation/demand-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) CreateCaseHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	req httptransport.CreateCaseRequest,
) (httptransport.CaseResponse, error) {
	lossDate, err := parseDate(req.LossDate)
	if err != nil {
		return httptransport.CaseResponse{}, domainerrors.ErrInvalidInput
	}
	result, err := h.Commands.CreateCase(ctx, identity, commands.CreateCaseCommand{
		TenantID:                   tenantID,
		ClaimID:                    req.ClaimID,
		PolicyNumber:               req.PolicyNumber,
		LossDate:                   lossDate,
		InsuredLiabilityPercent:    req.InsuredLiabilityPercent,
		ThirdPartyLiabilityPercent: req.ThirdPartyLiabilityPercent,
		TotalPaidIndemnity:         req.TotalPaidIndemnity,
		TotalPaidExpense:           req.TotalPaidExpense,
		OutstandingReserves:        req.OutstandingReserves,
		RecoverySought:             req.RecoverySought,
		PaymentBreakdown:           req.PaymentBreakdown,
		InternalNotes:              req.InternalNotes,
	})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Case: mapCase(result)}, nil
}

func (h Handler) GetCaseHandler(ctx context.Context, identity application.Identity, tenantID, caseID string) (httptransport.CaseResponse, error) {
	item, err := h.Queries.GetCase(ctx, identity, tenantID, caseID)
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Case: mapCase(item)}, nil
}

func (h Handler) UpdateCaseStatusHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	caseID string,
	req httptransport.UpdateCaseStatusRequest,
) (httptransport.CaseResponse, error) {
	result, err := h.Commands.UpdateCaseStatus(ctx, identity, commands.UpdateCaseStatusCommand{
		TenantID: tenantID,
		CaseID:   caseID,
		Status:   entities.CaseStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Case: mapCase(result)}, nil
}

func (h Handler) ListCasesHandler(ctx context.Context, identity application.Identity, tenantID string, offset, limit int) (httptransport.ListCasesResponse, error) {
	items, err := h.Queries.ListCases(ctx, identity, tenantID, offset, limit)
	if err != nil {
		return httptransport.ListCasesResponse{}, err
	}
	result := make([]httptransport.CaseDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapCase(item))
	}
	return httptransport.ListCasesResponse{Items: result}, nil
}

func (h Handler) CreatePackageHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	req httptransport.CreatePackageRequest,
) (httptransport.PackageResponse, error) {
	result, err := h.Commands.CreatePackage(ctx, identity, commands.CreatePackageCommand{
		TenantID: tenantID,
		CaseID:   req.CaseID,
	})
	if err != nil {
		return httptransport.PackageResponse{}, err
	}
	return httptransport.PackageResponse{Package: mapPackage(result)}, nil
}

func (h Handler) GetPackageHandler(ctx context.Context, identity application.Identity, tenantID, packageID string, withDocuments bool) (httptransport.PackageResponse, error) {
	item, err := h.Queries.GetPackage(ctx, identity, tenantID, packageID, withDocuments)
	if err != nil {
		return httptransport.PackageResponse{}, err
	}
	return httptransport.PackageResponse{Package: mapPackage(item)}, nil
}

func (h Handler) ListPackagesHandler(ctx context.Context, identity application.Identity, tenantID, caseID string) (httptransport.ListPackagesResponse, error) {
	items, err := h.Queries.ListPackagesByCase(ctx, identity, tenantID, caseID)
	if err != nil {
		return httptransport.ListPackagesResponse{}, err
	}
	result := make([]httptransport.PackageDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapPackage(item))
	}
	return httptransport.ListPackagesResponse{Items: result}, nil
}

func (h Handler) AddDocumentHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	packageID string,
	req httptransport.AddDocumentRequest,
) (httptransport.DocumentResponse, error) {
	result, err := h.Commands.AddDocument(ctx, identity, commands.AddDocumentCommand{
		TenantID:           tenantID,
		PackageID:          packageID,
		DocumentName:       req.DocumentName,
		Kind:               entities.DocumentKind(req.Kind),
		BlobPath:           req.BlobPath,
		ExternalDocumentID: req.ExternalDocumentID,
		IsIncluded:         req.IsIncluded,
		IsSensitive:        req.IsSensitive,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return httptransport.DocumentResponse{Document: mapDocument(result)}, nil
}

func (h Handler) UploadDocumentHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	packageID string,
	fileName string,
	contentType string,
	content []byte,
	documentName string,
	kind string,
	sensitive bool,
) (httptransport.DocumentResponse, error) {
	result, err := h.Commands.UploadDocument(ctx, identity, commands.UploadDocumentCommand{
		TenantID:     tenantID,
		PackageID:    packageID,
		FileName:     fileName,
		DocumentName: documentName,
		Kind:         entities.DocumentKind(kind),
		ContentType:  contentType,
		Content:      content,
		IsSensitive:  sensitive,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return httptransport.DocumentResponse{Document: mapDocument(result)}, nil
}

func (h Handler) DeleteDocumentHandler(ctx context.Context, identity application.Identity, tenantID, documentID string) error {
	return h.Commands.DeleteDocument(ctx, identity, commands.DeleteDocumentCommand{
		TenantID:   tenantID,
		DocumentID: documentID,
	})
}

func (h Handler) ReorderDocumentsHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	packageID string,
	req httptransport.ReorderDocumentsRequest,
) error {
	return h.Commands.ReorderDocuments(ctx, identity, commands.ReorderDocumentsCommand{
		TenantID:  tenantID,
		PackageID: packageID,
		Orders:    req.Orders,
	})
}

func (h Handler) GeneratePackageHandler(ctx context.Context, identity application.Identity, tenantID, packageID string) (httptransport.PackageResponse, error) {
	result, err := h.Commands.RequestGeneration(ctx, identity, commands.RequestGenerationCommand{
		TenantID:  tenantID,
		PackageID: packageID,
	})
	if err != nil {
		return httptransport.PackageResponse{}, err
	}
	return httptransport.PackageResponse{Package: mapPackage(result)}, nil
}

func (h Handler) SendPackageHandler(
	ctx context.Context,
	identity application.Identity,
	tenantID string,
	packageID string,
	req httptransport.SendPackageRequest,
) (httptransport.CommunicationResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.Commands.RequestDelivery(ctx, identity, commands.RequestDeliveryCommand{
		TenantID:     tenantID,
		PackageID:    packageID,
		Recipients:   append([]string(nil), req.Recipients...),
		CcRecipients: append([]string(nil), req.CcRecipients...),
		Subject:      req.Subject,
		Body:         req.Body,
		Action:       entities.CommunicationAction(req.Action),
	})
	if err != nil {
		return httptransport.CommunicationResponse{}, err
	}
	logger.Info("package send accepted",
		"event", "package_send_accepted",
		"module", "subrogation/demand-service",
		"layer", "transport",
		"package_id", packageID,
		"communication_id", result.ID,
	)
	return httptransport.CommunicationResponse{Communication: mapCommunication(result)}, nil
}

func (h Handler) GetCommunicationHandler(ctx context.Context, identity application.Identity, tenantID, communicationID string) (httptransport.CommunicationResponse, error) {
	item, err := h.Queries.GetCommunication(ctx, identity, tenantID, communicationID)
	if err != nil {
		return httptransport.CommunicationResponse{}, err
	}
	return httptransport.CommunicationResponse{Communication: mapCommunication(item)}, nil
}

func (h Handler) ListCommunicationsHandler(ctx context.Context, identity application.Identity, tenantID, packageID string) (httptransport.ListCommunicationsResponse, error) {
	items, err := h.Queries.ListCommunicationsByPackage(ctx, identity, tenantID, packageID)
	if err != nil {
		return httptransport.ListCommunicationsResponse{}, err
	}
	result := make([]httptransport.CommunicationDTO, 0, len(items))
	for _, item := range items {
		result = append(result, mapCommunication(item))
	}
	return httptransport.ListCommunicationsResponse{Items: result}, nil
}

func mapCase(item entities.Case) httptransport.CaseDTO {
	result := httptransport.CaseDTO{
		CaseID:                     item.ID,
		TenantID:                   item.TenantID,
		ClaimID:                    item.ClaimID,
		PolicyNumber:               item.PolicyNumber,
		LossDate:                   item.LossDate.UTC().Format("2006-01-02"),
		InsuredLiabilityPercent:    item.InsuredLiabilityPercent.String(),
		ThirdPartyLiabilityPercent: item.ThirdPartyLiabilityPercent.String(),
		TotalPaidIndemnity:         item.TotalPaidIndemnity.String(),
		TotalPaidExpense:           item.TotalPaidExpense.String(),
		OutstandingReserves:        item.OutstandingReserves.String(),
		RecoverySought:             item.RecoverySought.String(),
		PaymentBreakdown:           item.PaymentBreakdown,
		Status:                     string(item.Status),
		InternalNotes:              item.InternalNotes,
		CreatedBy:                  item.CreatedBy,
		CreatedAt:                  item.CreatedAt.UTC().Format(time.RFC3339),
		ModifiedBy:                 item.ModifiedBy,
	}
	if item.ModifiedAt != nil {
		result.ModifiedAt = item.ModifiedAt.UTC().Format(time.RFC3339)
	}
	return result
}

func mapPackage(item entities.Package) httptransport.PackageDTO {
	result := httptransport.PackageDTO{
		PackageID:        item.ID,
		CaseID:           item.CaseID,
		TenantID:         item.TenantID,
		VersionNumber:    item.VersionNumber,
		Status:           string(item.Status),
		GeneratedPDFPath: item.GeneratedPDFPath,
		PDFHash:          item.PDFHash,
		PDFSizeBytes:     item.PDFSizeBytes,
		PageCount:        item.PageCount,
		CreatedBy:        item.CreatedBy,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(item.Documents) > 0 {
		result.Documents = make([]httptransport.DocumentDTO, 0, len(item.Documents))
		for _, doc := range item.Documents {
			result.Documents = append(result.Documents, mapDocument(doc))
		}
	}
	return result
}

func mapDocument(item entities.Document) httptransport.DocumentDTO {
	return httptransport.DocumentDTO{
		DocumentID:         item.ID,
		PackageID:          item.PackageID,
		DocumentName:       item.DocumentName,
		Kind:               string(item.Kind),
		Source:             string(item.Source),
		BlobPath:           item.BlobPath,
		ExternalDocumentID: item.ExternalDocumentID,
		DisplayOrder:       item.DisplayOrder,
		IsIncluded:         item.IsIncluded,
		IsSensitive:        item.IsSensitive,
		UploadedAt:         item.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func mapCommunication(item entities.CommunicationLog) httptransport.CommunicationDTO {
	result := httptransport.CommunicationDTO{
		CommunicationID:    item.ID,
		PackageID:          item.PackageID,
		TenantID:           item.TenantID,
		Action:             string(item.Action),
		Channel:            string(item.Channel),
		Recipients:         item.RecipientsJSON,
		CcRecipients:       item.CcRecipientsJSON,
		EmailSubject:       item.EmailSubject,
		FromAddress:        item.FromAddress,
		Status:             string(item.Status),
		DeliveryTrackingID: item.DeliveryTrackingID,
		ErrorMessage:       item.ErrorMessage,
		InitiatedBy:        item.InitiatedBy,
		CreatedAt:          item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.SentAt != nil {
		result.SentAt = item.SentAt.UTC().Format(time.RFC3339)
	}
	if item.DeliveredAt != nil {
		result.DeliveredAt = item.DeliveredAt.UTC().Format(time.RFC3339)
	}
	return result
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return parsed.UTC(), nil
}
