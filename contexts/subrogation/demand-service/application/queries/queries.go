package queries

import (
	"context"
	"log/slog"
	"strings"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type UseCase struct {
	Cases          ports.CaseRepository
	Packages       ports.PackageRepository
	Communications ports.CommunicationRepository
	Logger         *slog.Logger
}

func (uc UseCase) GetCase(ctx context.Context, identity application.Identity, tenantID, caseID string) (entities.Case, error) {
	effective, err := application.ResolveTenant(identity, tenantID)
	if err != nil {
		return entities.Case{}, err
	}
	record, err := uc.Cases.GetCase(ctx, strings.TrimSpace(caseID))
	if err != nil {
		return entities.Case{}, err
	}
	if err := application.GuardTenant(record.TenantID, effective); err != nil {
		return entities.Case{}, err
	}
	return record, nil
}

func (uc UseCase) ListCases(ctx context.Context, identity application.Identity, tenantID string, offset, limit int) ([]entities.Case, error) {
	effective, err := application.ResolveTenant(identity, tenantID)
	if err != nil {
		return nil, err
	}
	if effective == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return uc.Cases.ListCasesByTenant(ctx, effective, offset, limit)
}

func (uc UseCase) GetPackage(ctx context.Context, identity application.Identity, tenantID, packageID string, withDocuments bool) (entities.Package, error) {
	effective, err := application.ResolveTenant(identity, tenantID)
	if err != nil {
		return entities.Package{}, err
	}
	var record entities.Package
	if withDocuments {
		record, err = uc.Packages.GetPackageWithDocuments(ctx, strings.TrimSpace(packageID))
	} else {
		record, err = uc.Packages.GetPackage(ctx, strings.TrimSpace(packageID))
	}
	if err != nil {
		return entities.Package{}, err
	}
	if err := application.GuardTenant(record.TenantID, effective); err != nil {
		return entities.Package{}, err
	}
	return record, nil
}

// ListPackagesByCase guards on the case first so a caller cannot probe
// package existence across tenants through the listing.
func (uc UseCase) ListPackagesByCase(ctx context.Context, identity application.Identity, tenantID, caseID string) ([]entities.Package, error) {
	owningCase, err := uc.GetCase(ctx, identity, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	return uc.Packages.ListPackagesByCase(ctx, owningCase.ID)
}

func (uc UseCase) GetCommunication(ctx context.Context, identity application.Identity, tenantID, communicationID string) (entities.CommunicationLog, error) {
	effective, err := application.ResolveTenant(identity, tenantID)
	if err != nil {
		return entities.CommunicationLog{}, err
	}
	record, err := uc.Communications.GetCommunication(ctx, strings.TrimSpace(communicationID))
	if err != nil {
		return entities.CommunicationLog{}, err
	}
	if err := application.GuardTenant(record.TenantID, effective); err != nil {
		return entities.CommunicationLog{}, err
	}
	return record, nil
}

func (uc UseCase) ListCommunicationsByPackage(ctx context.Context, identity application.Identity, tenantID, packageID string) ([]entities.CommunicationLog, error) {
	if _, err := uc.GetPackage(ctx, identity, tenantID, packageID, false); err != nil {
		return nil, err
	}
	return uc.Communications.ListCommunicationsByPackage(ctx, strings.TrimSpace(packageID))
}
