package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

// PDFGenerationConsumer assembles the demand package PDF for queued
// generation requests and records the resulting artifact.
type PDFGenerationConsumer struct {
	Cases    ports.CaseRepository
	Packages ports.PackageRepository
	Objects  ports.ObjectStore
	Renderer ports.CoverRenderer
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (c PDFGenerationConsumer) Start(ctx context.Context, subscriber ports.QueueSubscriber) error {
	return subscriber.Subscribe(ctx, application.QueuePDFGeneration, "demand-pdf-generation", c.Handle)
}

// Handle is idempotent: the blob path is deterministic and the artifact
// update is a plain overwrite, so a redelivered message converges on the
// same result. Returned errors trigger transport redelivery.
func (c PDFGenerationConsumer) Handle(ctx context.Context, msg ports.QueueMessage) error {
	logger := application.ResolveLogger(c.Logger)
	started := time.Now()

	var payload application.PDFGenerationMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		logger.Error("pdf generation message malformed",
			"event", "pdf_generation_message_malformed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"message_id", msg.MessageID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("pdf generation started",
		"event", "pdf_generation_started",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"package_id", payload.PackageID,
		"tenant_id", payload.TenantID,
		"delivery_count", msg.DeliveryCount,
	)

	pkg, err := c.Packages.GetPackageWithDocuments(ctx, payload.PackageID)
	if err != nil {
		return c.fail(ctx, logger, payload, err)
	}
	if err := application.GuardTenant(pkg.TenantID, payload.TenantID); err != nil {
		return c.fail(ctx, logger, payload, err)
	}
	owningCase, err := c.Cases.GetCase(ctx, pkg.CaseID)
	if err != nil {
		return c.fail(ctx, logger, payload, err)
	}

	content, pageCount, err := c.Renderer.Render(owningCase, pkg)
	if err != nil {
		return c.fail(ctx, logger, payload, err)
	}

	blobPath := application.PackageBlobPath(pkg.TenantID, pkg.ID)
	if err := c.Objects.Upload(ctx, application.ContainerPackages, blobPath, content, "application/pdf"); err != nil {
		return c.fail(ctx, logger, payload, err)
	}

	digest := sha256.Sum256(content)
	artifact := entities.GeneratedArtifact{
		BlobPath:  blobPath,
		Hash:      hex.EncodeToString(digest[:]),
		SizeBytes: int64(len(content)),
		PageCount: pageCount,
	}
	if err := c.Packages.UpdateGeneratedArtifact(ctx, pkg.ID, artifact); err != nil {
		// A stale redelivery racing a package that already reached sent is
		// not a failure: the delivered artifact stays as it was.
		if errors.Is(err, domainerrors.ErrInvalidTransition) {
			logger.Info("pdf generation artifact superseded",
				"event", "pdf_generation_artifact_superseded",
				"module", "subrogation/demand-service",
				"layer", "worker",
				"package_id", pkg.ID,
			)
			return nil
		}
		return c.fail(ctx, logger, payload, err)
	}

	logger.Info("pdf generation completed",
		"event", "pdf_generation_completed",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"package_id", pkg.ID,
		"tenant_id", pkg.TenantID,
		"blob_path", blobPath,
		"size_bytes", artifact.SizeBytes,
		"page_count", pageCount,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// fail marks the package failed and re-raises so the transport redelivers.
// A vanished package is not re-raised: redelivery cannot fix it. The failed
// write only lands while the package is still generating; a redelivery that
// stumbles after an earlier attempt already recorded the artifact leaves
// the generated package intact.
func (c PDFGenerationConsumer) fail(ctx context.Context, logger *slog.Logger, payload application.PDFGenerationMessage, cause error) error {
	logger.Error("pdf generation failed",
		"event", "pdf_generation_failed",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"package_id", payload.PackageID,
		"tenant_id", payload.TenantID,
		"error", cause.Error(),
	)
	if errors.Is(cause, domainerrors.ErrPackageNotFound) {
		return nil
	}
	if err := c.Packages.UpdatePackageStatus(ctx, payload.PackageID, entities.PackageStatusFailed); err != nil {
		if errors.Is(err, domainerrors.ErrInvalidTransition) {
			logger.Warn("pdf generation failure status skipped",
				"event", "pdf_generation_failure_status_skipped",
				"module", "subrogation/demand-service",
				"layer", "worker",
				"package_id", payload.PackageID,
			)
		} else {
			logger.Error("pdf generation failure status update failed",
				"event", "pdf_generation_failure_status_update_failed",
				"module", "subrogation/demand-service",
				"layer", "worker",
				"package_id", payload.PackageID,
				"error", err.Error(),
			)
		}
	}
	return cause
}
