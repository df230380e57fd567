package workers

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"path"
	"strings"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
	"subroflow/contexts/subrogation/demand-service/ports"
)

// EmailDeliveryConsumer sends queued demand communications and tracks their
// delivery status on the communication log.
type EmailDeliveryConsumer struct {
	Cases          ports.CaseRepository
	Packages       ports.PackageRepository
	Communications ports.CommunicationRepository
	Objects        ports.ObjectStore
	Sender         ports.EmailSender
	Clock          ports.Clock
	FromName       string
	Logger         *slog.Logger
}

func (c EmailDeliveryConsumer) Start(ctx context.Context, subscriber ports.QueueSubscriber) error {
	return subscriber.Subscribe(ctx, application.QueueEmailDelivery, "demand-email-delivery", c.Handle)
}

func (c EmailDeliveryConsumer) Handle(ctx context.Context, msg ports.QueueMessage) error {
	logger := application.ResolveLogger(c.Logger)

	var payload application.EmailDeliveryMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		logger.Error("email delivery message malformed",
			"event", "email_delivery_message_malformed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"message_id", msg.MessageID,
			"error", err.Error(),
		)
		return err
	}

	comm, err := c.Communications.GetCommunication(ctx, payload.CommunicationID)
	if err != nil {
		logger.Error("email delivery communication missing",
			"event", "email_delivery_communication_missing",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"communication_id", payload.CommunicationID,
			"error", err.Error(),
		)
		if errors.Is(err, domainerrors.ErrCommunicationNotFound) {
			return nil
		}
		return err
	}
	// Redelivered message after a completed send: nothing to do.
	if comm.Status == entities.CommunicationStatusSent || comm.Status == entities.CommunicationStatusDelivered {
		logger.Info("email delivery already sent",
			"event", "email_delivery_already_sent",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"communication_id", comm.ID,
			"status", comm.Status,
		)
		return nil
	}

	now := c.now()
	if err := c.Communications.UpdateCommunicationStatus(ctx, comm.ID, entities.CommunicationStatusSending, "", now); err != nil {
		return err
	}

	email := ports.OutboundEmail{
		From:          comm.FromAddress,
		FromName:      c.FromName,
		To:            payload.Recipients,
		Cc:            payload.CcRecipients,
		Subject:       payload.Subject,
		PlainTextBody: payload.Body,
		HTMLBody:      htmlBody(payload.Body),
	}
	if payload.PDFBlobPath != "" {
		content, err := c.Objects.Download(ctx, application.ContainerPackages, payload.PDFBlobPath)
		if err != nil {
			return c.fail(ctx, logger, comm.ID, err)
		}
		email.Attachments = append(email.Attachments, ports.EmailAttachment{
			FileName:    path.Base(payload.PDFBlobPath),
			ContentType: "application/pdf",
			Content:     content,
		})
	}

	trackingID, err := c.Sender.Send(ctx, email)
	if err != nil {
		return c.fail(ctx, logger, comm.ID, err)
	}

	sentAt := c.now()
	if err := c.Communications.UpdateCommunicationStatus(ctx, comm.ID, entities.CommunicationStatusSent, trackingID, sentAt); err != nil {
		return err
	}
	// The package reaches sent on its first successful delivery; later
	// deliveries leave it there.
	if err := c.Packages.UpdatePackageStatus(ctx, comm.PackageID, entities.PackageStatusSent); err != nil {
		logger.Error("email delivery package status update failed",
			"event", "email_delivery_package_status_update_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"package_id", comm.PackageID,
			"communication_id", comm.ID,
			"error", err.Error(),
		)
	} else {
		c.advanceCase(ctx, logger, comm, sentAt)
	}

	logger.Info("email delivery sent",
		"event", "email_delivery_sent",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"communication_id", comm.ID,
		"package_id", comm.PackageID,
		"tracking_id", trackingID,
		"recipient_count", len(payload.Recipients),
	)
	return nil
}

func (c EmailDeliveryConsumer) fail(ctx context.Context, logger *slog.Logger, communicationID string, cause error) error {
	logger.Error("email delivery failed",
		"event", "email_delivery_failed",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"communication_id", communicationID,
		"error", cause.Error(),
	)
	now := c.now()
	if err := c.Communications.UpdateCommunicationError(ctx, communicationID, cause.Error()); err != nil {
		logger.Error("email delivery error record failed",
			"event", "email_delivery_error_record_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"communication_id", communicationID,
			"error", err.Error(),
		)
	}
	if err := c.Communications.UpdateCommunicationStatus(ctx, communicationID, entities.CommunicationStatusFailed, "", now); err != nil {
		logger.Error("email delivery failure status update failed",
			"event", "email_delivery_failure_status_update_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"communication_id", communicationID,
			"error", err.Error(),
		)
	}
	return cause
}

// advanceCase moves a draft case to demand_sent on its first delivered
// demand. Cases that already moved past draft keep their status. Failures
// here never fail the delivery: the email is already out.
func (c EmailDeliveryConsumer) advanceCase(ctx context.Context, logger *slog.Logger, comm entities.CommunicationLog, sentAt time.Time) {
	if c.Cases == nil {
		return
	}
	pkg, err := c.Packages.GetPackage(ctx, comm.PackageID)
	if err != nil {
		logger.Error("email delivery case lookup failed",
			"event", "email_delivery_case_lookup_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"package_id", comm.PackageID,
			"error", err.Error(),
		)
		return
	}
	owningCase, err := c.Cases.GetCase(ctx, pkg.CaseID)
	if err != nil {
		logger.Error("email delivery case lookup failed",
			"event", "email_delivery_case_lookup_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"case_id", pkg.CaseID,
			"error", err.Error(),
		)
		return
	}
	if owningCase.Status != entities.CaseStatusDraft {
		return
	}
	if err := c.Cases.UpdateCaseStatus(ctx, owningCase.ID, entities.CaseStatusDemandSent, comm.InitiatedBy, sentAt); err != nil {
		logger.Error("email delivery case status update failed",
			"event", "email_delivery_case_status_update_failed",
			"module", "subrogation/demand-service",
			"layer", "worker",
			"case_id", owningCase.ID,
			"error", err.Error(),
		)
		return
	}
	logger.Info("case marked demand sent",
		"event", "case_demand_sent",
		"module", "subrogation/demand-service",
		"layer", "worker",
		"case_id", owningCase.ID,
		"package_id", comm.PackageID,
	)
}

func htmlBody(plain string) string {
	if plain == "" {
		return ""
	}
	escaped := html.EscapeString(plain)
	return "<html><body><p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p></body></html>"
}

func (c EmailDeliveryConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
