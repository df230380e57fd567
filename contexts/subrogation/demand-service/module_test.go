package demandservice

import (
	"context"
	"testing"
	"time"

	application "subroflow/contexts/subrogation/demand-service/application"
	"subroflow/contexts/subrogation/demand-service/application/commands"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	"subroflow/internal/platform/messaging"
)

type fixedRenderer struct{}

func (fixedRenderer) Render(_ entities.Case, _ entities.Package) ([]byte, int, error) {
	return []byte("%PDF-1.7 assembled demand package"), 3, nil
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// End-to-end over the in-process bus: request generation, let the pdf worker
// produce the artifact, request delivery, let the email worker send it.
func TestModulePipelineEndToEnd(t *testing.T) {
	bus := messaging.NewBus(3, nil)
	module := NewInMemoryModule(nil, bus, fixedRenderer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := module.PDFConsumer.Start(ctx, bus); err != nil {
		t.Fatalf("start pdf consumer failed: %v", err)
	}
	if err := module.EmailConsumer.Start(ctx, bus); err != nil {
		t.Fatalf("start email consumer failed: %v", err)
	}

	identity := application.Identity{UserID: "adjuster-1", TenantID: "tenant-a"}
	uc := module.Handler.Commands

	created, err := uc.CreateCase(ctx, identity, commands.CreateCaseCommand{
		ClaimID:        "CLM-1001",
		PolicyNumber:   "POL-88",
		LossDate:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		RecoverySought: "12500.00",
	})
	if err != nil {
		t.Fatalf("create case failed: %v", err)
	}
	pkg, err := uc.CreatePackage(ctx, identity, commands.CreatePackageCommand{CaseID: created.ID})
	if err != nil {
		t.Fatalf("create package failed: %v", err)
	}

	if _, err := uc.RequestGeneration(ctx, identity, commands.RequestGenerationCommand{PackageID: pkg.ID}); err != nil {
		t.Fatalf("request generation failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		current, err := module.Store.GetPackage(ctx, pkg.ID)
		return err == nil && current.Status == entities.PackageStatusGenerated
	})

	generated, err := module.Store.GetPackage(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("get package failed: %v", err)
	}
	if generated.PDFHash == "" || generated.PageCount != 3 {
		t.Fatalf("artifact incomplete: %+v", generated)
	}

	comm, err := uc.RequestDelivery(ctx, identity, commands.RequestDeliveryCommand{
		PackageID:  pkg.ID,
		Recipients: []string{"claims@thirdparty.example"},
		Subject:    "Demand for claim CLM-1001",
		Body:       "Please find the attached demand package.",
	})
	if err != nil {
		t.Fatalf("request delivery failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		current, err := module.Store.GetCommunication(ctx, comm.ID)
		return err == nil && current.Status == entities.CommunicationStatusSent
	})

	sent, err := module.Store.GetCommunication(ctx, comm.ID)
	if err != nil {
		t.Fatalf("get communication failed: %v", err)
	}
	if sent.DeliveryTrackingID == "" || sent.SentAt == nil {
		t.Fatalf("delivery record incomplete: %+v", sent)
	}

	waitFor(t, 2*time.Second, func() bool {
		current, err := module.Store.GetPackage(ctx, pkg.ID)
		return err == nil && current.Status == entities.PackageStatusSent
	})
	waitFor(t, 2*time.Second, func() bool {
		current, err := module.Store.GetCase(ctx, created.ID)
		return err == nil && current.Status == entities.CaseStatusDemandSent
	})
}
