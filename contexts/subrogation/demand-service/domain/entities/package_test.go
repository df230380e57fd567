package entities

import "testing"

func TestPackageStatusTransitions(t *testing.T) {
	cases := []struct {
		from    PackageStatus
		to      PackageStatus
		allowed bool
	}{
		{PackageStatusDraft, PackageStatusGenerating, true},
		{PackageStatusGenerated, PackageStatusGenerating, true},
		{PackageStatusFailed, PackageStatusGenerating, true},
		{PackageStatusGenerating, PackageStatusGenerated, true},
		{PackageStatusGenerating, PackageStatusFailed, true},
		{PackageStatusGenerated, PackageStatusSent, true},
		{PackageStatusSent, PackageStatusSent, true},
		{PackageStatusDraft, PackageStatusGenerated, false},
		{PackageStatusDraft, PackageStatusSent, false},
		{PackageStatusGenerated, PackageStatusFailed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestCommunicationStatusMonotonic(t *testing.T) {
	if !CommunicationStatusQueued.CanTransitionTo(CommunicationStatusSending) {
		t.Fatal("queued should advance to sending")
	}
	if !CommunicationStatusSending.CanTransitionTo(CommunicationStatusSent) {
		t.Fatal("sending should advance to sent")
	}
	if CommunicationStatusSent.CanTransitionTo(CommunicationStatusQueued) {
		t.Fatal("sent must not regress to queued")
	}
	if !CommunicationStatusQueued.CanTransitionTo(CommunicationStatusFailed) {
		t.Fatal("queued should be able to fail")
	}
	if CommunicationStatusDelivered.CanTransitionTo(CommunicationStatusFailed) {
		t.Fatal("delivered is terminal")
	}
}
