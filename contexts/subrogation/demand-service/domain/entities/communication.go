package entities

import "time"

type CommunicationAction string

const (
	CommunicationActionInitialDemand CommunicationAction = "initial_demand"
	CommunicationActionFollowUp      CommunicationAction = "follow_up"
	CommunicationActionResponse      CommunicationAction = "response"
	CommunicationActionFinalDemand   CommunicationAction = "final_demand"
)

type CommunicationChannel string

const (
	CommunicationChannelEmail  CommunicationChannel = "email"
	CommunicationChannelPrint  CommunicationChannel = "print"
	CommunicationChannelPortal CommunicationChannel = "portal"
)

type CommunicationStatus string

const (
	CommunicationStatusQueued    CommunicationStatus = "queued"
	CommunicationStatusSending   CommunicationStatus = "sending"
	CommunicationStatusSent      CommunicationStatus = "sent"
	CommunicationStatusDelivered CommunicationStatus = "delivered"
	CommunicationStatusFailed    CommunicationStatus = "failed"
	CommunicationStatusBounced   CommunicationStatus = "bounced"
)

var communicationRank = map[CommunicationStatus]int{
	CommunicationStatusQueued:    0,
	CommunicationStatusSending:   1,
	CommunicationStatusSent:      2,
	CommunicationStatusDelivered: 3,
	CommunicationStatusBounced:   4,
}

// Terminal reports whether no further delivery progress is possible.
func (s CommunicationStatus) Terminal() bool {
	return s == CommunicationStatusDelivered ||
		s == CommunicationStatusFailed ||
		s == CommunicationStatusBounced
}

// CanTransitionTo enforces monotonic forward progress. Failed is reachable
// from any non-terminal state. Repeating the current state is allowed so
// duplicate worker passes stay idempotent.
func (s CommunicationStatus) CanTransitionTo(next CommunicationStatus) bool {
	if next == CommunicationStatusFailed {
		return !s.Terminal()
	}
	current, ok := communicationRank[s]
	if !ok {
		return false
	}
	target, ok := communicationRank[next]
	if !ok {
		return false
	}
	return target >= current
}

// CommunicationLog is one record of an attempted delivery of a package.
// SentAt is stamped exactly once, on the transition into sent; DeliveredAt
// exactly once, on the transition into delivered.
type CommunicationLog struct {
	ID        string
	PackageID string
	TenantID  string

	Action  CommunicationAction
	Channel CommunicationChannel

	RecipientsJSON   string
	CcRecipientsJSON string

	EmailSubject string
	EmailBody    string
	FromAddress  string

	Status             CommunicationStatus
	DeliveryTrackingID string
	SentAt             *time.Time
	DeliveredAt        *time.Time
	ErrorMessage       string

	InitiatedBy string
	CreatedAt   time.Time
}
