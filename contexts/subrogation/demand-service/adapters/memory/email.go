package memory

import (
	"context"
	"fmt"
	"sync"

	"subroflow/contexts/subrogation/demand-service/ports"
)

// EmailSender records outbound mail instead of sending it. Fail makes the
// next Send return an error, for failure-path tests.
type EmailSender struct {
	mu   sync.Mutex
	sent []ports.OutboundEmail
	err  error
}

var _ ports.EmailSender = (*EmailSender)(nil)

func NewEmailSender() *EmailSender {
	return &EmailSender{}
}

func (s *EmailSender) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *EmailSender) Send(_ context.Context, email ports.OutboundEmail) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, email)
	return fmt.Sprintf("memory-%d", len(s.sent)), nil
}

func (s *EmailSender) Sent() []ports.OutboundEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.OutboundEmail(nil), s.sent...)
}
