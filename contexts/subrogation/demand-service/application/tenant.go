package application

import (
	"strings"

	domainerrors "subroflow/contexts/subrogation/demand-service/domain/errors"
)

// Identity is the authenticated caller. TenantID is the tenant claim from
// the auth layer; it is empty in unauthenticated/dev setups.
type Identity struct {
	UserID   string
	TenantID string
}

// ResolveTenant returns the tenant the request must execute under.
//
// With a tenant claim, a non-empty supplied id must equal the claim; a
// mismatch is rejected, never silently substituted. Without a claim the
// supplied id is trusted as-is, which is a deliberate dev fallback and not
// a security guarantee.
func ResolveTenant(identity Identity, supplied string) (string, error) {
	claimed := strings.TrimSpace(identity.TenantID)
	supplied = strings.TrimSpace(supplied)
	if claimed != "" {
		if supplied != "" && supplied != claimed {
			return "", domainerrors.ErrTenantMismatch
		}
		return claimed, nil
	}
	return supplied, nil
}

// GuardTenant re-validates a stored tenant id against the effective tenant.
// The failure is forbidden, not not-found: the distinction between "doesn't
// exist" and "exists, not yours" is kept internally for auditing.
func GuardTenant(storedTenantID, effectiveTenantID string) error {
	if storedTenantID != effectiveTenantID {
		return domainerrors.ErrForbidden
	}
	return nil
}
