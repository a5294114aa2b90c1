package market

import "errors"

// Failure taxonomy. Every raise site wraps one of these sentinels with
// a label naming the exact control or wait that failed, so callers can
// match the kind with errors.Is while logs stay diagnosable. None of
// these are retried where they are raised; retry happens only at the
// buyer's cycle boundary.
var (
	// ErrStructuralMismatch: the live page no longer matches the
	// assumed layout (wrong field count, unexpected shape).
	ErrStructuralMismatch = errors.New("page structure does not match the expected layout")

	// ErrControlMissing: an expected interactive control is absent.
	ErrControlMissing = errors.New("expected control is missing")

	// ErrTimeout: a bounded wait for visibility, hiding or navigation
	// expired.
	ErrTimeout = errors.New("wait timed out")

	// ErrPriceFormat: a sale's price text is not in the expected
	// euro-prefixed format.
	ErrPriceFormat = errors.New("price text does not match the expected format")

	// ErrNoTickets: a sale page offers zero selectable tickets.
	ErrNoTickets = errors.New("no tickets found in this sale")

	// ErrNoContainer: the sales container itself is missing from the
	// home page.
	ErrNoContainer = errors.New("sales container is missing")

	// ErrNoSales: the sales container exists but holds no sales. The
	// availability pre-check is meant to catch empty states before
	// enumeration, so hitting this is an error, not an empty result.
	ErrNoSales = errors.New("no sales under the container")
)
