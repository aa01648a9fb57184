package negotiate

import "errors"

// Negotiation failure modes. Each wraps
// descriptive context via fmt.Errorf's %w, so callers can errors.Is against
// these sentinels regardless of the message.
var (
	ErrVersionMismatch      = errors.New("negotiate: version mismatch")
	ErrProtocolTooOld       = errors.New("negotiate: protocol too old")
	ErrUnknownAlgorithm     = errors.New("negotiate: unknown algorithm")
	ErrNegotiationTruncated = errors.New("negotiate: truncated negotiation data")
	ErrSeedSyncViolation    = errors.New("negotiate: checksum seed exchanged out of order")
)
