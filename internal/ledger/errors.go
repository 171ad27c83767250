package ledger

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a required field is empty or missing.
// Rejected at the boundary, before any storage interaction.
var ErrInvalidInput = errors.New("invalid input")

// ErrDuplicateHash is returned when the computed fingerprint already exists
// in the store. A true duplicate submission is a caller concern; the ledger
// never silently deduplicates.
var ErrDuplicateHash = errors.New("duplicate entry hash")

// ErrSchema is returned when the backing storage is unreachable, corrupted,
// or missing required structure. The store attempts idempotent
// self-initialization once before surfacing it.
var ErrSchema = errors.New("ledger storage error")

// ErrStaleHead is returned when an append's PrevHash no longer matches the
// chain tail, meaning another writer committed in between. Callers may
// re-read the head and resubmit; the ledger itself never retries.
var ErrStaleHead = errors.New("chain head moved")

// ChainIntegrityError reports the first broken link found while verifying a
// chain or feed. Position is the zero-based index of the offending record.
type ChainIntegrityError struct {
	Position int
	Reason   string
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violation at position %d: %s", e.Position, e.Reason)
}
