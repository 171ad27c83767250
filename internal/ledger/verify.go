package ledger

import "fmt"

// CheckChain walks entries in order and validates the hash chain: each
// entry's PrevHash must equal its predecessor's ThisHash, the first entry's
// PrevHash must be empty, and every ThisHash must match a fingerprint
// recomputed from the entry's own fields. Returns nil for an intact chain
// (the empty chain is trivially intact), or a *ChainIntegrityError carrying
// the position of the first broken link.
func CheckChain(entries []*Entry) error {
	expectedPrev := ""
	for i, e := range entries {
		if i == 0 {
			if e.PrevHash != "" {
				return &ChainIntegrityError{Position: 0, Reason: "first entry has a non-empty prev_hash"}
			}
		} else if e.PrevHash != expectedPrev {
			return &ChainIntegrityError{
				Position: i,
				Reason:   fmt.Sprintf("prev_hash %q does not match predecessor hash %q", e.PrevHash, expectedPrev),
			}
		}
		if got := fingerprintEntry(e); got != e.ThisHash {
			return &ChainIntegrityError{
				Position: i,
				Reason:   fmt.Sprintf("stored hash %q does not match recomputed fingerprint %q", e.ThisHash, got),
			}
		}
		expectedPrev = e.ThisHash
	}
	return nil
}
