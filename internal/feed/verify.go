package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/errata-project/errata/internal/ledger"
)

// canonical field count of an item body: node_id, before_hash, after_hash,
// reason, reporter, prev_hash.
const bodyFields = 6

// Verify re-validates the hash chain from the feed document alone, without
// consulting the store. Items are checked in document order, which must
// match original insertion order.
//
// For every item the fingerprint is recomputed from the body fields and
// compared to the item's ID, so editing a body field without updating the
// link pointers is detected, not just reordering or relinking. Returns nil
// for an intact feed (the empty feed verifies trivially) or a
// *ledger.ChainIntegrityError at the first broken record.
func Verify(doc *Document) error {
	expectedPrev := ""
	for i, item := range doc.Entries {
		fields := strings.Split(item.Body, "|")
		if len(fields) != bodyFields {
			return &ledger.ChainIntegrityError{
				Position: i,
				Reason:   fmt.Sprintf("body has %d fields, want %d", len(fields), bodyFields),
			}
		}

		prev := fields[bodyFields-1]
		if i > 0 && prev != expectedPrev {
			return &ledger.ChainIntegrityError{
				Position: i,
				Reason:   fmt.Sprintf("prev_hash %q does not match predecessor hash %q", prev, expectedPrev),
			}
		}

		if got := ledger.Fingerprint(fields[0], fields[1], fields[2], fields[3], fields[4], prev); got != item.ID {
			return &ledger.ChainIntegrityError{
				Position: i,
				Reason:   fmt.Sprintf("record id %q does not match recomputed fingerprint %q", item.ID, got),
			}
		}

		expectedPrev = item.ID
	}
	return nil
}

// VerifyReader decodes a feed document from r and verifies it. A document
// that cannot be read or parsed fails with the underlying decode error;
// chain corruption fails with *ledger.ChainIntegrityError.
func VerifyReader(r io.Reader) error {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode feed document: %w", err)
	}
	return Verify(&doc)
}
