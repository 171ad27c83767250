package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is a single correction record in the ledger.
// The five caller-supplied fields plus PrevHash are the hashed material;
// Seq and CreatedAt are storage metadata and play no role in the chain.
type Entry struct {
	Seq        int64     `json:"seq"`
	NodeID     string    `json:"node_id"`
	BeforeHash string    `json:"before_hash"`
	AfterHash  string    `json:"after_hash"`
	Reason     string    `json:"reason"`
	Reporter   string    `json:"reporter"`
	PrevHash   string    `json:"prev_hash,omitempty"` // "" for the first entry
	ThisHash   string    `json:"this_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// CanonicalBody joins the six logical fields with "|" in the fixed hashing
// order. The trailing field is prevHash, "" when the entry is the first in
// the chain. The feed emits exactly this string as each record's body, so a
// verifier can split on "|" and recompute the fingerprint.
func CanonicalBody(nodeID, beforeHash, afterHash, reason, reporter, prevHash string) string {
	return strings.Join([]string{nodeID, beforeHash, afterHash, reason, reporter, prevHash}, "|")
}

// Fingerprint computes the SHA-256 digest of the canonical field encoding,
// rendered as lowercase hex. Deterministic and pure.
func Fingerprint(nodeID, beforeHash, afterHash, reason, reporter, prevHash string) string {
	sum := sha256.Sum256([]byte(CanonicalBody(nodeID, beforeHash, afterHash, reason, reporter, prevHash)))
	return hex.EncodeToString(sum[:])
}

// Body returns the entry's canonical pipe-joined encoding.
func (e *Entry) Body() string {
	return CanonicalBody(e.NodeID, e.BeforeHash, e.AfterHash, e.Reason, e.Reporter, e.PrevHash)
}

// fingerprintEntry recomputes an entry's fingerprint from its fields.
func fingerprintEntry(e *Entry) string {
	return Fingerprint(e.NodeID, e.BeforeHash, e.AfterHash, e.Reason, e.Reporter, e.PrevHash)
}
