package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AppendRecordFunc is an optional callback invoked after each successful append.
type AppendRecordFunc func()

// Recorder validates and links new corrections onto the chain.
//
// The read-head / fingerprint / append sequence is a critical section: two
// appends computed against the same stale head would fork the chain. A
// recorder-level mutex serialises callers within the process; the
// PostgresStore's advisory lock covers writers in other processes.
type Recorder struct {
	mu       sync.Mutex
	store    Store
	logger   *zap.Logger
	onAppend AppendRecordFunc
}

// NewRecorder creates a Recorder writing through the given store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// SetAppendRecord configures the post-append metrics callback.
func (r *Recorder) SetAppendRecord(fn AppendRecordFunc) {
	r.onAppend = fn
}

// Record appends a correction to the ledger and returns the committed entry,
// whose ThisHash is the new chain head.
//
// All five fields are required; an empty field fails with ErrInvalidInput
// before any storage interaction. ErrDuplicateHash and ErrSchema from the
// store surface unchanged and are never retried here.
func (r *Recorder) Record(ctx context.Context, nodeID, beforeHash, afterHash, reason, reporter string) (*Entry, error) {
	if err := validateFields(nodeID, beforeHash, afterHash, reason, reporter); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.store.Head(ctx)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		NodeID:     nodeID,
		BeforeHash: beforeHash,
		AfterHash:  afterHash,
		Reason:     reason,
		Reporter:   reporter,
		PrevHash:   head,
	}
	entry.ThisHash = Fingerprint(nodeID, beforeHash, afterHash, reason, reporter, head)

	stored, err := r.store.Append(ctx, entry)
	if err != nil {
		return nil, err
	}

	if r.onAppend != nil {
		r.onAppend()
	}
	r.logger.Info("correction recorded",
		zap.String("node_id", stored.NodeID),
		zap.String("reporter", stored.Reporter),
		zap.String("this_hash", stored.ThisHash),
	)
	return stored, nil
}

func validateFields(nodeID, beforeHash, afterHash, reason, reporter string) error {
	for _, f := range []struct{ name, value string }{
		{"node_id", nodeID},
		{"before_hash", beforeHash},
		{"after_hash", afterHash},
		{"reason", reason},
		{"reporter", reporter},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidInput, f.name)
		}
	}
	return nil
}
