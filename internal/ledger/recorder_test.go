package ledger_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/errata-project/errata/internal/ledger"
	"go.uber.org/zap"
)

func newRecorder(t *testing.T) (*ledger.Recorder, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	return ledger.NewRecorder(store, zap.NewNop()), store
}

func TestRecord_chainsThreeEntries(t *testing.T) {
	r, store := newRecorder(t)

	e1, err := r.Record(ctx, "n1", "a", "b", "r1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	e2, err := r.Record(ctx, "n1", "b", "c", "r2", "bob")
	if err != nil {
		t.Fatal(err)
	}
	e3, err := r.Record(ctx, "n1", "c", "d", "r3", "carl")
	if err != nil {
		t.Fatal(err)
	}

	entries, err := store.AllOrdered(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantPrev := []string{"", e1.ThisHash, e2.ThisHash}
	wantThis := []string{e1.ThisHash, e2.ThisHash, e3.ThisHash}
	for i, e := range entries {
		if e.PrevHash != wantPrev[i] {
			t.Errorf("entry %d PrevHash: got %q, want %q", i, e.PrevHash, wantPrev[i])
		}
		if e.ThisHash != wantThis[i] {
			t.Errorf("entry %d ThisHash: got %q, want %q", i, e.ThisHash, wantThis[i])
		}
	}

	if err := ledger.CheckChain(entries); err != nil {
		t.Errorf("CheckChain failed on a valid chain: %v", err)
	}
}

func TestRecord_emptyFieldRejected(t *testing.T) {
	r, store := newRecorder(t)

	cases := [][5]string{
		{"", "a", "b", "r", "alice"},
		{"n1", "", "b", "r", "alice"},
		{"n1", "a", "", "r", "alice"},
		{"n1", "a", "b", "", "alice"},
		{"n1", "a", "b", "r", ""},
	}
	for _, c := range cases {
		_, err := r.Record(ctx, c[0], c[1], c[2], c[3], c[4])
		if !errors.Is(err, ledger.ErrInvalidInput) {
			t.Errorf("Record(%v): expected ErrInvalidInput, got %v", c, err)
		}
	}

	// Rejected before any storage interaction.
	if n, _ := store.Len(ctx); n != 0 {
		t.Errorf("invalid input reached the store: %d entries", n)
	}
}

func TestRecord_duplicateSubmission(t *testing.T) {
	r, _ := newRecorder(t)

	e1, err := r.Record(ctx, "n1", "a", "b", "r1", "alice")
	if err != nil {
		t.Fatal(err)
	}

	// A different correction advances the head, so re-submitting the first
	// entry's fields computes a fresh hash and is accepted.
	if _, err := r.Record(ctx, "n2", "c", "d", "r2", "bob"); err != nil {
		t.Fatal(err)
	}
	e3, err := r.Record(ctx, "n1", "a", "b", "r1", "alice")
	if err != nil {
		t.Fatalf("resubmission against a new head should succeed: %v", err)
	}
	if e3.ThisHash == e1.ThisHash {
		t.Error("distinct chain positions produced identical hashes")
	}
}

func TestRecord_returnsNewHead(t *testing.T) {
	r, store := newRecorder(t)

	e, err := r.Record(ctx, "n1", "a", "b", "r1", "alice")
	if err != nil {
		t.Fatal(err)
	}

	head, err := store.Head(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != e.ThisHash {
		t.Errorf("head: got %q, want %q", head, e.ThisHash)
	}

	want := ledger.Fingerprint("n1", "a", "b", "r1", "alice", "")
	if e.ThisHash != want {
		t.Errorf("ThisHash: got %q, want fingerprint %q", e.ThisHash, want)
	}
}

func TestRecord_concurrentGenesis(t *testing.T) {
	r, store := newRecorder(t)

	var wg sync.WaitGroup
	results := make([]*ledger.Entry, 2)
	errs := make([]error, 2)

	reporters := []string{"alice", "bob"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Record(ctx, "n1", "a", "b", "r1", reporters[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	entries, err := store.AllOrdered(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Exactly one entry claims the genesis position; the other must link
	// to it.
	if entries[0].PrevHash != "" {
		t.Errorf("first entry PrevHash: got %q, want \"\"", entries[0].PrevHash)
	}
	if entries[1].PrevHash != entries[0].ThisHash {
		t.Errorf("second entry does not link to the first: prev=%q, want %q",
			entries[1].PrevHash, entries[0].ThisHash)
	}

	if err := ledger.CheckChain(entries); err != nil {
		t.Errorf("chain invalid after concurrent appends: %v", err)
	}
}
