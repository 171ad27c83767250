// Package feed exports the corrections ledger as an ordered, self-describing
// JSON document and re-verifies such documents independently of the store.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/errata-project/errata/internal/ledger"
	"github.com/google/uuid"
)

// FormatVersion identifies the feed document layout.
const FormatVersion = "errata-feed/1"

// Item is a single exported correction record. ID equals the entry's
// ThisHash; Body is the pipe-joined canonical string whose trailing field is
// prev_hash, so a verifier can reconstruct the chain from the feed alone.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Document is the exported feed. CollectionID and GeneratedAt are metadata
// only and play no role in chain validity.
type Document struct {
	Version      string    `json:"version"`
	Title        string    `json:"title"`
	CollectionID string    `json:"collection_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Entries      []Item    `json:"entries"`
}

// Source is the read-only slice of the ledger store the builder needs.
type Source interface {
	AllOrdered(ctx context.Context) ([]*ledger.Entry, error)
}

// Builder serialises the full ordered entry sequence into a Document.
// It never mutates the store.
type Builder struct {
	source       Source
	title        string
	collectionID string
}

// NewBuilder creates a Builder. title and collectionID may be empty, in
// which case a default title and a process-stable random collection
// identifier are used.
func NewBuilder(source Source, title, collectionID string) *Builder {
	if title == "" {
		title = "Knowledge base corrections"
	}
	if collectionID == "" {
		collectionID = uuid.NewString()
	}
	return &Builder{source: source, title: title, collectionID: collectionID}
}

// Build reads all entries in insertion order and emits the feed document.
func (b *Builder) Build(ctx context.Context) (*Document, error) {
	entries, err := b.source.AllOrdered(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version:      FormatVersion,
		Title:        b.title,
		CollectionID: b.collectionID,
		GeneratedAt:  time.Now().UTC(),
		Entries:      make([]Item, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, Item{
			ID:    e.ThisHash,
			Title: fmt.Sprintf("Correction to %s", e.NodeID),
			Body:  e.Body(),
		})
	}
	return doc, nil
}
