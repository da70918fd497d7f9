// Package codec reads and writes feature changes as JSON documents.
//
// Overlay fields follow the absent-versus-empty rule: an omitted field (or
// null) is absent, while {} or [] is present and empty. Locations are
// written as {"lat", "lon"} objects and may be read from any coordinate
// string the coords package understands.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/entity"
)

// Document is the top-level change document
type Document struct {
	Changes []ChangeRecord `json:"changes"`
}

// ChangeRecord is the wire form of one feature change. After may be omitted
// for REMOVE changes.
type ChangeRecord struct {
	Type   change.ChangeType `json:"type"`
	Kind   entity.ItemKind   `json:"kind"`
	ID     int64             `json:"id"`
	After  *OverlayRecord    `json:"after,omitempty"`
	Before *OverlayRecord    `json:"before,omitempty"`
}

// EncodeChange converts a change to its wire form
func EncodeChange(c *change.FeatureChange) ChangeRecord {
	rec := ChangeRecord{
		Type:  c.ChangeType(),
		Kind:  c.Kind(),
		ID:    c.Identifier(),
		After: EncodeOverlay(c.After()),
	}
	if before, ok := c.Before(); ok {
		rec.Before = EncodeOverlay(before)
	}
	return rec
}

// DecodeChange validates a wire record and builds the change it describes
func DecodeChange(rec ChangeRecord) (*change.FeatureChange, error) {
	if !rec.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", change.ErrInvalid, int(rec.Kind))
	}
	key := entity.Key{ID: rec.ID, Kind: rec.Kind}

	after, err := DecodeOverlay(rec.Kind, rec.ID, rec.After)
	if err != nil {
		return nil, fmt.Errorf("%s after: %w", key, err)
	}
	if rec.Before == nil {
		return change.New(rec.Type, after, nil)
	}
	before, err := DecodeOverlay(rec.Kind, rec.ID, rec.Before)
	if err != nil {
		return nil, fmt.Errorf("%s before: %w", key, err)
	}
	return change.New(rec.Type, after, before)
}

// Encode converts changes to a document
func Encode(changes []*change.FeatureChange) Document {
	doc := Document{Changes: make([]ChangeRecord, 0, len(changes))}
	for _, c := range changes {
		doc.Changes = append(doc.Changes, EncodeChange(c))
	}
	return doc
}

// Decode builds every change of a document. Records that fail are reported
// together, indexed by position.
func Decode(doc Document) ([]*change.FeatureChange, error) {
	changes := make([]*change.FeatureChange, 0, len(doc.Changes))
	var errs []error
	for i, rec := range doc.Changes {
		c, err := DecodeChange(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("change %d: %w", i, err))
			continue
		}
		changes = append(changes, c)
	}
	return changes, errors.Join(errs...)
}

// Read decodes a change document from r
func Read(r io.Reader) ([]*change.FeatureChange, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode change document: %w", err)
	}
	return Decode(doc)
}

// Write encodes changes as an indented document
func Write(w io.Writer, changes []*change.FeatureChange) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Encode(changes))
}
