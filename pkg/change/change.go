// Package change implements feature change records and their pairwise merge.
//
// A FeatureChange is one typed edit to one entity: an ADD carrying the
// fields the edit sets, or a REMOVE carrying only identity. Two changes to
// the same entity made against the same base snapshot can be merged into
// one with FeatureChange.Merge. BatchMerger does this for a whole batch.
package change

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
	"github.com/NERVsystems/osmdelta/pkg/overlay"
	"github.com/NERVsystems/osmdelta/pkg/store"
)

var (
	// ErrInvalid is returned when a change cannot be constructed
	ErrInvalid = errors.New("invalid feature change")
	// ErrIncompatible is returned when two changes cannot be merged
	ErrIncompatible = errors.New("incompatible feature changes")
)

// ChangeType is the kind of edit a FeatureChange makes
type ChangeType int

const (
	ChangeAdd ChangeType = iota
	ChangeRemove
)

func (t ChangeType) String() string {
	switch t {
	case ChangeAdd:
		return "ADD"
	case ChangeRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// Valid reports whether t is ADD or REMOVE
func (t ChangeType) Valid() bool {
	return t == ChangeAdd || t == ChangeRemove
}

// ParseChangeType parses "ADD" or "REMOVE", ignoring case
func ParseChangeType(s string) (ChangeType, error) {
	switch strings.ToUpper(s) {
	case "ADD":
		return ChangeAdd, nil
	case "REMOVE":
		return ChangeRemove, nil
	}
	return 0, fmt.Errorf("unknown change type: %q", s)
}

func (t ChangeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown change type: %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *ChangeType) UnmarshalText(text []byte) error {
	parsed, err := ParseChangeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FeatureChange is an immutable edit to a single entity. The after view is
// always present; the before view, when present, has the same kind and
// identifier.
type FeatureChange struct {
	changeType ChangeType
	after      overlay.Overlay
	before     overlay.Overlay
}

// New validates and builds a change. before may be nil.
func New(changeType ChangeType, after, before overlay.Overlay) (*FeatureChange, error) {
	if !changeType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, changeType)
	}
	if after == nil {
		return nil, fmt.Errorf("%w: after view is required", ErrInvalid)
	}
	if changeType == ChangeAdd && after.IsSuperShallow() {
		return nil, fmt.Errorf("%w: ADD %s sets no field", ErrInvalid, entity.KeyOf(after))
	}
	if before != nil && entity.KeyOf(before) != entity.KeyOf(after) {
		return nil, fmt.Errorf("%w: before view %s does not match after view %s",
			ErrInvalid, entity.KeyOf(before), entity.KeyOf(after))
	}
	return &FeatureChange{changeType: changeType, after: after, before: before}, nil
}

// Add builds an ADD change with no before view
func Add(after overlay.Overlay) (*FeatureChange, error) {
	return New(ChangeAdd, after, nil)
}

// AddWithStore builds an ADD change whose before view is derived from s
func AddWithStore(after overlay.Overlay, s store.Store) (*FeatureChange, error) {
	c, err := Add(after)
	if err != nil {
		return nil, err
	}
	return c.WithStoreContext(s)
}

// Remove builds a REMOVE change for ref. When ref also carries bounds, as
// store entities and overlays do, they are kept on the after view.
func Remove(ref entity.Reference) (*FeatureChange, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalid)
	}
	var (
		after overlay.Overlay
		err   error
	)
	if bounded, ok := ref.(overlay.Bounded); ok {
		after, err = overlay.ShallowCopy(bounded)
	} else {
		after, err = overlay.New(ref.Kind(), ref.Identifier())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return New(ChangeRemove, after, nil)
}

// WithStoreContext returns a copy whose before view holds, for every field
// the after view sets, the current value from the store entity with the same
// key. REMOVE changes carry no mergeable fields and are returned unchanged.
func (c *FeatureChange) WithStoreContext(s store.Store) (*FeatureChange, error) {
	if c.changeType == ChangeRemove {
		return c, nil
	}
	key := c.Key()
	e, err := s.Entity(key)
	if err != nil {
		return nil, fmt.Errorf("derive before view of %s: %w", key, err)
	}
	before, err := BeforeView(c.after, e)
	if err != nil {
		return nil, fmt.Errorf("derive before view of %s: %w", key, err)
	}
	return New(c.changeType, c.after, before)
}

// WithStoreContextAll applies WithStoreContext to every change that has no
// before view yet. ADD changes for entities the store does not hold create
// new entities and are kept as is.
func WithStoreContextAll(changes []*FeatureChange, s store.Store) ([]*FeatureChange, error) {
	out := make([]*FeatureChange, len(changes))
	for i, c := range changes {
		if c == nil || c.before != nil {
			out[i] = c
			continue
		}
		contextual, err := c.WithStoreContext(s)
		switch {
		case errors.Is(err, store.ErrNotFound):
			out[i] = c
		case err != nil:
			return nil, err
		default:
			out[i] = contextual
		}
	}
	return out, nil
}

func (c *FeatureChange) Identifier() int64      { return c.after.Identifier() }
func (c *FeatureChange) Kind() entity.ItemKind  { return c.after.Kind() }
func (c *FeatureChange) Key() entity.Key        { return entity.KeyOf(c.after) }
func (c *FeatureChange) ChangeType() ChangeType { return c.changeType }
func (c *FeatureChange) After() overlay.Overlay { return c.after }

// Before returns the before view and whether it is present
func (c *FeatureChange) Before() (overlay.Overlay, bool) {
	return c.before, c.before != nil
}

// Bounds returns the union of the after and before view bounds
func (c *FeatureChange) Bounds() geo.BoundingBox {
	b := c.after.Bounds()
	if c.before != nil {
		b = b.Union(c.before.Bounds())
	}
	return b
}

func (c *FeatureChange) String() string {
	if c.before == nil {
		return fmt.Sprintf("%s %s", c.changeType, c.after)
	}
	return fmt.Sprintf("%s %s (before %s)", c.changeType, c.after, c.before)
}
