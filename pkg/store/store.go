// Package store provides read-only access to the base graph snapshot that
// change records are expressed against.
package store

import (
	"errors"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// ErrNotFound is returned when the snapshot holds no entity for a key
var ErrNotFound = errors.New("entity not found")

// Store is a read-only base graph snapshot. Implementations must be safe for
// concurrent readers.
type Store interface {
	Entity(key entity.Key) (entity.Entity, error)
	Bounds() geo.BoundingBox
}
