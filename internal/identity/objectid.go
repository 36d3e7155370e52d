// Package identity caches the backend object ids the device needs to address
// its own records: the installation, the owning user and the hardware model.
//
// Each id is bounded to MaxObjectIDLen bytes. Values that arrive longer are
// cut to that length and the ObjectID remembers that it was truncated, so the
// limitation shows up in logs and tests instead of silently.
//
// Slots are resolve-once: the first non-empty value stored in a slot stays
// there for the life of the process.
package identity

// MaxObjectIDLen is the length of a backend object id.
const MaxObjectIDLen = 10

// ObjectID is a backend object id bounded to MaxObjectIDLen bytes.
type ObjectID struct {
	value     string
	truncated bool
}

// NewObjectID bounds raw to MaxObjectIDLen, recording whether it was cut.
func NewObjectID(raw string) ObjectID {
	if len(raw) > MaxObjectIDLen {
		return ObjectID{value: raw[:MaxObjectIDLen], truncated: true}
	}
	return ObjectID{value: raw}
}

// String returns the stored id.
func (id ObjectID) String() string { return id.value }

// IsZero reports whether the id is empty.
func (id ObjectID) IsZero() bool { return id.value == "" }

// Truncated reports whether the source value exceeded the capacity.
func (id ObjectID) Truncated() bool { return id.truncated }

// Cap returns the capacity of the id.
func (ObjectID) Cap() int { return MaxObjectIDLen }
