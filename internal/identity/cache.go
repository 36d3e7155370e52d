package identity

import "sync"

// Slot names one of the cached ids.
type Slot int

// Identity slots.
const (
	Installation Slot = iota
	User
	Model
	slotCount
)

func (s Slot) String() string {
	switch s {
	case Installation:
		return "installation"
	case User:
		return "user"
	case Model:
		return "model"
	default:
		return "unknown"
	}
}

// Cache holds the three resolve-once ids. It is written by the control loop
// only; the lock lets status readers take consistent snapshots.
type Cache struct {
	mu    sync.RWMutex
	slots [slotCount]ObjectID
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the id held in slot, zero if unresolved.
func (c *Cache) Get(slot Slot) ObjectID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots[slot]
}

// Has reports whether slot is resolved.
func (c *Cache) Has(slot Slot) bool {
	return !c.Get(slot).IsZero()
}

// Store fills slot with id if the slot is empty and id is not.
// It returns false, leaving the cache unchanged, in every other case.
func (c *Cache) Store(slot Slot, id ObjectID) bool {
	if id.IsZero() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.slots[slot].IsZero() {
		return false
	}
	c.slots[slot] = id
	return true
}

// Snapshot is a copy of the cache contents.
type Snapshot struct {
	Installation string `json:"installation_id"`
	User         string `json:"user_id"`
	Model        string `json:"model_id"`
}

// Snapshot copies the current ids.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Installation: c.slots[Installation].String(),
		User:         c.slots[User].String(),
		Model:        c.slots[Model].String(),
	}
}
