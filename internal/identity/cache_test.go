package identity

import (
	"strings"
	"testing"
)

func TestNewObjectID(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		truncated bool
	}{
		{"empty", "", "", false},
		{"short", "abc", "abc", false},
		{"exact capacity", "0123456789", "0123456789", false},
		{"over capacity", "0123456789ABC", "0123456789", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewObjectID(tt.raw)
			if id.String() != tt.want {
				t.Errorf("String() = %q, want %q", id.String(), tt.want)
			}
			if id.Truncated() != tt.truncated {
				t.Errorf("Truncated() = %v, want %v", id.Truncated(), tt.truncated)
			}
			if len(id.String()) > id.Cap() {
				t.Errorf("id length %d exceeds capacity %d", len(id.String()), id.Cap())
			}
		})
	}
}

func TestCacheStoreIsMonotonic(t *testing.T) {
	c := NewCache()

	if c.Has(Installation) {
		t.Fatal("new cache should be empty")
	}

	if !c.Store(Installation, NewObjectID("first")) {
		t.Fatal("Store into empty slot should succeed")
	}
	if c.Store(Installation, NewObjectID("second")) {
		t.Error("Store into filled slot should be refused")
	}
	if got := c.Get(Installation).String(); got != "first" {
		t.Errorf("Installation = %q, want %q", got, "first")
	}
}

func TestCacheStoreRejectsEmpty(t *testing.T) {
	c := NewCache()

	if c.Store(User, NewObjectID("")) {
		t.Error("Store of empty id should be refused")
	}
	if c.Has(User) {
		t.Error("slot should remain empty")
	}
}

func TestCacheSlotsAreIndependent(t *testing.T) {
	c := NewCache()
	c.Store(User, NewObjectID("u1"))

	if c.Has(Installation) || c.Has(Model) {
		t.Error("storing user must not fill other slots")
	}

	snap := c.Snapshot()
	if snap.User != "u1" || snap.Installation != "" || snap.Model != "" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestCacheKeepsTruncationFlag(t *testing.T) {
	c := NewCache()
	c.Store(Model, NewObjectID(strings.Repeat("m", MaxObjectIDLen+5)))

	id := c.Get(Model)
	if !id.Truncated() {
		t.Error("truncation should be observable after Store")
	}
	if len(id.String()) != MaxObjectIDLen {
		t.Errorf("len = %d, want %d", len(id.String()), MaxObjectIDLen)
	}
}

func TestSlotString(t *testing.T) {
	for slot, want := range map[Slot]string{
		Installation: "installation",
		User:         "user",
		Model:        "model",
		Slot(42):     "unknown",
	} {
		if got := slot.String(); got != want {
			t.Errorf("Slot(%d).String() = %q, want %q", int(slot), got, want)
		}
	}
}
