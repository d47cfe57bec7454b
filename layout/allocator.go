package layout

import "github.com/gogpu/raise/ir"

// Slot is an allocated struct member.
type Slot struct {
	Member uint32
	Offset uint32
}

// Allocator hands out struct members keyed by K. Requesting the same key
// again returns the slot assigned the first time.
type Allocator[K comparable] struct {
	b     *StructBuilder
	slots map[K]Slot
	keys  []K
}

// NewAllocator allocates members in b.
func NewAllocator[K comparable](b *StructBuilder) *Allocator[K] {
	return &Allocator[K]{b: b, slots: make(map[K]Slot)}
}

// Get returns the slot for key, appending a member named name of type t on
// first request.
func (a *Allocator[K]) Get(key K, name string, t ir.TypeHandle) Slot {
	if s, ok := a.slots[key]; ok {
		return s
	}
	member := uint32(a.b.Len())
	s := Slot{Member: member, Offset: a.b.Add(name, t)}
	a.slots[key] = s
	a.keys = append(a.keys, key)
	return s
}

// Lookup returns the slot already allocated for key.
func (a *Allocator[K]) Lookup(key K) (Slot, bool) {
	s, ok := a.slots[key]
	return s, ok
}

// Len returns the number of keys allocated.
func (a *Allocator[K]) Len() int { return len(a.keys) }

// Keys returns the allocated keys in first-request order.
func (a *Allocator[K]) Keys() []K {
	return append([]K(nil), a.keys...)
}

// StructType returns the struct holding every allocated member.
func (a *Allocator[K]) StructType() ir.StructType {
	return a.b.Finish()
}
