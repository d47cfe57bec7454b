package transform

import (
	"reflect"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// DataMap holds at most one value per static type. Transforms look up their
// config records by type and attach result records the same way; values
// of types a transform does not know are carried along untouched.
//
// The zero DataMap is not usable; a nil *DataMap reads as empty.
type DataMap struct {
	entries map[reflect.Type]any
}

// NewDataMap returns an empty map.
func NewDataMap() *DataMap {
	return &DataMap{entries: make(map[reflect.Type]any)}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Add stores v, replacing any earlier value of type T.
func Add[T any](d *DataMap, v T) {
	d.entries[typeOf[T]()] = v
}

// Get returns the value of type T.
func Get[T any](d *DataMap) (T, bool) {
	var zero T
	if d == nil {
		return zero, false
	}
	v, ok := d.entries[typeOf[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Has reports whether a value of type T is present.
func Has[T any](d *DataMap) bool {
	_, ok := Get[T](d)
	return ok
}

// Remove deletes the value of type T.
func Remove[T any](d *DataMap) {
	delete(d.entries, typeOf[T]())
}

// Len returns the number of values.
func (d *DataMap) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Merge copies every value of other into d, replacing values of the same
// type.
func (d *DataMap) Merge(other *DataMap) {
	if other == nil {
		return
	}
	for t, v := range other.entries {
		d.entries[t] = v
	}
}

// Clone returns a map holding the same values. The values themselves are
// not copied.
func (d *DataMap) Clone() *DataMap {
	out := NewDataMap()
	out.Merge(d)
	return out
}

// Types returns the names of the stored types, sorted.
func (d *DataMap) Types() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.entries))
	for t := range d.entries {
		names = append(names, t.String())
	}
	slices.Sort(names)
	return names
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump renders every value, ordered by type name.
func (d *DataMap) Dump() string {
	if d == nil {
		return ""
	}
	byName := make(map[string]any, len(d.entries))
	for t, v := range d.entries {
		byName[t.String()] = v
	}
	var sb strings.Builder
	for _, name := range d.Types() {
		sb.WriteString(dumpConfig.Sdump(byName[name]))
	}
	return sb.String()
}
