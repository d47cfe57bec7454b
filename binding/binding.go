// Package binding describes GPU resource binding points and tracks which of
// them are in use.
package binding

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/raise/codec"
)

// Point identifies a resource slot by its bind group and binding index.
// It corresponds to WGSL @group/@binding and SPIR-V DescriptorSet/Binding.
type Point struct {
	Group   uint32
	Binding uint32
}

// Compare orders points by group, then by binding.
func (p Point) Compare(o Point) int {
	if c := cmp.Compare(p.Group, o.Group); c != 0 {
		return c
	}
	return cmp.Compare(p.Binding, o.Binding)
}

// Less reports whether p sorts before o.
func (p Point) Less(o Point) bool {
	return p.Compare(o) < 0
}

// String returns the point as "[group: G, binding: B]".
func (p Point) String() string {
	return fmt.Sprintf("[group: %d, binding: %d]", p.Group, p.Binding)
}

// Fields implements codec.Record.
func (p *Point) Fields() []codec.Field {
	return []codec.Field{
		codec.Uint32("group", &p.Group),
		codec.Uint32("binding", &p.Binding),
	}
}

// Sort sorts points in ascending order.
func Sort(points []Point) {
	slices.SortFunc(points, Point.Compare)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[Point]V) []Point {
	keys := make([]Point, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	Sort(keys)
	return keys
}

// PointCodec encodes points as map keys and values.
func PointCodec() codec.Codec[Point] {
	return codec.RecordCodec(func(p *Point) codec.Record { return p })
}
