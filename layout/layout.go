// Package layout computes host-shareable sizes and alignments and assigns
// member offsets for structs that transforms synthesize.
//
// The rules are those of WGSL uniform and storage buffers: scalars align to
// their width, two-component vectors to twice the scalar width, three- and
// four-component vectors to four times the scalar width, and a struct to the
// largest alignment of its members. A struct's span is its last member's end
// rounded up to the struct alignment.
package layout

import "github.com/gogpu/raise/ir"

// RoundUp rounds value up to a multiple of align. align must be a power of
// two; zero is treated as one.
func RoundUp(value, align uint32) uint32 {
	if align <= 1 {
		return value
	}
	return (value + align - 1) &^ (align - 1)
}

// SizeOf returns the size in bytes of type t.
func SizeOf(m *ir.Module, t ir.TypeHandle) uint32 {
	size, _ := sizeAlign(m, m.Types[t].Inner)
	return size
}

// AlignOf returns the alignment in bytes of type t.
func AlignOf(m *ir.Module, t ir.TypeHandle) uint32 {
	_, align := sizeAlign(m, m.Types[t].Inner)
	return align
}

func vectorSizeAlign(n ir.VectorSize, s ir.ScalarType) (size, align uint32) {
	w := uint32(s.Width)
	if n == ir.Vec2 {
		return 2 * w, 2 * w
	}
	return uint32(n) * w, 4 * w
}

func sizeAlign(m *ir.Module, inner ir.TypeInner) (size, align uint32) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width), uint32(t.Width)
	case ir.AtomicType:
		return uint32(t.Scalar.Width), uint32(t.Scalar.Width)
	case ir.VectorType:
		return vectorSizeAlign(t.Size, t.Scalar)
	case ir.MatrixType:
		colSize, colAlign := vectorSizeAlign(t.Rows, t.Scalar)
		return uint32(t.Columns) * RoundUp(colSize, colAlign), colAlign
	case ir.ArrayType:
		elemSize, elemAlign := sizeAlign(m, m.Types[t.Base].Inner)
		stride := t.Stride
		if stride == 0 {
			stride = RoundUp(elemSize, elemAlign)
		}
		if t.Size.Constant == nil {
			return stride, elemAlign
		}
		return stride * *t.Size.Constant, elemAlign
	case ir.StructType:
		align := uint32(1)
		for _, mem := range t.Members {
			_, a := sizeAlign(m, m.Types[mem.Type].Inner)
			align = max(align, a)
		}
		return t.Span, align
	default:
		// Opaque handle types have no host-shareable layout.
		return 0, 1
	}
}
