package layout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/raise/ir"
)

var (
	// ErrUnaligned reports an explicit offset that is not 4-byte aligned.
	ErrUnaligned = errors.New("offset is not 4-byte aligned")
	// ErrOverlap reports an explicit offset overlapping another member.
	ErrOverlap = errors.New("member overlaps another member")
)

// StructBuilder accumulates struct members and assigns their offsets.
type StructBuilder struct {
	m       *ir.Module
	members []ir.StructMember
	end     uint32
	align   uint32
}

// NewStructBuilder returns a builder for an empty struct whose member types
// live in m.
func NewStructBuilder(m *ir.Module) *StructBuilder {
	return &StructBuilder{m: m, align: 1}
}

// Extend returns a builder that starts with the members of st. New members
// are placed after the existing ones.
func Extend(m *ir.Module, st ir.StructType) *StructBuilder {
	b := NewStructBuilder(m)
	for _, mem := range st.Members {
		size, align := sizeAlign(m, m.Types[mem.Type].Inner)
		b.members = append(b.members, mem)
		b.end = max(b.end, mem.Offset+size)
		b.align = max(b.align, align)
	}
	b.end = max(b.end, st.Span)
	return b
}

// Len returns the number of members added so far.
func (b *StructBuilder) Len() int { return len(b.members) }

// Add appends a member at the next offset aligned for t and returns that
// offset.
func (b *StructBuilder) Add(name string, t ir.TypeHandle) uint32 {
	size, align := sizeAlign(b.m, b.m.Types[t].Inner)
	offset := RoundUp(b.end, align)
	b.members = append(b.members, ir.StructMember{Name: name, Type: t, Offset: offset})
	b.end = offset + size
	b.align = max(b.align, align)
	return offset
}

// AddAt places a member at an explicit offset. Members stay sorted by
// offset, so AddAt may shift the index of members placed after it.
func (b *StructBuilder) AddAt(name string, t ir.TypeHandle, offset uint32) error {
	if offset%4 != 0 {
		return fmt.Errorf("%s at %d: %w", name, offset, ErrUnaligned)
	}
	size, align := sizeAlign(b.m, b.m.Types[t].Inner)
	for _, mem := range b.members {
		memSize, _ := sizeAlign(b.m, b.m.Types[mem.Type].Inner)
		if offset < mem.Offset+memSize && mem.Offset < offset+size {
			return fmt.Errorf("%s at %d: %w %s at %d", name, offset, ErrOverlap, mem.Name, mem.Offset)
		}
	}
	i, _ := slices.BinarySearchFunc(b.members, offset, func(mem ir.StructMember, off uint32) int {
		return int(mem.Offset) - int(off)
	})
	b.members = slices.Insert(b.members, i, ir.StructMember{Name: name, Type: t, Offset: offset})
	b.end = max(b.end, offset+size)
	b.align = max(b.align, align)
	return nil
}

// Index returns the member index of name.
func (b *StructBuilder) Index(name string) (uint32, bool) {
	for i, mem := range b.members {
		if mem.Name == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// Span returns the struct size: the end of the last member rounded up to
// the largest member alignment.
func (b *StructBuilder) Span() uint32 {
	return RoundUp(b.end, b.align)
}

// Finish returns the struct type built so far.
func (b *StructBuilder) Finish() ir.StructType {
	return ir.StructType{Members: slices.Clone(b.members), Span: b.Span()}
}
