package transform

import (
	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/ir"
)

// DepthRangeOffsets are the push-constant byte offsets of the minimum and
// maximum fragment depth.
type DepthRangeOffsets struct {
	Min uint32
	Max uint32
}

// Fields implements codec.Record.
func (o *DepthRangeOffsets) Fields() []codec.Field {
	return []codec.Field{
		codec.Uint32("min", &o.Min),
		codec.Uint32("max", &o.Max),
	}
}

// ClampFragDepthConfig configures ClampFragDepth. A nil Offsets disables
// clamping.
type ClampFragDepthConfig struct {
	Offsets *DepthRangeOffsets
}

// Fields implements codec.Record.
func (c *ClampFragDepthConfig) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("offsets", &c.Offsets, codec.Optional(
			codec.RecordCodec(func(o *DepthRangeOffsets) codec.Record { return o }))),
	}
}

// OffsetFirstIndexConfig configures OffsetFirstIndex. Each offset is the
// push-constant byte offset of the value to add, or nil to leave the
// builtin alone.
type OffsetFirstIndexConfig struct {
	FirstVertexOffset   *uint32
	FirstInstanceOffset *uint32
}

// Fields implements codec.Record.
func (c *OffsetFirstIndexConfig) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("first_vertex_offset", &c.FirstVertexOffset, codec.Optional(codec.Uint[uint32]())),
		codec.Value("first_instance_offset", &c.FirstInstanceOffset, codec.Optional(codec.Uint[uint32]())),
	}
}

// OffsetFirstIndexResult reports which builtins OffsetFirstIndex adjusted.
type OffsetFirstIndexResult struct {
	HasVertexIndex   bool
	HasInstanceIndex bool
}

// Fields implements codec.Record.
func (r *OffsetFirstIndexResult) Fields() []codec.Field {
	return []codec.Field{
		codec.Bool("has_vertex_index", &r.HasVertexIndex),
		codec.Bool("has_instance_index", &r.HasInstanceIndex),
	}
}

// Remappings configures BindingRemapper.
type Remappings struct {
	// BindingPoints maps old binding points to new ones.
	BindingPoints map[binding.Point]binding.Point
	// AccessControls overrides the access mode of storage buffers.
	AccessControls map[binding.Point]ir.StorageAccess
	// AllowCollisions skips the check that remapped points stay unique.
	AllowCollisions bool
}

// Fields implements codec.Record.
func (r *Remappings) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("binding_points", &r.BindingPoints,
			codec.Map(binding.PointCodec(), binding.PointCodec(), binding.Point.Compare)),
		codec.Value("access_controls", &r.AccessControls,
			codec.Map(binding.PointCodec(), codec.Uint[ir.StorageAccess](), binding.Point.Compare)),
		codec.Bool("allow_collisions", &r.AllowCollisions),
	}
}

// ArrayLengthFromUniformOptions configures ArrayLengthFromUniform.
type ArrayLengthFromUniformOptions struct {
	// UBOBinding is where the buffer-size uniform is bound.
	UBOBinding binding.Point
	// BindpointToSizeIndex gives the u32 slot of each storage buffer's
	// byte size in the uniform.
	BindpointToSizeIndex map[binding.Point]uint32
}

// Fields implements codec.Record.
func (o *ArrayLengthFromUniformOptions) Fields() []codec.Field {
	return []codec.Field{
		codec.Nested("ubo_binding", &o.UBOBinding),
		codec.Value("bindpoint_to_size_index", &o.BindpointToSizeIndex,
			codec.Map(binding.PointCodec(), codec.Uint[uint32](), binding.Point.Compare)),
	}
}

// ArrayLengthFromUniformResult lists the size indices the output reads, in
// ascending order.
type ArrayLengthFromUniformResult struct {
	UsedSizeIndices []uint32
}

// Fields implements codec.Record.
func (r *ArrayLengthFromUniformResult) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("used_size_indices", &r.UsedSizeIndices, codec.List(codec.Uint[uint32]())),
	}
}

// PushConstantLayout describes the push-constant block built by
// PreparePushConstants.
type PushConstantLayout struct {
	Variable ir.GlobalVariableHandle
	// Members maps internal member names to their index in the block.
	Members map[string]uint32
	// UserMember is the index of the shader's own push constants, if any.
	UserMember *uint32
}

// Member returns the index of an internal member.
func (l *PushConstantLayout) Member(name string) (uint32, bool) {
	if l == nil {
		return 0, false
	}
	i, ok := l.Members[name]
	return i, ok
}
