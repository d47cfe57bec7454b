package msl

import (
	"fmt"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version1_2 = Version{Major: 1, Minor: 2}
	Version2_0 = Version{Major: 2, Minor: 0}
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version3_0 = Version{Major: 3, Minor: 0}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// BindTarget specifies the Metal binding slots for a resource. Only the
// slot matching the resource's kind is used.
type BindTarget struct {
	// Buffer is the buffer binding slot. Nil if not bound as buffer.
	Buffer *uint8
	// Texture is the texture binding slot. Nil if not bound as texture.
	Texture *uint8
	// Sampler is the sampler binding slot. Nil if not bound as sampler.
	Sampler *uint8
}

// slotFor returns the slot of gv's kind.
func (bt BindTarget) slotFor(m *ir.Module, gv *ir.GlobalVariable) (uint8, bool) {
	var slot *uint8
	switch m.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		slot = bt.Sampler
	case ir.ImageType:
		slot = bt.Texture
	default:
		slot = bt.Buffer
	}
	if slot == nil {
		return 0, false
	}
	return *slot, true
}

// EntryPointResources maps resource bindings to Metal binding slots for
// one entry point.
type EntryPointResources struct {
	// Resources maps (group, binding) pairs to Metal bind targets.
	Resources map[binding.Point]BindTarget

	// SizesBuffer is the buffer slot for runtime array sizes.
	// Required when using runtime-sized arrays.
	SizesBuffer *uint8
}

// Options configures the MSL pipeline.
type Options struct {
	// LangVersion is the target MSL version.
	// Defaults to Version2_1 if zero.
	LangVersion Version

	// PerEntryPointMap maps entry point names to their resource bindings.
	PerEntryPointMap map[string]EntryPointResources

	// FakeMissingBindings keeps resources that have no slot in the
	// PerEntryPointMap at their own binding point.
	FakeMissingBindings bool

	// ArrayLength, when set, replaces arrayLength() with reads of the
	// sizes buffer. UBOBinding names the buffer before slot mapping; the
	// entry points' SizesBuffer gives its slot.
	ArrayLength *transform.ArrayLengthFromUniformOptions

	// DepthRange, when set, clamps fragment depth to the viewport depth
	// range read from push constants at these offsets.
	DepthRange *transform.DepthRangeOffsets
}

// DefaultOptions returns sensible default options for the MSL pipeline.
func DefaultOptions() Options {
	return Options{
		LangVersion:         Version2_1,
		FakeMissingBindings: true,
	}
}
