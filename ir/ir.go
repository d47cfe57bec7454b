package ir

import "github.com/gogpu/raise/binding"

// Module represents a shader module in IR form.
type Module struct {
	// Types holds all type definitions
	Types []Type

	// Constants holds module-scope constants
	Constants []Constant

	// GlobalVariables holds module-scope variables
	GlobalVariables []GlobalVariable

	// Functions holds all function definitions
	Functions []Function

	// EntryPoints holds shader entry points
	EntryPoints []EntryPoint
}

// EntryPoint represents a shader entry point.
type EntryPoint struct {
	Name      string
	Stage     ShaderStage
	Function  FunctionHandle
	Workgroup [3]uint32 // For compute shaders
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
	// StageNone marks functions that are not entry points.
	StageNone
)

// String returns the WGSL attribute name of the stage.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "none"
	}
}

// StageOf returns the pipeline stage of a function, or StageNone if it is not
// an entry point.
func (m *Module) StageOf(fn FunctionHandle) ShaderStage {
	for _, ep := range m.EntryPoints {
		if ep.Function == fn {
			return ep.Stage
		}
	}
	return StageNone
}

// Handle types for referencing IR objects
type (
	TypeHandle           uint32
	FunctionHandle       uint32
	GlobalVariableHandle uint32
	ConstantHandle       uint32
	ExpressionHandle     uint32
)

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// Common scalars.
var (
	U32  = ScalarType{Kind: ScalarUint, Width: 4}
	I32  = ScalarType{Kind: ScalarSint, Width: 4}
	F32  = ScalarType{Kind: ScalarFloat, Width: 4}
	Bool = ScalarType{Kind: ScalarBool, Width: 1}
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents matrix types.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

// ArrayType represents array types.
type ArrayType struct {
	Base   TypeHandle
	Size   ArraySize
	Stride uint32
}

func (ArrayType) typeInner() {}

// ArraySize represents array size.
type ArraySize struct {
	Constant *uint32 // nil for runtime-sized arrays
}

// StructType represents struct types.
type StructType struct {
	Members []StructMember
	Span    uint32 // Size in bytes
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name    string
	Type    TypeHandle
	Binding *Binding // @builtin(position), @location(0), etc.
	Offset  uint32
}

// PointerType represents pointer types.
type PointerType struct {
	Base  TypeHandle
	Space AddressSpace
}

func (PointerType) typeInner() {}

// AtomicType represents atomic types for thread-safe operations.
type AtomicType struct {
	Scalar ScalarType
}

func (AtomicType) typeInner() {}

// AddressSpace represents memory address spaces.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage
	SpacePushConstant
	SpaceHandle
	// SpacePixelLocal holds per-pixel values that persist between fragment
	// invocations at the same position.
	SpacePixelLocal
)

// String returns the WGSL spelling of the address space.
func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkGroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpacePushConstant:
		return "push_constant"
	case SpacePixelLocal:
		return "pixel_local"
	default:
		return "handle"
	}
}

// StorageAccess is the access mode of a storage buffer or storage texture.
type StorageAccess uint8

const (
	StorageLoad  StorageAccess = 1 << 0
	StorageStore StorageAccess = 1 << 1

	StorageRead      = StorageLoad
	StorageWrite     = StorageStore
	StorageReadWrite = StorageLoad | StorageStore
)

// String returns the WGSL spelling of the access mode.
func (a StorageAccess) String() string {
	switch a {
	case StorageRead:
		return "read"
	case StorageWrite:
		return "write"
	case StorageReadWrite:
		return "read_write"
	default:
		return "none"
	}
}

// Valid reports whether a is one of read, write or read_write.
func (a StorageAccess) Valid() bool {
	return a != 0 && a&^StorageReadWrite == 0
}

// SamplerType represents sampler types.
type SamplerType struct {
	Comparison bool
}

func (SamplerType) typeInner() {}

// ImageType represents image/texture types.
type ImageType struct {
	Dim          ImageDimension
	Arrayed      bool
	Class        ImageClass
	Multisampled bool

	// Format and Access apply to storage images only.
	Format StorageFormat
	Access StorageAccess

	// RasterizerOrdered marks storage images accessed in primitive order
	// (HLSL RasterizerOrderedTexture2D).
	RasterizerOrdered bool
}

func (ImageType) typeInner() {}

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
)

// ImageClass represents image classification.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// StorageFormat is the texel format of a storage image.
type StorageFormat uint8

const (
	StorageFormatUndefined StorageFormat = iota
	StorageFormatR32Uint
	StorageFormatR32Sint
	StorageFormatR32Float
	StorageFormatRgba8Unorm
	StorageFormatRgba32Float
)

// String returns the WGSL texel format name.
func (f StorageFormat) String() string {
	switch f {
	case StorageFormatR32Uint:
		return "r32uint"
	case StorageFormatR32Sint:
		return "r32sint"
	case StorageFormatR32Float:
		return "r32float"
	case StorageFormatRgba8Unorm:
		return "rgba8unorm"
	case StorageFormatRgba32Float:
		return "rgba32float"
	default:
		return "undefined"
	}
}

// Constant represents a constant value.
type Constant struct {
	Name  string
	Type  TypeHandle
	Value ConstantValue
}

// ConstantValue represents constant values.
type ConstantValue interface {
	constantValue()
}

// ScalarValue represents a scalar constant.
type ScalarValue struct {
	Bits uint64 // Bit representation
	Kind ScalarKind
}

func (ScalarValue) constantValue() {}

// CompositeValue represents a composite constant.
type CompositeValue struct {
	Components []ConstantHandle
}

func (CompositeValue) constantValue() {}

// GlobalVariable represents a global variable.
type GlobalVariable struct {
	Name  string
	Space AddressSpace
	// Access is set for storage buffers only.
	Access  StorageAccess
	Binding *binding.Point
	Type    TypeHandle
	Init    *ConstantHandle
}

// Function represents a function definition.
type Function struct {
	Name        string
	Arguments   []FunctionArgument
	Result      *FunctionResult
	LocalVars   []LocalVariable
	Expressions []Expression
	Body        Block
}

// FunctionArgument represents a function argument.
type FunctionArgument struct {
	Name    string
	Type    TypeHandle
	Binding *Binding
}

// FunctionResult represents a function return type.
type FunctionResult struct {
	Type    TypeHandle
	Binding *Binding
}

// LocalVariable represents a function-local variable.
type LocalVariable struct {
	Name string
	Type TypeHandle
	Init *ExpressionHandle
}

// Binding represents shader bindings.
type Binding interface {
	binding()
}

// BuiltinBinding represents a built-in binding.
type BuiltinBinding struct {
	Builtin BuiltinValue
}

func (BuiltinBinding) binding() {}

// BuiltinValue represents built-in values.
type BuiltinValue uint8

const (
	BuiltinPosition BuiltinValue = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinSampleMask
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkGroupID
	BuiltinNumWorkGroups
)

var builtinNames = [...]string{
	BuiltinPosition:             "position",
	BuiltinVertexIndex:          "vertex_index",
	BuiltinInstanceIndex:        "instance_index",
	BuiltinFrontFacing:          "front_facing",
	BuiltinFragDepth:            "frag_depth",
	BuiltinSampleIndex:          "sample_index",
	BuiltinSampleMask:           "sample_mask",
	BuiltinLocalInvocationID:    "local_invocation_id",
	BuiltinLocalInvocationIndex: "local_invocation_index",
	BuiltinGlobalInvocationID:   "global_invocation_id",
	BuiltinWorkGroupID:          "workgroup_id",
	BuiltinNumWorkGroups:        "num_workgroups",
}

// String returns the WGSL builtin name.
func (b BuiltinValue) String() string {
	if int(b) < len(builtinNames) {
		return builtinNames[b]
	}
	return "unknown"
}

// IsBuiltin reports whether b is the given builtin.
func IsBuiltin(b *Binding, builtin BuiltinValue) bool {
	if b == nil {
		return false
	}
	bb, ok := (*b).(BuiltinBinding)
	return ok && bb.Builtin == builtin
}

// LocationBinding represents a location binding.
type LocationBinding struct {
	Location      uint32
	Interpolation *Interpolation
}

func (LocationBinding) binding() {}

// Interpolation represents interpolation settings.
type Interpolation struct {
	Kind     InterpolationKind
	Sampling InterpolationSampling
}

// InterpolationKind represents interpolation kinds.
type InterpolationKind uint8

const (
	InterpolationFlat InterpolationKind = iota
	InterpolationLinear
	InterpolationPerspective
)

// InterpolationSampling represents interpolation sampling.
type InterpolationSampling uint8

const (
	SamplingCenter InterpolationSampling = iota
	SamplingCentroid
	SamplingSample
)

// GlobalAt returns the global variable bound at p.
func (m *Module) GlobalAt(p binding.Point) (GlobalVariableHandle, bool) {
	for i := range m.GlobalVariables {
		if b := m.GlobalVariables[i].Binding; b != nil && *b == p {
			return GlobalVariableHandle(i), true
		}
	}
	return 0, false
}

// StructOf returns the struct type behind t, if any.
func (m *Module) StructOf(t TypeHandle) (StructType, bool) {
	if int(t) >= len(m.Types) {
		return StructType{}, false
	}
	s, ok := m.Types[t].Inner.(StructType)
	return s, ok
}

// Expression types are defined in expression.go
// Statement types are defined in statement.go
