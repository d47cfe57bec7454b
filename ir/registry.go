package ir

import (
	"fmt"
	"strconv"
)

// TypeRegistry deduplicates types appended to a module.
// Transforms use it to obtain handles for the scalar, vector and array types
// they synthesize without duplicating types the module already declares.
type TypeRegistry struct {
	module  *Module
	typeMap map[string]TypeHandle
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry returns a registry over m's type arena. Existing types are
// indexed; the first of several identical types wins.
func NewTypeRegistry(m *Module) *TypeRegistry {
	r := &TypeRegistry{
		module:  m,
		typeMap: make(map[string]TypeHandle, len(m.Types)),
		keyBuf:  make([]byte, 0, 64),
	}
	for i, t := range m.Types {
		key := r.key(t.Name, t.Inner)
		if _, exists := r.typeMap[key]; !exists {
			r.typeMap[key] = TypeHandle(i)
		}
	}
	return r
}

// GetOrCreate returns an existing handle for the type if it exists,
// or appends it to the module.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	key := r.key(name, inner)
	if handle, exists := r.typeMap[key]; exists {
		return handle
	}

	handle := TypeHandle(len(r.module.Types))
	r.module.Types = append(r.module.Types, Type{Name: name, Inner: inner})
	r.typeMap[key] = handle
	return handle
}

// Scalar returns the handle of a scalar type.
func (r *TypeRegistry) Scalar(s ScalarType) TypeHandle {
	return r.GetOrCreate("", s)
}

// Vector returns the handle of a vector type.
func (r *TypeRegistry) Vector(size VectorSize, s ScalarType) TypeHandle {
	return r.GetOrCreate("", VectorType{Size: size, Scalar: s})
}

// Array returns the handle of a fixed-size array type.
func (r *TypeRegistry) Array(base TypeHandle, n, stride uint32) TypeHandle {
	return r.GetOrCreate("", ArrayType{Base: base, Size: ArraySize{Constant: &n}, Stride: stride})
}

// RuntimeArray returns the handle of a runtime-sized array type.
func (r *TypeRegistry) RuntimeArray(base TypeHandle, stride uint32) TypeHandle {
	return r.GetOrCreate("", ArrayType{Base: base, Stride: stride})
}

// Count returns the number of types in the module.
func (r *TypeRegistry) Count() int {
	return len(r.module.Types)
}

// key creates a unique key for a type based on its structure.
// Structs are nominal, so their name is part of the key.
func (r *TypeRegistry) key(name string, inner TypeInner) string {
	b := r.keyBuf[:0]

	switch t := inner.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = strconv.AppendInt(b, int64(t.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Width), 10)
		r.keyBuf = b
		return string(b)

	case VectorType:
		return "vec:" + strconv.FormatUint(uint64(t.Size), 10) + ":" + r.key("", t.Scalar)

	case MatrixType:
		return "mat:" + strconv.FormatUint(uint64(t.Columns), 10) + "x" +
			strconv.FormatUint(uint64(t.Rows), 10) + ":" + r.key("", t.Scalar)

	case ArrayType:
		sizeKey := "runtime"
		if t.Size.Constant != nil {
			sizeKey = strconv.FormatUint(uint64(*t.Size.Constant), 10)
		}
		return "array:" + strconv.FormatInt(int64(t.Base), 10) + ":" + sizeKey + ":" +
			strconv.FormatUint(uint64(t.Stride), 10)

	case StructType:
		key := fmt.Sprintf("struct:%s:%d:%d", name, len(t.Members), t.Span)
		for _, member := range t.Members {
			key += fmt.Sprintf(":m(%s,%d,%d,%v)", member.Name, member.Type, member.Offset, bindingKey(member.Binding))
		}
		return key

	case PointerType:
		return "ptr:" + strconv.FormatInt(int64(t.Base), 10) + ":" + strconv.FormatInt(int64(t.Space), 10)

	case SamplerType:
		if t.Comparison {
			return "sampler:true"
		}
		return "sampler:false"

	case ImageType:
		return fmt.Sprintf("image:%d:%v:%d:%v:%d:%d:%v", t.Dim, t.Arrayed, t.Class, t.Multisampled,
			t.Format, t.Access, t.RasterizerOrdered)

	case AtomicType:
		b = append(b, "atomic:"...)
		b = strconv.AppendInt(b, int64(t.Scalar.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Scalar.Width), 10)
		r.keyBuf = b
		return string(b)

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

func bindingKey(b *Binding) any {
	if b == nil {
		return nil
	}
	switch v := (*b).(type) {
	case BuiltinBinding:
		return "builtin:" + v.Builtin.String()
	case LocationBinding:
		return "location:" + strconv.FormatUint(uint64(v.Location), 10)
	default:
		return fmt.Sprintf("%T", v)
	}
}
