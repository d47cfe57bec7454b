package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

// Codec encodes and decodes values of one type.
type Codec[T any] struct {
	Encode func(e *Encoder, v T) error
	Decode func(d *Decoder) (T, error)
}

// Uint returns the codec for a fixed-width unsigned integer type.
func Uint[T constraints.Unsigned]() Codec[T] {
	var zero T
	size := binary.Size(zero)
	return Codec[T]{
		Encode: func(e *Encoder, v T) error {
			putUint(e, uint64(v), size)
			return nil
		},
		Decode: func(d *Decoder) (T, error) {
			v, err := getUint(d, size)
			return T(v), err
		},
	}
}

// Int returns the codec for a fixed-width signed integer type.
func Int[T constraints.Signed]() Codec[T] {
	var zero T
	size := binary.Size(zero)
	mask := uint64(math.MaxUint64) >> (64 - 8*size)
	return Codec[T]{
		Encode: func(e *Encoder, v T) error {
			putUint(e, uint64(v)&mask, size)
			return nil
		},
		Decode: func(d *Decoder) (T, error) {
			v, err := getUint(d, size)
			return T(signExtend(v, size)), err
		},
	}
}

func signExtend(v uint64, size int) int64 {
	shift := 64 - 8*size
	return int64(v<<shift) >> shift
}

func putUint(e *Encoder, v uint64, size int) {
	switch size {
	case 1:
		e.buf = append(e.buf, byte(v))
	case 2:
		e.buf = e.order.AppendUint16(e.buf, uint16(v))
	case 4:
		e.buf = e.order.AppendUint32(e.buf, uint32(v))
	default:
		e.buf = e.order.AppendUint64(e.buf, v)
	}
}

func getUint(d *Decoder, size int) (uint64, error) {
	b, err := d.read(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(d.order.Uint16(b)), nil
	case 4:
		return uint64(d.order.Uint32(b)), nil
	default:
		return d.order.Uint64(b), nil
	}
}

// BoolCodec encodes booleans as one byte.
func BoolCodec() Codec[bool] {
	return Codec[bool]{
		Encode: func(e *Encoder, v bool) error {
			if v {
				e.buf = append(e.buf, 1)
			} else {
				e.buf = append(e.buf, 0)
			}
			return nil
		},
		Decode: func(d *Decoder) (bool, error) {
			b, err := d.read(1)
			if err != nil {
				return false, err
			}
			return b[0] != 0, nil
		},
	}
}

// StringCodec encodes strings with a 16-bit length prefix.
func StringCodec() Codec[string] {
	length := Uint[uint16]()
	return Codec[string]{
		Encode: func(e *Encoder, v string) error {
			if len(v) > math.MaxUint16 {
				return fmt.Errorf("string of %d bytes exceeds the 16-bit length prefix", len(v))
			}
			_ = length.Encode(e, uint16(len(v)))
			e.buf = append(e.buf, v...)
			return nil
		},
		Decode: func(d *Decoder) (string, error) {
			n, err := length.Decode(d)
			if err != nil {
				return "", err
			}
			b, err := d.read(int(n))
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}

// Optional encodes a nil-able value as a presence flag and the value.
func Optional[T any](c Codec[T]) Codec[*T] {
	flag := BoolCodec()
	return Codec[*T]{
		Encode: func(e *Encoder, v *T) error {
			_ = flag.Encode(e, v != nil)
			if v == nil {
				return nil
			}
			return c.Encode(e, *v)
		},
		Decode: func(d *Decoder) (*T, error) {
			present, err := flag.Decode(d)
			if err != nil || !present {
				return nil, err
			}
			v, err := c.Decode(d)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
	}
}

// Map encodes a map in ascending key order, ordered by compare.
// A nil map and an empty map have the same encoding and compare equal under
// Equal; both decode to an empty, non-nil map.
func Map[K comparable, V any](k Codec[K], v Codec[V], compare func(a, b K) int) Codec[map[K]V] {
	flag := BoolCodec()
	return Codec[map[K]V]{
		Encode: func(e *Encoder, m map[K]V) error {
			keys := make([]K, 0, len(m))
			for key := range m {
				keys = append(keys, key)
			}
			slices.SortFunc(keys, compare)
			for _, key := range keys {
				_ = flag.Encode(e, false)
				if err := k.Encode(e, key); err != nil {
					return err
				}
				if err := v.Encode(e, m[key]); err != nil {
					return err
				}
			}
			return flag.Encode(e, true)
		},
		Decode: func(d *Decoder) (map[K]V, error) {
			m := make(map[K]V)
			for {
				done, err := flag.Decode(d)
				if err != nil {
					return nil, err
				}
				if done {
					return m, nil
				}
				key, err := k.Decode(d)
				if err != nil {
					return nil, err
				}
				val, err := v.Decode(d)
				if err != nil {
					return nil, err
				}
				m[key] = val
			}
		},
	}
}

// List encodes a slice as repeated (false, element) entries terminated by
// true, mirroring Map.
func List[T any](c Codec[T]) Codec[[]T] {
	flag := BoolCodec()
	return Codec[[]T]{
		Encode: func(e *Encoder, s []T) error {
			for _, elem := range s {
				_ = flag.Encode(e, false)
				if err := c.Encode(e, elem); err != nil {
					return err
				}
			}
			return flag.Encode(e, true)
		},
		Decode: func(d *Decoder) ([]T, error) {
			var s []T
			for {
				done, err := flag.Decode(d)
				if err != nil {
					return nil, err
				}
				if done {
					return s, nil
				}
				elem, err := c.Decode(d)
				if err != nil {
					return nil, err
				}
				s = append(s, elem)
			}
		},
	}
}

// RecordCodec adapts a record type for use as a map key or value.
// bind must return a Record backed by the given pointer.
func RecordCodec[T any](bind func(*T) Record) Codec[T] {
	return Codec[T]{
		Encode: func(e *Encoder, v T) error {
			return e.record(bind(&v))
		},
		Decode: func(d *Decoder) (T, error) {
			var v T
			err := d.record(bind(&v))
			return v, err
		},
	}
}
