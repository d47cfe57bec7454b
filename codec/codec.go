// Package codec encodes configuration records to a compact binary form and
// decodes them back.
//
// The wire format is:
//   - fixed-width integers as raw bytes in the configured byte order
//   - booleans as a single byte, any non-zero value decoding as true
//   - strings as a 16-bit length followed by the raw bytes
//   - optional values as a presence boolean followed by the value
//   - maps as repeated (false, key, value) entries terminated by true,
//     written in ascending key order
//   - records as the concatenation of their fields in declared order
//
// Decoding truncated input returns a *DecodeError.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
)

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Record is implemented by every encodable configuration type.
// Fields returns the record's fields in declaration order, each bound to
// the receiver's storage.
type Record interface {
	Fields() []Field
}

// Field is one encodable member of a Record.
type Field struct {
	Name   string
	encode func(e *Encoder) error
	decode func(d *Decoder) error
	value  func() any
}

// Value binds a record member to a codec.
func Value[T any](name string, p *T, c Codec[T]) Field {
	return Field{
		Name:   name,
		encode: func(e *Encoder) error { return c.Encode(e, *p) },
		decode: func(d *Decoder) error {
			v, err := c.Decode(d)
			if err != nil {
				return err
			}
			*p = v
			return nil
		},
		value: func() any { return *p },
	}
}

// Uint32 binds a uint32 member.
func Uint32(name string, p *uint32) Field {
	return Value(name, p, Uint[uint32]())
}

// Bool binds a bool member.
func Bool(name string, p *bool) Field {
	return Value(name, p, BoolCodec())
}

// String binds a string member.
func String(name string, p *string) Field {
	return Value(name, p, StringCodec())
}

// Nested binds a member that is itself a record.
func Nested(name string, r Record) Field {
	return Field{
		Name:   name,
		encode: func(e *Encoder) error { return e.record(r) },
		decode: func(d *Decoder) error { return d.record(r) },
		value:  func() any { return r },
	}
}

// Encode serializes r.
func Encode(r Record, order ByteOrder) ([]byte, error) {
	e := &Encoder{order: order}
	if err := e.record(r); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Decode deserializes data into r. Trailing bytes are ignored.
func Decode(data []byte, r Record, order ByteOrder) error {
	d := &Decoder{data: data, order: order}
	return d.record(r)
}

// Equal reports whether two records have identical encodings.
func Equal(a, b Record) bool {
	ea, errA := Encode(a, binary.LittleEndian)
	eb, errB := Encode(b, binary.LittleEndian)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// Describe formats r field by field, e.g. "{group: 0, binding: 30}".
func Describe(r Record) string {
	var sb strings.Builder
	describe(&sb, r)
	return sb.String()
}

func describe(sb *strings.Builder, r Record) {
	sb.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		v := f.value()
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			sb.WriteString("none")
			continue
		}
		if nested, ok := v.(Record); ok {
			describe(sb, nested)
			continue
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
			v = rv.Elem().Interface()
		}
		fmt.Fprintf(sb, "%v", v)
	}
	sb.WriteByte('}')
}

// Encoder accumulates encoded bytes.
type Encoder struct {
	buf   []byte
	order ByteOrder
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) record(r Record) error {
	for _, f := range r.Fields() {
		if err := f.encode(e); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

// Decoder reads encoded bytes.
type Decoder struct {
	data  []byte
	off   int
	order ByteOrder
	field string
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

func (d *Decoder) record(r Record) error {
	outer := d.field
	defer func() { d.field = outer }()
	for _, f := range r.Fields() {
		if outer == "" {
			d.field = f.Name
		} else {
			d.field = outer + "." + f.Name
		}
		if err := f.decode(d); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) read(n int) ([]byte, error) {
	if len(d.data)-d.off < n {
		return nil, &DecodeError{Field: d.field, Offset: d.off, Need: n, Have: len(d.data) - d.off}
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}
