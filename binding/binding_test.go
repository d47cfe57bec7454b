package binding

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/raise/codec"
)

func TestPoint_Order(t *testing.T) {
	a := Point{Group: 0, Binding: 5}
	b := Point{Group: 1, Binding: 0}
	c := Point{Group: 1, Binding: 2}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, b.Compare(Point{Group: 1}))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(b))

	points := []Point{c, a, b}
	Sort(points)
	assert.Equal(t, []Point{a, b, c}, points)

	keys := SortedKeys(map[Point]string{c: "c", b: "b", a: "a"})
	assert.Equal(t, []Point{a, b, c}, keys)
}

func TestPoint_String(t *testing.T) {
	p := Point{Group: 2, Binding: 7}
	assert.Equal(t, "[group: 2, binding: 7]", p.String())
	assert.Equal(t, "{group: 2, binding: 7}", codec.Describe(&p))
}

func TestPoint_Codec(t *testing.T) {
	p := Point{Group: 1, Binding: 0x0203}
	data, err := codec.Encode(&p, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 2, 3}, data)

	var got Point
	require.NoError(t, codec.Decode(data, &got, binary.BigEndian))
	assert.Equal(t, p, got)

	err = codec.Decode(data[:6], &got, binary.BigEndian)
	assert.ErrorIs(t, err, codec.ErrTruncated)
}

func TestRegistry(t *testing.T) {
	a := Point{Group: 0, Binding: 1}
	b := Point{Group: 0, Binding: 0}
	r := NewRegistry(a, b, a)
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains(a))
	assert.False(t, r.Contains(Point{Group: 1, Binding: 1}))

	assert.False(t, r.Insert(a))
	assert.True(t, r.Insert(Point{Group: 1}))
	assert.Equal(t, []Point{b, a, {Group: 1}}, r.Sorted())

	r.Remove(a)
	r.Remove(a)
	assert.False(t, r.Contains(a))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_NextFree(t *testing.T) {
	r := NewRegistry(Point{Group: 0, Binding: 0}, Point{Group: 0, Binding: 1}, Point{Group: 0, Binding: 3})

	p, ok := r.NextFree(0, 0)
	require.True(t, ok)
	assert.Equal(t, Point{Group: 0, Binding: 2}, p)

	p, ok = r.NextFree(0, 3)
	require.True(t, ok)
	assert.Equal(t, Point{Group: 0, Binding: 4}, p)

	p, ok = r.NextFree(5, 0)
	require.True(t, ok)
	assert.Equal(t, Point{Group: 5}, p)

	r.Insert(Point{Group: 7, Binding: ^uint32(0)})
	_, ok = r.NextFree(7, ^uint32(0))
	assert.False(t, ok)
}
