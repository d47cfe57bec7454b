package binding

import "math"

// Registry tracks the set of binding points in use by a module.
// The zero value is not usable; create one with NewRegistry.
type Registry struct {
	used map[Point]struct{}
}

// NewRegistry returns a registry holding the given points.
// Duplicates among points are ignored.
func NewRegistry(points ...Point) *Registry {
	r := &Registry{used: make(map[Point]struct{}, len(points))}
	for _, p := range points {
		r.used[p] = struct{}{}
	}
	return r
}

// Contains reports whether p is in use.
func (r *Registry) Contains(p Point) bool {
	_, ok := r.used[p]
	return ok
}

// Insert marks p as used. It returns false if p was already in use.
func (r *Registry) Insert(p Point) bool {
	if _, ok := r.used[p]; ok {
		return false
	}
	r.used[p] = struct{}{}
	return true
}

// Remove releases p.
func (r *Registry) Remove(p Point) {
	delete(r.used, p)
}

// Len returns the number of points in use.
func (r *Registry) Len() int {
	return len(r.used)
}

// Sorted returns the points in use in ascending order.
func (r *Registry) Sorted() []Point {
	return SortedKeys(r.used)
}

// NextFree returns the first unused point in group whose binding is at
// least from. The second result is false if the group is exhausted.
func (r *Registry) NextFree(group, from uint32) (Point, bool) {
	for b := uint64(from); b <= math.MaxUint32; b++ {
		p := Point{Group: group, Binding: uint32(b)}
		if !r.Contains(p) {
			return p, true
		}
	}
	return Point{}, false
}
