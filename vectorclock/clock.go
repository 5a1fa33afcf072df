// Package vectorclock implements the sparse, per-node logical clock used by
// the algebraic engine's local-commit protocol and the simulation harness
// (spec.md §3, §4.7, §4.8). Missing entries read as zero; the read path
// makes that explicit rather than relying on Go's map zero-value default,
// per spec.md §9's re-architecture note.
package vectorclock

import "sort"

// Clock is a sparse node -> logical-time mapping. The zero value is the
// all-zero clock.
type Clock struct {
	times map[string]uint64
}

// New returns an empty clock.
func New() Clock {
	return Clock{times: map[string]uint64{}}
}

// FromMap builds a Clock from an explicit node->time map (e.g. decoded off
// the wire, spec.md §6's "Vector clock wire form").
func FromMap(m map[string]uint64) Clock {
	c := New()
	for k, v := range m {
		if v != 0 {
			c.times[k] = v
		}
	}
	return c
}

// At returns node's logical time, 0 if absent.
func (c Clock) At(node string) uint64 {
	if c.times == nil {
		return 0
	}
	return c.times[node]
}

// ToMap returns the wire form: a map containing only non-zero entries.
func (c Clock) ToMap() map[string]uint64 {
	out := make(map[string]uint64, len(c.times))
	for k, v := range c.times {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Tick strictly advances node's entry by one and returns the resulting
// clock (Clock is immutable; Tick never mutates its receiver).
func (c Clock) Tick(node string) Clock {
	out := c.clone()
	out.times[node] = out.times[node] + 1
	return out
}

func (c Clock) clone() Clock {
	out := New()
	for k, v := range c.times {
		out.times[k] = v
	}
	return out
}

// nodes returns the sorted union of node ids appearing in a or b.
func nodes(a, b Clock) []string {
	set := map[string]bool{}
	for k := range a.times {
		set[k] = true
	}
	for k := range b.times {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LessOrEqual reports whether a <= b: every node's time in a is <= its time
// in b (missing entries are 0).
func LessOrEqual(a, b Clock) bool {
	for _, n := range nodes(a, b) {
		if a.At(n) > b.At(n) {
			return false
		}
	}
	return true
}

// Less reports whether a < b: a <= b and a != b.
func Less(a, b Clock) bool {
	return LessOrEqual(a, b) && !Equal(a, b)
}

// Equal reports whether a and b agree on every node's time.
func Equal(a, b Clock) bool {
	for _, n := range nodes(a, b) {
		if a.At(n) != b.At(n) {
			return false
		}
	}
	return true
}

// Concurrent reports whether neither a <= b nor b <= a.
func Concurrent(a, b Clock) bool {
	return !LessOrEqual(a, b) && !LessOrEqual(b, a)
}

// Merge returns the componentwise maximum of a and b. Merge is commutative,
// associative, and idempotent (spec.md invariant 9).
func Merge(a, b Clock) Clock {
	out := New()
	for _, n := range nodes(a, b) {
		ta, tb := a.At(n), b.At(n)
		if ta > tb {
			out.times[n] = ta
		} else if tb > 0 {
			out.times[n] = tb
		}
	}
	return out
}

// MergeAll folds Merge across a slice of clocks; returns the empty clock
// for an empty slice.
func MergeAll(clocks []Clock) Clock {
	out := New()
	for _, c := range clocks {
		out = Merge(out, c)
	}
	return out
}
