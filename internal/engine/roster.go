package engine

import "encoding/json"

// Roster is a fixed-size table of optional seats. A seat index is the
// identity of whoever sits there and never changes while they stay seated.
type Roster[P any] struct {
	seats []*P
}

func NewRoster[P any](size int) Roster[P] {
	return Roster[P]{seats: make([]*P, size)}
}

func (r Roster[P]) Len() int { return len(r.seats) }

// At returns the player in seat i, or nil for an empty or out-of-range seat.
func (r Roster[P]) At(i int) *P {
	if i < 0 || i >= len(r.seats) {
		return nil
	}
	return r.seats[i]
}

func (r Roster[P]) Occupied(i int) bool { return r.At(i) != nil }

func (r Roster[P]) Set(i int, p *P) { r.seats[i] = p }

func (r Roster[P]) Clear(i int) { r.seats[i] = nil }

// Next returns the first seat strictly after from, wrapping around, that is
// occupied and satisfies match (nil matches every occupied seat). If only
// from itself qualifies, from is returned. It panics when no seat qualifies;
// callers guarantee a non-empty table before searching.
func (r Roster[P]) Next(from int, match func(p *P) bool) int {
	n := len(r.seats)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		p := r.seats[i]
		if p != nil && (match == nil || match(p)) {
			return i
		}
	}
	panic("engine: no matching seat on roster")
}

// NextOccupied is Next without a filter.
func (r Roster[P]) NextOccupied(from int) int { return r.Next(from, nil) }

// Indices lists, in ascending order, occupied seats satisfying match.
func (r Roster[P]) Indices(match func(p *P) bool) []int {
	out := make([]int, 0, len(r.seats))
	for i, p := range r.seats {
		if p != nil && (match == nil || match(p)) {
			out = append(out, i)
		}
	}
	return out
}

func (r Roster[P]) OccupiedIndices() []int { return r.Indices(nil) }

// Count is len(Indices(match)) without the allocation.
func (r Roster[P]) Count(match func(p *P) bool) int {
	c := 0
	for _, p := range r.seats {
		if p != nil && (match == nil || match(p)) {
			c++
		}
	}
	return c
}

// Each calls fn for every occupied seat in index order.
func (r Roster[P]) Each(fn func(seat int, p *P)) {
	for i, p := range r.seats {
		if p != nil {
			fn(i, p)
		}
	}
}

// Clone deep-copies the roster using cp for each occupied seat.
func (r Roster[P]) Clone(cp func(p *P) *P) Roster[P] {
	out := NewRoster[P](len(r.seats))
	for i, p := range r.seats {
		if p != nil {
			out.seats[i] = cp(p)
		}
	}
	return out
}

// MarshalJSON encodes the roster as an array with null for empty seats.
func (r Roster[P]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.seats)
}
