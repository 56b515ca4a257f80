package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type seat struct {
	folded bool
}

func rosterWith(size int, occupied ...int) Roster[seat] {
	r := NewRoster[seat](size)
	for _, i := range occupied {
		r.Set(i, &seat{})
	}
	return r
}

func TestNextOccupied(t *testing.T) {
	cases := []struct {
		name     string
		occupied []int
		from     int
		want     int
	}{
		{"next seat", []int{2, 5}, 2, 5},
		{"wraps around", []int{2, 5}, 5, 2},
		{"skips gaps", []int{0, 7}, 1, 7},
		{"from empty seat", []int{3}, 4, 3},
		{"only seat returns itself", []int{3}, 3, 3},
		{"from before the table", []int{0, 4}, -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rosterWith(9, tc.occupied...)
			assert.Equal(t, tc.want, r.NextOccupied(tc.from))
		})
	}
}

func TestNextOccupied_NeverReturnsEmptySeat(t *testing.T) {
	for mask := 1; mask < 1<<6; mask++ {
		r := NewRoster[seat](6)
		for i := 0; i < 6; i++ {
			if mask&(1<<i) != 0 {
				r.Set(i, &seat{})
			}
		}
		for from := 0; from < 6; from++ {
			got := r.NextOccupied(from)
			assert.True(t, r.Occupied(got), "mask %b from %d gave empty seat %d", mask, from, got)
		}
	}
}

func TestNext_FilterSkipsFolded(t *testing.T) {
	r := rosterWith(6, 0, 2, 4)
	r.At(2).folded = true
	notFolded := func(s *seat) bool { return !s.folded }

	assert.Equal(t, 4, r.Next(0, notFolded))
	assert.Equal(t, []int{0, 4}, r.Indices(notFolded))
	assert.Equal(t, 2, r.Count(notFolded))
	assert.Equal(t, []int{0, 2, 4}, r.OccupiedIndices())
}

func TestNext_PanicsOnEmptyRoster(t *testing.T) {
	r := NewRoster[seat](4)
	assert.Panics(t, func() { r.NextOccupied(0) })
}

func TestRoster_CloneIsDeep(t *testing.T) {
	r := rosterWith(3, 1)
	c := r.Clone(func(s *seat) *seat { cp := *s; return &cp })
	c.At(1).folded = true
	c.Clear(1)
	assert.False(t, r.At(1).folded)
	assert.True(t, r.Occupied(1))
}

func TestRoster_MarshalsNullSeats(t *testing.T) {
	r := rosterWith(3, 1)
	b, err := json.Marshal(r)
	assert.NoError(t, err)
	assert.JSONEq(t, `[null, {}, null]`, string(b))
}
