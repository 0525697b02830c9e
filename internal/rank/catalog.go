package rank

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOutOfRange  = errors.New("rank index out of range")
	ErrEmptyTable  = errors.New("rank table is empty")
	ErrInvalidRank = errors.New("invalid rank entry")
)

// Rank is one step of the piece ladder.
type Rank struct {
	Index      int
	Radius     float64
	Color      string // opaque render token, e.g. "#C38067"
	Label      string
	MergeScore int // awarded when a merge produces this rank
	Terminal   bool
}

// Catalog is the ordered, immutable rank table.
type Catalog struct {
	ranks     []Rank
	maxRadius float64
}

// New builds a catalog from ranks in ladder order. Index and Terminal are
// assigned from position; whatever the caller set is ignored.
func New(ranks []Rank) (*Catalog, error) {
	if len(ranks) == 0 {
		return nil, ErrEmptyTable
	}
	out := make([]Rank, len(ranks))
	var maxR float64
	for i, r := range ranks {
		if !(r.Radius > 0) || math.IsInf(r.Radius, 0) {
			return nil, fmt.Errorf("%w: ranks[%d] radius must be > 0", ErrInvalidRank, i)
		}
		if r.MergeScore < 0 {
			return nil, fmt.Errorf("%w: ranks[%d] merge score must be >= 0", ErrInvalidRank, i)
		}
		r.Index = i
		r.Terminal = i == len(ranks)-1
		out[i] = r
		maxR = math.Max(maxR, r.Radius)
	}
	return &Catalog{ranks: out, maxRadius: maxR}, nil
}

// At returns the rank at index i.
func (c *Catalog) At(i int) (Rank, error) {
	if i < 0 || i >= len(c.ranks) {
		return Rank{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, len(c.ranks))
	}
	return c.ranks[i], nil
}

func (c *Catalog) Len() int { return len(c.ranks) }

func (c *Catalog) MaxRadius() float64 { return c.maxRadius }

// IsTerminal reports whether i names the last rank. Out-of-range indexes are not terminal.
func (c *Catalog) IsTerminal(i int) bool {
	return i >= 0 && i < len(c.ranks) && c.ranks[i].Terminal
}

// Ranks returns a copy of the table.
func (c *Catalog) Ranks() []Rank {
	return append([]Rank(nil), c.ranks...)
}
