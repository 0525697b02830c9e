package spawn

import (
	"math"

	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
)

const (
	DefaultPoolSize   = 3
	DefaultMargin     = 4
	DefaultDropMargin = 8
)

type Options struct {
	PoolSize   int     // ranks [0, PoolSize) may be drawn; clamped to [1, Len()-1]
	Margin     float64 // horizontal gap kept from each wall
	DropMargin float64 // gap kept above the floor at drop time
}

// Controller tracks the next rank to drop and where a drop may land.
type Controller struct {
	catalog *rank.Catalog
	rng     rng.RandomSource
	pool    int
	margin  float64
	dropGap float64

	next   int
	target float64
}

// New draws the initial next rank immediately.
func New(catalog *rank.Catalog, opts Options, src rng.RandomSource) *Controller {
	if src == nil {
		src = rng.Default()
	}
	pool := opts.PoolSize
	if pool <= 0 {
		pool = DefaultPoolSize
	}
	// the terminal rank is never drawn
	if limit := catalog.Len() - 1; pool > limit {
		pool = limit
	}
	if pool < 1 {
		pool = 1
	}
	c := &Controller{
		catalog: catalog,
		rng:     src,
		pool:    pool,
		margin:  math.Max(opts.Margin, 0),
		dropGap: math.Max(opts.DropMargin, 0),
	}
	c.next = c.draw()
	return c
}

func (c *Controller) draw() int { return rng.IntN(c.rng, c.pool) }

func (c *Controller) PoolSize() int { return c.pool }

// NextRank returns the pending rank.
func (c *Controller) NextRank() rank.Rank {
	r, _ := c.catalog.At(c.next)
	return r
}

// Advance draws a fresh next rank, with replacement, and returns it.
func (c *Controller) Advance() rank.Rank {
	c.next = c.draw()
	return c.NextRank()
}

// Reset picks a fresh next rank for a new round.
func (c *Controller) Reset() rank.Rank { return c.Advance() }

// ClampHorizontal bounds x to [radius+margin, width-radius-margin]. When the
// container is too narrow for that interval the centre is returned.
func (c *Controller) ClampHorizontal(x, width, radius float64) float64 {
	lo := radius + c.margin
	hi := width - radius - c.margin
	if lo > hi {
		return width / 2
	}
	return math.Max(lo, math.Min(hi, x))
}

// PlacementY bounds a drop coordinate to [radius, height-radius-dropMargin].
func (c *Controller) PlacementY(y, height, radius float64) float64 {
	lo := radius
	hi := height - radius - c.dropGap
	if lo > hi {
		return height / 2
	}
	return math.Max(lo, math.Min(hi, y))
}

// SetTarget records the marker's clamped horizontal position.
func (c *Controller) SetTarget(x float64) { c.target = x }

func (c *Controller) Target() float64 { return c.target }
