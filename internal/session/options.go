package session

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/spawn"
)

var ErrConfiguration = errors.New("invalid session configuration")

// Options are the construction-time inputs of a session. New fills a nil
// Catalog, a zero InitialRankPoolSize and a zero PreviewY from
// DefaultOptions; every other field is taken as given.
type Options struct {
	Catalog *rank.Catalog

	ContainerWidth      float64
	ContainerHeight     float64
	WallThickness       float64
	InitialRankPoolSize int
	GravityY            float64

	PreviewY   float64 // fixed height of the preview marker
	Margin     float64 // horizontal gap from the walls
	DropMargin float64 // gap above the floor at drop time

	Restitution float64
	Friction    float64
	ImpulseX    float64 // merge impulse spread, horizontal
	ImpulseY    float64 // merge impulse lift, applied upward
}

// DefaultOptions matches the reference 400x600 board.
func DefaultOptions() Options {
	return Options{
		Catalog:             rank.Reference(),
		ContainerWidth:      400,
		ContainerHeight:     600,
		WallThickness:       24,
		InitialRankPoolSize: spawn.DefaultPoolSize,
		GravityY:            1,
		PreviewY:            56,
		Margin:              spawn.DefaultMargin,
		DropMargin:          spawn.DefaultDropMargin,
		Restitution:         0.3,
		Friction:            0.3,
		ImpulseX:            1.5,
		ImpulseY:            2.5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Catalog == nil {
		o.Catalog = d.Catalog
	}
	if o.InitialRankPoolSize == 0 {
		o.InitialRankPoolSize = d.InitialRankPoolSize
	}
	if o.PreviewY == 0 {
		o.PreviewY = d.PreviewY
	}
	return o
}

// Validate collects every problem into one ErrConfiguration.
func (o Options) Validate() error {
	var errs []string
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	if o.Catalog == nil || o.Catalog.Len() < 2 {
		errs = append(errs, "rank table needs at least two ranks")
	}
	if !finite(o.ContainerWidth) || o.ContainerWidth <= 0 {
		errs = append(errs, "container width must be > 0")
	}
	if !finite(o.ContainerHeight) || o.ContainerHeight <= 0 {
		errs = append(errs, "container height must be > 0")
	}
	if !finite(o.WallThickness) || o.WallThickness <= 0 {
		errs = append(errs, "wall thickness must be > 0")
	}
	if o.Catalog != nil && finite(o.ContainerWidth) && o.ContainerWidth < 2*(o.Catalog.MaxRadius()+o.Margin) {
		errs = append(errs, "container width must fit the largest rank")
	}
	if o.InitialRankPoolSize < 0 {
		errs = append(errs, "initial rank pool size must be >= 0 (0 selects the default)")
	}
	if !finite(o.GravityY) {
		errs = append(errs, "gravity must be finite")
	}
	if !finite(o.PreviewY) || o.PreviewY < 0 || (finite(o.ContainerHeight) && o.PreviewY >= o.ContainerHeight) {
		errs = append(errs, "preview y must be inside the container")
	}
	if !finite(o.Margin) || !finite(o.DropMargin) || o.Margin < 0 || o.DropMargin < 0 {
		errs = append(errs, "margins must be finite and >= 0")
	}
	if !finite(o.Restitution) || o.Restitution < 0 || o.Restitution > 1 {
		errs = append(errs, "restitution must be in [0,1]")
	}
	if !finite(o.Friction) || o.Friction < 0 {
		errs = append(errs, "friction must be finite and >= 0")
	}
	if !finite(o.ImpulseX) || !finite(o.ImpulseY) || o.ImpulseX < 0 || o.ImpulseY < 0 {
		errs = append(errs, "merge impulse must be finite and >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}
