package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/coinmerge/internal/session"
)

// ValidateRaw checks the fields a profile sets. Cross-field limits such as
// the width fitting the largest rank are left to session.Options.Validate.
func ValidateRaw(cfg RawConfig) error {
	var errs []string
	positive := func(name string, v *float64) {
		if v != nil && !(*v > 0 && !math.IsInf(*v, 0)) {
			errs = append(errs, name+" must be > 0")
		}
	}
	nonNegative := func(name string, v *float64) {
		if v != nil && !(*v >= 0 && !math.IsInf(*v, 0)) {
			errs = append(errs, name+" must be >= 0")
		}
	}

	positive("container.width", cfg.Container.Width)
	positive("container.height", cfg.Container.Height)
	positive("container.wall_thickness", cfg.Container.WallThickness)

	if cfg.Spawn.PoolSize != nil && *cfg.Spawn.PoolSize < 1 {
		errs = append(errs, "spawn.pool_size must be >= 1")
	}
	nonNegative("spawn.preview_y", cfg.Spawn.PreviewY)
	nonNegative("spawn.margin", cfg.Spawn.Margin)
	nonNegative("spawn.drop_margin", cfg.Spawn.DropMargin)

	if g := cfg.Physics.Gravity; g != nil && (math.IsNaN(*g) || math.IsInf(*g, 0)) {
		errs = append(errs, "physics.gravity must be finite")
	}
	if r := cfg.Physics.Restitution; r != nil && !(*r >= 0 && *r <= 1) {
		errs = append(errs, "physics.restitution must be in [0,1]")
	}
	nonNegative("physics.friction", cfg.Physics.Friction)

	nonNegative("merge.impulse_x", cfg.Merge.ImpulseX)
	nonNegative("merge.impulse_y", cfg.Merge.ImpulseY)

	if len(cfg.Ranks) == 1 {
		errs = append(errs, "ranks needs at least two entries")
	}
	for i, r := range cfg.Ranks {
		if !(r.Radius > 0) {
			errs = append(errs, fmt.Sprintf("ranks[%d].radius must be > 0", i))
		}
		if r.Score < 0 {
			errs = append(errs, fmt.Sprintf("ranks[%d].score must be >= 0", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", session.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}
