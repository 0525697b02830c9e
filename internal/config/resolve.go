package config

import (
	"fmt"

	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/session"
)

// Resolver turns a profile name into session options.
type Resolver interface {
	// Resolve returns the merged RawConfig and the options built from it.
	Resolve(profile string) (RawConfig, session.Options, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve loads, validates and normalizes one profile.
func (l *Loader) Resolve(profile string) (RawConfig, session.Options, error) {
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return RawConfig{}, session.Options{}, err
	}
	opts, err := Options(raw)
	if err != nil {
		return RawConfig{}, session.Options{}, err
	}
	return raw, opts, nil
}

// Options layers raw over session.DefaultOptions. Without configured ranks
// the reference coin table is used.
func Options(raw RawConfig) (session.Options, error) {
	if err := ValidateRaw(raw); err != nil {
		return session.Options{}, err
	}
	opts := session.DefaultOptions()

	set(&opts.ContainerWidth, raw.Container.Width)
	set(&opts.ContainerHeight, raw.Container.Height)
	set(&opts.WallThickness, raw.Container.WallThickness)
	set(&opts.InitialRankPoolSize, raw.Spawn.PoolSize)
	set(&opts.PreviewY, raw.Spawn.PreviewY)
	set(&opts.Margin, raw.Spawn.Margin)
	set(&opts.DropMargin, raw.Spawn.DropMargin)
	set(&opts.GravityY, raw.Physics.Gravity)
	set(&opts.Restitution, raw.Physics.Restitution)
	set(&opts.Friction, raw.Physics.Friction)
	set(&opts.ImpulseX, raw.Merge.ImpulseX)
	set(&opts.ImpulseY, raw.Merge.ImpulseY)

	if len(raw.Ranks) > 0 {
		ranks := make([]rank.Rank, len(raw.Ranks))
		for i, r := range raw.Ranks {
			ranks[i] = rank.Rank{Label: r.Label, Radius: r.Radius, Color: r.Color, MergeScore: r.Score}
		}
		catalog, err := rank.New(ranks)
		if err != nil {
			return session.Options{}, fmt.Errorf("%w: %v", session.ErrConfiguration, err)
		}
		opts.Catalog = catalog
	}

	if err := opts.Validate(); err != nil {
		return session.Options{}, err
	}
	return opts, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
