// Package config loads board profiles from YAML and process settings from
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/coinmerge/internal/session"
)

const DefaultProfile = "default"

// Paths locates profile files under a base directory.
type Paths struct {
	BaseDir string // e.g. /etc/coinmerge
}

func (p Paths) DefaultPath() string {
	return p.ProfilePath(DefaultProfile)
}

func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, "profiles", profile+".yaml")
}

// Loader reads profile files and merges default → profile.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: profile name
}

func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged returns default ← profile, unvalidated. A missing profile file
// yields the default profile; a malformed one is an error.
func (l *Loader) LoadMerged(profile string) (RawConfig, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	if strings.ContainsAny(profile, `/\`) || strings.Contains(profile, "..") {
		return RawConfig{}, fmt.Errorf("%w: invalid profile name %q", session.ErrConfiguration, profile)
	}

	l.mu.RLock()
	if cfg, ok := l.cache[profile]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	merged := defCfg
	if profile != DefaultProfile {
		profCfg, err := readYAML(l.paths.ProfilePath(profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %s: %w", profile, err)
		}
		merged = mergeRaw(defCfg, profCfg)
	}

	l.mu.Lock()
	l.cache[DefaultProfile] = defCfg
	l.cache[profile] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears the cache. Called by the watcher after a file changed.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads one file. Missing files return a zero config, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw lets b override a wherever b sets a field. A non-empty rank list
// in b replaces a's list whole.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	override(&out.Container.Width, b.Container.Width)
	override(&out.Container.Height, b.Container.Height)
	override(&out.Container.WallThickness, b.Container.WallThickness)

	override(&out.Spawn.PoolSize, b.Spawn.PoolSize)
	override(&out.Spawn.PreviewY, b.Spawn.PreviewY)
	override(&out.Spawn.Margin, b.Spawn.Margin)
	override(&out.Spawn.DropMargin, b.Spawn.DropMargin)

	override(&out.Physics.Gravity, b.Physics.Gravity)
	override(&out.Physics.Restitution, b.Physics.Restitution)
	override(&out.Physics.Friction, b.Physics.Friction)

	override(&out.Merge.ImpulseX, b.Merge.ImpulseX)
	override(&out.Merge.ImpulseY, b.Merge.ImpulseY)

	if len(b.Ranks) > 0 {
		out.Ranks = append([]RankConfig(nil), b.Ranks...)
	}
	return out
}

func override[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
