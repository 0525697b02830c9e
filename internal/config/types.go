package config

// RawConfig is one profile file as written on disk. Pointer scalars tell an
// unset field apart from an explicit zero so profiles can override defaults.
type RawConfig struct {
	Version   string          `yaml:"version"`
	Container ContainerConfig `yaml:"container"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Merge     MergeConfig     `yaml:"merge"`
	Ranks     []RankConfig    `yaml:"ranks,omitempty"`
	Notes     string          `yaml:"notes,omitempty"`
}

type ContainerConfig struct {
	Width         *float64 `yaml:"width"`
	Height        *float64 `yaml:"height"`
	WallThickness *float64 `yaml:"wall_thickness"`
}

type SpawnConfig struct {
	PoolSize   *int     `yaml:"pool_size"`
	PreviewY   *float64 `yaml:"preview_y,omitempty"`
	Margin     *float64 `yaml:"margin,omitempty"`
	DropMargin *float64 `yaml:"drop_margin,omitempty"`
}

type PhysicsConfig struct {
	Gravity     *float64 `yaml:"gravity"`
	Restitution *float64 `yaml:"restitution"`
	Friction    *float64 `yaml:"friction"`
}

// MergeConfig is the impulse given to a freshly merged piece.
type MergeConfig struct {
	ImpulseX *float64 `yaml:"impulse_x"`
	ImpulseY *float64 `yaml:"impulse_y"`
}

type RankConfig struct {
	Label  string  `yaml:"label"`
	Radius float64 `yaml:"radius"`
	Color  string  `yaml:"color"`
	Score  int     `yaml:"score"`
}
