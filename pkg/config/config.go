// Package config loads engine settings from TOML.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full settings tree. Zero sections fall back to Default.
type Config struct {
	Filter   Filter   `toml:"filter"`
	Cluster  Cluster  `toml:"cluster"`
	Merge    Merge    `toml:"merge"`
	Sampling Sampling `toml:"sampling"`
	Normals  Normals  `toml:"normals"`
	Log      Log      `toml:"log"`
	Script   Script   `toml:"script"`
}

// Filter tunes the spatial filters.
type Filter struct {
	// RTol and ATol define distance equality: |d-t| <= ATol + RTol*|t|.
	RTol float64 `toml:"rtol"`
	ATol float64 `toml:"atol"`
	// FallbackDataset receives results whose source dataset is unknown.
	FallbackDataset string `toml:"fallback_dataset"`
}

// Cluster controls the DBSCAN fan-out.
type Cluster struct {
	// KeepNoise emits points labelled -1 as their own item.
	KeepNoise bool `toml:"keep_noise"`
}

// Merge controls merge naming.
type Merge struct {
	// Overwrite replaces an existing merge result of the same kind
	// instead of picking a fresh name.
	Overwrite bool `toml:"overwrite"`
}

// Sampling seeds random subsampling.
type Sampling struct {
	Seed uint64 `toml:"seed"`
}

// Normals sets the default neighbourhood size.
type Normals struct {
	K int `toml:"k"`
}

// Log sizes the activity log ring.
type Log struct {
	Lines int    `toml:"lines"`
	Level string `toml:"level"`
}

// Script bounds script evaluation.
type Script struct {
	Timeout Duration `toml:"timeout"`
}

// Duration reads TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Filter: Filter{
			RTol:            1e-5,
			ATol:            1e-8,
			FallbackDataset: "Filtered Point Clouds",
		},
		Sampling: Sampling{Seed: 1},
		Normals:  Normals{K: 6},
		Log:      Log{Lines: 500, Level: "info"},
		Script:   Script{Timeout: Duration{5 * time.Second}},
	}
}

// Parse decodes TOML on top of Default. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads a TOML file. A missing file yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Validate rejects settings no operation can run with.
func (c Config) Validate() error {
	switch {
	case c.Filter.RTol < 0 || c.Filter.ATol < 0:
		return fmt.Errorf("config: filter tolerances must be non-negative")
	case c.Filter.FallbackDataset == "":
		return fmt.Errorf("config: filter.fallback_dataset must not be empty")
	case c.Normals.K < 3:
		return fmt.Errorf("config: normals.k must be at least 3, got %d", c.Normals.K)
	case c.Log.Lines < 1:
		return fmt.Errorf("config: log.lines must be positive, got %d", c.Log.Lines)
	case c.Script.Timeout.Duration <= 0:
		return fmt.Errorf("config: script.timeout must be positive")
	}
	return nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
