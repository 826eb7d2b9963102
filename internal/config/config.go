// Package config loads measurement profiles.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"

	"github.com/farcloser/lufs"
)

var ErrInvalidProfile = errors.New("invalid profile")

// Profile is a reusable set of measurement settings.
//
//	histogram: true
//	max_history: 10m
//	channels: [left, right, center, lfe, left_surround, right_surround]
//	format: json
type Profile struct {
	Histogram  bool          `yaml:"histogram"`
	MaxHistory time.Duration `yaml:"max_history"`
	Channels   []string      `yaml:"channels,omitempty"`
	Format     string        `yaml:"format"` // console, json, markdown
}

// Load reads and validates the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // profiles are user-specified
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	return Parse(data)
}

// Parse validates a YAML profile and fills in defaults.
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	if profile.Format == "" {
		profile.Format = "console"
	}

	if profile.MaxHistory < 0 {
		return nil, fmt.Errorf("%w: negative max_history %s", ErrInvalidProfile, profile.MaxHistory)
	}

	if _, err := profile.channels(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Options converts the profile into analysis options.
func (p *Profile) Options() (lufs.Options, error) {
	channels, err := p.channels()
	if err != nil {
		return lufs.Options{}, err
	}

	return lufs.Options{
		UseHistogram: p.Histogram,
		MaxHistory:   p.MaxHistory,
		Channels:     channels,
	}, nil
}

func (p *Profile) channels() ([]lufs.Channel, error) {
	if len(p.Channels) == 0 {
		return nil, nil
	}

	out := make([]lufs.Channel, len(p.Channels))

	for i, name := range p.Channels {
		kind, err := lufs.ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d: %w", ErrInvalidProfile, i, err)
		}

		out[i] = kind
	}

	return out, nil
}
