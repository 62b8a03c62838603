package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tuning represents the root configuration for pipeline tuning parameters.
// The schema matches the /api/pose/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates. All fields are
// pointers so that partial configs only override what they mention.
type Tuning struct {
	// Classifier params
	MinJointConfidence      *float64 `json:"min_joint_confidence,omitempty"`
	ArmsUpWristMargin       *float64 `json:"arms_up_wrist_margin,omitempty"`
	StarWristSpreadRatio    *float64 `json:"star_wrist_spread_ratio,omitempty"`
	StarLegSpreadRatio      *float64 `json:"star_leg_spread_ratio,omitempty"`
	TPoseMinElbowAngleDeg   *float64 `json:"tpose_min_elbow_angle_deg,omitempty"`
	TPoseVerticalBandRatio  *float64 `json:"tpose_vertical_band_ratio,omitempty"`
	HandsOnHipsRadiusRatio  *float64 `json:"hands_on_hips_radius_ratio,omitempty"`

	// Smoother params
	SmoothingAlphaPoint  *float64 `json:"smoothing_alpha_point,omitempty"`
	SmoothingAlphaScalar *float64 `json:"smoothing_alpha_scalar,omitempty"`
	AnchorBlend          *float64 `json:"anchor_blend,omitempty"`

	// Identity matching params
	MatchDistanceThreshold *float64 `json:"match_distance_threshold,omitempty"`
	MatcherAlgorithm       *string  `json:"matcher_algorithm,omitempty"` // "greedy" or "hungarian"

	// Lock FSM params (duration strings like "400ms")
	DwellDuration    *string `json:"dwell_duration,omitempty"`
	MinShowDuration  *string `json:"min_show_duration,omitempty"`
	GraceWindow      *string `json:"grace_window,omitempty"`
	CooldownDuration *string `json:"cooldown_duration,omitempty"`

	// Animation params
	EnterDuration  *string  `json:"enter_duration,omitempty"`
	ExitDuration   *string  `json:"exit_duration,omitempty"`
	EnterFromScale *float64 `json:"enter_from_scale,omitempty"`
	ExitToScale    *float64 `json:"exit_to_scale,omitempty"`

	// Show-control relay params
	RelayDebounce *string `json:"relay_debounce,omitempty"`
}

// EmptyTuning returns a Tuning with all fields set to nil.
// Use LoadTuning to load actual values from a file.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file must have a .json
// extension and stay under the max file size. Fields omitted from the JSON
// retain their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Out-of-range
// values are rejected here, at load time, never on the per-frame path.
func (c *Tuning) Validate() error {
	checkUnit := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
		return nil
	}
	if err := checkUnit("min_joint_confidence", c.MinJointConfidence); err != nil {
		return err
	}
	if err := checkUnit("smoothing_alpha_point", c.SmoothingAlphaPoint); err != nil {
		return err
	}
	if err := checkUnit("smoothing_alpha_scalar", c.SmoothingAlphaScalar); err != nil {
		return err
	}
	if err := checkUnit("anchor_blend", c.AnchorBlend); err != nil {
		return err
	}

	checkPositive := func(name string, v *float64) error {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
		return nil
	}
	for name, v := range map[string]*float64{
		"star_wrist_spread_ratio":    c.StarWristSpreadRatio,
		"star_leg_spread_ratio":      c.StarLegSpreadRatio,
		"tpose_vertical_band_ratio":  c.TPoseVerticalBandRatio,
		"hands_on_hips_radius_ratio": c.HandsOnHipsRadiusRatio,
		"match_distance_threshold":   c.MatchDistanceThreshold,
		"enter_from_scale":           c.EnterFromScale,
		"exit_to_scale":              c.ExitToScale,
	} {
		if err := checkPositive(name, v); err != nil {
			return err
		}
	}

	if c.ArmsUpWristMargin != nil && *c.ArmsUpWristMargin < 0 {
		return fmt.Errorf("arms_up_wrist_margin must be non-negative, got %f", *c.ArmsUpWristMargin)
	}
	if c.TPoseMinElbowAngleDeg != nil && (*c.TPoseMinElbowAngleDeg < 0 || *c.TPoseMinElbowAngleDeg > 180) {
		return fmt.Errorf("tpose_min_elbow_angle_deg must be between 0 and 180, got %f", *c.TPoseMinElbowAngleDeg)
	}

	if c.MatcherAlgorithm != nil {
		switch *c.MatcherAlgorithm {
		case "greedy", "hungarian":
		default:
			return fmt.Errorf("matcher_algorithm must be \"greedy\" or \"hungarian\", got %q", *c.MatcherAlgorithm)
		}
	}

	for name, v := range map[string]*string{
		"dwell_duration":    c.DwellDuration,
		"min_show_duration": c.MinShowDuration,
		"grace_window":      c.GraceWindow,
		"cooldown_duration": c.CooldownDuration,
		"enter_duration":    c.EnterDuration,
		"exit_duration":     c.ExitDuration,
		"relay_debounce":    c.RelayDebounce,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	return nil
}

func (c *Tuning) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetMinJointConfidence returns the min_joint_confidence value or the default.
func (c *Tuning) GetMinJointConfidence() float64 {
	if c.MinJointConfidence == nil {
		return 0.3
	}
	return *c.MinJointConfidence
}

// GetArmsUpWristMargin returns the arms_up_wrist_margin value or the default.
// The margin is expressed in shoulder-width units.
func (c *Tuning) GetArmsUpWristMargin() float64 {
	if c.ArmsUpWristMargin == nil {
		return 0.1
	}
	return *c.ArmsUpWristMargin
}

// GetStarWristSpreadRatio returns the star_wrist_spread_ratio value or the default.
func (c *Tuning) GetStarWristSpreadRatio() float64 {
	if c.StarWristSpreadRatio == nil {
		return 0.5
	}
	return *c.StarWristSpreadRatio
}

// GetStarLegSpreadRatio returns the star_leg_spread_ratio value or the default.
func (c *Tuning) GetStarLegSpreadRatio() float64 {
	if c.StarLegSpreadRatio == nil {
		return 1.5
	}
	return *c.StarLegSpreadRatio
}

// GetTPoseMinElbowAngleDeg returns the tpose_min_elbow_angle_deg value or the default.
func (c *Tuning) GetTPoseMinElbowAngleDeg() float64 {
	if c.TPoseMinElbowAngleDeg == nil {
		return 150
	}
	return *c.TPoseMinElbowAngleDeg
}

// GetTPoseVerticalBandRatio returns the tpose_vertical_band_ratio value or the default.
func (c *Tuning) GetTPoseVerticalBandRatio() float64 {
	if c.TPoseVerticalBandRatio == nil {
		return 0.35
	}
	return *c.TPoseVerticalBandRatio
}

// GetHandsOnHipsRadiusRatio returns the hands_on_hips_radius_ratio value or the default.
func (c *Tuning) GetHandsOnHipsRadiusRatio() float64 {
	if c.HandsOnHipsRadiusRatio == nil {
		return 0.45
	}
	return *c.HandsOnHipsRadiusRatio
}

// GetSmoothingAlphaPoint returns the smoothing_alpha_point value or the default.
func (c *Tuning) GetSmoothingAlphaPoint() float64 {
	if c.SmoothingAlphaPoint == nil {
		return 0.65
	}
	return *c.SmoothingAlphaPoint
}

// GetSmoothingAlphaScalar returns the smoothing_alpha_scalar value or the default.
func (c *Tuning) GetSmoothingAlphaScalar() float64 {
	if c.SmoothingAlphaScalar == nil {
		return 0.8
	}
	return *c.SmoothingAlphaScalar
}

// GetAnchorBlend returns the anchor_blend value or the default.
// 0 anchors at the shoulder midpoint, 1 at the hip midpoint.
func (c *Tuning) GetAnchorBlend() float64 {
	if c.AnchorBlend == nil {
		return 0.55
	}
	return *c.AnchorBlend
}

// GetMatchDistanceThreshold returns the match_distance_threshold value or the
// default, in the same screen-normalized units as joint positions.
func (c *Tuning) GetMatchDistanceThreshold() float64 {
	if c.MatchDistanceThreshold == nil {
		return 0.12
	}
	return *c.MatchDistanceThreshold
}

// GetMatcherAlgorithm returns the matcher_algorithm value or the default.
func (c *Tuning) GetMatcherAlgorithm() string {
	if c.MatcherAlgorithm == nil {
		return "greedy"
	}
	return *c.MatcherAlgorithm
}

// GetDwellDuration parses and returns the dwell_duration as a time.Duration.
func (c *Tuning) GetDwellDuration() time.Duration {
	return c.duration(c.DwellDuration, 400*time.Millisecond)
}

// GetMinShowDuration parses and returns the min_show_duration as a time.Duration.
func (c *Tuning) GetMinShowDuration() time.Duration {
	return c.duration(c.MinShowDuration, 1000*time.Millisecond)
}

// GetGraceWindow parses and returns the grace_window as a time.Duration.
func (c *Tuning) GetGraceWindow() time.Duration {
	return c.duration(c.GraceWindow, 250*time.Millisecond)
}

// GetCooldownDuration parses and returns the cooldown_duration as a time.Duration.
func (c *Tuning) GetCooldownDuration() time.Duration {
	return c.duration(c.CooldownDuration, 400*time.Millisecond)
}

// GetEnterDuration parses and returns the enter_duration as a time.Duration.
func (c *Tuning) GetEnterDuration() time.Duration {
	return c.duration(c.EnterDuration, 440*time.Millisecond)
}

// GetExitDuration parses and returns the exit_duration as a time.Duration.
func (c *Tuning) GetExitDuration() time.Duration {
	return c.duration(c.ExitDuration, 220*time.Millisecond)
}

// GetEnterFromScale returns the enter_from_scale value or the default.
func (c *Tuning) GetEnterFromScale() float64 {
	if c.EnterFromScale == nil {
		return 0.58
	}
	return *c.EnterFromScale
}

// GetExitToScale returns the exit_to_scale value or the default.
func (c *Tuning) GetExitToScale() float64 {
	if c.ExitToScale == nil {
		return 0.76
	}
	return *c.ExitToScale
}

// GetRelayDebounce parses and returns the relay_debounce as a time.Duration.
func (c *Tuning) GetRelayDebounce() time.Duration {
	return c.duration(c.RelayDebounce, 600*time.Millisecond)
}

// Store holds the live tuning config and supports hot replacement. Readers
// take a snapshot pointer once per frame; writers swap the whole config only
// after validation, so the pipeline always runs on last-known-good values.
type Store struct {
	mu  sync.RWMutex
	cur *Tuning
}

// NewStore creates a Store seeded with the given config (nil means defaults).
func NewStore(cfg *Tuning) *Store {
	if cfg == nil {
		cfg = EmptyTuning()
	}
	return &Store{cur: cfg}
}

// Current returns the live config snapshot.
func (s *Store) Current() *Tuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Replace validates and swaps in a new config. On validation failure the
// previous config stays live and the error is returned.
func (s *Store) Replace(cfg *Tuning) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()
	return nil
}
