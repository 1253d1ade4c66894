// Package config loads campushelp settings from an optional YAML file with
// environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/pkg/models"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CAMPUSHELP_"

type Config struct {
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Points   PointsConfig   `yaml:"points" envPrefix:"POINTS_"`
	Matching MatchingConfig `yaml:"matching" envPrefix:"MATCH_"`
	Advisory AdvisoryConfig `yaml:"advisory" envPrefix:"ADVISORY_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`

	Categories     []models.Category `yaml:"categories" env:"CATEGORIES" envSeparator:","`
	Campuses       []string          `yaml:"campuses" env:"CAMPUSES" envSeparator:","`
	OnlineMarkers  []string          `yaml:"online_markers" env:"ONLINE_MARKERS" envSeparator:","`
	DenyKeywords   []string          `yaml:"deny_keywords" env:"DENY_KEYWORDS" envSeparator:","`
	DefaultBalance int               `yaml:"default_balance" env:"DEFAULT_BALANCE"`
}

type DatabaseConfig struct {
	Path         string `yaml:"path" env:"PATH"`
	SnapshotPath string `yaml:"snapshot_path" env:"SNAPSHOT_PATH"`
	AutoSnapshot bool   `yaml:"auto_snapshot" env:"AUTO_SNAPSHOT"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
}

// PointsConfig bounds the reward a publisher may offer.
type PointsConfig struct {
	Min     int `yaml:"min" env:"MIN"`
	Max     int `yaml:"max" env:"MAX"`
	Default int `yaml:"default" env:"DEFAULT"`
}

type MatchingConfig struct {
	Weights Weights `yaml:"weights" envPrefix:"WEIGHT_"`
	TopN    int     `yaml:"top_n" env:"TOP_N"`
}

// Weights are the per-component coefficients of the match total.
type Weights struct {
	Skill    float64 `yaml:"skill" json:"skill" env:"SKILL"`
	Time     float64 `yaml:"time" json:"time" env:"TIME"`
	Rating   float64 `yaml:"rating" json:"rating" env:"RATING"`
	Location float64 `yaml:"location" json:"location" env:"LOCATION"`
}

func (w Weights) Sum() float64 {
	return w.Skill + w.Time + w.Rating + w.Location
}

// Validate requires every weight in [0,1] and a total of 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"skill": w.Skill, "time": w.Time, "rating": w.Rating, "location": w.Location} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return apperr.Validation("matching weight %s=%v outside [0,1]", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return apperr.Validation("matching weights sum to %v, want 1.0", w.Sum())
	}
	return nil
}

type AdvisoryConfig struct {
	// Provider is "offline" or "gemini".
	Provider string        `yaml:"provider" env:"PROVIDER"`
	Model    string        `yaml:"model" env:"MODEL"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns the stock platform policy.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Path:         ".campushelp/campushelp.db",
			SnapshotPath: ".campushelp/snapshot.jsonl",
		},
		Logging: LoggingConfig{Level: "info"},
		Points:  PointsConfig{Min: 10, Max: 500, Default: 50},
		Matching: MatchingConfig{
			Weights: Weights{Skill: 0.4, Time: 0.2, Rating: 0.2, Location: 0.2},
			TopN:    5,
		},
		Advisory: AdvisoryConfig{
			Provider: "offline",
			Model:    "gemini-2.0-flash",
			Timeout:  10 * time.Second,
		},
		HTTP:          HTTPConfig{Addr: ":8000"},
		Categories:    append([]models.Category(nil), models.Categories...),
		Campuses:      []string{"waishuangxi", "chengzhong", "online"},
		OnlineMarkers: []string{"online", "virtual", "remote", "線上"},
		DenyKeywords: []string{
			"代考", "代寫", "代購菸", "代購酒", "借錢", "貸款", "成人", "賭博", "非法", "色情", "毒品",
			"take my exam", "write my essay", "ghostwrite", "cigarettes", "alcohol", "loan",
			"gambling", "adult content", "illegal", "porn", "drugs",
		},
		DefaultBalance: 100,
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c.Advisory.APIKey == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Advisory.APIKey = key
			if c.Advisory.Provider == "" || c.Advisory.Provider == "offline" {
				c.Advisory.Provider = "gemini"
			}
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Points.Min <= 0 || c.Points.Max < c.Points.Min {
		return apperr.Validation("points bounds [%d,%d] are invalid", c.Points.Min, c.Points.Max)
	}
	if c.DefaultBalance < 0 {
		return apperr.Validation("default balance %d is negative", c.DefaultBalance)
	}
	if err := c.Matching.Weights.Validate(); err != nil {
		return err
	}
	for _, cat := range c.Categories {
		if !cat.Valid() {
			return apperr.Validation("unknown category %q", cat)
		}
	}
	switch c.Advisory.Provider {
	case "offline", "gemini":
	default:
		return apperr.Validation("unknown advisory provider %q", c.Advisory.Provider)
	}
	if c.Advisory.Provider == "gemini" && c.Advisory.APIKey == "" {
		return apperr.Validation("gemini advisory requires an API key")
	}
	return nil
}

// AllowsCategory reports whether cat is enabled on this platform.
func (c *Config) AllowsCategory(cat models.Category) bool {
	for _, known := range c.Categories {
		if known == cat {
			return true
		}
	}
	return false
}

// IsOnline reports whether campus carries one of the virtual-location markers.
func (c *Config) IsOnline(campus string) bool {
	lower := strings.ToLower(campus)
	for _, marker := range c.OnlineMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
