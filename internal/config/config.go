// Package config binds the process configuration: a YAML file, SCOPEDSL_*
// environment variables and built-in defaults, layered by viper.
package config

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/viper"

	"github.com/suderio/scopedsl/internal/action"
	"github.com/suderio/scopedsl/internal/clothing"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/predicate"
	"github.com/suderio/scopedsl/internal/scope"
)

// EnvPrefix prefixes every environment override, e.g. SCOPEDSL_LOG_LEVEL.
const EnvPrefix = "SCOPEDSL"

// Limits bounds parsing, resolution and combination work.
type Limits struct {
	parser.Limits          `mapstructure:",squash"`
	MaxGroupSize           int `mapstructure:"max_group_size"`
	MaxCandidates          int `mapstructure:"max_candidates"`
	DefaultMaxCombinations int `mapstructure:"default_max_combinations"`
	HardCombinationLimit   int `mapstructure:"hard_combination_limit"`
}

// Config is the unmarshalled process configuration.
type Config struct {
	DataDirs  []string `mapstructure:"data_dirs"`
	Limits    Limits   `mapstructure:"limits"`
	Predicate struct {
		Engine string `mapstructure:"engine"`
	} `mapstructure:"predicate"`
	Cache struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"cache"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Clothing struct {
		Groups map[string][]string `mapstructure:"groups"`
	} `mapstructure:"clothing"`
	Concurrency int `mapstructure:"concurrency"`
}

// SetDefaults registers the built-in defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	pl := parser.DefaultLimits()
	v.SetDefault("data_dirs", []string{"."})
	v.SetDefault("limits.max_depth", pl.MaxDepth)
	v.SetDefault("limits.max_filter_nesting", pl.MaxFilterNesting)
	v.SetDefault("limits.max_expression_length", pl.MaxExpressionLength)
	v.SetDefault("limits.max_union_terms", pl.MaxUnionTerms)
	v.SetDefault("limits.max_group_size", clothing.DefaultMaxGroupSize)
	v.SetDefault("limits.max_candidates", scope.DefaultMaxCandidates)
	v.SetDefault("limits.default_max_combinations", action.DefaultMaxCombinations)
	v.SetDefault("limits.hard_combination_limit", action.HardCombinationLimit)
	v.SetDefault("predicate.engine", predicate.EngineCEL)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("clothing.groups", map[string][]string{})
	v.SetDefault("concurrency", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, oops.In("config").Code("decode_failed").Wrapf(err, "failed to decode configuration")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Predicate.Engine {
	case predicate.EngineCEL, predicate.EngineLua:
	default:
		return oops.In("config").Code("invalid").With("key", "predicate.engine").
			Errorf("unknown predicate engine %q", c.Predicate.Engine)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return oops.In("config").Code("invalid").With("key", "log.format").
			Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Limits.HardCombinationLimit > 0 && c.Limits.DefaultMaxCombinations > c.Limits.HardCombinationLimit {
		return oops.In("config").Code("invalid").With("key", "limits.default_max_combinations").
			Errorf("default combination cap %d exceeds the hard limit %d",
				c.Limits.DefaultMaxCombinations, c.Limits.HardCombinationLimit)
	}
	if _, err := c.Vocabulary(); err != nil {
		return err
	}
	return nil
}

// Vocabulary builds the clothing vocabulary with the configured groups.
func (c *Config) Vocabulary() (*clothing.Vocabulary, error) {
	if len(c.Clothing.Groups) == 0 && c.Limits.MaxGroupSize == clothing.DefaultMaxGroupSize {
		return clothing.Default(), nil
	}
	v, err := clothing.NewVocabulary(c.Clothing.Groups, c.Limits.MaxGroupSize)
	if err != nil {
		return nil, oops.In("config").Code("invalid").With("key", "clothing.groups").Wrapf(err, "invalid clothing groups")
	}
	return v, nil
}

// String renders the effective settings for the version and debug output.
func (c *Config) String() string {
	return fmt.Sprintf("engine=%s cache=%t limits={depth:%d nesting:%d length:%d unions:%d combinations:%d/%d}",
		c.Predicate.Engine, c.Cache.Enabled,
		c.Limits.MaxDepth, c.Limits.MaxFilterNesting, c.Limits.MaxExpressionLength, c.Limits.MaxUnionTerms,
		c.Limits.DefaultMaxCombinations, c.Limits.HardCombinationLimit)
}
