// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the banhammer engine's TOML
// configuration: the global threshold values and the per-(principal-kind,
// error-kind) leaky bucket parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

// BucketConfig is the tunable shape of one leaky bucket.
//
// OverflowSize is carried for completeness and parsed/validated but never
// consulted by the engine.
type BucketConfig struct {
	BaseSize     uint64   `toml:"base_size"`
	LeakRate     uint64   `toml:"leak_rate"`
	OverflowSize uint64   `toml:"overflow_size"`
	Retention    Duration `toml:"retention"`
}

// Duration decodes either a plain integer number of seconds or a Go
// duration string ("60s", "1h30m") from TOML, mirroring the dual
// representation the original configuration format accepted.
type Duration time.Duration

// UnmarshalTOML implements toml.Unmarshaler.
func (d *Duration) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	case float64:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid retention duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("config: unsupported retention value of type %T", value)
	}
}

// Seconds returns the duration as whole seconds.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d).Seconds())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// BucketRule associates a BucketConfig with the (principal-kind, error-kind)
// pair it governs.
type BucketRule struct {
	Identity  string       `toml:"identity"`
	ErrorKind string       `toml:"error_kind"`
	Bucket    BucketConfig `toml:"bucket"`
}

// KafkaConfig names the ingestion topic the relayer publishes raw
// observation records to.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	GroupID string   `toml:"group_id"`
}

// RedisConfig names the downstream enforcement bus channel ban events are
// published to.
type RedisConfig struct {
	Addr    string `toml:"addr"`
	Channel string `toml:"channel"`
}

// BusConfig selects and configures the ingestion consumer and enforcement
// publisher. Ingestion and Enforcement each select "kafka"/"redis" or
// "logging" (a dependency-free fallback that only logs); empty defaults to
// "logging".
type BusConfig struct {
	Ingestion   string      `toml:"ingestion"`
	Enforcement string      `toml:"enforcement"`
	Kafka       KafkaConfig `toml:"kafka"`
	Redis       RedisConfig `toml:"redis"`
}

// Config is the top-level engine configuration.
type Config struct {
	IncorrectNonceThreshold uint64       `toml:"incorrect_nonce_threshold"`
	MaxGasThreshold         uint64       `toml:"max_gas_threshold"`
	RevertThreshold         uint64       `toml:"revert_threshold"`
	ExcessiveGasThreshold   uint64       `toml:"excessive_gas_threshold"`
	TokenMultiplier         uint64       `toml:"token_multiplier"`
	LeakyBuckets            []BucketRule `toml:"leaky_buckets"`
	Bus                     BusConfig    `toml:"bus"`
}

// Load reads and parses a TOML configuration file from path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks structural invariants: every bucket rule names a known
// principal kind and error kind, and every numeric field that must be
// positive is positive. It does not check that every triggerable pair has
// a rule; a missing pair surfaces the first time a message triggers it, as
// an *engine.ConfigError returned from Engine.ReadInput.
func (c *Config) Validate() error {
	if c.TokenMultiplier == 0 {
		return fmt.Errorf("token_multiplier must be > 0")
	}
	seen := map[bucket.Key]struct{}{}
	for i, rule := range c.LeakyBuckets {
		kind, err := ParsePrincipalKind(rule.Identity)
		if err != nil {
			return fmt.Errorf("leaky_buckets[%d]: %w", i, err)
		}
		errKind, err := ParseErrorKind(rule.ErrorKind)
		if err != nil {
			return fmt.Errorf("leaky_buckets[%d]: %w", i, err)
		}
		if rule.Bucket.LeakRate == 0 {
			return fmt.Errorf("leaky_buckets[%d]: leak_rate must be > 0", i)
		}
		if rule.Bucket.OverflowSize == 0 {
			return fmt.Errorf("leaky_buckets[%d]: overflow_size must be > 0", i)
		}
		key := bucket.NewKey(kind, "", errKind)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("leaky_buckets[%d]: duplicate rule for (%s, %s)", i, rule.Identity, rule.ErrorKind)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ParsePrincipalKind maps a config string to a bucket.PrincipalKind.
func ParsePrincipalKind(s string) (bucket.PrincipalKind, error) {
	switch s {
	case "ip":
		return bucket.IP, nil
	case "address":
		return bucket.Address, nil
	case "token":
		return bucket.Token, nil
	default:
		return 0, fmt.Errorf("unknown identity %q", s)
	}
}

// ParseErrorKind maps a config string to a bucket.ErrorKind, supporting the
// "custom:tag" form for operator-provisioned Custom buckets.
func ParseErrorKind(s string) (bucket.ErrorKind, error) {
	switch {
	case s == "incorrect_nonce":
		return bucket.NewErrorKind(bucket.IncorrectNonce), nil
	case s == "max_gas":
		return bucket.NewErrorKind(bucket.MaxGas), nil
	case s == "reverts":
		return bucket.NewErrorKind(bucket.Reverts), nil
	case s == "used_excessive_gas":
		return bucket.NewErrorKind(bucket.UsedExcessiveGas), nil
	case len(s) > 7 && s[:7] == "custom:":
		return bucket.NewCustomErrorKind(s[7:]), nil
	default:
		return bucket.ErrorKind{}, fmt.Errorf("unknown error_kind %q", s)
	}
}

// RuleFor looks up the BucketConfig for a (principal-kind, error-kind) pair
// (rules are defined per-kind, not per-principal-value).
func (c *Config) RuleFor(kind bucket.PrincipalKind, errKind bucket.ErrorKind) (BucketConfig, bool) {
	for _, rule := range c.LeakyBuckets {
		ruleKind, err := ParsePrincipalKind(rule.Identity)
		if err != nil {
			continue
		}
		ruleErr, err := ParseErrorKind(rule.ErrorKind)
		if err != nil {
			continue
		}
		if ruleKind == kind && ruleErr == errKind {
			return rule.Bucket, true
		}
	}
	return BucketConfig{}, false
}
