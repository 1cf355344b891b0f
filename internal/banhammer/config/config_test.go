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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

const validTOML = `
incorrect_nonce_threshold = 50
max_gas_threshold = 20
revert_threshold = 100
excessive_gas_threshold = 10000
token_multiplier = 5

[[leaky_buckets]]
identity = "ip"
error_kind = "incorrect_nonce"
[leaky_buckets.bucket]
base_size = 0
leak_rate = 10
overflow_size = 50
retention = "24h"
`

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(validTOML), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TokenMultiplier != 5 {
		t.Fatalf("unexpected token_multiplier: %d", cfg.TokenMultiplier)
	}
	if len(cfg.LeakyBuckets) != 1 {
		t.Fatalf("expected 1 leaky bucket rule, got %d", len(cfg.LeakyBuckets))
	}
	rule := cfg.LeakyBuckets[0]
	if rule.Bucket.Retention.Seconds() != int64(24*time.Hour/time.Second) {
		t.Fatalf("unexpected retention: %s", rule.Bucket.Retention)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestValidate_BaseSizeZeroIsAllowed(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "ip", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 0, LeakRate: 1, OverflowSize: 1, Retention: Duration(time.Hour)}},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected base_size=0 to be a valid post-ban dampener, got: %v", err)
	}
}

func TestValidate_RejectsZeroTokenMultiplier(t *testing.T) {
	cfg := &Config{TokenMultiplier: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for token_multiplier == 0")
	}
}

func TestValidate_RejectsUnknownIdentity(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "carrier-pigeon", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 1, LeakRate: 1, OverflowSize: 1}},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown identity")
	}
}

func TestValidate_RejectsUnknownErrorKind(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "ip", ErrorKind: "carrier-pigeon", Bucket: BucketConfig{BaseSize: 1, LeakRate: 1, OverflowSize: 1}},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown error_kind")
	}
}

func TestValidate_RejectsZeroLeakRate(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "ip", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 1, LeakRate: 0, OverflowSize: 1}},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for leak_rate == 0")
	}
}

func TestValidate_RejectsZeroOverflowSize(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "ip", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 1, LeakRate: 1, OverflowSize: 0}},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for overflow_size == 0")
	}
}

func TestValidate_RejectsDuplicateRule(t *testing.T) {
	cfg := &Config{
		TokenMultiplier: 1,
		LeakyBuckets: []BucketRule{
			{Identity: "ip", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 1, LeakRate: 1, OverflowSize: 1}},
			{Identity: "ip", ErrorKind: "max_gas", Bucket: BucketConfig{BaseSize: 2, LeakRate: 2, OverflowSize: 2}},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a duplicate (identity, error_kind) rule")
	}
}

func TestParsePrincipalKind(t *testing.T) {
	cases := map[string]bucket.PrincipalKind{"ip": bucket.IP, "address": bucket.Address, "token": bucket.Token}
	for s, want := range cases {
		got, err := ParsePrincipalKind(s)
		if err != nil || got != want {
			t.Fatalf("ParsePrincipalKind(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := ParsePrincipalKind("carrier-pigeon"); err == nil {
		t.Fatalf("expected an error for an unknown identity")
	}
}

func TestParseErrorKind_CustomTag(t *testing.T) {
	got, err := ParseErrorKind("custom:spam")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tag != bucket.Custom || got.CustomTag != "spam" {
		t.Fatalf("unexpected error kind: %+v", got)
	}
}

func TestRuleFor_FindsConfiguredPair(t *testing.T) {
	cfg := &Config{
		LeakyBuckets: []BucketRule{
			{Identity: "address", ErrorKind: "reverts", Bucket: BucketConfig{BaseSize: 3, LeakRate: 4, OverflowSize: 5}},
		},
	}
	rule, ok := cfg.RuleFor(bucket.Address, bucket.NewErrorKind(bucket.Reverts))
	if !ok {
		t.Fatalf("expected to find a rule for (address, reverts)")
	}
	if rule.BaseSize != 3 {
		t.Fatalf("unexpected base_size: %d", rule.BaseSize)
	}
	if _, ok := cfg.RuleFor(bucket.IP, bucket.NewErrorKind(bucket.Reverts)); ok {
		t.Fatalf("expected no rule for (ip, reverts)")
	}
}
