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

// Package engine implements the banhammer decision core: dispatch of a
// decoded relayer observation into up to three principal pipelines, the
// threshold-check/fill transaction against the leaky bucket store, and the
// tick-driven retention sweep. The engine is single-threaded and
// cooperative by design: ReadInput and Tick must never be invoked
// concurrently on the same instance. Callers that want to scale shard by
// principal key across independent engine instances (see
// internal/banhammer/shard) rather than introducing locks here.
package engine

import (
	"fmt"
	"time"

	"github.com/aurora-is-near/banhammer/internal/banhammer/config"
	"github.com/aurora-is-near/banhammer/internal/banhammer/retention"
	"github.com/aurora-is-near/banhammer/internal/banhammer/store"
	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

// NearGasPerMessage is the fixed per-transaction NEAR-gas charge used as
// the increment for every message's UsedExcessiveGas bucket.
const NearGasPerMessage = 202_651_902_028_573

// ConfigError reports that a message triggered an (principal-kind,
// error-kind) pair with no matching bucket configuration. This is a fatal
// programmer/operator error per the error handling design: the engine
// itself never halts the process, but returns this distinguished error type
// so the driving loop can.
type ConfigError struct {
	Kind  bucket.PrincipalKind
	Error bucket.ErrorKind
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine: no bucket configuration for (%s, %s)", e.Kind, e.Error)
}

// ErrorVariant is the closed set of classified transaction errors a
// decoded message may carry, plus the two open string slots.
type ErrorVariant struct {
	tag     errorVariantTag
	Message string // populated for Revert and Relayer
}

type errorVariantTag uint8

const (
	ErrIncorrectNonce errorVariantTag = iota
	ErrInvalidECDSA
	ErrMaxGas
	ErrRevert
	ErrRelayer
)

func NewErrorVariant(tag errorVariantTag) ErrorVariant { return ErrorVariant{tag: tag} }

func NewRevert(message string) ErrorVariant {
	return ErrorVariant{tag: ErrRevert, Message: message}
}

func NewRelayer(message string) ErrorVariant {
	return ErrorVariant{tag: ErrRelayer, Message: message}
}

// Message is the subset of a decoded relayer observation the engine
// consults.
type Message struct {
	ClientIP      string
	SenderAddress string
	Token         string // empty = absent
	Error         *ErrorVariant
}

func (m Message) tokenPresent() bool { return m.Token != "" }

// Engine is the banhammer decision core. It keeps one retention index per
// (principal-kind, error-kind) pair rather than a single index shared
// across all pairs: different pairs are configured with different
// retention windows, and the sweep's stalest-first short-circuit is only
// correct when every entry in an index shares one retention window.
type Engine struct {
	cfg   *config.Config
	store *store.Store

	retentionByPair map[bucket.Key]*retention.Index // keyed by pairKey(kind, error)
	deadlines       map[bucket.Key]int64            // next retention check, same keying

	startedAt time.Time
	now       func() time.Time
}

// New constructs an Engine from a loaded configuration.
func New(cfg *config.Config) *Engine {
	e := &Engine{
		cfg:             cfg,
		store:           store.New(),
		retentionByPair: make(map[bucket.Key]*retention.Index),
		deadlines:       make(map[bucket.Key]int64),
		startedAt:       time.Now(),
		now:             time.Now,
	}
	now := e.nowUnix()
	for _, rule := range cfg.LeakyBuckets {
		kind, err := config.ParsePrincipalKind(rule.Identity)
		if err != nil {
			continue
		}
		errKind, err := config.ParseErrorKind(rule.ErrorKind)
		if err != nil {
			continue
		}
		pk := pairKey(kind, errKind)
		e.retentionByPair[pk] = retention.New()
		e.deadlines[pk] = now + rule.Bucket.Retention.Seconds()
	}
	return e
}

func pairKey(kind bucket.PrincipalKind, errKind bucket.ErrorKind) bucket.Key {
	return bucket.NewKey(kind, "", errKind)
}

// nowUnix returns the engine clock in whole seconds since epoch. The clock
// is time.Now unless replaced via SetClock (so tests can simulate arbitrary
// clocks); there is no fallback value, since time.Now cannot fail.
func (e *Engine) nowUnix() int64 {
	return e.now().Unix()
}

// SetClock overrides the engine's time source and recomputes retention
// deadlines relative to the new clock. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.startedAt = now()
	n := e.nowUnix()
	for _, rule := range e.cfg.LeakyBuckets {
		kind, err := config.ParsePrincipalKind(rule.Identity)
		if err != nil {
			continue
		}
		errKind, err := config.ParseErrorKind(rule.ErrorKind)
		if err != nil {
			continue
		}
		e.deadlines[pairKey(kind, errKind)] = n + rule.Bucket.Retention.Seconds()
	}
}

// ReadInput processes one observation and returns the ban events it
// produced, in the order IP, Address, Token, and within each principal,
// UsedExcessiveGas before any error-specific event.
func (e *Engine) ReadInput(msg Message) ([]bucket.Key, error) {
	tokenPresent := msg.tokenPresent()
	var events []bucket.Key

	principals := []struct {
		kind  bucket.PrincipalKind
		value string
	}{
		{bucket.IP, msg.ClientIP},
		{bucket.Address, msg.SenderAddress},
	}
	if tokenPresent {
		principals = append(principals, struct {
			kind  bucket.PrincipalKind
			value string
		}{bucket.Token, msg.Token})
	}

	for _, p := range principals {
		evs, err := e.processPrincipal(p.kind, p.value, msg.Error, tokenPresent)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

func (e *Engine) processPrincipal(kind bucket.PrincipalKind, value string, maybeError *ErrorVariant, tokenPresent bool) ([]bucket.Key, error) {
	mult := uint64(1)
	if tokenPresent {
		mult = e.cfg.TokenMultiplier
	}

	var events []bucket.Key

	gasKey := bucket.NewKey(kind, value, bucket.NewErrorKind(bucket.UsedExcessiveGas))
	gasThreshold := e.cfg.ExcessiveGasThreshold * 1_000_000_000_000 * mult
	ev, err := e.thresholdCheckFill(gasKey, NearGasPerMessage, gasThreshold)
	if err != nil {
		return events, err
	}
	if ev {
		events = append(events, gasKey)
	}

	if maybeError == nil {
		return events, nil
	}

	var errKind bucket.ErrorKind
	var threshold uint64
	switch maybeError.tag {
	case ErrIncorrectNonce, ErrInvalidECDSA:
		errKind = bucket.NewErrorKind(bucket.IncorrectNonce)
		threshold = e.cfg.IncorrectNonceThreshold * mult
	case ErrMaxGas:
		errKind = bucket.NewErrorKind(bucket.MaxGas)
		threshold = e.cfg.MaxGasThreshold * mult
	case ErrRevert:
		errKind = bucket.NewErrorKind(bucket.Reverts)
		threshold = e.cfg.RevertThreshold * mult
	case ErrRelayer:
		// Relayer-internal errors are not attributed to any principal.
		return events, nil
	default:
		return events, nil
	}

	key := bucket.NewKey(kind, value, errKind)
	ev, err = e.thresholdCheckFill(key, 1, threshold)
	if err != nil {
		return events, err
	}
	if ev {
		events = append(events, key)
	}
	return events, nil
}

// thresholdCheckFill implements the threshold-check/fill transaction
// described in SPEC_FULL.md §4.4: peek the proposed fill, overflow-and-reset
// if it meets or exceeds the threshold, otherwise leak-then-fill. It always
// touches the retention index. Returns whether the update overflowed.
func (e *Engine) thresholdCheckFill(key bucket.Key, increment, threshold uint64) (bool, error) {
	now := e.nowUnix()

	rule, ok := e.cfg.RuleFor(key.Kind, key.Error)
	if !ok {
		return false, &ConfigError{Kind: key.Kind, Error: key.Error}
	}

	current, _ := e.store.PeekFill(key)
	proposed := current + increment

	overflowed := proposed >= threshold
	if overflowed {
		e.store.SetFill(key, rule.BaseSize, now)
	} else {
		e.store.Leak(key, rule.LeakRate, now)
		leaked, _ := e.store.PeekFill(key)
		e.store.SetFill(key, leaked+increment, now)
	}
	if idx, ok := e.retentionByPair[pairKey(key.Kind, key.Error)]; ok {
		idx.Touch(key, now)
	}
	return overflowed, nil
}

// Tick advances retention bookkeeping. It is invoked opportunistically by
// the driving loop after each ReadInput; it is never invoked concurrently
// with ReadInput on the same engine instance.
func (e *Engine) Tick() {
	now := e.nowUnix()
	for _, rule := range e.cfg.LeakyBuckets {
		kind, err := config.ParsePrincipalKind(rule.Identity)
		if err != nil {
			continue
		}
		errKind, err := config.ParseErrorKind(rule.ErrorKind)
		if err != nil {
			continue
		}
		pk := pairKey(kind, errKind)
		deadline, ok := e.deadlines[pk]
		if !ok {
			continue
		}
		if now < deadline {
			continue
		}
		if idx, ok := e.retentionByPair[pk]; ok {
			idx.Sweep(now, rule.Bucket.Retention.Seconds(), func(k bucket.Key) {
				e.store.Remove(k)
			})
		}
		e.deadlines[pk] = deadline + rule.Bucket.Retention.Seconds()
	}
}

// PeekFill exposes the store's current fill for key, for tests and metrics
// introspection.
func (e *Engine) PeekFill(key bucket.Key) (uint64, bool) {
	return e.store.PeekFill(key)
}

// Uptime reports how long this engine instance has been running.
func (e *Engine) Uptime() time.Duration {
	return e.now().Sub(e.startedAt)
}
