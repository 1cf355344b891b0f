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

// Package store implements the leaky bucket store: a single-owner map from
// bucket identity to fill level and last-update timestamp. The store is
// never accessed concurrently - the owning engine is single-threaded and
// cooperative by design - so a plain map is the correct tool here, not
// sync.Map.
package store

import (
	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

// State is the mutable state of one leaky bucket.
type State struct {
	Fill       uint64
	LastUpdate int64 // seconds since epoch
}

// Store owns the map of bucket.Key to State.
type Store struct {
	buckets map[bucket.Key]State
}

// New creates an empty Store.
func New() *Store {
	return &Store{buckets: make(map[bucket.Key]State)}
}

// PeekFill returns the current fill level for key without mutating
// anything, and whether the bucket exists.
func (s *Store) PeekFill(key bucket.Key) (uint64, bool) {
	st, ok := s.buckets[key]
	if !ok {
		return 0, false
	}
	return st.Fill, true
}

// Get returns the full State for key.
func (s *Store) Get(key bucket.Key) (State, bool) {
	st, ok := s.buckets[key]
	return st, ok
}

// SetFill overwrites the fill level for key, creating the bucket if it
// does not already exist, and stamps LastUpdate to now.
func (s *Store) SetFill(key bucket.Key, fill uint64, now int64) {
	s.buckets[key] = State{Fill: fill, LastUpdate: now}
}

// Leak applies leak-rate decay to key's fill level in place, per the rule:
// min_dwell = max(86400/leak_rate, 1); if now - LastUpdate < min_dwell the
// bucket is left untouched, preserving LastUpdate so a steady low-rate
// stream never starves the leak waiting for a dwell that keeps resetting.
// Otherwise leak_amount = leak_rate * (now-LastUpdate) / 86400, the new
// fill is max(0, fill-leak_amount), and LastUpdate advances all the way to
// now.
func (s *Store) Leak(key bucket.Key, leakRate uint64, now int64) {
	st, ok := s.buckets[key]
	if !ok || leakRate == 0 {
		return
	}
	minDwell := int64(86400 / leakRate)
	if minDwell < 1 {
		minDwell = 1
	}
	elapsed := now - st.LastUpdate
	if elapsed < minDwell {
		return
	}
	leakAmount := uint64(leakRate) * uint64(elapsed) / 86400
	if leakAmount >= st.Fill {
		st.Fill = 0
	} else {
		st.Fill -= leakAmount
	}
	st.LastUpdate = now
	s.buckets[key] = st
}

// Remove deletes key's bucket entirely.
func (s *Store) Remove(key bucket.Key) {
	delete(s.buckets, key)
}

// Len reports the number of buckets currently held.
func (s *Store) Len() int {
	return len(s.buckets)
}
