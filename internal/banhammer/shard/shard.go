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

// Package shard lets the driving loop scale the banhammer engine
// horizontally by routing each message to one of N independent engine
// instances via rendezvous (highest-random-weight) hashing of its sender
// address. The engine itself stays single-threaded and lock-free per
// SPEC_FULL.md §5; each message is handled by exactly one shard. With more
// than one shard, buckets for the same client IP or token can live on
// several shards when their messages carry different sender addresses.
package shard

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"github.com/aurora-is-near/banhammer/internal/banhammer/config"
	"github.com/aurora-is-near/banhammer/internal/banhammer/engine"
	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

func hashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Group owns N independent engine.Engine instances and routes a principal
// value to exactly one of them.
type Group struct {
	engines []*engine.Engine
	rdv     *rendezvous.Rendezvous
	nodeOf  map[string]int
}

// New builds a Group of n independently-configured engine shards, all
// sharing the same configuration.
func New(cfg *config.Config, n int) (*Group, error) {
	if n < 1 {
		return nil, fmt.Errorf("shard: count must be >= 1, got %d", n)
	}
	nodes := make([]string, n)
	nodeOf := make(map[string]int, n)
	engines := make([]*engine.Engine, n)
	for i := 0; i < n; i++ {
		node := strconv.Itoa(i)
		nodes[i] = node
		nodeOf[node] = i
		engines[i] = engine.New(cfg)
	}
	return &Group{
		engines: engines,
		rdv:     rendezvous.New(nodes, hashString),
		nodeOf:  nodeOf,
	}, nil
}

// EngineFor returns the shard engine responsible for principalValue (the
// client IP, sender address, or token a message is keyed on for routing
// purposes - typically the sender address, since that is always present
// and most directly identifies the source of abuse).
func (g *Group) EngineFor(principalValue string) *engine.Engine {
	node := g.rdv.Lookup(principalValue)
	return g.engines[g.nodeOf[node]]
}

// ReadInput routes msg to its shard by sender address and processes it
// there.
func (g *Group) ReadInput(msg engine.Message) ([]bucket.Key, error) {
	return g.EngineFor(msg.SenderAddress).ReadInput(msg)
}

// Tick advances retention bookkeeping on every shard.
func (g *Group) Tick() {
	for _, e := range g.engines {
		e.Tick()
	}
}

// Len reports how many shards this group holds.
func (g *Group) Len() int {
	return len(g.engines)
}
