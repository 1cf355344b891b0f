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

// Package runner wires the ingestion consumer, the decoder, the sharded
// engine, the enforcement publisher, and the process metrics into the one
// background service the cmd/banhammer entrypoint starts and stops.
package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aurora-is-near/banhammer/internal/banhammer/bus"
	"github.com/aurora-is-near/banhammer/internal/banhammer/decode"
	"github.com/aurora-is-near/banhammer/internal/banhammer/engine"
	"github.com/aurora-is-near/banhammer/internal/banhammer/metrics"
	"github.com/aurora-is-near/banhammer/internal/banhammer/shard"
)

// Runner drives the consume-decode-decide-publish loop and the retention
// tick on a single goroutine, since no engine instance may be touched by
// more than one goroutine at a time. A separate goroutine only performs the
// blocking fetch from the consumer and hands raw messages off over a
// channel; it never reads engine state. Runner owns the lifetime of the
// consumer and publisher it was built with.
type Runner struct {
	shard     *shard.Group
	consumer  bus.Consumer
	publisher bus.Publisher

	tickInterval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopped  uint32
	messages chan []byte
}

// New builds a Runner. tickInterval governs how often retention bookkeeping
// runs independently of message arrival, so stale buckets are swept even
// during a quiet period.
func New(group *shard.Group, consumer bus.Consumer, publisher bus.Publisher, tickInterval time.Duration) *Runner {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Runner{
		shard:        group,
		consumer:     consumer,
		publisher:    publisher,
		tickInterval: tickInterval,
	}
}

// Start launches the background goroutines. It returns immediately; call
// Stop to shut them down.
func (r *Runner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.messages = make(chan []byte)
	log.Info().Msg("runner: starting")
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.fetchLoop()
	}()
	go func() {
		defer r.wg.Done()
		r.driveLoop()
	}()
}

// Stop cancels both loops, waits for them to exit, and closes the consumer
// and publisher. Safe to call more than once.
func (r *Runner) Stop() {
	if !atomic.CompareAndSwapUint32(&r.stopped, 0, 1) {
		return
	}
	log.Info().Msg("runner: stopping")
	r.cancel()
	r.wg.Wait()
	if err := r.consumer.Close(); err != nil {
		log.Error().Err(err).Msg("runner: error closing consumer")
	}
	if err := r.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("runner: error closing publisher")
	}
}

// fetchLoop only calls the blocking consumer fetch and hands raw messages
// off over r.messages. It never touches engine state, so it may run
// concurrently with driveLoop without violating the single-goroutine rule.
func (r *Runner) fetchLoop() {
	for {
		raw, err := r.consumer.FetchMessage(r.ctx)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("runner: fetch message failed")
			continue
		}
		select {
		case r.messages <- raw:
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) handleMessage(raw []byte) {
	metrics.IncReceived()

	rec, err := decode.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Msg("runner: dropping malformed record")
		return
	}

	msg := rec.ToMessage()
	eng := r.shard.EngineFor(msg.SenderAddress)
	keys, err := eng.ReadInput(msg)
	if err != nil {
		var cfgErr *engine.ConfigError
		if errors.As(err, &cfgErr) {
			log.Fatal().Err(err).Msg("runner: message triggered an unconfigured bucket")
		} else {
			log.Error().Err(err).Msg("runner: engine rejected message")
		}
		return
	}
	metrics.IncProcessed()

	for _, key := range keys {
		fill, _ := eng.PeekFill(key)
		metrics.IncBanReason(key)
		event := bus.NewBanEvent(key, fill, time.Now().Unix())
		if err := r.publisher.Publish(r.ctx, event); err != nil {
			log.Error().Err(err).Str("bucket_key", key.String()).Msg("runner: failed to publish ban event")
			continue
		}
		metrics.IncSent()
	}
}

// driveLoop is the only goroutine that ever touches engine state: it
// handles decoded messages and advances the retention tick in strict
// sequence, opportunistically ticking between messages and on a timer so
// stale buckets are swept even during a quiet period.
func (r *Runner) driveLoop() {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case raw := <-r.messages:
			r.handleMessage(raw)
			r.shard.Tick()
		case <-ticker.C:
			r.shard.Tick()
		case <-r.ctx.Done():
			return
		}
	}
}
