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

package bus

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// LoggingConsumer never produces a record; it exists so a deployment can
// run without a Kafka broker wired up. FetchMessage always blocks on ctx.
type LoggingConsumer struct{}

// FetchMessage blocks until ctx is done, since a logging consumer has no
// transport to read from.
func (LoggingConsumer) FetchMessage(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// Close is a no-op.
func (LoggingConsumer) Close() error { return nil }

// LoggingPublisher logs ban events instead of publishing them, for demo and
// test wiring that should not require a Redis instance.
type LoggingPublisher struct{}

// Publish logs event and returns nil.
func (LoggingPublisher) Publish(_ context.Context, event BanEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Info().RawJSON("ban_event", b).Msg("bus: would publish ban event")
	return nil
}

// Close is a no-op.
func (LoggingPublisher) Close() error { return nil }
