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

// Package bus connects the engine to the outside world: a Consumer pulls
// raw relayer observation records off the ingestion transport, and a
// Publisher hands ban events to the downstream enforcement bus. Both sides
// are abstracted behind small interfaces so the engine never depends on a
// concrete Kafka or Redis client directly.
package bus

import (
	"context"

	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

// BanEvent is the payload published to the enforcement bus once a bucket
// crosses its threshold.
type BanEvent struct {
	CorrelationID  string `json:"correlation_id"`
	PrincipalKind  string `json:"principal_kind"`
	PrincipalValue string `json:"principal_value"`
	ErrorKind      string `json:"error_kind"`
	FillAtBan      uint64 `json:"fill_at_ban"`
	RaisedAtUnix   int64  `json:"raised_at_unix"`
}

// NewBanEvent builds a BanEvent from the bucket key that overflowed, the
// fill it overflowed at, and the wall-clock second it happened.
func NewBanEvent(key bucket.Key, fill uint64, now int64) BanEvent {
	return BanEvent{
		CorrelationID:  randomID(),
		PrincipalKind:  key.Kind.String(),
		PrincipalValue: key.Value,
		ErrorKind:      key.Error.String(),
		FillAtBan:      fill,
		RaisedAtUnix:   now,
	}
}

// Consumer pulls one raw relayer observation record at a time from the
// ingestion transport. FetchMessage blocks until a record is available,
// ctx is cancelled, or the transport is exhausted.
type Consumer interface {
	FetchMessage(ctx context.Context) ([]byte, error)
	Close() error
}

// Publisher hands a ban event to the downstream enforcement bus.
type Publisher interface {
	Publish(ctx context.Context, event BanEvent) error
	Close() error
}
