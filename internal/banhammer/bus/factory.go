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
	"fmt"

	"github.com/aurora-is-near/banhammer/internal/banhammer/config"
)

// BuildConsumer constructs the ingestion Consumer selected by cfg.Ingestion.
// Supported selectors:
//   - "", "logging": a no-op consumer that blocks forever (no broker needed)
//   - "kafka": a real segmentio/kafka-go consumer group reader
func BuildConsumer(cfg config.BusConfig) (Consumer, error) {
	switch cfg.Ingestion {
	case "", "logging":
		return LoggingConsumer{}, nil
	case "kafka":
		if cfg.Kafka.Topic == "" || len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("bus: kafka ingestion requires brokers and topic")
		}
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "banhammer"
		}
		return NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID), nil
	default:
		return nil, fmt.Errorf("bus: unknown ingestion selector %q", cfg.Ingestion)
	}
}

// BuildPublisher constructs the enforcement Publisher selected by
// cfg.Enforcement. Supported selectors:
//   - "", "logging": logs ban events instead of publishing them
//   - "redis": a real redis/go-redis/v9 PUBLISH to cfg.Redis.Channel
func BuildPublisher(cfg config.BusConfig) (Publisher, error) {
	switch cfg.Enforcement {
	case "", "logging":
		return LoggingPublisher{}, nil
	case "redis":
		if cfg.Redis.Addr == "" || cfg.Redis.Channel == "" {
			return nil, fmt.Errorf("bus: redis enforcement requires addr and channel")
		}
		return NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Channel), nil
	default:
		return nil, fmt.Errorf("bus: unknown enforcement selector %q", cfg.Enforcement)
	}
}
