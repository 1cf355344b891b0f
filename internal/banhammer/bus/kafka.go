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
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer reads raw relayer observation records off a Kafka topic.
// Each record's value is handed to decode.Parse unmodified.
type KafkaConsumer struct {
	reader *kafka.Reader

	closeOnce sync.Once
	closeErr  error
}

// NewKafkaConsumer opens a consumer-group reader against brokers, topic and
// groupID. The reader commits offsets as messages are fetched. Delivery is
// at-least-once: a redelivered record is counted by the engine again, like
// any other record, and can raise a repeated ban event.
func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &KafkaConsumer{reader: r}
}

// FetchMessage blocks until the next message is available, ctx is
// cancelled, or the reader is closed.
func (c *KafkaConsumer) FetchMessage(ctx context.Context) ([]byte, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

// Close releases the underlying Kafka connection.
func (c *KafkaConsumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}
