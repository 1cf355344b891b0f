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

// Package metrics exposes the four process-wide counters the banhammer
// engine is obligated to increment: messages received, processed, sent,
// and ban events labelled by the bucket key they were raised against.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurora-is-near/banhammer/pkg/bucket"
)

var (
	messagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "banhammer_messages_received_total",
		Help: "Total relayer observation records received from the ingestion transport.",
	})
	messagesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "banhammer_messages_processed_total",
		Help: "Total relayer observation records successfully decoded and run through the engine.",
	})
	messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "banhammer_messages_sent_total",
		Help: "Total ban events transmitted to the downstream enforcement bus.",
	})
	banReason = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "banhammer_ban_reason_total",
		Help: "Total ban events raised, labelled by the stringified bucket key.",
	}, []string{"bucket_key"})
)

func init() {
	prometheus.MustRegister(messagesReceived, messagesProcessed, messagesSent, banReason)
}

// IncReceived records one relayer observation record arriving from the
// ingestion transport.
func IncReceived() {
	messagesReceived.Inc()
}

// IncProcessed records one relayer observation record successfully run
// through the engine, whether or not it produced a ban event.
func IncProcessed() {
	messagesProcessed.Inc()
}

// IncSent records one ban event transmitted to the enforcement bus.
func IncSent() {
	messagesSent.Inc()
}

// IncBanReason records one ban event raised for key. Callers also call
// IncSent once the event is actually handed to the enforcement bus - the
// two are separate events (a ban can be raised and still fail to publish).
func IncBanReason(key bucket.Key) {
	banReason.WithLabelValues(key.String()).Inc()
}

// Handler returns the HTTP handler that serves the registered metrics in
// the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
