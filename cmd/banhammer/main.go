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

// Package main provides the entry point for the banhammer abuse-detection
// service.
//
// This file orchestrates the whole process:
//  1. Load the TOML configuration (thresholds, leaky-bucket rules, bus
//     selection).
//  2. Build the sharded engine, the ingestion consumer, and the enforcement
//     publisher.
//  3. Start the runner's consume/tick loops and the /metrics + /healthz
//     HTTP server.
//  4. Block until SIGINT/SIGTERM, then shut everything down in order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/aurora-is-near/banhammer/internal/banhammer/bus"
	"github.com/aurora-is-near/banhammer/internal/banhammer/config"
	"github.com/aurora-is-near/banhammer/internal/banhammer/httpapi"
	"github.com/aurora-is-near/banhammer/internal/banhammer/runner"
	"github.com/aurora-is-near/banhammer/internal/banhammer/shard"
)

func main() {
	app := &cli.App{
		Name:  "banhammer",
		Usage: "abuse-detection leaky-bucket decision engine for the Aurora relayer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the TOML configuration file",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "shards",
				Usage: "number of independent engine shards to run in this process",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "address the /metrics and /healthz server listens on",
				Value: ":9090",
			},
			&cli.DurationFlag{
				Name:  "tick-interval",
				Usage: "how often retention bookkeeping runs independently of message arrival",
				Value: time.Second,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "zerolog level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("banhammer: fatal error")
	}
}

func run(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	shards := c.Int("shards")
	group, err := shard.New(cfg, shards)
	if err != nil {
		return fmt.Errorf("building shard group: %w", err)
	}
	log.Info().Int("shards", shards).Msg("banhammer: engine shards built")

	consumer, err := bus.BuildConsumer(cfg.Bus)
	if err != nil {
		return fmt.Errorf("building ingestion consumer: %w", err)
	}
	publisher, err := bus.BuildPublisher(cfg.Bus)
	if err != nil {
		return fmt.Errorf("building enforcement publisher: %w", err)
	}
	log.Info().
		Str("ingestion", orDefault(cfg.Bus.Ingestion, "logging")).
		Str("enforcement", orDefault(cfg.Bus.Enforcement, "logging")).
		Msg("banhammer: bus wired")

	r := runner.New(group, consumer, publisher, c.Duration("tick-interval"))
	r.Start()

	httpAddr := c.String("http-addr")
	server := httpapi.NewServer(httpAddr)
	go func() {
		log.Info().Str("addr", httpAddr).Msg("banhammer: http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("banhammer: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("banhammer: shutting down")
	r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info().Msg("banhammer: stopped")
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
