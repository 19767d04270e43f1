// Copyright 2025 Esteban Alvarez. All Rights Reserved.
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

// Package main wires every component (C1-C9) into a runnable process:
// config load, kv-shard fleets, the partition map and its streamer, the
// query broker, the table catalog, the purge coordinator/watchdog, and
// the REST server, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"opserver/internal/alarmack"
	"opserver/internal/api"
	"opserver/internal/catalog"
	"opserver/internal/config"
	"opserver/internal/kvshard"
	"opserver/internal/partition"
	"opserver/internal/purge"
	"opserver/internal/query"
	"opserver/internal/telemetry"
	"opserver/internal/uve"
)

func main() {
	cfg := config.Default()
	if err := config.ParseFlags(flag.CommandLine, &cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting opserver", zap.String("host_ip", cfg.HostIP), zap.Int("partitions", cfg.Partitions))

	// C1: kv-shard fleets. The UVE fleet starts empty — collector
	// addresses arrive from the discovery service, which is an external
	// collaborator this repo only describes the shapes of (spec.md's
	// explicit non-goal); a deployment wires a concrete
	// discovery.Poller and calls partitionMap.Apply/uveFleet from its
	// own polling loop.
	uveFleet := kvshard.NewFleet(kvshard.RoleUVE, nil, cfg.RedisPassword)
	defer uveFleet.Close()

	queryAddr := fmt.Sprintf("%s:%d", cfg.HostIP, cfg.RedisQueryPort)
	queryClient := kvshard.New(kvshard.RoleQuery, queryAddr, cfg.RedisPassword)
	defer queryClient.Close()

	// C2: partition ownership map.
	pmap := partition.New(cfg.Partitions)

	// C4 + C3: the cache and its per-partition streamer. The streamer is
	// only driven by discovery.Poller owner-change callbacks (see above);
	// with no poller wired it simply never starts a worker, and the
	// cache stays empty rather than serving stale data.
	cache := uve.NewCache(cfg.Partitions)
	source := uve.NewRedisSource(cfg.RedisServerPort, cfg.RedisPassword)
	streamer := uve.NewStreamer(cache, source, log)
	defer streamer.Stop()

	// C5: the query broker. The overlay resolver below lists the configured
	// collectors; Broker.Submit only checks that a resolver is set and does
	// not call it, and OverlayToUnderlayFlowMap queries are answered with an
	// empty value list without touching the query engine.
	overlay := func(req query.SubmitRequest) ([]map[string]interface{}, error) {
		out := make([]map[string]interface{}, 0, len(cfg.Collectors))
		for _, c := range cfg.Collectors {
			out = append(out, map[string]interface{}{"collector": c})
		}
		return out, nil
	}
	broker := query.NewBroker(queryClient, overlay, log)

	// C6: the table catalog, built with no UVE object types: it holds only
	// the static log/flow tables, and object tables cannot be added later.
	cat := catalog.New(nil, nil, uveFleet)

	// C7: the purge coordinator and its watchdog. No concrete ColumnStore
	// client ships with this repo (spec.md's explicit non-goal); demoColumnStore
	// is a standalone in-memory stand-in so the process is runnable end
	// to end, the way the teacher's cmd/ratelimiter-api wires a
	// NewMockPersister for its own demo.
	store := newDemoColumnStore()
	ttls := map[string]time.Duration{
		"flow":  cfg.EffectiveFlowTTL(),
		"stats": cfg.EffectiveStatisticsTTL(),
		"msg":   cfg.EffectiveConfigAuditTTL(),
		"other": time.Duration(cfg.AnalyticsDataTTL) * time.Hour,
	}
	coordinator := purge.NewCoordinator(queryClient, store, ttls, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutoDBPurge {
		watchdog := purge.NewWatchdog(coordinator, store, cfg.DBPurgeThreshold, cfg.DBPurgeLevel, log)
		go watchdog.Run(ctx)
	}

	forwarder := alarmack.NewForwarder(5 * time.Second)

	server := api.NewServer(api.Deps{
		Cache:        cache,
		Catalog:      cat,
		Broker:       broker,
		Coordinator:  coordinator,
		Forwarder:    forwarder,
		PartitionMap: pmap,
		Fleet:        uveFleet,
		UVESource:    source,
		Log:          log,
	})

	restAddr := fmt.Sprintf("%s:%d", cfg.RestAPIIP, cfg.RestAPIPort)
	httpServer := &http.Server{
		Addr:              restAddr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("REST server listening", zap.String("addr", restAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("REST server failed", zap.Error(err))
		}
	}()

	if cfg.HTTPServerPort != 0 {
		metricsAddr := fmt.Sprintf(":%d", cfg.HTTPServerPort)
		go func() {
			log.Info("metrics server listening", zap.String("addr", metricsAddr))
			if err := telemetry.Serve(metricsAddr); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("REST server shutdown failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
