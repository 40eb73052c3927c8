/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/mfreeman451/compdata/pkg/api"
	"github.com/mfreeman451/compdata/pkg/bus"
	"github.com/mfreeman451/compdata/pkg/cache"
	"github.com/mfreeman451/compdata/pkg/compdata"
	"github.com/mfreeman451/compdata/pkg/composite"
	"github.com/mfreeman451/compdata/pkg/config"
	"github.com/mfreeman451/compdata/pkg/lifecycle"
	"github.com/mfreeman451/compdata/pkg/metrics"
)

const (
	serviceName  = "compdata"
	restartDelay = 2 * time.Second
)

var (
	errFailedToLoadConfig = fmt.Errorf("failed to load config")
)

func main() {
	configPath := flag.String("config", "/etc/compdata/compdata.json", "Path to config file")
	flag.Parse()

	// A clean run means a termination signal arrived; anything else is
	// a startup or runtime failure worth a fresh start.
	for {
		err := run(*configPath)
		if err == nil {
			return
		}

		log.Printf("Service failed: %v; restarting in %v", err, restartDelay)
		time.Sleep(restartDelay)
	}
}

func run(configPath string) error {
	log.Printf("Starting composite data worker...")

	var cfg compdata.Config

	if err := config.LoadAndValidate(configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	composites, err := composite.Load(cfg.Composites)
	if err != nil {
		return fmt.Errorf("failed to load composites: %w", err)
	}

	log.Printf("Loaded %d composites from %s", len(composites), cfg.Composites)

	cacheBus, err := bus.NewClient(cfg.BusAddress,
		bus.WithPrefix(cfg.CachePrefix),
		bus.WithTimeout(time.Duration(cfg.RequestTimeout)),
		bus.WithName(serviceName+"-cache"),
	)
	if err != nil {
		return fmt.Errorf("failed to connect cache client: %w", err)
	}
	defer cacheBus.Close()

	cacheClient, err := cache.NewClient(cacheBus)
	if err != nil {
		return fmt.Errorf("failed to create cache client: %w", err)
	}

	busServer, err := bus.NewServer(cfg.BusAddress,
		bus.WithServerPrefix(cfg.SubjectPrefix),
		bus.WithWorkers(cfg.Workers),
		bus.WithHandlerTimeout(time.Duration(cfg.RequestTimeout)),
	)
	if err != nil {
		return fmt.Errorf("failed to create bus server: %w", err)
	}

	requestMetrics := metrics.NewManager()

	service, err := compdata.NewService(composites, cacheClient, requestMetrics)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if err := service.Register(busServer); err != nil {
		return fmt.Errorf("failed to register methods: %w", err)
	}

	opts := lifecycle.ServerOptions{
		ServiceName: serviceName,
		BusServer:   busServer,
		APIServer:   api.NewServer(requestMetrics, composites),
		ListenAddr:  cfg.ListenAddr,
	}

	if err := lifecycle.Run(context.Background(), &opts); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
