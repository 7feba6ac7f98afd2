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

	"github.com/carverauto/devicelock/pkg/agent"
	"github.com/carverauto/devicelock/pkg/config"
	"github.com/carverauto/devicelock/pkg/lifecycle"
	"github.com/carverauto/devicelock/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/data/local/devicelock/agent.json", "Path to agent config file")
	flag.Parse()

	ctx := context.Background()

	var cfg agent.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	agentLogger, err := lifecycle.CreateComponentLogger("agent", &cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if err := logger.ShutdownOTel(); err != nil {
			log.Printf("Failed to flush OTel logs: %v", err)
		}
	}()

	a, err := agent.New(ctx, &cfg, agentLogger, agent.Deps{})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	defer func() {
		if err := a.Close(); err != nil {
			agentLogger.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	// a partial boot still leaves the agent able to receive commands
	if err := a.Boot(ctx); err != nil {
		agentLogger.Error().Err(err).Msg("Boot sequence incomplete")
	}

	return lifecycle.RunUntilSignal(ctx, a, agentLogger)
}
