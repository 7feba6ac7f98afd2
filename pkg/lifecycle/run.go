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

package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/carverauto/devicelock/pkg/logger"
)

// Runnable is a long-lived service driven by a context.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunUntilSignal runs svc until it returns or the process receives SIGINT/SIGTERM.
// A cancellation caused by the signal is not reported as an error.
func RunUntilSignal(ctx context.Context, svc Runnable, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := svc.Run(ctx)

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info().Msg("Shutdown signal received, agent stopped")

		return nil
	}

	return err
}
