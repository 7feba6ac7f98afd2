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

package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/devicelock/pkg/models"
)

// Boot runs the start-up sequence. Safe Mode is checked before anything else so a
// tamper lock always lands before queued commands drain. On an unprovisioned device only
// the Safe Mode check runs.
func (a *Agent) Boot(ctx context.Context) error {
	var errs []error

	if locked, err := a.safeMode.CheckBoot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("safe mode check: %w", err))
	} else if locked {
		a.logger.Warn().Msg("Device tamper-locked at boot")
	}

	provisioned, err := a.machine.Provisioned(ctx)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("provisioning check: %w", err))...)
	}

	if !provisioned {
		a.logger.Info().Msg("Device not provisioned, waiting for enrollment")

		return errors.Join(errs...)
	}

	state, err := a.machine.Restore(ctx)
	if err != nil && !errors.Is(err, models.ErrNotProvisioned) {
		errs = append(errs, fmt.Errorf("restore lock state: %w", err))
	}

	if _, err := a.sim.Verify(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sim check: %w", err))
	}

	if n, err := a.queue.DrainUnprocessed(ctx, a.machine.Apply); err != nil {
		errs = append(errs, fmt.Errorf("drain command queue: %w", err))
	} else if n > 0 {
		a.logger.Info().Int("applied", n).Msg("Replayed queued commands")
	}

	if _, err := a.queue.Prune(ctx, a.cfg.QueueRetention.Or(0)); err != nil {
		errs = append(errs, fmt.Errorf("prune command queue: %w", err))
	}

	// the drain may have moved the state on
	if current, found, err := a.machine.Current(ctx); err == nil && found {
		state = current
	}

	if err := a.submitRegistration(ctx, state); err != nil {
		errs = append(errs, fmt.Errorf("queue registration: %w", err))
	}

	a.logger.Info().Str("state", string(state.State())).Msg("Boot sequence complete")

	return errors.Join(errs...)
}
