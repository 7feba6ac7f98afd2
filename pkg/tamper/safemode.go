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

package tamper

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const actionLocked = "LOCKED"

// SafeModeDetector ORs its sources. A failing source counts as no signal.
type SafeModeDetector struct {
	sources  []SafeModeSignalSource
	locker   Locker
	reporter Reporter
	clock    clock.Clock
	logger   logger.Logger
	deviceID string
}

func NewSafeModeDetector(
	locker Locker,
	reporter Reporter,
	clk clock.Clock,
	log logger.Logger,
	deviceID string,
	sources ...SafeModeSignalSource) *SafeModeDetector {
	if clk == nil {
		clk = clock.Real()
	}

	return &SafeModeDetector{
		sources:  sources,
		locker:   locker,
		reporter: reporter,
		clock:    clk,
		logger:   log,
		deviceID: deviceID,
	}
}

// Detect returns the names of the sources that reported Safe Mode.
func (d *SafeModeDetector) Detect(ctx context.Context) []string {
	var signals []string

	for _, src := range d.sources {
		on, err := src.SafeMode(ctx)
		if err != nil {
			d.logger.Warn().Err(err).Str("source", src.Name()).Msg("Safe mode source unavailable")

			continue
		}

		if on {
			signals = append(signals, src.Name())
		}
	}

	return signals
}

// CheckBoot runs once per process start, before any queued command is applied. On a
// Safe Mode boot it tamper-locks the device and queues a SAFE_MODE_ATTEMPT event.
func (d *SafeModeDetector) CheckBoot(ctx context.Context) (bool, error) {
	signals := d.Detect(ctx)
	if len(signals) == 0 {
		d.logger.Debug().Msg("Normal boot")

		return false, nil
	}

	d.logger.Warn().Strs("signals", signals).Msg("Safe mode boot detected")

	lockErr := d.locker.TamperSignal(ctx, models.LockReasonSafeMode)
	if lockErr != nil {
		lockErr = fmt.Errorf("safe mode tamper lock: %w", lockErr)
	}

	event := models.SecurityEvent{
		Event:     models.EventSafeModeAttempt,
		Timestamp: d.clock.Now().UnixMilli(),
		DeviceID:  d.deviceID,
		Action:    actionLocked,
		Signals:   signals,
	}

	reportErr := d.reporter.SubmitSecurityEvent(ctx, event)
	if reportErr != nil {
		reportErr = fmt.Errorf("safe mode event: %w", reportErr)
	}

	return true, errors.Join(lockErr, reportErr)
}
