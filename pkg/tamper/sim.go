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
	"strings"
	"sync"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
	"github.com/carverauto/devicelock/pkg/platform"
)

var errEmptySIMRead = errors.New("sim reader returned no identity")

// SIMConfig holds the admin toggle for SIM lock.
type SIMConfig struct {
	Enabled  bool
	DeviceID string
}

// SIMDetector compares the inserted SIM against the baseline captured after provisioning.
type SIMDetector struct {
	store    kv.Store
	reader   SIMReader
	locker   Locker
	enrolled Enrollment
	reporter Reporter
	clock    clock.Clock
	logger   logger.Logger
	cfg      SIMConfig

	mu sync.Mutex
}

func NewSIMDetector(
	store kv.Store,
	reader SIMReader,
	locker Locker,
	enrolled Enrollment,
	reporter Reporter,
	clk clock.Clock,
	log logger.Logger,
	cfg SIMConfig) *SIMDetector {
	if clk == nil {
		clk = clock.Real()
	}

	return &SIMDetector{
		store:    store,
		reader:   reader,
		locker:   locker,
		enrolled: enrolled,
		reporter: reporter,
		clock:    clk,
		logger:   log,
		cfg:      cfg,
	}
}

// Verify reads the SIM and observes it. Called at boot.
func (d *SIMDetector) Verify(ctx context.Context) (bool, error) {
	if !d.cfg.Enabled {
		return false, nil
	}

	if d.reader == nil {
		d.logger.Debug().Msg("No SIM reader configured, skipping boot SIM check")

		return false, nil
	}

	info, err := d.reader.ReadSIM(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("SIM unreadable, skipping check")

		return false, nil
	}

	return d.Observe(ctx, info)
}

// Observe handles one SIM reading. Before provisioning it does nothing. The first
// readable SIM after provisioning becomes the baseline. A different ICCID tamper-locks
// the device; the SIM_CHANGE event is raised once per foreign ICCID. Unreadable SIMs
// are ignored.
func (d *SIMDetector) Observe(ctx context.Context, info models.SIMInfo) (bool, error) {
	if !d.cfg.Enabled {
		d.logger.Debug().Msg("SIM lock disabled")

		return false, nil
	}

	if !info.Readable() {
		d.logger.Warn().Msg("SIM identity not readable, failing open")

		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.enrolled != nil {
		provisioned, err := d.enrolled.Provisioned(ctx)
		if err != nil {
			return false, fmt.Errorf("sim check enrollment: %w", err)
		}

		if !provisioned {
			d.logger.Debug().Str("iccid", MaskICCID(info.ICCID)).Msg("Device not provisioned, ignoring SIM")

			return false, nil
		}
	}

	var baseline models.TamperBaseline

	found, err := kv.GetJSON(ctx, d.store, kv.KeyTamperBaseline, &baseline)
	if err != nil {
		return false, err
	}

	if !found || baseline.OriginalSIMIdentity == "" {
		return false, d.capture(ctx, info)
	}

	if info.ICCID == baseline.OriginalSIMIdentity {
		return false, nil
	}

	d.logger.Warn().
		Str("original", MaskICCID(baseline.OriginalSIMIdentity)).
		Str("current", MaskICCID(info.ICCID)).
		Str("carrier", info.Carrier).
		Msg("SIM change detected")

	lockErr := d.locker.TamperSignal(ctx, models.LockReasonSIMChange)
	if lockErr != nil {
		lockErr = fmt.Errorf("sim tamper lock: %w", lockErr)
	}

	if baseline.LastReported == info.ICCID {
		return true, lockErr
	}

	event := models.SecurityEvent{
		Event:         models.EventSIMChange,
		Timestamp:     d.clock.Now().UnixMilli(),
		DeviceID:      d.cfg.DeviceID,
		Action:        actionLocked,
		OriginalICCID: baseline.OriginalSIMIdentity,
		NewICCID:      info.ICCID,
		NewOperator:   info.Carrier,
	}

	if err := d.reporter.SubmitSecurityEvent(ctx, event); err != nil {
		return true, errors.Join(lockErr, fmt.Errorf("sim change event: %w", err))
	}

	baseline.LastReported = info.ICCID

	if err := kv.PutJSON(ctx, d.store, kv.KeyTamperBaseline, baseline); err != nil {
		return true, errors.Join(lockErr, err)
	}

	return true, lockErr
}

func (d *SIMDetector) capture(ctx context.Context, info models.SIMInfo) error {
	baseline := models.TamperBaseline{
		OriginalSIMIdentity: info.ICCID,
		OriginalCarrier:     info.Carrier,
		CapturedAt:          d.clock.Now().UTC(),
	}

	if err := kv.PutJSON(ctx, d.store, kv.KeyTamperBaseline, baseline); err != nil {
		return fmt.Errorf("failed to store SIM baseline: %w", err)
	}

	d.logger.Info().
		Str("iccid", MaskICCID(info.ICCID)).
		Str("carrier", info.Carrier).
		Msg("SIM baseline captured")

	return nil
}

// Baseline returns the captured baseline, or nil before the first readable SIM.
func (d *SIMDetector) Baseline(ctx context.Context) (*models.TamperBaseline, error) {
	var baseline models.TamperBaseline

	found, err := kv.GetJSON(ctx, d.store, kv.KeyTamperBaseline, &baseline)
	if err != nil || !found {
		return nil, err
	}

	return &baseline, nil
}

// CommandSIMReader runs a platform command that prints "ICCID[,carrier]".
type CommandSIMReader struct {
	Runner  platform.Runner
	Command string
}

func (r *CommandSIMReader) ReadSIM(ctx context.Context) (models.SIMInfo, error) {
	name, args, err := platform.SplitCommand(r.Command)
	if err != nil {
		return models.SIMInfo{}, err
	}

	out, err := r.Runner.Output(ctx, name, args...)
	if err != nil {
		return models.SIMInfo{}, err
	}

	iccid, carrier, _ := strings.Cut(out, ",")

	info := models.SIMInfo{
		ICCID:   strings.TrimSpace(iccid),
		Carrier: strings.TrimSpace(carrier),
	}

	if !info.Readable() {
		return info, errEmptySIMRead
	}

	return info, nil
}
