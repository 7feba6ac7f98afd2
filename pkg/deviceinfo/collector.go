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

// Package deviceinfo builds the identity snapshot the agent registers with the backend.
package deviceinfo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
	"github.com/carverauto/devicelock/pkg/platform"
)

const (
	propBrand     = "ro.product.brand"
	propModel     = "ro.product.model"
	propOSVersion = "ro.build.version.release"
)

// Config carries operator supplied identity. Empty fields are discovered.
type Config struct {
	DeviceID   string
	IMEI       string
	Brand      string
	Model      string
	CustomerID string
}

type Collector struct {
	cfg      Config
	runner   platform.Runner
	hostInfo func(context.Context) (*host.InfoStat, error)
	clock    clock.Clock
	logger   logger.Logger

	once     sync.Once
	identity identity
}

type identity struct {
	deviceID  string
	brand     string
	model     string
	osVersion string
	platform  string
}

// NewCollector returns a Collector. runner may be nil when no system property tool exists.
func NewCollector(cfg Config, runner platform.Runner, clk clock.Clock, log logger.Logger) *Collector {
	if clk == nil {
		clk = clock.Real()
	}

	return &Collector{
		cfg:      cfg,
		runner:   runner,
		hostInfo: host.InfoWithContext,
		clock:    clk,
		logger:   log,
	}
}

// DeviceID returns the identity used in every report: the configured device id, then the
// IMEI, then the host id.
func (c *Collector) DeviceID(ctx context.Context) string {
	return c.discover(ctx).deviceID
}

// Registration snapshots identity plus the current lock state.
func (c *Collector) Registration(ctx context.Context, state models.LockState, lastSync *time.Time) models.Registration {
	id := c.discover(ctx)

	imei := c.cfg.IMEI
	if imei == "" {
		imei = id.deviceID
	}

	return models.Registration{
		DeviceID:   id.deviceID,
		IMEI:       imei,
		Brand:      id.brand,
		Model:      id.model,
		OSVersion:  id.osVersion,
		Platform:   id.platform,
		Status:     Status(state),
		Locked:     state.Locked,
		LockReason: reasonOf(state),
		CustomerID: c.cfg.CustomerID,
		LastSync:   lastSync,
		ReportedAt: c.clock.Now().UTC(),
	}
}

// Status is the coarse status string the backend shows for a lock state.
func Status(state models.LockState) string {
	if !state.Locked {
		return "active"
	}

	if state.LockReason.IsTamper() {
		return "tampered"
	}

	return "locked"
}

func reasonOf(state models.LockState) models.LockReason {
	if state.LockReason == "" {
		return models.LockReasonNone
	}

	return state.LockReason
}

func (c *Collector) discover(ctx context.Context) identity {
	c.once.Do(func() {
		id := identity{
			deviceID: firstNonEmpty(c.cfg.DeviceID, c.cfg.IMEI),
			brand:    c.cfg.Brand,
			model:    c.cfg.Model,
		}

		if info, err := c.hostInfo(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Host info collection failed")
		} else {
			id.deviceID = firstNonEmpty(id.deviceID, info.HostID, info.Hostname)
			id.osVersion = info.PlatformVersion
			id.platform = firstNonEmpty(info.Platform, info.OS)
		}

		if c.runner != nil {
			id.brand = firstNonEmpty(id.brand, c.property(ctx, propBrand))
			id.model = firstNonEmpty(id.model, c.property(ctx, propModel))

			if v := c.property(ctx, propOSVersion); v != "" {
				id.osVersion = v
				id.platform = "android"
			}
		}

		c.identity = id
	})

	return c.identity
}

func (c *Collector) property(ctx context.Context, name string) string {
	out, err := c.runner.Output(ctx, "getprop", name)
	if err != nil {
		c.logger.Debug().Err(err).Str("property", name).Msg("System property unavailable")

		return ""
	}

	return strings.TrimSpace(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	return ""
}
