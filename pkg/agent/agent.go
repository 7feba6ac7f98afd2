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

// Package agent wires the lock state machine, its durable queues, tamper detectors and
// command channels into one long-running process.
package agent

import (
	"context"
	"fmt"

	"github.com/carverauto/devicelock/pkg/channel"
	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/crypto/secrets"
	"github.com/carverauto/devicelock/pkg/deviceinfo"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/lockstate"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
	"github.com/carverauto/devicelock/pkg/outbox"
	"github.com/carverauto/devicelock/pkg/platform"
	"github.com/carverauto/devicelock/pkg/queue"
	"github.com/carverauto/devicelock/pkg/tamper"
	"github.com/carverauto/devicelock/pkg/tokens"
)

const statusUnprovisioned = "unprovisioned"

// Deps overrides collaborators that are otherwise built from Config.
type Deps struct {
	Store     kv.Store
	Enforcer  lockstate.PolicyEnforcer
	Alarm     lockstate.AlarmController
	Runner    platform.Runner
	Transport outbox.Transport
	Clock     clock.Clock
}

// Agent owns every component of the device lock agent.
type Agent struct {
	cfg      *Config
	logger   logger.Logger
	deviceID string

	store     kv.Store
	clock     clock.Clock
	tokens    *tokens.Validator
	machine   *lockstate.Machine
	queue     *queue.Queue
	outbox    *outbox.Outbox
	safeMode  *tamper.SafeModeDetector
	sim       *tamper.SIMDetector
	collector *deviceinfo.Collector

	sms        *channel.SMSAdapter
	dispatcher *channel.BackendDispatcher
	poller     *channel.HeartbeatPoller
	mqtt       *channel.MQTTSubscriber
	nats       *channel.NATSSubscriber
}

// New builds an agent. cfg must already be validated.
func New(ctx context.Context, cfg *Config, log logger.Logger, deps Deps) (*Agent, error) {
	a := &Agent{cfg: cfg, logger: log, clock: deps.Clock}

	if a.clock == nil {
		a.clock = clock.Real()
	}

	runner := deps.Runner
	if runner == nil {
		runner = platform.NewExecRunner(cfg.Enforcer.Timeout.Or(defaultCommandTimeout))
	}

	a.store = deps.Store
	if a.store == nil {
		store, err := kv.New(ctx, &cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}

		a.store = store
	}

	if err := a.build(ctx, runner, deps); err != nil {
		if deps.Store == nil {
			_ = a.store.Close()
		}

		return nil, err
	}

	return a, nil
}

func (a *Agent) build(ctx context.Context, runner platform.Runner, deps Deps) error {
	cfg := a.cfg

	var propRunner platform.Runner
	if cfg.PlatformProbes {
		propRunner = runner
	}

	a.collector = deviceinfo.NewCollector(deviceinfo.Config{
		DeviceID:   cfg.DeviceID,
		IMEI:       cfg.IMEI,
		Brand:      cfg.Brand,
		Model:      cfg.Model,
		CustomerID: cfg.CustomerID,
	}, propRunner, a.clock, logger.Component(a.logger, "deviceinfo"))
	a.deviceID = a.collector.DeviceID(ctx)

	var cipher *secrets.Cipher

	if cfg.SecretsKey != "" {
		c, err := secrets.NewCipherFromString(cfg.SecretsKey)
		if err != nil {
			return fmt.Errorf("invalid secrets_key: %w", err)
		}

		cipher = c
	}

	a.tokens = tokens.NewValidator(a.store, cipher, a.clock, logger.Component(a.logger, "tokens"))

	enforcer, alarm, err := a.enforcer(runner, deps)
	if err != nil {
		return err
	}

	a.machine = lockstate.New(a.store, enforcer, alarm, a.tokens, a.clock, logger.Component(a.logger, "lockstate"),
		lockstate.Config{KioskPackages: cfg.KioskPackages, AlarmOnSIMChange: cfg.AlarmOnSIMChange})

	a.queue = queue.New(a.store, a.clock, logger.Component(a.logger, "queue"))

	transport := deps.Transport
	if transport == nil {
		t, err := outbox.NewHTTPTransport(outbox.HTTPTransportConfig{
			BaseURL:          cfg.Backend.URL,
			DeviceID:         a.deviceID,
			APIKey:           cfg.Backend.APIKey,
			RegistrationPath: cfg.Backend.RegistrationPath,
			EventPath:        cfg.Backend.EventPath,
			Timeout:          cfg.Backend.Timeout.Or(defaultRequestTimeout),
			Logger:           logger.Component(a.logger, "transport"),
		})
		if err != nil {
			return err
		}

		transport = t
	}

	a.outbox = outbox.New(a.store, transport, a.clock, logger.Component(a.logger, "outbox"),
		cfg.Backend.Timeout.Or(defaultRequestTimeout))

	a.safeMode = tamper.NewSafeModeDetector(a.machine, a.outbox, a.clock, logger.Component(a.logger, "safemode"),
		a.deviceID, a.safeModeSources(runner)...)

	var reader tamper.SIMReader
	if cfg.SIMReaderCommand != "" {
		reader = &tamper.CommandSIMReader{Runner: runner, Command: cfg.SIMReaderCommand}
	}

	a.sim = tamper.NewSIMDetector(a.store, reader, a.machine, a.machine, a.outbox, a.clock, logger.Component(a.logger, "sim"),
		tamper.SIMConfig{Enabled: cfg.SIMLockEnabled, DeviceID: a.deviceID})

	a.sms = channel.NewSMSAdapter(a.machine, a.queue, a.store, a.clock, logger.Component(a.logger, "sms"))
	a.dispatcher = channel.NewBackendDispatcher(a.machine, a.queue, a.tokens, a.machine,
		logger.Component(a.logger, "dispatcher"))

	if err := a.buildChannels(); err != nil {
		return err
	}

	a.machine.OnChange(a.onStateChange)

	return nil
}

func (a *Agent) enforcer(runner platform.Runner, deps Deps) (lockstate.PolicyEnforcer, lockstate.AlarmController, error) {
	enforcer := deps.Enforcer

	if enforcer == nil {
		switch a.cfg.Enforcer.Mode {
		case EnforcerExec:
			e, err := lockstate.NewExecEnforcer(runner, a.cfg.Enforcer.Helper)
			if err != nil {
				return nil, nil, err
			}

			enforcer = e
		default:
			enforcer = lockstate.NewLogEnforcer(logger.Component(a.logger, "enforcer"))
		}
	}

	alarm := deps.Alarm
	if alarm == nil {
		if ac, ok := enforcer.(lockstate.AlarmController); ok {
			alarm = ac
		} else {
			alarm = lockstate.NewLogEnforcer(logger.Component(a.logger, "alarm"))
		}
	}

	return enforcer, alarm, nil
}

func (a *Agent) safeModeSources(runner platform.Runner) []tamper.SafeModeSignalSource {
	sources := []tamper.SafeModeSignalSource{&tamper.EnvSource{Var: a.cfg.SafeModeEnv}}

	if a.cfg.PlatformProbes {
		sources = append(sources, tamper.NewPropertySource(runner), tamper.NewGlobalSettingSource(runner))
	}

	return sources
}

func (a *Agent) buildChannels() error {
	cfg := a.cfg

	poller, err := channel.NewHeartbeatPoller(channel.HeartbeatConfig{
		BaseURL:    cfg.Backend.URL,
		Path:       cfg.Backend.HeartbeatPath,
		DeviceID:   a.deviceID,
		CustomerID: cfg.CustomerID,
		APIKey:     cfg.Backend.APIKey,
		Interval:   cfg.HeartbeatInterval.Or(0),
		MaxBackoff: cfg.MaxBackoff.Or(0),
		Timeout:    cfg.Backend.Timeout.Or(defaultRequestTimeout),
		Clock:      a.clock,
	}, a.dispatcher, a.status, logger.Component(a.logger, "heartbeat"))
	if err != nil {
		return err
	}

	// regained connectivity flushes pending reports right away
	poller.OnConnected(a.outbox.Trigger)
	a.poller = poller

	if cfg.MQTT.Broker != "" {
		a.mqtt, err = channel.NewMQTTSubscriber(channel.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			DeviceID: a.deviceID,
			TLS:      cfg.MQTT.TLS,
		}, a.dispatcher, logger.Component(a.logger, "mqtt"))
		if err != nil {
			return err
		}
	}

	if cfg.NATS.URL != "" {
		a.nats, err = channel.NewNATSSubscriber(channel.NATSConfig{
			URL:       cfg.NATS.URL,
			Subject:   cfg.NATS.Subject,
			DeviceID:  a.deviceID,
			CredsFile: cfg.NATS.CredsFile,
			TLS:       cfg.NATS.TLS,
		}, a.dispatcher, logger.Component(a.logger, "nats"))
		if err != nil {
			return err
		}
	}

	return nil
}

// DeviceID is the identity used in reports and channel subjects.
func (a *Agent) DeviceID() string {
	return a.deviceID
}

// Close releases the store.
func (a *Agent) Close() error {
	return a.store.Close()
}

func (a *Agent) status(ctx context.Context) string {
	state, found, err := a.machine.Current(ctx)
	if err != nil || !found {
		return statusUnprovisioned
	}

	return deviceinfo.Status(state)
}

func (a *Agent) onStateChange(ctx context.Context, state models.LockState) {
	if err := a.submitRegistration(ctx, state); err != nil {
		a.logger.Error().Err(err).Msg("Failed to queue registration after state change")
	}
}

// submitRegistration overwrites the pending registration and kicks delivery.
func (a *Agent) submitRegistration(ctx context.Context, state models.LockState) error {
	lastSync, err := a.outbox.LastSync(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Last sync unavailable")
	}

	reg := a.collector.Registration(ctx, state, lastSync)

	if err := a.outbox.SubmitRegistration(ctx, reg); err != nil {
		return err
	}

	a.outbox.Trigger()

	return nil
}
