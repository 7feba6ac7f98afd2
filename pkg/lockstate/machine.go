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

package lockstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

// DefaultKioskPackage is the agent's own package, pinned while in kiosk mode.
const DefaultKioskPackage = "com.devicelock.agent"

// Config tunes enforcement.
type Config struct {
	// KioskPackages are the packages allowed while in kiosk mode.
	KioskPackages []string
	// AlarmOnSIMChange starts the alarm when a SIM swap tamper-locks the device.
	AlarmOnSIMChange bool
}

// Provisioning is the enrollment payload.
type Provisioning struct {
	Tokens       models.OfflineTokens
	LockMessage  string
	SupportPhone string
}

// Machine is the lock state machine. All transitions are serialized.
type Machine struct {
	store    kv.Store
	enforcer PolicyEnforcer
	alarm    AlarmController
	tokens   TokenValidator
	clock    clock.Clock
	logger   logger.Logger
	cfg      Config

	mu sync.Mutex
	// enforced is true once the persisted state has been applied by this process.
	enforced  bool
	listeners []ChangeFunc
}

func New(
	store kv.Store,
	enforcer PolicyEnforcer,
	alarm AlarmController,
	tokens TokenValidator,
	clk clock.Clock,
	log logger.Logger,
	cfg Config) *Machine {
	if clk == nil {
		clk = clock.Real()
	}

	if len(cfg.KioskPackages) == 0 {
		cfg.KioskPackages = []string{DefaultKioskPackage}
	}

	return &Machine{
		store:    store,
		enforcer: enforcer,
		alarm:    alarm,
		tokens:   tokens,
		clock:    clk,
		logger:   log,
		cfg:      cfg,
	}
}

// OnChange registers fn to run after every persisted and enforced transition.
func (m *Machine) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, fn)
}

// Current returns the persisted state. found is false before provisioning.
func (m *Machine) Current(ctx context.Context) (state models.LockState, found bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.load(ctx)
}

// Provisioned reports whether offline tokens were enrolled. A Safe Mode boot before
// enrollment leaves a tamper lock record but no tokens.
func (m *Machine) Provisioned(ctx context.Context) (bool, error) {
	return m.tokens.Provisioned(ctx)
}

// Provision enrolls the device. The device starts locked in kiosk mode.
func (m *Machine) Provision(ctx context.Context, p Provisioning) error {
	if p.Tokens.LockToken == "" || p.Tokens.UnlockToken == "" {
		return errNoTokens
	}

	state, err := m.provision(ctx, p)
	if err != nil {
		return err
	}

	m.notify(ctx, state)

	return nil
}

func (m *Machine) provision(ctx context.Context, p Provisioning) (models.LockState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	provisioned, err := m.tokens.Provisioned(ctx)
	if err != nil {
		return models.LockState{}, err
	}

	if provisioned {
		return models.LockState{}, ErrAlreadyProvisioned
	}

	current, found, err := m.load(ctx)
	if err != nil {
		return models.LockState{}, err
	}

	if err := m.tokens.Set(ctx, p.Tokens); err != nil {
		return models.LockState{}, fmt.Errorf("failed to store offline tokens: %w", err)
	}

	state := models.ProvisionedLockState(m.clock.Now().UTC())

	// enrollment never clears a pending tamper lock
	if found && current.Locked && current.LockReason.IsTamper() {
		state.LockReason = current.LockReason
	}

	if p.LockMessage != "" {
		state.LockMessage = p.LockMessage
	}

	if p.SupportPhone != "" {
		state.SupportPhone = p.SupportPhone
	}

	if err := m.save(ctx, state); err != nil {
		return models.LockState{}, err
	}

	m.logger.Info().Str("state", string(state.State())).Msg("Device provisioned")

	m.enforceLogged(ctx, state)

	return state, nil
}

// Authorize checks whether cmd from source may be queued. Backend and local commands are
// trusted; SMS commands must carry the matching offline token.
func (m *Machine) Authorize(ctx context.Context, cmd models.Command, source models.Source, token string) error {
	if cmd == models.CommandWipe {
		return fmt.Errorf("%w: %s", ErrCommandRejected, cmd)
	}

	if source != models.SourceSMS {
		return nil
	}

	var ok bool

	switch cmd {
	case models.CommandLock, models.CommandAlarm, models.CommandStopAlarm:
		ok = m.tokens.ValidateLock(ctx, token)
	case models.CommandUnlock:
		ok = m.tokens.ValidateUnlock(ctx, token)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownCommand, cmd)
	}

	if !ok {
		return ErrInvalidToken
	}

	return nil
}

// Apply executes one queued command.
func (m *Machine) Apply(ctx context.Context, cmd models.QueuedCommand) error {
	switch cmd.Command {
	case models.CommandLock:
		return m.transitionTo(ctx, func(cur models.LockState) models.LockState {
			cur.Locked = true
			cur.KioskActive = true
			cur.LockReason = cmd.Source.LockReason()

			return cur
		}, transitionOpts{requireProvisioned: true})
	case models.CommandUnlock:
		return m.transitionTo(ctx, func(cur models.LockState) models.LockState {
			cur.Locked = false
			cur.KioskActive = false
			cur.LockReason = models.LockReasonNone

			return cur
		}, transitionOpts{requireProvisioned: true, requireOwner: true})
	case models.CommandAlarm:
		if err := m.alarm.StartAlarm(ctx); err != nil {
			return fmt.Errorf("start alarm: %w", err)
		}

		return nil
	case models.CommandStopAlarm:
		if err := m.alarm.StopAlarm(ctx); err != nil {
			return fmt.Errorf("stop alarm: %w", err)
		}

		return nil
	case models.CommandWipe:
		return fmt.Errorf("%w: %s", ErrCommandRejected, cmd.Command)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnknownCommand, cmd.Command)
	}
}

// TamperSignal locks the device for a tamper reason. It is not subject to authorization
// and does not go through the command queue.
func (m *Machine) TamperSignal(ctx context.Context, reason models.LockReason) error {
	if !reason.IsTamper() {
		return fmt.Errorf("%w: tamper reason %s", models.ErrUnknownCommand, reason)
	}

	m.logger.Warn().Str("reason", string(reason)).Msg("Tamper signal received")

	return m.transitionTo(ctx, func(cur models.LockState) models.LockState {
		if cur.LockMessage == "" {
			cur.LockMessage = models.DefaultLockMessage
		}

		if cur.SupportPhone == "" {
			cur.SupportPhone = models.DefaultSupportPhone
		}

		cur.Locked = true
		cur.KioskActive = true
		cur.LockReason = reason

		return cur
	}, transitionOpts{})
}

// SetLockInfo updates the lock screen message and support phone. Empty values are kept.
func (m *Machine) SetLockInfo(ctx context.Context, message, phone string) error {
	state, err := m.setLockInfo(ctx, message, phone)
	if err != nil {
		return err
	}

	m.notify(ctx, state)

	return nil
}

func (m *Machine) setLockInfo(ctx context.Context, message, phone string) (models.LockState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, found, err := m.load(ctx)
	if err != nil {
		return state, err
	}

	if !found {
		return state, models.ErrNotProvisioned
	}

	if message != "" {
		state.LockMessage = message
	}

	if phone != "" {
		state.SupportPhone = phone
	}

	state.UpdatedAt = m.clock.Now().UTC()

	return state, m.save(ctx, state)
}

// Restore re-applies the persisted state at process start. It returns
// models.ErrNotProvisioned on a device that was never enrolled.
func (m *Machine) Restore(ctx context.Context) (models.LockState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, found, err := m.load(ctx)
	if err != nil {
		return state, err
	}

	if !found {
		return state, models.ErrNotProvisioned
	}

	if err := state.Validate(); err != nil {
		m.logger.Error().Err(err).Msg("Persisted lock state is inconsistent, locking")

		state.Locked = true
		if state.LockReason == models.LockReasonNone {
			state.LockReason = models.LockReasonDefaultLocked
		}

		state.UpdatedAt = m.clock.Now().UTC()

		if err := m.save(ctx, state); err != nil {
			return state, err
		}
	}

	m.logger.Info().
		Str("state", string(state.State())).
		Str("reason", string(state.LockReason)).
		Msg("Restoring lock state")

	if err := m.enforce(ctx, state); err != nil {
		m.enforced = false

		return state, fmt.Errorf("restore enforcement: %w", err)
	}

	m.enforced = true

	if state.State() == models.StateTamperLocked {
		m.startTamperAlarm(ctx, state.LockReason)
	}

	return state, nil
}

type transitionOpts struct {
	// requireOwner runs the device-owner check before anything is persisted.
	requireOwner       bool
	requireProvisioned bool
}

// transitionTo persists next(current) and enforces it.
func (m *Machine) transitionTo(
	ctx context.Context, next func(models.LockState) models.LockState, opts transitionOpts) error {
	state, changed, err := m.transition(ctx, next, opts)
	if err != nil {
		return err
	}

	if changed {
		m.notify(ctx, state)
	}

	return nil
}

func (m *Machine) transition(
	ctx context.Context,
	next func(models.LockState) models.LockState,
	opts transitionOpts) (models.LockState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, found, err := m.load(ctx)
	if err != nil {
		return current, false, err
	}

	if !found && opts.requireProvisioned {
		return current, false, models.ErrNotProvisioned
	}

	target := next(current)

	if found && m.enforced && current.SameLock(target) {
		m.logger.Debug().Str("state", string(current.State())).Msg("Already in requested state")

		return current, false, nil
	}

	if opts.requireOwner {
		owner, err := m.enforcer.IsDeviceOwner(ctx)
		if err != nil {
			return current, false, fmt.Errorf("device owner check: %w", err)
		}

		if !owner {
			return current, false, ErrNotDeviceOwner
		}
	}

	target.UpdatedAt = m.clock.Now().UTC()

	if err := m.save(ctx, target); err != nil {
		return current, false, err
	}

	m.logger.Info().
		Str("from", string(current.State())).
		Str("to", string(target.State())).
		Str("reason", string(target.LockReason)).
		Msg("Lock state changed")

	m.enforceLogged(ctx, target)

	if target.State() == models.StateTamperLocked {
		m.startTamperAlarm(ctx, target.LockReason)
	}

	return target, true, nil
}

// enforceLogged enforces state and records the outcome. A failure leaves the persisted
// intent in place for Restore to retry.
func (m *Machine) enforceLogged(ctx context.Context, state models.LockState) {
	if err := m.enforce(ctx, state); err != nil {
		m.enforced = false

		m.logger.Error().Err(err).Str("state", string(state.State())).Msg("Failed to enforce lock state")

		return
	}

	m.enforced = true
}

func (m *Machine) enforce(ctx context.Context, state models.LockState) error {
	if !state.Locked {
		var errs []error

		if err := m.enforcer.SetKioskAllowList(ctx, nil); err != nil {
			errs = append(errs, fmt.Errorf("clear kiosk: %w", err))
		}

		if err := m.enforcer.ClearLockedRestrictions(ctx); err != nil {
			errs = append(errs, fmt.Errorf("clear locked restrictions: %w", err))
		}

		if err := m.enforcer.ApplyBaseRestrictions(ctx); err != nil {
			errs = append(errs, fmt.Errorf("base restrictions: %w", err))
		}

		if err := m.alarm.StopAlarm(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to stop alarm on unlock")
		}

		return errors.Join(errs...)
	}

	if err := m.enforcer.ApplyBaseRestrictions(ctx); err != nil {
		return fmt.Errorf("base restrictions: %w", err)
	}

	if err := m.enforcer.ApplyLockedRestrictions(ctx); err != nil {
		return fmt.Errorf("locked restrictions: %w", err)
	}

	var kiosk []string
	if state.KioskActive {
		kiosk = m.cfg.KioskPackages
	}

	if err := m.enforcer.SetKioskAllowList(ctx, kiosk); err != nil {
		return fmt.Errorf("kiosk allow list: %w", err)
	}

	return nil
}

func (m *Machine) startTamperAlarm(ctx context.Context, reason models.LockReason) {
	if reason == models.LockReasonSIMChange && !m.cfg.AlarmOnSIMChange {
		return
	}

	if err := m.alarm.StartAlarm(ctx); err != nil {
		m.logger.Warn().Err(err).Str("reason", string(reason)).Msg("Failed to start tamper alarm")
	}
}

func (m *Machine) notify(ctx context.Context, state models.LockState) {
	m.mu.Lock()
	listeners := append([]ChangeFunc(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, state)
	}
}

func (m *Machine) load(ctx context.Context) (models.LockState, bool, error) {
	var state models.LockState

	found, err := kv.GetJSON(ctx, m.store, kv.KeyLockState, &state)
	if err != nil {
		return state, false, fmt.Errorf("failed to load lock state: %w", err)
	}

	return state, found, nil
}

func (m *Machine) save(ctx context.Context, state models.LockState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	if err := kv.PutJSON(ctx, m.store, kv.KeyLockState, state); err != nil {
		return fmt.Errorf("failed to persist lock state: %w", err)
	}

	return nil
}
