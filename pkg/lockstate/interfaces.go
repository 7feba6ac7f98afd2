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

// Package lockstate owns the device lock state: it persists the intended state and drives
// the policy enforcer to match it.
package lockstate

//go:generate mockgen -destination=mock_lockstate.go -package=lockstate github.com/carverauto/devicelock/pkg/lockstate PolicyEnforcer,AlarmController,TokenValidator

import (
	"context"

	"github.com/carverauto/devicelock/pkg/models"
)

// PolicyEnforcer applies device restrictions. It is provided by the device-owner layer.
type PolicyEnforcer interface {
	IsDeviceOwner(ctx context.Context) (bool, error)
	// ApplyLockedRestrictions applies the strict tier used while locked.
	ApplyLockedRestrictions(ctx context.Context) error
	// ApplyBaseRestrictions applies the tier that stays on for the whole lifetime of a
	// managed device.
	ApplyBaseRestrictions(ctx context.Context) error
	ClearLockedRestrictions(ctx context.Context) error
	// SetKioskAllowList pins the device to packages. An empty list leaves kiosk mode.
	SetKioskAllowList(ctx context.Context, packages []string) error
}

// AlarmController plays the audible alarm.
type AlarmController interface {
	StartAlarm(ctx context.Context) error
	StopAlarm(ctx context.Context) error
}

// TokenValidator checks offline tokens presented with SMS commands.
type TokenValidator interface {
	ValidateLock(ctx context.Context, token string) bool
	ValidateUnlock(ctx context.Context, token string) bool
	Set(ctx context.Context, t models.OfflineTokens) error
	Provisioned(ctx context.Context) (bool, error)
}

// ChangeFunc is called after a new state has been persisted and enforced.
type ChangeFunc func(ctx context.Context, state models.LockState)
