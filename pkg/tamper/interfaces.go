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

// Package tamper detects Safe Mode boots and SIM swaps and turns them into tamper locks.
package tamper

//go:generate mockgen -destination=mock_tamper.go -package=tamper github.com/carverauto/devicelock/pkg/tamper Locker,Reporter,Enrollment

import (
	"context"

	"github.com/carverauto/devicelock/pkg/models"
)

// Locker receives tamper signals. The lock state machine implements it.
type Locker interface {
	TamperSignal(ctx context.Context, reason models.LockReason) error
}

// Enrollment reports whether the device has been provisioned. The SIM baseline is only
// captured after enrollment.
type Enrollment interface {
	Provisioned(ctx context.Context) (bool, error)
}

// Reporter accepts security events for delivery to the backend.
type Reporter interface {
	SubmitSecurityEvent(ctx context.Context, event models.SecurityEvent) error
}

// SafeModeSignalSource is one independent way of telling that the device booted into
// Safe Mode.
type SafeModeSignalSource interface {
	Name() string
	SafeMode(ctx context.Context) (bool, error)
}

// SIMReader reads the identity of the currently inserted SIM.
type SIMReader interface {
	ReadSIM(ctx context.Context) (models.SIMInfo, error)
}

// MaskICCID keeps the first and last four characters for logs.
func MaskICCID(iccid string) string {
	if len(iccid) < 8 {
		return "****"
	}

	return iccid[:4] + "****" + iccid[len(iccid)-4:]
}
