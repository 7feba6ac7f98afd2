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

package models

import (
	"errors"
	"time"
)

// LockReason records why the device is locked.
type LockReason string

const (
	LockReasonNone          LockReason = "NONE"
	LockReasonRemote        LockReason = "REMOTE"
	LockReasonSMS           LockReason = "SMS"
	LockReasonSafeMode      LockReason = "SAFE_MODE"
	LockReasonSIMChange     LockReason = "SIM_CHANGE"
	LockReasonDefaultLocked LockReason = "DEFAULT_LOCKED"
)

// IsTamper reports whether the reason was produced by a tamper detector.
func (r LockReason) IsTamper() bool {
	return r == LockReasonSafeMode || r == LockReasonSIMChange
}

// MachineState is the lock state machine position derived from a LockState.
type MachineState string

const (
	StateUnlocked     MachineState = "UNLOCKED"
	StateLocked       MachineState = "LOCKED"
	StateLockedKiosk  MachineState = "LOCKED_KIOSK"
	StateTamperLocked MachineState = "TAMPER_LOCKED"
)

const (
	DefaultLockMessage  = "This device has been locked due to payment overdue."
	DefaultSupportPhone = "8876655444"
)

var ErrKioskWithoutLock = errors.New("kiosk mode requires the device to be locked")

// LockState is the single persisted lock record of the device.
type LockState struct {
	Locked       bool       `json:"locked"`
	LockReason   LockReason `json:"lock_reason"`
	KioskActive  bool       `json:"kiosk_active"`
	LockMessage  string     `json:"lock_message"`
	SupportPhone string     `json:"support_phone"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProvisionedLockState is the fail-secure state a freshly enrolled device starts in.
func ProvisionedLockState(now time.Time) LockState {
	return LockState{
		Locked:       true,
		LockReason:   LockReasonDefaultLocked,
		KioskActive:  true,
		LockMessage:  DefaultLockMessage,
		SupportPhone: DefaultSupportPhone,
		UpdatedAt:    now,
	}
}

// State maps the persisted attributes onto a MachineState.
func (s LockState) State() MachineState {
	switch {
	case !s.Locked:
		return StateUnlocked
	case s.LockReason.IsTamper():
		return StateTamperLocked
	case s.KioskActive:
		return StateLockedKiosk
	default:
		return StateLocked
	}
}

// Validate checks the kiosk-implies-locked invariant.
func (s LockState) Validate() error {
	if s.KioskActive && !s.Locked {
		return ErrKioskWithoutLock
	}

	return nil
}

// SameLock reports whether two states describe the same enforcement target.
func (s LockState) SameLock(other LockState) bool {
	return s.Locked == other.Locked &&
		s.LockReason == other.LockReason &&
		s.KioskActive == other.KioskActive
}
