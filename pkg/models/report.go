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
	"encoding/json"
	"time"
)

// ReportKind separates the single registration slot from independent security events.
type ReportKind string

const (
	ReportRegistration  ReportKind = "registration"
	ReportSecurityEvent ReportKind = "security_event"
)

// SecurityEventType names a tamper event reported to the backend.
type SecurityEventType string

const (
	EventSafeModeAttempt SecurityEventType = "SAFE_MODE_ATTEMPT"
	EventSIMChange       SecurityEventType = "SIM_CHANGE"
)

// PendingReport is one outbound payload awaiting a 2xx acknowledgment.
type PendingReport struct {
	ID            string          `json:"id"`
	Kind          ReportKind      `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// SecurityEvent is the body of a tamper report.
type SecurityEvent struct {
	Event         SecurityEventType `json:"event"`
	Timestamp     int64             `json:"timestamp"`
	DeviceID      string            `json:"deviceId,omitempty"`
	Action        string            `json:"action,omitempty"`
	OriginalICCID string            `json:"originalIccid,omitempty"`
	NewICCID      string            `json:"newIccid,omitempty"`
	NewOperator   string            `json:"newOperator,omitempty"`
	Signals       []string          `json:"signals,omitempty"`
}

// Registration is the device identity snapshot posted to the registration endpoint.
type Registration struct {
	DeviceID   string     `json:"deviceId"`
	IMEI       string     `json:"imei"`
	Brand      string     `json:"brand,omitempty"`
	Model      string     `json:"model,omitempty"`
	OSVersion  string     `json:"osVersion,omitempty"`
	Platform   string     `json:"platform,omitempty"`
	Status     string     `json:"status"`
	Locked     bool       `json:"locked"`
	LockReason LockReason `json:"lockReason"`
	CustomerID string     `json:"customerId,omitempty"`
	LastSync   *time.Time `json:"lastSync,omitempty"`
	ReportedAt time.Time  `json:"reportedAt"`
}
