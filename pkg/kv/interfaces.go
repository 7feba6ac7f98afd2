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

// Package kv provides the durable key/value store every agent component persists through.
package kv

//go:generate mockgen -destination=mock_kv.go -package=kv github.com/carverauto/devicelock/pkg/kv Store

import (
	"context"
)

// Store defines the durable key/value store used for all agent state.
// Values are always written whole; there is no partial update.
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value as a byte slice, a boolean indicating if the key was found, and an error if the operation fails.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put atomically replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the key and its associated value from the store.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close shuts down the store, releasing any resources (e.g., connections).
	Close() error
}

// Stable record keys. They must survive upgrades; never rename them.
const (
	KeyLockState      = "lock_state"
	KeyCommandQueue   = "command_queue"
	KeyReportOutbox   = "report_outbox"
	KeyTamperBaseline = "tamper_baseline"
	KeyOfflineTokens  = "offline_tokens"
	KeySMSAudit       = "sms_audit"
)
