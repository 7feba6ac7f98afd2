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
	"fmt"
	"strings"
	"time"
)

// Command is a canonical instruction understood by the lock state machine.
type Command string

const (
	CommandLock      Command = "LOCK"
	CommandUnlock    Command = "UNLOCK"
	CommandAlarm     Command = "ALARM"
	CommandStopAlarm Command = "STOP_ALARM"
	// CommandWipe exists in the wire protocol but is never applied.
	CommandWipe Command = "WIPE"
)

// ParseCommand canonicalizes lower-case and EMI_ prefixed command names.
func ParseCommand(raw string) (Command, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "EMI_")
	name = strings.ReplaceAll(name, "-", "_")

	switch Command(name) {
	case CommandLock, CommandUnlock, CommandAlarm, CommandStopAlarm, CommandWipe:
		return Command(name), nil
	case "STOPALARM":
		return CommandStopAlarm, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
	}
}

// Source records which channel a command arrived on.
type Source string

const (
	SourceSMS     Source = "SMS"
	SourceBackend Source = "BACKEND"
	SourceLocal   Source = "LOCAL"
)

// LockReason derives the lock reason a LOCK from this source produces.
func (s Source) LockReason() LockReason {
	if s == SourceSMS {
		return LockReasonSMS
	}

	return LockReasonRemote
}

// QueuedCommand is one entry of the durable command queue.
type QueuedCommand struct {
	ID          string     `json:"id"`
	Command     Command    `json:"command"`
	Params      *string    `json:"params,omitempty"`
	Source      Source     `json:"source"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}
