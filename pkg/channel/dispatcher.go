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

package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

const (
	controlRotateTokens = "rotate_tokens"
	controlSetLockInfo  = "set_lock_info"
)

var (
	errRejectedCommand = errors.New("command rejected")
	errMissingParams   = errors.New("command requires params")
)

// BackendCommand is the wire form of a command delivered by the backend over any
// network channel.
type BackendCommand struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rotateParams struct {
	LockToken   string `json:"lockToken"`
	UnlockToken string `json:"unlockToken"`
}

type lockInfoParams struct {
	Message      string `json:"message"`
	SupportPhone string `json:"supportPhone"`
}

// BackendDispatcher routes backend commands. State commands are queued; control
// commands are applied directly; destructive commands are refused.
type BackendDispatcher struct {
	auth     Authorizer
	queue    Enqueuer
	rotator  TokenRotator
	lockInfo LockInfoSetter
	logger   logger.Logger
}

func NewBackendDispatcher(
	auth Authorizer,
	queue Enqueuer,
	rotator TokenRotator,
	lockInfo LockInfoSetter,
	log logger.Logger) *BackendDispatcher {
	return &BackendDispatcher{
		auth:     auth,
		queue:    queue,
		rotator:  rotator,
		lockInfo: lockInfo,
		logger:   log,
	}
}

// Dispatch handles one backend command. An empty command is a no-op.
func (d *BackendDispatcher) Dispatch(ctx context.Context, cmd BackendCommand) error {
	name := strings.ToLower(strings.TrimSpace(cmd.Command))

	switch name {
	case "", "none", "null":
		return nil
	case "wipe", "reset":
		d.logger.Warn().Str("command", name).Msg("Refusing destructive backend command")

		return fmt.Errorf("%w: %s", errRejectedCommand, name)
	case controlRotateTokens:
		var p rotateParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		return d.rotator.Rotate(ctx, p.LockToken, p.UnlockToken)
	case controlSetLockInfo:
		var p lockInfoParams
		if err := decodeParams(cmd.Params, &p); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		return d.lockInfo.SetLockInfo(ctx, p.Message, p.SupportPhone)
	}

	command, err := models.ParseCommand(name)
	if err != nil {
		return err
	}

	if err := d.auth.Authorize(ctx, command, models.SourceBackend, ""); err != nil {
		return err
	}

	entry, err := d.queue.Enqueue(ctx, command, paramString(cmd.Params), models.SourceBackend)
	if err != nil {
		return fmt.Errorf("enqueue backend command: %w", err)
	}

	d.logger.Debug().Str("id", entry.ID).Str("command", string(command)).Msg("Backend command queued")

	return nil
}

// DispatchJSON decodes a raw message, as received from MQTT or NATS, and dispatches it.
func (d *BackendDispatcher) DispatchJSON(ctx context.Context, data []byte) error {
	var cmd BackendCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode backend command: %w", err)
	}

	return d.Dispatch(ctx, cmd)
}

func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMissingParams
	}

	return json.Unmarshal(raw, dst)
}

// paramString keeps params for the queue: JSON strings are unquoted, anything else is
// kept as its JSON text.
func paramString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}

	text := string(raw)

	return &text
}
