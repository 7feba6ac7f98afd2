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

// Package channel adapts inbound command channels (SMS, backend heartbeat poll, MQTT and
// NATS push) onto the durable command queue.
package channel

//go:generate mockgen -destination=mock_channel.go -package=channel github.com/carverauto/devicelock/pkg/channel Authorizer,Enqueuer,TokenRotator,LockInfoSetter

import (
	"context"

	"github.com/carverauto/devicelock/pkg/models"
)

// Authorizer decides whether a command from a source may be queued.
type Authorizer interface {
	Authorize(ctx context.Context, cmd models.Command, source models.Source, token string) error
}

// Enqueuer appends commands to the durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, cmd models.Command, params *string, source models.Source) (models.QueuedCommand, error)
}

// TokenRotator replaces the offline tokens.
type TokenRotator interface {
	Rotate(ctx context.Context, lockToken, unlockToken string) error
}

// LockInfoSetter updates the lock screen text.
type LockInfoSetter interface {
	SetLockInfo(ctx context.Context, message, phone string) error
}
