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

// Package queue is the durable, ordered command queue between the command channels and
// the lock state machine.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

// DefaultRetention is how long processed entries are kept for audit.
const DefaultRetention = 24 * time.Hour

// ApplyFunc executes one queued command.
type ApplyFunc func(ctx context.Context, cmd models.QueuedCommand) error

// Queue persists every entry before it is acknowledged and replays unprocessed entries
// in insertion order.
type Queue struct {
	store  kv.Store
	clock  clock.Clock
	logger logger.Logger

	mu      sync.Mutex // guards read-modify-write of the record
	drainMu sync.Mutex // one drain at a time
	notify  chan struct{}
}

func New(store kv.Store, clk clock.Clock, log logger.Logger) *Queue {
	if clk == nil {
		clk = clock.Real()
	}

	return &Queue{
		store:  store,
		clock:  clk,
		logger: log,
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends a command. It returns only after the entry is durable.
func (q *Queue) Enqueue(
	ctx context.Context, cmd models.Command, params *string, source models.Source) (models.QueuedCommand, error) {
	entry := models.QueuedCommand{
		ID:         uuid.NewString(),
		Command:    cmd,
		Params:     params,
		Source:     source,
		EnqueuedAt: q.clock.Now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return models.QueuedCommand{}, err
	}

	entries = append(entries, entry)

	if err := q.save(ctx, entries); err != nil {
		return models.QueuedCommand{}, err
	}

	q.logger.Info().
		Str("id", entry.ID).
		Str("command", string(cmd)).
		Str("source", string(source)).
		Msg("Command enqueued")

	select {
	case q.notify <- struct{}{}:
	default:
	}

	return entry, nil
}

// Notify fires after each successful enqueue. Signals coalesce.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// DrainUnprocessed applies every unprocessed entry in order. Each entry is marked
// processed and persisted before the next one is applied, so a crash replays at most the
// entry that was in flight. An apply error is recorded on the entry and does not stop the
// drain.
func (q *Queue) DrainUnprocessed(ctx context.Context, apply ApplyFunc) (int, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	applied := 0

	for {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		next, ok, err := q.nextUnprocessed(ctx)
		if err != nil {
			return applied, err
		}

		if !ok {
			return applied, nil
		}

		applyErr := apply(ctx, next)
		if applyErr != nil {
			q.logger.Warn().
				Err(applyErr).
				Str("id", next.ID).
				Str("command", string(next.Command)).
				Msg("Queued command failed")
		}

		if err := q.markProcessed(ctx, next.ID, applyErr); err != nil {
			return applied, err
		}

		applied++
	}
}

func (q *Queue) nextUnprocessed(ctx context.Context) (models.QueuedCommand, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return models.QueuedCommand{}, false, err
	}

	for _, e := range entries {
		if !e.Processed {
			return e, true, nil
		}
	}

	return models.QueuedCommand{}, false, nil
}

func (q *Queue) markProcessed(ctx context.Context, id string, applyErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return err
	}

	now := q.clock.Now().UTC()

	for i := range entries {
		if entries[i].ID != id {
			continue
		}

		entries[i].Processed = true
		entries[i].ProcessedAt = &now

		if applyErr != nil {
			entries[i].Error = applyErr.Error()
		}

		break
	}

	return q.save(ctx, entries)
}

// Prune drops processed entries enqueued more than maxAge ago. Unprocessed entries are
// never pruned.
func (q *Queue) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := q.clock.Now().Add(-maxAge)
	kept := entries[:0]

	for _, e := range entries {
		if e.Processed && e.EnqueuedAt.Before(cutoff) {
			continue
		}

		kept = append(kept, e)
	}

	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := q.save(ctx, kept); err != nil {
		return 0, err
	}

	q.logger.Debug().Int("removed", removed).Msg("Pruned processed commands")

	return removed, nil
}

// List returns a copy of the queue for audit.
func (q *Queue) List(ctx context.Context) ([]models.QueuedCommand, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.load(ctx)
}

// Pending counts unprocessed entries.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	entries, err := q.List(ctx)
	if err != nil {
		return 0, err
	}

	n := 0

	for _, e := range entries {
		if !e.Processed {
			n++
		}
	}

	return n, nil
}

func (q *Queue) load(ctx context.Context) ([]models.QueuedCommand, error) {
	var entries []models.QueuedCommand

	if _, err := kv.GetJSON(ctx, q.store, kv.KeyCommandQueue, &entries); err != nil {
		return nil, fmt.Errorf("failed to load command queue: %w", err)
	}

	return entries, nil
}

func (q *Queue) save(ctx context.Context, entries []models.QueuedCommand) error {
	if entries == nil {
		entries = []models.QueuedCommand{}
	}

	if err := kv.PutJSON(ctx, q.store, kv.KeyCommandQueue, entries); err != nil {
		return fmt.Errorf("failed to persist command queue: %w", err)
	}

	return nil
}
