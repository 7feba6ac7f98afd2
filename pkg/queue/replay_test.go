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

package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/lockstate"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
	"github.com/carverauto/devicelock/pkg/queue"
	"github.com/carverauto/devicelock/pkg/tokens"
)

var errPowerLoss = errors.New("power loss")

// crashingStore fails the nth write of the command queue record once.
type crashingStore struct {
	kv.Store
	queuePuts int
	failAt    int
}

func (c *crashingStore) Put(ctx context.Context, key string, value []byte) error {
	if key == kv.KeyCommandQueue {
		c.queuePuts++
		if c.queuePuts == c.failAt {
			return errPowerLoss
		}
	}

	return c.Store.Put(ctx, key, value)
}

type device struct {
	queue   *queue.Queue
	machine *lockstate.Machine
}

func bootDevice(t *testing.T, store kv.Store) device {
	t.Helper()

	clk := clock.NewMockClock(gomock.NewController(t))
	clk.EXPECT().Now().Return(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)).AnyTimes()

	log := logger.NewTestLogger()
	enforcer := lockstate.NewLogEnforcer(log)
	validator := tokens.NewValidator(store, nil, clk, log)

	return device{
		queue:   queue.New(store, clk, log),
		machine: lockstate.New(store, enforcer, enforcer, validator, clk, log, lockstate.Config{}),
	}
}

func enrollAndQueue(t *testing.T, d device) {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, d.machine.Provision(ctx, lockstate.Provisioning{
		Tokens: models.OfflineTokens{LockToken: "123456", UnlockToken: "654321"},
	}))

	for _, e := range []struct {
		cmd    models.Command
		source models.Source
	}{
		{models.CommandLock, models.SourceBackend},
		{models.CommandUnlock, models.SourceSMS},
		{models.CommandLock, models.SourceSMS},
	} {
		_, err := d.queue.Enqueue(ctx, e.cmd, nil, e.source)
		require.NoError(t, err)
	}
}

func finalState(t *testing.T, d device) models.LockState {
	t.Helper()

	s, found, err := d.machine.Current(context.Background())
	require.NoError(t, err)
	require.True(t, found)

	return s
}

func TestReplayAfterCrashMatchesUninterruptedDrain(t *testing.T) {
	ctx := context.Background()

	clean := bootDevice(t, kv.NewMemoryStore())
	enrollAndQueue(t, clean)

	n, err := clean.queue.DrainUnprocessed(ctx, clean.machine.Apply)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	want := finalState(t, clean)
	assert.Equal(t, models.StateLockedKiosk, want.State())
	assert.Equal(t, models.LockReasonSMS, want.LockReason)

	// three enqueue writes, then the write marking the UNLOCK processed is lost
	backing := kv.NewMemoryStore()
	crashing := &crashingStore{Store: backing, failAt: 5}

	first := bootDevice(t, crashing)
	enrollAndQueue(t, first)

	_, err = first.queue.DrainUnprocessed(ctx, first.machine.Apply)
	require.ErrorIs(t, err, errPowerLoss)

	restarted := bootDevice(t, backing)

	_, err = restarted.machine.Restore(ctx)
	require.NoError(t, err)

	n, err = restarted.queue.DrainUnprocessed(ctx, restarted.machine.Apply)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, want, finalState(t, restarted))

	pending, err := restarted.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
