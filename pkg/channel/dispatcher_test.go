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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

type dispatcherMocks struct {
	auth     *MockAuthorizer
	queue    *MockEnqueuer
	rotator  *MockTokenRotator
	lockInfo *MockLockInfoSetter
}

func newDispatcher(t *testing.T) (*BackendDispatcher, dispatcherMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := dispatcherMocks{
		auth:     NewMockAuthorizer(ctrl),
		queue:    NewMockEnqueuer(ctrl),
		rotator:  NewMockTokenRotator(ctrl),
		lockInfo: NewMockLockInfoSetter(ctrl),
	}

	return NewBackendDispatcher(m.auth, m.queue, m.rotator, m.lockInfo, logger.NewTestLogger()), m
}

func TestDispatchQueuesStateCommands(t *testing.T) {
	d, m := newDispatcher(t)
	ctx := context.Background()

	for raw, want := range map[string]models.Command{
		"lock":       models.CommandLock,
		"UNLOCK":     models.CommandUnlock,
		"alarm":      models.CommandAlarm,
		"stop_alarm": models.CommandStopAlarm,
	} {
		m.auth.EXPECT().Authorize(gomock.Any(), want, models.SourceBackend, "").Return(nil)
		m.queue.EXPECT().Enqueue(gomock.Any(), want, gomock.Nil(), models.SourceBackend).
			Return(models.QueuedCommand{ID: raw}, nil)

		require.NoError(t, d.Dispatch(ctx, BackendCommand{Command: raw}), raw)
	}
}

func TestDispatchKeepsParams(t *testing.T) {
	d, m := newDispatcher(t)

	m.auth.EXPECT().Authorize(gomock.Any(), models.CommandLock, models.SourceBackend, "").Return(nil)
	m.queue.EXPECT().Enqueue(gomock.Any(), models.CommandLock, gomock.Any(), models.SourceBackend).
		DoAndReturn(func(_ context.Context, _ models.Command, params *string, _ models.Source) (models.QueuedCommand, error) {
			require.NotNil(t, params)
			assert.Equal(t, "overdue", *params)

			return models.QueuedCommand{}, nil
		})

	require.NoError(t, d.DispatchJSON(context.Background(), []byte(`{"command":"lock","params":"overdue"}`)))
}

func TestDispatchRejectsDestructive(t *testing.T) {
	d, _ := newDispatcher(t)

	for _, name := range []string{"wipe", "reset", "WIPE"} {
		err := d.Dispatch(context.Background(), BackendCommand{Command: name})
		require.ErrorIs(t, err, errRejectedCommand, name)
	}
}

func TestDispatchControlCommands(t *testing.T) {
	d, m := newDispatcher(t)
	ctx := context.Background()

	m.rotator.EXPECT().Rotate(gomock.Any(), "111111", "222222").Return(nil)
	require.NoError(t, d.Dispatch(ctx, BackendCommand{
		Command: "rotate_tokens",
		Params:  json.RawMessage(`{"lockToken":"111111","unlockToken":"222222"}`),
	}))

	m.lockInfo.EXPECT().SetLockInfo(gomock.Any(), "Call us", "5550100").Return(nil)
	require.NoError(t, d.Dispatch(ctx, BackendCommand{
		Command: "set_lock_info",
		Params:  json.RawMessage(`{"message":"Call us","supportPhone":"5550100"}`),
	}))

	err := d.Dispatch(ctx, BackendCommand{Command: "rotate_tokens"})
	require.ErrorIs(t, err, errMissingParams)
}

func TestDispatchNoopAndUnknown(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, BackendCommand{}))
	require.NoError(t, d.DispatchJSON(ctx, []byte(`{"command":null}`)))

	require.ErrorIs(t, d.Dispatch(ctx, BackendCommand{Command: "reboot"}), models.ErrUnknownCommand)
	require.Error(t, d.DispatchJSON(ctx, []byte(`not json`)))
}
