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
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/logger"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []BackendCommand
	raw  [][]byte
}

func (r *recordingDispatcher) Dispatch(_ context.Context, cmd BackendCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cmds = append(r.cmds, cmd)

	return nil
}

func (r *recordingDispatcher) DispatchJSON(ctx context.Context, data []byte) error {
	r.mu.Lock()
	r.raw = append(r.raw, data)
	r.mu.Unlock()

	var cmd BackendCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}

	return r.Dispatch(ctx, cmd)
}

func (r *recordingDispatcher) commands() []BackendCommand {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]BackendCommand(nil), r.cmds...)
}

func staticStatus(status string) StatusFunc {
	return func(context.Context) string { return status }
}

func TestHeartbeatPollDispatchesCommand(t *testing.T) {
	var got heartbeatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/customers/heartbeat", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"ok":true,"status":"active","command":"unlock"}`))
	}))
	defer srv.Close()

	d := &recordingDispatcher{}

	p, err := NewHeartbeatPoller(HeartbeatConfig{
		BaseURL:    srv.URL,
		DeviceID:   "356938035643809",
		CustomerID: "CUST-1",
		APIKey:     "secret",
	}, d, staticStatus("locked"), logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, p.Poll(context.Background()))

	assert.Equal(t, "356938035643809", got.DeviceID)
	assert.Equal(t, "CUST-1", got.CustomerID)
	assert.Equal(t, "locked", got.Status)
	assert.True(t, got.AppInstalled)

	require.Len(t, d.commands(), 1)
	assert.Equal(t, "unlock", d.commands()[0].Command)
}

func TestHeartbeatNullCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"status":"active","command":null}`))
	}))
	defer srv.Close()

	d := &recordingDispatcher{}

	p, err := NewHeartbeatPoller(HeartbeatConfig{BaseURL: srv.URL}, d, staticStatus(""), logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, p.Poll(context.Background()))
	assert.Empty(t, d.commands())
}

func TestHeartbeatBackoff(t *testing.T) {
	p, err := NewHeartbeatPoller(HeartbeatConfig{
		BaseURL:    "http://127.0.0.1:1",
		Interval:   time.Second,
		MaxBackoff: 5 * time.Second,
	}, &recordingDispatcher{}, staticStatus(""), logger.NewTestLogger())
	require.NoError(t, err)

	connected := 0
	p.OnConnected(func() { connected++ })

	failure := assert.AnError

	assert.Equal(t, time.Second, p.record(failure))
	assert.Equal(t, 2*time.Second, p.record(failure))
	assert.Equal(t, 4*time.Second, p.record(failure))
	assert.Equal(t, 5*time.Second, p.record(failure))
	assert.Equal(t, 5*time.Second, p.Delay())

	assert.Equal(t, time.Second, p.record(nil))
	assert.Equal(t, time.Second, p.Delay())
	assert.Equal(t, 1, connected)

	// steady success does not re-fire
	p.record(nil)
	assert.Equal(t, 1, connected)
}

func firedTimer(ctrl *gomock.Controller) clock.Ticker {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}

	tk := clock.NewMockTicker(ctrl)
	tk.EXPECT().Chan().Return((<-chan time.Time)(ch))

	return tk
}

func TestHeartbeatRunBacksOffOnClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var (
		mu        sync.Mutex
		lastSeens []int64
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req heartbeatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		lastSeens = append(lastSeens, req.LastSeen)
		mu.Unlock()

		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	last := clock.NewMockTicker(ctrl)
	last.EXPECT().Chan().Return(nil)
	last.EXPECT().Stop()

	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(now).AnyTimes()
	gomock.InOrder(
		clk.EXPECT().Timer(time.Second).Return(firedTimer(ctrl)),
		clk.EXPECT().Timer(2*time.Second).Return(firedTimer(ctrl)),
		clk.EXPECT().Timer(4*time.Second).Return(firedTimer(ctrl)),
		clk.EXPECT().Timer(5*time.Second).DoAndReturn(func(time.Duration) clock.Ticker {
			cancel()

			return last
		}),
	)

	p, err := NewHeartbeatPoller(HeartbeatConfig{
		BaseURL:    srv.URL,
		Interval:   time.Second,
		MaxBackoff: 5 * time.Second,
		Clock:      clk,
	}, &recordingDispatcher{}, staticStatus(""), logger.NewTestLogger())
	require.NoError(t, err)

	require.ErrorIs(t, p.Run(ctx), context.Canceled)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, lastSeens, 4)

	for _, seen := range lastSeens {
		assert.Equal(t, now.UnixMilli(), seen)
	}
}

func TestHeartbeatRunRecovers(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte(`{"ok":true,"command":"lock"}`))
	}))
	defer srv.Close()

	d := &recordingDispatcher{}

	p, err := NewHeartbeatPoller(HeartbeatConfig{
		BaseURL:    srv.URL,
		Interval:   10 * time.Millisecond,
		MaxBackoff: 40 * time.Millisecond,
	}, d, staticStatus(""), logger.NewTestLogger())
	require.NoError(t, err)

	var reconnected atomic.Bool

	p.OnConnected(func() { reconnected.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(d.commands()) > 0 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, reconnected.Load())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestHeartbeatRequiresBaseURL(t *testing.T) {
	_, err := NewHeartbeatPoller(HeartbeatConfig{}, &recordingDispatcher{}, staticStatus(""), logger.NewTestLogger())
	require.ErrorIs(t, err, errBaseURLRequired)
}
