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

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

type received struct {
	path string
	body []byte
}

type backend struct {
	mu       sync.Mutex
	failures int32
	calls    atomic.Int32
	got      []received
}

func (b *backend) handler(w http.ResponseWriter, r *http.Request) {
	n := b.calls.Add(1)
	body, _ := io.ReadAll(r.Body)

	if n <= b.failures {
		http.Error(w, "backend unavailable", http.StatusInternalServerError)
		return
	}

	b.mu.Lock()
	b.got = append(b.got, received{path: r.URL.Path, body: body})
	b.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func newHTTPOutbox(t *testing.T, store kv.Store, b *backend) *Outbox {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(b.handler))
	t.Cleanup(srv.Close)

	transport, err := NewHTTPTransport(HTTPTransportConfig{
		BaseURL:  srv.URL,
		DeviceID: "356938035643809",
		Logger:   logger.NewTestLogger(),
	})
	require.NoError(t, err)

	return New(store, transport, clock.Real(), logger.NewTestLogger(), time.Second)
}

func TestSecurityEventSurvivesServerError(t *testing.T) {
	store := kv.NewMemoryStore()
	b := &backend{failures: 1}
	o := newHTTPOutbox(t, store, b)
	ctx := context.Background()

	event := models.SecurityEvent{Event: models.EventSafeModeAttempt, Timestamp: 1700000000000, Action: "LOCKED"}
	require.NoError(t, o.SubmitSecurityEvent(ctx, event))

	res, err := o.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 1}, res)

	pending, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "500")

	last, err := o.LastSync(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	res, err = o.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Delivered: 1}, res)

	pending, err = o.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	last, err = o.LastSync(ctx)
	require.NoError(t, err)
	assert.NotNil(t, last)

	require.Len(t, b.got, 1)
	assert.Equal(t, "/api/devices/356938035643809/security-event", b.got[0].path)

	var sent models.SecurityEvent
	require.NoError(t, json.Unmarshal(b.got[0].body, &sent))
	assert.Equal(t, event, sent)
}

func TestRegistrationIsOverwritten(t *testing.T) {
	store := kv.NewMemoryStore()
	b := &backend{}
	o := newHTTPOutbox(t, store, b)
	ctx := context.Background()

	require.NoError(t, o.SubmitRegistration(ctx, models.Registration{DeviceID: "a", Status: "LOCKED"}))
	require.NoError(t, o.SubmitRegistration(ctx, models.Registration{DeviceID: "a", Status: "UNLOCKED"}))

	pending, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = o.Deliver(ctx)
	require.NoError(t, err)

	require.Len(t, b.got, 1)
	assert.Equal(t, "/api/devices/register", b.got[0].path)
	assert.Contains(t, string(b.got[0].body), `"UNLOCKED"`)
}

func TestPendingSurvivesRestart(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	offline := New(store, failingTransport{}, clock.Real(), logger.NewTestLogger(), time.Second)
	require.NoError(t, offline.SubmitSecurityEvent(ctx, models.SecurityEvent{Event: models.EventSIMChange}))
	require.NoError(t, offline.SubmitRegistration(ctx, models.Registration{DeviceID: "a"}))

	_, err := offline.Deliver(ctx)
	require.NoError(t, err)

	b := &backend{}
	restarted := newHTTPOutbox(t, store, b)

	res, err := restarted.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Delivered: 2}, res)
}

type failingTransport struct{}

func (failingTransport) Send(context.Context, models.PendingReport) error {
	return errors.New("network unreachable")
}

// supersedingTransport submits a newer registration while the old one is in flight.
type supersedingTransport struct {
	outbox *Outbox
	once   sync.Once
}

func (s *supersedingTransport) Send(ctx context.Context, _ models.PendingReport) error {
	s.once.Do(func() {
		_ = s.outbox.SubmitRegistration(ctx, models.Registration{DeviceID: "a", Status: "NEWER"})
	})

	return nil
}

func TestSupersedingRegistrationIsKept(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	transport := &supersedingTransport{}
	o := New(store, transport, clock.Real(), logger.NewTestLogger(), time.Second)
	transport.outbox = o

	require.NoError(t, o.SubmitRegistration(ctx, models.Registration{DeviceID: "a", Status: "OLDER"}))

	_, err := o.Deliver(ctx)
	require.NoError(t, err)

	pending, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, string(pending[0].Payload), "NEWER")
}

func TestRunDeliversOnTrigger(t *testing.T) {
	store := kv.NewMemoryStore()
	b := &backend{}
	o := newHTTPOutbox(t, store, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- o.Run(ctx, time.Hour) }()

	require.NoError(t, o.SubmitSecurityEvent(ctx, models.SecurityEvent{Event: models.EventSafeModeAttempt}))

	assert.Eventually(t, func() bool {
		pending, err := o.Pending(context.Background())
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	transport, err := NewHTTPTransport(HTTPTransportConfig{BaseURL: srv.URL, DeviceID: "x"})
	require.NoError(t, err)

	err = transport.Send(context.Background(), models.PendingReport{Kind: models.ReportRegistration, Payload: []byte(`{}`)})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)

	_, err = NewHTTPTransport(HTTPTransportConfig{})
	require.ErrorIs(t, err, errBaseURLRequired)
}
