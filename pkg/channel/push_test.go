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
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devicelock/pkg/logger"
)

func startNATS(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()

	t.Cleanup(ns.Shutdown)

	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")

	return ns
}

func TestNATSSubscriberDispatches(t *testing.T) {
	ns := startNATS(t)
	d := &recordingDispatcher{}

	sub, err := NewNATSSubscriber(NATSConfig{URL: ns.ClientURL(), DeviceID: "dev-1"}, d, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "devices.dev-1.commands", sub.Subject())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- sub.Run(ctx) }()

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)

	defer nc.Close()

	// the subscription is live once a request gets its reply
	var reply *nats.Msg

	require.Eventually(t, func() bool {
		reply, err = nc.Request(sub.Subject(), []byte(`{"command":"lock"}`), 200*time.Millisecond)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, "ok", string(reply.Data))
	require.NotEmpty(t, d.commands())
	assert.Equal(t, "lock", d.commands()[0].Command)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestNATSSubscriberRequiresURL(t *testing.T) {
	_, err := NewNATSSubscriber(NATSConfig{}, &recordingDispatcher{}, logger.NewTestLogger())
	require.ErrorIs(t, err, errNatsURLRequired)
}

func TestMQTTSubscriberConfig(t *testing.T) {
	d := &recordingDispatcher{}

	sub, err := NewMQTTSubscriber(MQTTConfig{Broker: "tcp://127.0.0.1:1883", DeviceID: "dev-1"}, d, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "devices/dev-1/commands", sub.Topic())
	assert.Equal(t, "devicelock-dev-1", sub.cfg.ClientID)

	sub.handle(context.Background(), sub.Topic(), []byte(`{"command":"alarm"}`))
	sub.handle(context.Background(), sub.Topic(), []byte(`garbage`))

	require.Len(t, d.commands(), 1)
	assert.Equal(t, "alarm", d.commands()[0].Command)

	_, err = NewMQTTSubscriber(MQTTConfig{}, d, logger.NewTestLogger())
	require.ErrorIs(t, err, errBrokerRequired)
}

func TestMQTTSubscriberStopsOnCancel(t *testing.T) {
	sub, err := NewMQTTSubscriber(MQTTConfig{
		Broker:         "tcp://127.0.0.1:1",
		DeviceID:       "dev-1",
		ConnectTimeout: 100 * time.Millisecond,
	}, &recordingDispatcher{}, logger.NewTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = sub.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
