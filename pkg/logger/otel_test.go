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

package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}

	return nil
}

func (*recordingExporter) Shutdown(context.Context) error   { return nil }
func (*recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) exported() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]sdklog.Record(nil), e.records...)
}

func attributes(r sdklog.Record) map[string]string {
	out := make(map[string]string)

	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value.AsString()
		return true
	})

	return out
}

func TestOTelOffByDefault(t *testing.T) {
	t.Setenv("OTEL_LOGS_ENABLED", "")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "")

	config := DefaultConfig()

	assert.False(t, config.OTel.Enabled)
	assert.Equal(t, defaultServiceName, config.OTel.ServiceName)
	assert.Equal(t, defaultBatchTimeout, time.Duration(config.OTel.BatchTimeout))
}

func TestOTelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_LOGS_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-tenant = fleet-a,x-token=abc")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "2s")

	config := DefaultOTelConfig()

	assert.True(t, config.Enabled)
	assert.Equal(t, "collector:4317", config.Endpoint)
	assert.Equal(t, map[string]string{"x-tenant": "fleet-a", "x-token": "abc"}, config.Headers)
	assert.Equal(t, 2*time.Second, time.Duration(config.BatchTimeout))
}

func TestNewOTelWriterValidation(t *testing.T) {
	w, err := NewOTelWriter(context.Background(), OTelConfig{})
	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, w)

	w, err = NewOTelWriter(context.Background(), OTelConfig{Enabled: true})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, w)
}

func TestNewFailsWhenOTelMisconfigured(t *testing.T) {
	_, err := New(&Config{Level: "info", OTel: OTelConfig{Enabled: true}})
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestOTelWriterForwardsLines(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	w := newOTelWriter(context.Background(), provider)

	zl := zerolog.New(w).With().Timestamp().Str("component", "lockstate").Logger()
	zl.Warn().Str("reason", "SIM_CHANGE").Int("attempt", 2).Msg("Lock state changed")

	records := exp.exported()
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Lock state changed", r.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, r.Severity())
	assert.Equal(t, "warn", r.SeverityText())
	assert.Equal(t, "lockstate", r.InstrumentationScope().Name)
	assert.False(t, r.Timestamp().IsZero())
	assert.Equal(t, map[string]string{"reason": "SIM_CHANGE", "attempt": "2"}, attributes(r))
}

func TestOTelWriterDropsNonJSON(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	w := newOTelWriter(context.Background(), provider)

	n, err := w.Write([]byte("plain text\n"))
	require.NoError(t, err)
	assert.Equal(t, len("plain text\n"), n)
	assert.Empty(t, exp.exported())
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	long := "é" + string(make([]byte, maxAttributeLength))

	out := truncate(long, maxAttributeLength)

	assert.Len(t, out, maxAttributeLength)
	assert.Equal(t, "...", out[len(out)-3:])
}
