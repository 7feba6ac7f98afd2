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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devicelock/pkg/agent"
	"github.com/carverauto/devicelock/pkg/channel"
	"github.com/carverauto/devicelock/pkg/models"
)

func TestParseFlags(t *testing.T) {
	t.Setenv(envIngressAddr, "")
	t.Setenv(envIngressAPIKey, "env-key")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, cfg *CmdConfig)
	}{
		{
			name: "no args shows help",
			args: nil,
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.True(t, cfg.Help)
				assert.Equal(t, defaultAddr, cfg.Addr)
				assert.Equal(t, "env-key", cfg.APIKey)
			},
		},
		{
			name: "sms flags",
			args: []string{"-addr", "127.0.0.1:9000", "sms", "-sender", "+15550100", "-body", "LOCK:abc"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.Equal(t, "sms", cfg.SubCmd)
				assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
				assert.Equal(t, "+15550100", cfg.Sender)
				assert.Equal(t, "LOCK:abc", cfg.Body)
			},
		},
		{
			name: "command is upper-cased",
			args: []string{"command", "-params", "now", "emi_lock"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.Equal(t, "EMI_LOCK", cfg.Command)
				assert.Equal(t, "now", cfg.Params)
			},
		},
		{name: "unknown subcommand", args: []string{"reboot"}, wantErr: errUnknownSubcommand},
		{name: "sms without body", args: []string{"sms"}, wantErr: errMissingArgument},
		{name: "sim without iccid", args: []string{"sim"}, wantErr: errMissingArgument},
		{name: "provision without tokens", args: []string{"provision", "-lock-token", "a"}, wantErr: errMissingArgument},
		{name: "command without name", args: []string{"command"}, wantErr: errMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseFlags(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestRunStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		_ = json.NewEncoder(w).Encode(agent.Status{
			DeviceID:    "dev-1",
			Provisioned: true,
			State:       "locked",
			LockState: &models.LockState{
				Locked:      true,
				LockReason:  models.LockReasonRemote,
				LockMessage: "Payment overdue",
			},
			PendingCommand: 2,
		})
	}))
	defer srv.Close()

	var out bytes.Buffer

	err := Run(context.Background(), &CmdConfig{SubCmd: "status", Addr: srv.URL, APIKey: "secret"}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "dev-1")
	assert.Contains(t, text, "locked")
	assert.Contains(t, text, "Payment overdue")
	assert.Contains(t, text, "never")
}

func TestRunStatusJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"deviceId":"dev-1","provisioned":false,"state":"unprovisioned","pendingCommands":0,"pendingReports":0}`))
	}))
	defer srv.Close()

	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{SubCmd: "status", Addr: srv.URL, JSON: true}, &out))

	var decoded agent.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "dev-1", decoded.DeviceID)
	assert.False(t, decoded.Provisioned)
}

func TestRunAudit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]channel.AuditEntry{
			{Sender: "+15550100", Command: models.CommandLock, Accepted: true},
			{Sender: "+15550199", Command: models.CommandUnlock, Reason: "invalid token"},
		})
	}))
	defer srv.Close()

	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{SubCmd: "audit", Addr: srv.URL}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "accepted")
	assert.Contains(t, lines[1], "invalid token")
}

func TestRunPostsBodies(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		switch r.URL.Path {
		case "/v1/sms":
			_, _ = w.Write([]byte(`{"accepted":true}`))
		case "/v1/sim":
			_, _ = w.Write([]byte(`{"tamper":true}`))
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer

	cfg := &CmdConfig{SubCmd: "sms", Addr: srv.URL, Sender: "+1", Body: "LOCK:abc"}
	require.NoError(t, Run(context.Background(), cfg, &out))
	assert.Equal(t, "LOCK:abc", got["body"])
	assert.Contains(t, out.String(), "accepted")

	out.Reset()

	cfg = &CmdConfig{SubCmd: "sim", Addr: srv.URL, ICCID: "8901"}
	require.NoError(t, Run(context.Background(), cfg, &out))
	assert.Equal(t, "8901", got["iccid"])
	assert.Contains(t, out.String(), "SIM change detected")

	out.Reset()

	cfg = &CmdConfig{SubCmd: "command", Addr: srv.URL, Command: "ALARM", Params: "30"}
	require.NoError(t, Run(context.Background(), cfg, &out))
	assert.Equal(t, "ALARM", got["command"])
	assert.Equal(t, "30", got["params"])
	assert.Contains(t, out.String(), "ALARM queued")
}

func TestRunReportsIngressErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "already provisioned", http.StatusConflict)
	}))
	defer srv.Close()

	cfg := &CmdConfig{SubCmd: "provision", Addr: srv.URL, LockToken: "a", UnlockToken: "b"}

	err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.ErrorIs(t, err, errIngressStatus)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "already provisioned")
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &CmdConfig{Help: true}, &out))
	assert.Contains(t, out.String(), "Subcommands:")
}

func TestNewClientAddsScheme(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8765", newClient(&CmdConfig{Addr: "127.0.0.1:8765"}).baseURL)
	assert.Equal(t, "https://agent.local", newClient(&CmdConfig{Addr: "https://agent.local/"}).baseURL)
}
