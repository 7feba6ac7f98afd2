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

package kv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()

	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		val, found, err := s.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, KeyLockState, []byte(`{"locked":true}`)))

		val, found, err := s.Get(ctx, KeyLockState)
		require.NoError(t, err)
		assert.True(t, found)
		assert.JSONEq(t, `{"locked":true}`, string(val))
	})

	t.Run("put replaces whole record", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, KeyCommandQueue, []byte(`[1,2,3,4,5]`)))
		require.NoError(t, s.Put(ctx, KeyCommandQueue, []byte(`[]`)))

		val, found, err := s.Get(ctx, KeyCommandQueue)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[]`, string(val))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, KeySMSAudit, []byte(`[]`)))
		require.NoError(t, s.Delete(ctx, KeySMSAudit))

		_, found, err := s.Get(ctx, KeySMSAudit)
		require.NoError(t, err)
		assert.False(t, found)

		// deleting again is not an error
		require.NoError(t, s.Delete(ctx, KeySMSAudit))
	})

	t.Run("json helpers", func(t *testing.T) {
		type sample struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}

		require.NoError(t, PutJSON(ctx, s, KeyTamperBaseline, sample{Name: "x", Count: 2}))

		var got sample

		found, err := GetJSON(ctx, s, KeyTamperBaseline, &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, sample{Name: "x", Count: 2}, got)

		found, err = GetJSON(ctx, s, KeyOfflineTokens, &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	runStoreContract(t, s)

	require.NoError(t, s.Close())

	_, _, err := s.Get(context.Background(), KeyLockState)
	assert.ErrorIs(t, err, errStoreClosed)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	runStoreContract(t, s)
	require.NoError(t, s.Close())
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, KeyLockState, []byte(`{"locked":true}`)))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	val, found, err := reopened.Get(ctx, KeyLockState)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"locked":true}`, string(val))
}

func TestFileStoreRejectsBadKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "UPPER", "a/b"} {
		err := s.Put(context.Background(), key, []byte("x"))
		assert.ErrorIs(t, err, errInvalidKey, "key %q", key)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	runStoreContract(t, s)
}

func TestNatsStore(t *testing.T) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()

	defer ns.Shutdown()

	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")

	s, err := NewNatsStore(context.Background(), ns.ClientURL(), "devicelock-test", "")
	require.NoError(t, err)

	defer func() { _ = s.Close() }()

	runStoreContract(t, s)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "defaults to file",
			cfg:  Config{},
			check: func(t *testing.T, c *Config) {
				t.Helper()
				assert.Equal(t, BackendFile, c.Backend)
				assert.NotEmpty(t, c.Path)
			},
		},
		{
			name: "sqlite default path",
			cfg:  Config{Backend: BackendSQLite},
			check: func(t *testing.T, c *Config) {
				t.Helper()
				assert.Equal(t, "state.db", filepath.Base(c.Path))
			},
		},
		{
			name:    "nats needs url",
			cfg:     Config{Backend: BackendNATS},
			wantErr: errNatsURLRequired,
		},
		{
			name: "nats default bucket",
			cfg:  Config{Backend: BackendNATS, NATSURL: "nats://127.0.0.1:4222"},
			check: func(t *testing.T, c *Config) {
				t.Helper()
				assert.Equal(t, defaultBucket, c.Bucket)
			},
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "etcd"},
			wantErr: errUnknownBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			tt.check(t, &cfg)
		})
	}
}

func TestNewMemoryBackend(t *testing.T) {
	s, err := New(context.Background(), &Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
