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
	"fmt"
	"path/filepath"

	"github.com/nats-io/nats.go"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNATS   = "nats"
	BackendMemory = "memory"

	defaultDataDir = "/data/local/devicelock"
	defaultBucket  = "devicelock"
)

// Config selects and parameterizes the store backend.
type Config struct {
	Backend   string `json:"backend"`
	Path      string `json:"path,omitempty"`       // directory (file) or database file (sqlite)
	NATSURL   string `json:"nats_url,omitempty"`   // nats backend only
	Bucket    string `json:"bucket,omitempty"`     // KV bucket name
	Domain    string `json:"domain,omitempty"`     // Optional JetStream domain
	CredsFile string `json:"creds_file,omitempty"` // Optional NATS user credentials
}

// Validate fills defaults and checks backend specific requirements.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}

	switch c.Backend {
	case BackendFile:
		if c.Path == "" {
			c.Path = filepath.Join(defaultDataDir, "state")
		}
	case BackendSQLite:
		if c.Path == "" {
			c.Path = filepath.Join(defaultDataDir, "state.db")
		}
	case BackendNATS:
		if c.NATSURL == "" {
			return errNatsURLRequired
		}

		if c.Bucket == "" {
			c.Bucket = defaultBucket
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %s", errUnknownBackend, c.Backend)
	}

	return nil
}

// New opens the store described by cfg.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendNATS:
		var opts []nats.Option
		if cfg.CredsFile != "" {
			opts = append(opts, nats.UserCredentials(cfg.CredsFile))
		}

		if cfg.Bucket == "" {
			return nil, errBucketRequired
		}

		return NewNatsStore(ctx, cfg.NATSURL, cfg.Bucket, cfg.Domain, opts...)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return NewFileStore(cfg.Path)
	}
}
