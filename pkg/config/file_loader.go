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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxConfigFileSize = 1 << 20

var (
	errConfigWritable  = errors.New("config file is writable by group or others")
	errConfigTooLarge  = errors.New("config file is too large")
	errTrailingContent = errors.New("unexpected content after config object")
)

// FileConfigLoader loads configuration from a local JSON file. The file holds
// backend credentials and the secrets key, so it must not be writable by
// anyone but its owner, and unknown fields are rejected.
type FileConfigLoader struct {
	// AllowWritable skips the permission check.
	AllowWritable bool
}

// Load implements ConfigLoader. A missing file is an error; the agent has no built-in identity.
func (l *FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", path, err)
	}

	if !l.AllowWritable && info.Mode().Perm()&0o022 != 0 {
		return fmt.Errorf("%w: %s (%s)", errConfigWritable, path, info.Mode().Perm())
	}

	data, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%w: %s", errConfigTooLarge, path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	if dec.More() {
		return fmt.Errorf("%w: %s", errTrailingContent, path)
	}

	return nil
}
