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

// Package tokens holds the offline lock/unlock tokens that authenticate SMS commands.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/crypto/secrets"
	"github.com/carverauto/devicelock/pkg/hashutil"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

var (
	errSealedWithoutKey = errors.New("token record is sealed but no key is configured")
	errEmptyTokens      = errors.New("at least one token is required")
)

// sealedRecord is the at-rest form when a sealing key is configured.
type sealedRecord struct {
	Sealed string `json:"sealed"`
}

// Validator compares presented tokens against the provisioned pair.
type Validator struct {
	store  kv.Store
	cipher *secrets.Cipher
	clock  clock.Clock
	logger logger.Logger

	// writeMu serializes Set and Rotate so a rotation never works from a stale pair.
	writeMu sync.Mutex

	mu     sync.RWMutex
	cached *models.OfflineTokens
}

// NewValidator returns a validator persisting through store. cipher may be nil, in which
// case tokens are stored in the clear.
func NewValidator(store kv.Store, cipher *secrets.Cipher, clk clock.Clock, log logger.Logger) *Validator {
	if clk == nil {
		clk = clock.Real()
	}

	return &Validator{
		store:  store,
		cipher: cipher,
		clock:  clk,
		logger: log,
	}
}

// ValidateLock reports whether token matches the lock token. It is false when no token is set.
func (v *Validator) ValidateLock(ctx context.Context, token string) bool {
	return v.validate(ctx, token, func(t *models.OfflineTokens) string { return t.LockToken })
}

// ValidateUnlock reports whether token matches the unlock token.
func (v *Validator) ValidateUnlock(ctx context.Context, token string) bool {
	return v.validate(ctx, token, func(t *models.OfflineTokens) string { return t.UnlockToken })
}

func (v *Validator) validate(ctx context.Context, token string, pick func(*models.OfflineTokens) string) bool {
	current, err := v.load(ctx)
	if err != nil {
		v.logger.Error().Err(err).Msg("Failed to load offline tokens")

		return false
	}

	if current == nil {
		return false
	}

	expected := pick(current)
	if expected == "" || token == "" {
		return false
	}

	return hashutil.EqualSecret(expected, token)
}

// Provisioned reports whether a token pair has been stored.
func (v *Validator) Provisioned(ctx context.Context) (bool, error) {
	current, err := v.load(ctx)
	if err != nil {
		return false, err
	}

	return current != nil, nil
}

// Set replaces both tokens, as done at provisioning.
func (v *Validator) Set(ctx context.Context, t models.OfflineTokens) error {
	if t.LockToken == "" && t.UnlockToken == "" {
		return errEmptyTokens
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	return v.replace(ctx, t)
}

// replace persists t and refreshes the cache. Callers hold writeMu.
func (v *Validator) replace(ctx context.Context, t models.OfflineTokens) error {
	t.RotatedAt = v.clock.Now().UTC()

	if err := v.save(ctx, &t); err != nil {
		return err
	}

	v.mu.Lock()
	v.cached = &t
	v.mu.Unlock()

	return nil
}

// Rotate replaces the tokens on a backend command. Empty arguments keep the current value.
func (v *Validator) Rotate(ctx context.Context, lockToken, unlockToken string) error {
	if lockToken == "" && unlockToken == "" {
		return errEmptyTokens
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	current, err := v.load(ctx)
	if err != nil {
		return err
	}

	next := models.OfflineTokens{}
	if current != nil {
		next = *current
	}

	if lockToken != "" {
		next.LockToken = lockToken
	}

	if unlockToken != "" {
		next.UnlockToken = unlockToken
	}

	if err := v.replace(ctx, next); err != nil {
		return err
	}

	v.logger.Info().Msg("Offline tokens rotated")

	return nil
}

func (v *Validator) load(ctx context.Context) (*models.OfflineTokens, error) {
	v.mu.RLock()
	cached := v.cached
	v.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}

	data, found, err := v.store.Get(ctx, kv.KeyOfflineTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}

	if !found {
		return nil, nil
	}

	var sealed sealedRecord
	if err := json.Unmarshal(data, &sealed); err == nil && sealed.Sealed != "" {
		if v.cipher == nil {
			return nil, errSealedWithoutKey
		}

		data, err = v.cipher.Open(sealed.Sealed, kv.KeyOfflineTokens)
		if err != nil {
			return nil, err
		}
	}

	var t models.OfflineTokens
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// a write may have landed while the store was read
	if v.cached != nil {
		return v.cached, nil
	}

	v.cached = &t

	return &t, nil
}

func (v *Validator) save(ctx context.Context, t *models.OfflineTokens) error {
	if v.cipher == nil {
		return kv.PutJSON(ctx, v.store, kv.KeyOfflineTokens, t)
	}

	plain, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	sealed, err := v.cipher.Seal(plain, kv.KeyOfflineTokens)
	if err != nil {
		return err
	}

	return kv.PutJSON(ctx, v.store, kv.KeyOfflineTokens, sealedRecord{Sealed: sealed})
}
