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

package tokens

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devicelock/pkg/clock"
	"github.com/carverauto/devicelock/pkg/crypto/secrets"
	"github.com/carverauto/devicelock/pkg/kv"
	"github.com/carverauto/devicelock/pkg/logger"
	"github.com/carverauto/devicelock/pkg/models"
)

func newValidator(t *testing.T, store kv.Store, cipher *secrets.Cipher) *Validator {
	t.Helper()

	ctrl := gomock.NewController(t)
	clk := clock.NewMockClock(ctrl)
	clk.EXPECT().Now().Return(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)).AnyTimes()

	return NewValidator(store, cipher, clk, logger.NewTestLogger())
}

func TestValidateBeforeProvisioning(t *testing.T) {
	v := newValidator(t, kv.NewMemoryStore(), nil)
	ctx := context.Background()

	assert.False(t, v.ValidateLock(ctx, "123456"))
	assert.False(t, v.ValidateUnlock(ctx, "654321"))
	assert.False(t, v.ValidateLock(ctx, ""))

	ok, err := v.Provisioned(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateAfterSet(t *testing.T) {
	v := newValidator(t, kv.NewMemoryStore(), nil)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, models.OfflineTokens{LockToken: "123456", UnlockToken: "654321"}))

	assert.True(t, v.ValidateLock(ctx, "123456"))
	assert.False(t, v.ValidateLock(ctx, "654321"))
	assert.False(t, v.ValidateLock(ctx, "WRONGTOKEN"))
	assert.True(t, v.ValidateUnlock(ctx, "654321"))
	assert.False(t, v.ValidateUnlock(ctx, "123456"))
	assert.False(t, v.ValidateUnlock(ctx, ""))
}

func TestRotateKeepsUnsetToken(t *testing.T) {
	store := kv.NewMemoryStore()
	v := newValidator(t, store, nil)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, models.OfflineTokens{LockToken: "111111", UnlockToken: "222222"}))
	require.NoError(t, v.Rotate(ctx, "333333", ""))

	assert.False(t, v.ValidateLock(ctx, "111111"))
	assert.True(t, v.ValidateLock(ctx, "333333"))
	assert.True(t, v.ValidateUnlock(ctx, "222222"))

	// a fresh validator over the same store sees the rotated pair
	reloaded := newValidator(t, store, nil)
	assert.True(t, reloaded.ValidateLock(ctx, "333333"))

	require.ErrorIs(t, v.Rotate(ctx, "", ""), errEmptyTokens)
}

func TestSealedTokens(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	c, err := secrets.NewCipher(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	v := newValidator(t, store, c)
	require.NoError(t, v.Set(ctx, models.OfflineTokens{LockToken: "123456", UnlockToken: "654321"}))

	raw, found, err := store.Get(ctx, kv.KeyOfflineTokens)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, string(raw), "123456")

	reloaded := newValidator(t, store, c)
	assert.True(t, reloaded.ValidateLock(ctx, "123456"))

	noKey := newValidator(t, store, nil)
	assert.False(t, noKey.ValidateLock(ctx, "123456"))

	_, err = noKey.Provisioned(ctx)
	require.ErrorIs(t, err, errSealedWithoutKey)
}

func TestStoreFailureRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := kv.NewMockStore(ctrl)
	store.EXPECT().Get(gomock.Any(), kv.KeyOfflineTokens).Return(nil, false, errors.New("disk gone"))

	v := newValidator(t, store, nil)
	assert.False(t, v.ValidateLock(context.Background(), "123456"))
}

// slowStore widens the window between reading and writing the token record.
type slowStore struct {
	kv.Store
}

func (s slowStore) Put(ctx context.Context, key string, value []byte) error {
	time.Sleep(2 * time.Millisecond)

	return s.Store.Put(ctx, key, value)
}

func TestConcurrentRotationsKeepBothTokens(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		t.Run(fmt.Sprintf("round-%d", i), func(t *testing.T) {
			v := newValidator(t, slowStore{Store: kv.NewMemoryStore()}, nil)
			require.NoError(t, v.Set(ctx, models.OfflineTokens{LockToken: "111111", UnlockToken: "222222"}))

			var wg sync.WaitGroup

			wg.Add(2)

			go func() {
				defer wg.Done()
				assert.NoError(t, v.Rotate(ctx, "333333", ""))
			}()

			go func() {
				defer wg.Done()
				assert.NoError(t, v.Rotate(ctx, "", "444444"))
			}()

			wg.Wait()

			assert.True(t, v.ValidateLock(ctx, "333333"))
			assert.True(t, v.ValidateUnlock(ctx, "444444"))
		})
	}
}
