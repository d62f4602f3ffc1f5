// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/phlip9/sgx-panic-backtrace/libpf/xsync"
)

func TestOnceValueConcurrentInit(t *testing.T) {
	once := xsync.OnceValue[int]{}
	calls := atomic.Int32{}
	barrier := make(chan struct{})
	var g errgroup.Group

	assert.Nil(t, once.Get())

	for range 100 {
		g.Go(func() error {
			<-barrier
			val, err := once.GetOrInit(func() (int, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				return err
			}
			assert.Equal(t, 42, val)
			return nil
		})
	}

	close(barrier)
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 42, *once.Get())
}

func TestOnceValueCachesError(t *testing.T) {
	once := xsync.OnceValue[string]{}
	someError := errors.New("oh no")
	calls := 0

	for range 3 {
		val, err := once.GetOrInit(func() (string, error) {
			calls++
			return "", someError
		})
		require.ErrorIs(t, err, someError)
		assert.Empty(t, val)
	}

	assert.Equal(t, 1, calls)
	assert.Nil(t, once.Get())
}

func TestOnceValueCachesPanic(t *testing.T) {
	once := xsync.OnceValue[int]{}
	calls := 0

	for range 2 {
		assert.NotPanics(t, func() {
			val, err := once.GetOrInit(func() (int, error) {
				calls++
				panic("init failure")
			})
			assert.ErrorIs(t, err, xsync.ErrInitPanicked)
			assert.ErrorContains(t, err, "init failure")
			assert.Zero(t, val)
		})
	}

	assert.Equal(t, 1, calls)
	assert.Nil(t, once.Get())
}
