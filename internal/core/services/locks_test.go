package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

func TestDocumentLocks_SerialisesOneDocument(t *testing.T) {
	locks := NewDocumentLocks()
	id := domain.NewDocumentID()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), id)
			require.NoError(t, err)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locks.Len(), "entries are dropped once released")
}

func TestDocumentLocks_DifferentDocumentsDoNotContend(t *testing.T) {
	locks := NewDocumentLocks()

	unlockA, err := locks.Lock(context.Background(), domain.NewDocumentID())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locks.Lock(ctx, domain.NewDocumentID())
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, locks.Len())
}

func TestDocumentLocks_ContextCancelled(t *testing.T) {
	locks := NewDocumentLocks()
	id := domain.NewDocumentID()

	unlock, err := locks.Lock(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, id)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.Len(), "the holder keeps its entry")

	unlock()
	assert.Zero(t, locks.Len())
}

func TestDocumentLocks_UnlockIsIdempotent(t *testing.T) {
	locks := NewDocumentLocks()
	id := domain.NewDocumentID()

	unlock, err := locks.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock()
	unlock()

	again, err := locks.Lock(context.Background(), id)
	require.NoError(t, err)
	again()
	assert.Zero(t, locks.Len())
}
