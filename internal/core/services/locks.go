package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// DocumentLocks serialises writes per document. Different documents never
// contend; entries are dropped once no goroutine holds or waits for them.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[domain.DocumentID]*documentLock
}

type documentLock struct {
	sem  chan struct{}
	refs int
}

// NewDocumentLocks creates an empty lock table.
func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{locks: make(map[domain.DocumentID]*documentLock)}
}

// Lock blocks until the document's lock is held or ctx is done.
// The returned unlock function is safe to call more than once.
func (l *DocumentLocks) Lock(ctx context.Context, id domain.DocumentID) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[id]
	if !ok {
		dl = &documentLock{sem: make(chan struct{}, 1)}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, dl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-dl.sem
			l.release(id, dl)
		})
	}, nil
}

// Len returns the number of documents currently locked or awaited.
func (l *DocumentLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *DocumentLocks) release(id domain.DocumentID, dl *documentLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, id)
	}
}
