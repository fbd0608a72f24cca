package store

import (
	"context"
	"sync"
)

// LockRegistry hands out one mutex per tournament id, so concurrent writes
// to different tournaments never block each other while writes to the same
// tournament serialize (spec.md §5). Grounded on the per-resource
// sync.Map-of-locks idiom; the teacher instead relies on a Postgres
// advisory lock (db/db.go's pg_try_advisory_xact_lock), which has no
// equivalent once SQLite replaces Postgres, so the lock moves in-process.
type LockRegistry struct {
	locks sync.Map // tournamentID int64 -> *sync.Mutex
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{}
}

func (r *LockRegistry) mutexFor(tournamentID int64) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(tournamentID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Acquire blocks until the tournament's lock is held or ctx is done,
// returning a release function. Callers must defer the release.
func (r *LockRegistry) Acquire(ctx context.Context, tournamentID int64) (func(), error) {
	mu := r.mutexFor(tournamentID)

	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return mu.Unlock, nil
	case <-ctx.Done():
		// The goroutine above may still acquire mu later; unlock it
		// immediately once it does so the mutex isn't leaked held forever.
		go func() {
			<-done
			mu.Unlock()
		}()
		return nil, ctx.Err()
	}
}
