package reservation

import (
    "context"
    "sync"
    "time"
)

// RoomLocks is an in-process registry of per-room exclusive locks.  The
// reservation manager holds a room's lock for the whole check-then-
// insert sequence so two goroutines can never interleave their
// availability check and booking insert for the same room.  Locks are
// scoped to a single room and are never nested, so lock ordering and
// deadlock are not a concern; reservations on different rooms proceed
// in parallel.
//
// The database row lock taken via SELECT ... FOR UPDATE serializes
// writers across processes; this registry adds a bounded wait on top of
// it so a contended reservation fails fast with ErrBusy instead of
// queueing on the database.
type RoomLocks struct {
    mu    sync.Mutex
    locks map[uint64]chan struct{}
}

// NewRoomLocks returns an empty lock registry.
func NewRoomLocks() *RoomLocks {
    return &RoomLocks{locks: make(map[uint64]chan struct{})}
}

// sem returns the room's semaphore channel, creating it on first use.
// Entries are kept for the life of the process; the map is bounded by
// the number of rooms ever reserved.
func (l *RoomLocks) sem(roomID uint64) chan struct{} {
    l.mu.Lock()
    defer l.mu.Unlock()
    s, ok := l.locks[roomID]
    if !ok {
        s = make(chan struct{}, 1)
        l.locks[roomID] = s
    }
    return s
}

// Acquire takes the exclusive lock for a room, waiting at most wait.
// It returns a release function on success and ErrBusy when the lock
// could not be obtained in time.  Context cancellation also aborts the
// wait.  The release function is idempotent and must be called on
// every exit path.
func (l *RoomLocks) Acquire(ctx context.Context, roomID uint64, wait time.Duration) (func(), error) {
    s := l.sem(roomID)
    timer := time.NewTimer(wait)
    defer timer.Stop()
    select {
    case s <- struct{}{}:
        var once sync.Once
        return func() { once.Do(func() { <-s }) }, nil
    case <-timer.C:
        return nil, ErrBusy
    case <-ctx.Done():
        return nil, ctx.Err()
    }
}
