package stripe

import (
	"sync"
)

// LockManager manages per-user locks to prevent concurrent order processing
// for the same user while allowing parallel processing for different users
type LockManager struct {
	locks sync.Map // map[uint64]*sync.Mutex
}

// NewLockManager creates a new lock manager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// LockUser acquires a lock for the given user ID
// Returns a function that must be called to release the lock
func (lm *LockManager) LockUser(userID uint64) func() {
	// Get or create a mutex for this user
	lockInterface, _ := lm.locks.LoadOrStore(userID, &sync.Mutex{})
	lock, ok := lockInterface.(*sync.Mutex)
	if !ok {
		// This should never happen if we only store *sync.Mutex values
		panic("unexpected type in lock manager")
	}

	// Acquire the lock
	lock.Lock()

	// Return unlock function
	return func() {
		lock.Unlock()
	}
}

// CleanupLocks removes locks that are not currently held. Can be called
// periodically to keep the map from growing with inactive users.
func (lm *LockManager) CleanupLocks() {
	lm.locks.Range(func(key, value any) bool {
		lock, ok := value.(*sync.Mutex)
		if !ok {
			// This should never happen if we only store *sync.Mutex values
			return true
		}
		// Try to acquire the lock without blocking
		if lock.TryLock() {
			// If we can acquire it, it's not in use, so we can remove it
			lock.Unlock()
			lm.locks.Delete(key)
		}
		return true
	})
}
