// Package lock provides the sync lock: one sync pass per host at a time.
//
// The lock is an advisory file lock (gofrs/flock). Foreground callers wait
// for it with Acquire, which polls at a short fixed interval. Background
// callers use TryAcquire and skip their pass when it is held, since the sync
// already in flight produces an equally fresh result.
package lock
