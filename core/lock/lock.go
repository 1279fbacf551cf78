package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"
)

// DefaultPollInterval is how often a waiting caller retries the lock.
const DefaultPollInterval = 100 * time.Millisecond

// ErrNotHeld is returned when releasing a lock this handle does not own.
var ErrNotHeld = errors.New("sync lock not held")

// Lock is a host-wide mutual exclusion guard backed by an advisory file lock.
// The file holds the PID of the owning process while locked. A single handle
// is safe for concurrent use: callers sharing it exclude each other too.
type Lock struct {
	path string
	poll time.Duration
	fl   *flock.Flock
	// sem guards fl within the process; flock re-grants a handle it holds.
	sem *semaphore.Weighted
}

// New creates a lock handle for path. A non-positive poll interval falls back
// to DefaultPollInterval.
func New(path string, poll time.Duration) *Lock {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Lock{path: path, poll: poll, fl: flock.New(path), sem: semaphore.NewWeighted(1)}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock without waiting. It returns false when another
// holder (in this or any other process) owns it.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	if !l.sem.TryAcquire(1) {
		return false, nil
	}

	locked, err := l.fl.TryLock()
	if err != nil {
		l.sem.Release(1)
		return false, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !locked {
		l.sem.Release(1)
		return false, nil
	}
	if err := l.writeOwner(); err != nil {
		l.unlock()
		return false, err
	}
	return true, nil
}

// Acquire waits until the lock is free, polling at a fixed interval.
// It returns the context error if ctx ends first.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring sync lock: %w", err)
	}

	locked, err := l.fl.TryLockContext(ctx, l.poll)
	if err != nil {
		l.sem.Release(1)
		return fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !locked {
		l.sem.Release(1)
		return fmt.Errorf("acquiring sync lock: %w", ctx.Err())
	}
	if err := l.writeOwner(); err != nil {
		l.unlock()
		return err
	}
	return nil
}

// Release clears the owner PID and unlocks.
func (l *Lock) Release() error {
	if !l.fl.Locked() {
		return ErrNotHeld
	}
	// Clear before unlocking so a stale PID is never observed as the owner.
	if err := os.Truncate(l.path, 0); err != nil {
		l.unlock()
		return fmt.Errorf("failed to clear lock owner: %w", err)
	}
	return l.unlock()
}

func (l *Lock) unlock() error {
	defer l.sem.Release(1)
	return l.fl.Unlock()
}

// Owner returns the PID recorded in the lock file, or 0 when the lock is free.
func (l *Lock) Owner() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read lock owner: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("malformed lock owner %q: %w", text, err)
	}
	return pid, nil
}

func (l *Lock) writeOwner() error {
	pid := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(l.path, []byte(pid), 0o644); err != nil {
		return fmt.Errorf("failed to record lock owner: %w", err)
	}
	return nil
}
