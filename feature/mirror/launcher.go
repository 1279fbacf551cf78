package mirror

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Launcher starts a sync pass in another process and returns without
// waiting for it.
type Launcher interface {
	Launch(ctx context.Context) error
}

// ExecLauncher re-executes a binary with fixed arguments, detached from
// the caller's stdio.
type ExecLauncher struct {
	Path   string
	Args   []string
	Logger *zap.Logger
}

// NewExecLauncher launches the running executable as
// "<exe> [extra...] sync --background".
func NewExecLauncher(logger *zap.Logger, extra ...string) (*ExecLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	args := append(append([]string{}, extra...), "sync", "--background")
	return &ExecLauncher{Path: exe, Args: args, Logger: logger}, nil
}

// Launch starts the process. The child outlives ctx.
func (l *ExecLauncher) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(l.Path, l.Args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch background sync: %w", err)
	}
	pid := cmd.Process.Pid
	if l.Logger != nil {
		l.Logger.Debug("Launched background sync", zap.Int("pid", pid), zap.Strings("args", l.Args))
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
