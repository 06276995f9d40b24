// Package command provides a backend that runs shell commands to obscure and
// restore the display, for example "xset dpms force off" or a vendor tool.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend/command")

// Config configures the commands of the backend.
type Config struct {
	Enable  string        // run by Enable, required
	Disable string        // run by Disable, optional
	Shell   string        // defaults to /bin/sh
	Timeout time.Duration // per command, defaults to 5s
}

// Backend runs the configured commands through a shell.
type Backend struct {
	config Config
}

// Compile-time interface check.
var _ privacy.IBackend = (*Backend)(nil)

// New creates a command backend. The enable command is required.
func New(config Config) (*Backend, error) {
	if strings.TrimSpace(config.Enable) == "" {
		return nil, fmt.Errorf("command backend: enable command is empty")
	}
	if config.Shell == "" {
		config.Shell = "/bin/sh"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Backend{config: config}, nil
}

func (b *Backend) Enable() error {
	return b.run(b.config.Enable)
}

func (b *Backend) Disable() error {
	if strings.TrimSpace(b.config.Disable) == "" {
		return nil
	}
	return b.run(b.config.Disable)
}

// run executes script with the configured shell and returns an error
// containing the command output if it exits non-zero or times out
func (b *Backend) run(script string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.config.Timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, b.config.Shell, "-c", script)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second // children of the shell may keep the pipes open

	start := time.Now()
	err := cmd.Run()
	Logger.Debugf("ran %q in %s", script, time.Since(start))

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("command %q timed out after %s", script, b.config.Timeout)
	}
	if err != nil {
		return fmt.Errorf("command %q failed: %w (output: %s)", script, err, strings.TrimSpace(out.String()))
	}
	return nil
}
