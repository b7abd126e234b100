package e2e

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/fireapache/flutterreflect-e2e/internal/config"
)

// ServerRunner executes the flutter_reflect binary, either as a long-lived
// MCP server on stdio or as one-shot CLI commands. The binary location is
// discovered through Settings (environment override first, then known
// build-output directories).
type ServerRunner struct {
	settings *config.Settings
	binary   string
}

// Binary returns the resolved executable path.
func (r *ServerRunner) Binary() string {
	return r.binary
}

// Start launches the binary in MCP server mode and wires an MCPClient to
// its stdio. Stderr is inherited so server-side logs interleave with test
// output instead of deadlocking a full pipe.
func (r *ServerRunner) Start(ctx context.Context) (*MCPClient, error) {
	cmd := exec.CommandContext(ctx, r.binary)
	cmd.Dir = r.settings.ProjectRoot
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open server stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open server stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %q", r.binary)
	}

	return NewMCPClient(
		cmd,
		stdin,
		bufio.NewReader(stdout),
		r.settings.CallTimeout,
		r.settings.InitializeTimeout,
		r.settings.ShutdownGrace,
	), nil
}

// RunCLI executes the binary in one-shot CLI mode, e.g.
// "flutter_reflect get_tree --max-depth 5 --format json", capturing
// combined output for assertions.
func (r *ServerRunner) RunCLI(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.settings.ProjectRoot
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf(
			"command %q failed: %w\nstdout: %s\nstderr: %s",
			cmd.String(), err, stdout.String(), stderr.String(),
		)
	}
	return stdout.String(), nil
}

// NewServerRunner resolves the inspector binary and returns a runner for
// it. Returns an error when the binary cannot be found anywhere; suites
// treat that as a skip, not a failure.
func NewServerRunner(settings *config.Settings) (*ServerRunner, error) {
	binary := settings.FindExecutable()
	if binary == "" {
		return nil, errors.Errorf(
			"flutter_reflect binary not found: set %s or build the project",
			config.ExecutableEnv,
		)
	}
	return &ServerRunner{settings: settings, binary: binary}, nil
}
