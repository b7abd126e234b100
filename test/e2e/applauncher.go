package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fireapache/flutterreflect-e2e/internal/config"
)

// AppLauncher manages the sample Flutter app for interaction tests. When
// the app is already running on the configured port it is left alone;
// otherwise the launcher spawns "flutter run" and tears it down again at
// the end of the session. Only processes the launcher itself spawned are
// terminated.
type AppLauncher struct {
	settings *config.Settings
	log      *logrus.Logger

	cmd     *exec.Cmd
	exited  chan error
	spawned bool

	// termGrace bounds the wait between interrupt and forced kill.
	termGrace time.Duration
}

// IsRunning reports whether anything is listening on the VM service port.
func (l *AppLauncher) IsRunning() bool {
	addr := fmt.Sprintf("127.0.0.1:%d", l.settings.AppPort)
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// ProbeVMService dials the VM service WebSocket endpoint and immediately
// closes it. An open TCP port alone does not mean the Dart VM is ready to
// serve the inspector protocol.
func (l *AppLauncher) ProbeVMService(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.settings.AppURI(), nil)
	if err != nil {
		return errors.Wrapf(err, "VM service not ready at %s", l.settings.AppURI())
	}
	return conn.Close()
}

// Launch ensures the sample app is running, spawning it when needed and
// blocking until the VM service accepts WebSocket connections or the
// startup timeout elapses.
func (l *AppLauncher) Launch(ctx context.Context) error {
	if l.IsRunning() {
		l.log.Infof("Flutter app already running on port %d", l.settings.AppPort)
		return nil
	}

	dir := l.settings.SampleAppDir()
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(err, "sample app project not found at %q", dir)
	}

	l.log.WithFields(logrus.Fields{
		"project": dir,
		"port":    l.settings.AppPort,
		"device":  l.settings.FlutterDevice,
	}).Info("spawning Flutter app")

	cmd := exec.Command("flutter", "run",
		"-d", l.settings.FlutterDevice,
		fmt.Sprintf("--vm-service-port=%d", l.settings.AppPort),
		"--disable-service-auth-codes",
	)
	cmd.Dir = dir
	cmd.Stdout = l.log.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = l.log.WriterLevel(logrus.DebugLevel)

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to spawn flutter run")
	}
	l.cmd = cmd
	l.spawned = true
	l.log.Infof("Flutter process started (PID %d)", cmd.Process.Pid)

	// Reap the process in the background so waitReady can detect an early
	// exit without blocking on Wait itself.
	l.exited = make(chan error, 1)
	go func() {
		err := cmd.Wait()
		l.exited <- err
		close(l.exited)
	}()

	if err := l.waitReady(ctx); err != nil {
		l.Terminate()
		return err
	}
	return nil
}

// waitReady polls the VM service port until it answers, the process dies,
// or the startup timeout elapses. Flutter tooling opens the port slightly
// before the VM is usable, so an extra settle-and-recheck follows the
// first successful probe.
func (l *AppLauncher) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(l.settings.AppStartupTimeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	l.log.Info("waiting for VM service to be ready")
	for time.Now().Before(deadline) {
		select {
		case err := <-l.exited:
			return errors.Errorf(
				"flutter run exited before VM service came up: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !l.IsRunning() {
			continue
		}
		time.Sleep(2 * time.Second)
		if !l.IsRunning() {
			continue
		}

		// Port is stable; confirm the WebSocket endpoint answers too.
		return RetryWithTimeout(ctx, 5, 2*time.Second, time.Second,
			func(ctx context.Context) error {
				return l.ProbeVMService(ctx)
			})
	}
	return errors.Errorf(
		"timeout after %s waiting for Flutter app on port %d",
		l.settings.AppStartupTimeout, l.settings.AppPort,
	)
}

// Terminate stops the app if this launcher spawned it: interrupt first,
// bounded grace, then a forced kill. Safe to call multiple times.
func (l *AppLauncher) Terminate() {
	if !l.spawned || l.cmd == nil || l.cmd.Process == nil {
		return
	}
	l.log.Infof("terminating Flutter app (PID %d)", l.cmd.Process.Pid)

	if err := l.cmd.Process.Signal(os.Interrupt); err != nil {
		// Interrupt is not deliverable on every platform; fall through to
		// the kill path below.
		l.log.Debugf("interrupt failed: %v", err)
	}

	grace := l.termGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	select {
	case <-l.exited:
		l.log.Info("Flutter app terminated")
	case <-time.After(grace):
		l.log.Warn("force killing Flutter app")
		_ = l.cmd.Process.Kill()
		// Wait for the reaper goroutine so the process is fully gone
		// before callers reuse the port.
		<-l.exited
	}
	l.spawned = false
}

// NewAppLauncher creates a launcher for the configured sample app.
func NewAppLauncher(settings *config.Settings, log *logrus.Logger) *AppLauncher {
	return &AppLauncher{settings: settings, log: log}
}
