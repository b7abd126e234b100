package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Environment variable naming: every setting below can be overridden with a
// "FLUTTER_REFLECT_" prefixed variable, e.g. FLUTTER_REFLECT_APP_PORT. The
// executable path keeps its historical name FLUTTER_REFLECT_EXE.
const (
	envPrefix = "FLUTTER_REFLECT"

	// ExecutableEnv overrides executable discovery entirely.
	ExecutableEnv = "FLUTTER_REFLECT_EXE"
)

// Settings holds every knob the harness needs: where the inspector binary
// and the sample app live, which port the VM service listens on, and the
// timeouts applied to protocol calls and process lifecycle.
type Settings struct {
	// ProjectRoot anchors all relative paths.
	ProjectRoot string `mapstructure:"project_root"`

	// SampleAppPath is the Flutter project launched for interaction tests,
	// relative to ProjectRoot.
	SampleAppPath string `mapstructure:"sample_app_path"`

	// AppPort is the VM service port the sample app is launched on.
	AppPort int `mapstructure:"app_port"`

	// FlutterDevice is the device id passed to "flutter run -d".
	FlutterDevice string `mapstructure:"flutter_device"`

	// CallTimeout bounds a single tools/call round trip.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	// InitializeTimeout bounds the initialize handshake.
	InitializeTimeout time.Duration `mapstructure:"initialize_timeout"`

	// ConnectTimeout bounds the "connect" tool call, which performs a
	// WebSocket dial and is slower than ordinary calls.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// AppStartupTimeout bounds "flutter run" start to VM-service-ready.
	AppStartupTimeout time.Duration `mapstructure:"app_startup_timeout"`

	// SettleTime is the pause between a UI interaction and the next tree
	// capture, giving animations time to finish.
	SettleTime time.Duration `mapstructure:"settle_time"`

	// ShutdownGrace is how long a terminated subprocess gets before a
	// forced kill.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// AppURI returns the VM service WebSocket URI for the configured port.
func (s *Settings) AppURI() string {
	return fmt.Sprintf("ws://127.0.0.1:%d/ws", s.AppPort)
}

// SampleAppDir returns the absolute path of the sample app project.
func (s *Settings) SampleAppDir() string {
	return filepath.Join(s.ProjectRoot, s.SampleAppPath)
}

// Load builds Settings from defaults, an optional config file and the
// environment. projectRoot is resolved to an absolute path so the harness
// works regardless of which package directory the test binary runs in.
func Load(projectRoot string) (*Settings, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", projectRoot, err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("sample_app_path", filepath.Join("examples", "flutter_sample_app"))
	v.SetDefault("app_port", 8181)
	v.SetDefault("flutter_device", defaultDevice())
	v.SetDefault("call_timeout", 2*time.Second)
	v.SetDefault("initialize_timeout", 5*time.Second)
	v.SetDefault("connect_timeout", 5*time.Second)
	v.SetDefault("app_startup_timeout", 90*time.Second)
	v.SetDefault("settle_time", time.Second)
	v.SetDefault("shutdown_grace", 5*time.Second)

	// Unmarshal only sees keys viper knows about, so bind each one to its
	// environment variable explicitly.
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %q: %w", key, err)
		}
	}

	v.SetConfigName("reflect-e2e")
	v.SetConfigType("yaml")
	v.AddConfigPath(absRoot)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	settings.ProjectRoot = absRoot
	return settings, nil
}

// FindExecutable locates the inspector binary: the environment override wins,
// then an ordered list of build-output candidates relative to the project
// root, first existing match. Returns an empty string when nothing is found
// so callers can skip instead of failing.
func (s *Settings) FindExecutable() string {
	name := executableName()
	candidates := []string{
		os.Getenv(ExecutableEnv),
		filepath.Join(s.ProjectRoot, "build", "Debug", name),
		filepath.Join(s.ProjectRoot, "build", "Release", name),
		filepath.Join(s.ProjectRoot, "build", name),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return "flutter_reflect.exe"
	}
	return "flutter_reflect"
}

func defaultDevice() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	default:
		return "linux"
	}
}
