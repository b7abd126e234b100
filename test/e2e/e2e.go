package e2e

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/fireapache/flutterreflect-e2e/internal/config"
	"github.com/fireapache/flutterreflect-e2e/internal/logging"
)

const (
	// ProjectRoot is the relative path from the test/e2e/<suite> packages to
	// the repository root. Go test runners set the working directory to the
	// package under test, so all paths must be anchored relative to it.
	ProjectRoot = "../../.."

	// LogLevelEnv selects the harness log level (debug, info, warn, error).
	LogLevelEnv = "FLUTTER_REFLECT_LOG_LEVEL"
)

// SharedContext holds common resources for E2E suites: resolved settings,
// the harness logger, the server runner, and the sample app launcher.
type SharedContext struct {
	Settings *config.Settings
	Log      *logrus.Logger
	Runner   *ServerRunner
	Launcher *AppLauncher
}

// NewSharedContext initializes the shared E2E context for the given project
// root. Fails when the inspector binary cannot be located; suites translate
// that into a skip so an unbuilt checkout does not fail CI.
func NewSharedContext(projectRoot string) (*SharedContext, error) {
	settings, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	log := logging.NewLogger(os.Getenv(LogLevelEnv))

	runner, err := NewServerRunner(settings)
	if err != nil {
		return nil, err
	}

	return &SharedContext{
		Settings: settings,
		Log:      log,
		Runner:   runner,
		Launcher: NewAppLauncher(settings, log),
	}, nil
}
