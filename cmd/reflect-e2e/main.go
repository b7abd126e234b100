package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fireapache/flutterreflect-e2e/internal/config"
	"github.com/fireapache/flutterreflect-e2e/internal/logging"
	"github.com/fireapache/flutterreflect-e2e/test/e2e"
)

var (
	flagProjectRoot string
	flagLogLevel    string
	flagLogFile     string
	flagTimeout     time.Duration
)

// newLogger honors --log-file when set, tee-ing entries to the named file
// alongside stderr.
func newLogger() (*logrus.Logger, error) {
	if flagLogFile != "" {
		return logging.NewFileLogger(flagLogLevel, flagLogFile)
	}
	return logging.NewLogger(flagLogLevel), nil
}

// session bundles the resources every subcommand needs: settings, a running
// server subprocess and an initialized client.
type session struct {
	settings *config.Settings
	client   *e2e.MCPClient
	launcher *e2e.AppLauncher
}

func newSession(ctx context.Context) (*session, error) {
	settings, err := config.Load(flagProjectRoot)
	if err != nil {
		return nil, err
	}
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	runner, err := e2e.NewServerRunner(settings)
	if err != nil {
		return nil, err
	}
	log.Infof("using inspector binary %s", runner.Binary())

	client, err := runner.Start(ctx)
	if err != nil {
		return nil, err
	}
	if !client.Initialize(ctx) {
		_ = client.Shutdown()
		return nil, fmt.Errorf("MCP initialize handshake was not acknowledged")
	}

	return &session{
		settings: settings,
		client:   client,
		launcher: e2e.NewAppLauncher(settings, log),
	}, nil
}

func (s *session) close() {
	_ = s.client.Shutdown()
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the inspector server exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			tools := s.client.ListTools(cmd.Context())
			if len(tools) == 0 {
				return fmt.Errorf("server returned no tools")
			}
			for _, tool := range tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", tool.Name, tool.Description)
			}
			return nil
		},
	}
}

func newCallCmd() *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a single tool and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args payload: %w", err)
				}
			}

			s, err := newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result := s.client.CallTool(cmd.Context(), args[0], toolArgs, flagTimeout)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n",
				args[0], result.Elapsed.Round(time.Millisecond))
			if result.RPCError != nil {
				return fmt.Errorf("call failed: %s", result.RPCError.Error())
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text())
			if result.HasError() {
				return fmt.Errorf("tool reported failure: %s", result.ErrorMessage())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "",
		"tool arguments as a JSON object")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		format    string
		launchApp bool
		connect   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the inspector checkers and print a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if launchApp {
				if err := s.launcher.Launch(ctx); err != nil {
					return err
				}
			}
			if connect {
				err := e2e.Retry(ctx, 5, 2*time.Second, func(ctx context.Context) error {
					result := s.client.CallTool(ctx, "connect",
						map[string]any{"uri": s.settings.AppURI()},
						s.settings.ConnectTimeout)
					if result.HasError() {
						return fmt.Errorf("connect failed: %s", result.ErrorMessage())
					}
					return nil
				})
				if err != nil {
					return err
				}
			}

			validator := e2e.NewInspectorValidator(
				e2e.NewToolRegistryChecker(s.client, nil),
				e2e.NewConnectionChecker(s.client, s.settings.CallTimeout),
				e2e.NewTreeHealthChecker(s.client, 10, s.settings.CallTimeout),
			)

			report := e2e.NewRunReport()
			report.Add(validator.RunAll(ctx)...)
			report.Finish()

			switch format {
			case "yaml":
				err = report.WriteYAML(cmd.OutOrStdout())
			default:
				err = report.WriteText(cmd.OutOrStdout())
			}
			if err != nil {
				return err
			}
			if !report.Success() {
				return fmt.Errorf("%d checker(s) failed", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "report format: text or yaml")
	cmd.Flags().BoolVar(&launchApp, "launch-app", false,
		"launch the sample Flutter app before checking")
	cmd.Flags().BoolVar(&connect, "connect", true,
		"connect the server to the VM service before checking")
	return cmd
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "reflect-e2e",
		Short: "Interactive driver for the flutter_reflect inspector server",
		Long: "reflect-e2e starts the flutter_reflect binary as an MCP server " +
			"on stdio and drives it interactively: discover tools, invoke " +
			"them ad hoc, or run the full checker suite against a live app.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagProjectRoot, "project-root", ".",
		"repository root used to locate the binary and the sample app")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "",
		"also append log entries to this file")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0,
		"per-call timeout (0 uses the configured default)")

	rootCmd.AddCommand(newToolsCmd(), newCallCmd(), newCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
