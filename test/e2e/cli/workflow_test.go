package cli_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fireapache/flutterreflect-e2e/test/e2e"
)

// The inspector binary doubles as a one-shot CLI: every MCP tool is also a
// subcommand ("flutter_reflect get_tree --max-depth 5 --format json") that
// auto-connects when given --uri. These specs drive that mode.
var _ = Describe("CLI Mode", func() {
	It("prints version and usage information", func(ctx context.Context) {
		By("querying the version")
		out, err := sharedCtx.Runner.RunCLI(ctx, "--version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeEmpty())

		By("listing tool subcommands in the help text")
		out, err = sharedCtx.Runner.RunCLI(ctx, "--help")
		Expect(err).NotTo(HaveOccurred())
		for _, tool := range e2e.ExpectedTools {
			Expect(out).To(ContainSubstring(tool),
				"help must mention the %q subcommand", tool)
		}
	})

	It("fails cleanly for an unknown subcommand", func(ctx context.Context) {
		_, err := sharedCtx.Runner.RunCLI(ctx, "frobnicate")
		Expect(err).To(HaveOccurred())
	})

	It("scans for instances without a running app", func(ctx context.Context) {
		out, err := sharedCtx.Runner.RunCLI(ctx,
			"list_instances", "--port-start", "8080", "--port-end", "8090",
			"--timeout-ms", "200")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeEmpty())
	})

	It("captures a tree in one shot against the running app", func(ctx context.Context) {
		By("ensuring the sample Flutter app is running")
		Expect(sharedCtx.Launcher.Launch(ctx)).To(Succeed())

		By("running get_tree with auto-connect")
		var out string
		err := e2e.Retry(ctx, 5, 2*time.Second, func(ctx context.Context) error {
			var runErr error
			out, runErr = sharedCtx.Runner.RunCLI(ctx,
				"get_tree",
				"--uri", sharedCtx.Settings.AppURI(),
				"--max-depth", "5",
				"--format", "json")
			return runErr
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("widget_tree"))
	})
})
