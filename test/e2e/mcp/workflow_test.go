package mcp_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fireapache/flutterreflect-e2e/test/e2e"
)

// phaseDiscovery exercises tool discovery and instance scanning. Neither
// depends on a running Flutter app.
func phaseDiscovery(ctx context.Context, mc *e2e.MCPClient) {
	By("listing tools and checking descriptors")
	tools := mc.ListTools(ctx)
	Expect(tools).NotTo(BeEmpty())
	for _, tool := range tools {
		Expect(tool.Name).NotTo(BeEmpty())
		Expect(len(tool.Description)).To(BeNumerically(">", 10),
			"tool %q has a placeholder description", tool.Name)
	}

	By("scanning the default port range for running instances")
	result := mc.CallTool(ctx, "list_instances", map[string]any{
		"port_start": 8080,
		"port_end":   8200,
		"timeout_ms": 500,
	}, 30*time.Second)
	Expect(result.TimedOut()).To(BeFalse())
	// An empty scan is a success with zero instances, not an error.
	env, err := result.Envelope()
	Expect(err).NotTo(HaveOccurred())
	Expect(env.Success).To(BeTrue(), env.Error)
}

// phaseConnection launches the sample app (if needed) and connects the
// server to its VM service.
func phaseConnection(ctx context.Context, sc *e2e.SharedContext, mc *e2e.MCPClient) {
	By("ensuring the sample Flutter app is running")
	Expect(sc.Launcher.Launch(ctx)).To(Succeed())

	By("connecting the inspector to the VM service")
	// App readiness is inherently racy even after the port probe, so the
	// first connect attempts get retried.
	err := e2e.Retry(ctx, 5, 2*time.Second, func(ctx context.Context) error {
		result := mc.CallTool(ctx, "connect",
			map[string]any{"uri": sc.Settings.AppURI()},
			sc.Settings.ConnectTimeout)
		if result.HasError() {
			return errorFromResponse(result)
		}
		return nil
	})
	Expect(err).NotTo(HaveOccurred())

	By("verifying the connection with a shallow tree capture")
	checker := e2e.NewConnectionChecker(mc, sc.Settings.CallTimeout)
	Eventually(ctx, func() bool {
		return checker.Check(ctx).Passed
	}).WithPolling(time.Second).
		WithTimeout(30 * time.Second).
		Should(BeTrue())
}

// phaseInspection captures and queries the widget tree of the connected app.
func phaseInspection(ctx context.Context, sc *e2e.SharedContext, mc *e2e.MCPClient) {
	By("capturing a full JSON tree snapshot")
	snap := e2e.CaptureTree(ctx, mc, 10, sc.Settings.CallTimeout)
	Expect(snap.Success).To(BeTrue(), snap.Error)
	Expect(snap.Count()).To(BeNumerically(">", 0))
	Expect(snap.MaxDepth).To(BeNumerically(">", 0))

	By("capturing a depth-limited snapshot")
	shallow := e2e.CaptureTree(ctx, mc, 2, sc.Settings.CallTimeout)
	Expect(shallow.Success).To(BeTrue(), shallow.Error)
	Expect(shallow.Count()).To(BeNumerically("<=", snap.Count()))

	By("requesting the text rendering of the tree")
	result := mc.CallTool(ctx, "get_tree",
		map[string]any{"max_depth": 5, "format": "text"}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())

	By("finding widgets with a type selector")
	result = mc.CallTool(ctx, "find",
		map[string]any{"selector": "Text"}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())

	By("reading properties of the first Scaffold")
	result = mc.CallTool(ctx, "get_properties",
		map[string]any{"selector": "Scaffold"}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())
}

// phaseInteraction drives the UI and asserts state changes through tree
// snapshot comparison.
func phaseInteraction(ctx context.Context, sc *e2e.SharedContext, mc *e2e.MCPClient) {
	settle := func() { time.Sleep(sc.Settings.SettleTime) }

	By("typing into the first text field")
	result := mc.CallTool(ctx, "type", map[string]any{
		"text":        "hello from the harness",
		"selector":    "TextField",
		"clear_first": true,
	}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())
	settle()

	By("capturing the tree before a tap")
	before := e2e.CaptureTree(ctx, mc, 10, sc.Settings.CallTimeout)
	Expect(before.Success).To(BeTrue(), before.Error)

	By("tapping the first button")
	result = mc.CallTool(ctx, "tap",
		map[string]any{"selector": "ElevatedButton"}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())
	settle()

	By("comparing tree snapshots around the tap")
	after := e2e.CaptureTree(ctx, mc, 10, sc.Settings.CallTimeout)
	Expect(after.Success).To(BeTrue(), after.Error)
	diff := e2e.CompareTrees(before, after)
	GinkgoWriter.Println(diff.Details)

	By("scrolling the main view")
	result = mc.CallTool(ctx, "scroll",
		map[string]any{"dy": -200, "duration_ms": 200}, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())
	settle()
}

// phaseEdgeCases exercises the failure paths that bit earlier revisions of
// the server: unknown tools, missing required arguments, empty input.
func phaseEdgeCases(ctx context.Context, sc *e2e.SharedContext, mc *e2e.MCPClient) {
	By("calling a tool that is not in the registry")
	result := mc.CallTool(ctx, "frobnicate", nil, 0)
	Expect(result.HasError()).To(BeTrue(),
		"unknown tool must fail on one of the error channels")

	By("typing with empty text")
	result = mc.CallTool(ctx, "type", map[string]any{"text": ""}, 0)
	Expect(result.HasError()).To(BeTrue(),
		"type requires non-empty text")

	By("finding with an empty selector")
	result = mc.CallTool(ctx, "find", map[string]any{"selector": ""}, 0)
	Expect(result.HasError()).To(BeTrue())

	By("tapping with no target at all")
	result = mc.CallTool(ctx, "tap", map[string]any{}, 0)
	Expect(result.HasError()).To(BeTrue(),
		"tap requires a selector, widget id, or coordinates")

	By("capturing with an out-of-range depth still answers")
	result = mc.CallTool(ctx, "get_tree",
		map[string]any{"max_depth": 100, "format": "json"}, 10*time.Second)
	Expect(result.TimedOut()).To(BeFalse())
}

// phaseValidation runs the checker suite and renders the aggregate report.
func phaseValidation(ctx context.Context, sc *e2e.SharedContext, mc *e2e.MCPClient) {
	By("running all inspector checkers")
	validator := e2e.NewInspectorValidator(
		e2e.NewToolRegistryChecker(mc, nil),
		e2e.NewConnectionChecker(mc, sc.Settings.CallTimeout),
		e2e.NewTreeHealthChecker(mc, 10, sc.Settings.CallTimeout),
	)

	report := e2e.NewRunReport()
	report.Add(validator.RunAll(ctx)...)
	report.Finish()

	Expect(report.WriteText(GinkgoWriter)).To(Succeed())
	Expect(report.Success()).To(BeTrue(), "one or more checkers failed")
}

// phaseDisconnect tears the VM connection down and verifies the server
// reports the disconnected state afterwards.
func phaseDisconnect(ctx context.Context, mc *e2e.MCPClient) {
	By("disconnecting from the VM service")
	result := mc.CallTool(ctx, "disconnect", nil, 0)
	Expect(result.HasError()).To(BeFalse(), result.ErrorMessage())

	By("verifying tree capture now fails")
	result = mc.CallTool(ctx, "get_tree",
		map[string]any{"max_depth": 1, "format": "json"}, 0)
	Expect(result.HasError()).To(BeTrue(),
		"get_tree must fail once disconnected")
}

// errorFromResponse adapts a failed ToolResponse into an error for Retry.
func errorFromResponse(r e2e.ToolResponse) error {
	return &toolError{tool: r.Tool, message: r.ErrorMessage()}
}

type toolError struct {
	tool    string
	message string
}

func (e *toolError) Error() string {
	return "tool " + e.tool + " failed: " + e.message
}

var _ = Describe("Inspector Workflow", func() {
	It("executes the complete workflow via JSON-RPC and validates app state",
		func(ctx context.Context) {
			phaseDiscovery(ctx, client)
			phaseConnection(ctx, sharedCtx, client)
			phaseInspection(ctx, sharedCtx, client)
			phaseInteraction(ctx, sharedCtx, client)
			phaseEdgeCases(ctx, sharedCtx, client)
			phaseValidation(ctx, sharedCtx, client)
			phaseDisconnect(ctx, client)
		})
})
