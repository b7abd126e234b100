package e2e

import (
	"context"
	"fmt"
	"time"
)

// ConnectionChecker validates that the server holds a live VM service
// connection by issuing a minimal get_tree call. A disconnected server
// reports the failure through the result envelope, not the RPC layer.
type ConnectionChecker struct {
	client  *MCPClient
	timeout time.Duration
}

// Name implements Checker.
func (c *ConnectionChecker) Name() string { return "vm-connection" }

// Check implements Checker.
func (c *ConnectionChecker) Check(ctx context.Context) Result {
	resp := c.client.CallTool(ctx, "get_tree",
		map[string]any{"max_depth": 1, "format": "json"}, c.timeout)

	if resp.TimedOut() {
		return NewFailedResult(fmt.Errorf(
			"get_tree timed out after %s: server unresponsive", c.timeout))
	}
	if resp.HasError() {
		return NewFailedResult(fmt.Errorf(
			"server not connected to a Flutter app: %s", resp.ErrorMessage()))
	}
	return NewResult(fmt.Sprintf(
		"VM service connection verified in %s", resp.Elapsed.Round(time.Millisecond)))
}

// NewConnectionChecker creates a ConnectionChecker with the given per-call
// timeout.
func NewConnectionChecker(client *MCPClient, timeout time.Duration) *ConnectionChecker {
	return &ConnectionChecker{client: client, timeout: timeout}
}
