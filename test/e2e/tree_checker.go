package e2e

import (
	"context"
	"fmt"
	"time"
)

// TreeHealthChecker validates that the connected app yields a sane widget
// tree: a non-empty node set, a positive depth, and node types filled in.
type TreeHealthChecker struct {
	client   *MCPClient
	maxDepth int
	timeout  time.Duration
}

// Name implements Checker.
func (c *TreeHealthChecker) Name() string { return "tree-health" }

// Check implements Checker.
func (c *TreeHealthChecker) Check(ctx context.Context) Result {
	snap := CaptureTree(ctx, c.client, c.maxDepth, c.timeout)
	if !snap.Success {
		return NewFailedResult(fmt.Errorf("tree capture failed: %s", snap.Error))
	}
	if snap.Count() == 0 {
		return NewFailedResult(fmt.Errorf("widget tree is empty"))
	}
	if snap.MaxDepth <= 0 {
		return NewFailedResult(fmt.Errorf(
			"widget tree reports non-positive depth %d", snap.MaxDepth))
	}
	for _, node := range snap.WidgetTree.Nodes {
		if node.Type == "" {
			return NewFailedResult(fmt.Errorf("tree contains a node with no type"))
		}
	}
	return NewResult(fmt.Sprintf(
		"tree healthy: %d nodes, max depth %d", snap.Count(), snap.MaxDepth))
}

// NewTreeHealthChecker creates a TreeHealthChecker capturing up to maxDepth
// levels per check.
func NewTreeHealthChecker(client *MCPClient, maxDepth int, timeout time.Duration) *TreeHealthChecker {
	return &TreeHealthChecker{client: client, maxDepth: maxDepth, timeout: timeout}
}
