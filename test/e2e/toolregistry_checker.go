package e2e

import (
	"context"
	"fmt"
	"strings"
)

// minDescriptionLen guards against placeholder tool descriptions: anything
// shorter is useless to an LLM picking tools.
const minDescriptionLen = 10

// ExpectedTools is the registry the inspector binary ships with.
var ExpectedTools = []string{
	"list_instances",
	"launch",
	"connect",
	"disconnect",
	"get_tree",
	"find",
	"tap",
	"type",
	"scroll",
	"get_properties",
}

// ToolRegistryChecker validates the server's tools/list output: every
// expected tool is present, and each descriptor carries a non-empty name
// and a usable description.
type ToolRegistryChecker struct {
	client   *MCPClient
	expected []string
}

// Name implements Checker.
func (c *ToolRegistryChecker) Name() string { return "tool-registry" }

// Check implements Checker.
func (c *ToolRegistryChecker) Check(ctx context.Context) Result {
	tools := c.client.ListTools(ctx)
	if len(tools) == 0 {
		return NewFailedResult(fmt.Errorf("tools/list returned no tools"))
	}

	byName := make(map[string]bool, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return NewFailedResult(fmt.Errorf("tool with empty name in registry"))
		}
		if len(t.Description) <= minDescriptionLen {
			return NewFailedResult(fmt.Errorf(
				"tool %q has a placeholder description (%d chars)",
				t.Name, len(t.Description)))
		}
		byName[t.Name] = true
	}

	var missing []string
	for _, name := range c.expected {
		if !byName[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return NewFailedResult(fmt.Errorf(
			"missing tools: %s", strings.Join(missing, ", ")))
	}

	return NewResult(fmt.Sprintf("%d tools registered, all expected present", len(tools)))
}

// NewToolRegistryChecker creates a ToolRegistryChecker. A nil expected list
// defaults to the full registry the binary ships with.
func NewToolRegistryChecker(client *MCPClient, expected []string) *ToolRegistryChecker {
	if expected == nil {
		expected = ExpectedTools
	}
	return &ToolRegistryChecker{client: client, expected: expected}
}
