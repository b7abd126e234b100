package e2e

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// WidgetNode is one entry in a widget tree snapshot. The harness treats
// nodes as mostly opaque: only type, text and a few well-known properties
// are ever inspected.
type WidgetNode struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"`
	Text       string         `json:"text,omitempty"`
	Depth      int            `json:"depth,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// WidgetTree is the nodes container inside a get_tree data payload.
type WidgetTree struct {
	Nodes     []WidgetNode `json:"nodes"`
	NodeCount int          `json:"node_count"`
}

// TreeSnapshot is the decoded result of one get_tree call. Failed captures
// carry Success=false and the error string; comparisons refuse to operate
// on them.
type TreeSnapshot struct {
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	WidgetTree WidgetTree `json:"-"`
	MaxDepth   int        `json:"-"`
	Text       string     `json:"-"`
}

// Count returns the snapshot's node count, preferring the server-reported
// figure over the slice length.
func (s TreeSnapshot) Count() int {
	if s.WidgetTree.NodeCount > 0 {
		return s.WidgetTree.NodeCount
	}
	return len(s.WidgetTree.Nodes)
}

// TreeDiff summarizes the aggregate difference between two snapshots. The
// comparison is deliberately shallow: node count and max depth only, no
// per-node matching.
type TreeDiff struct {
	Identical     bool
	NodeCountDiff int
	DepthDiff     int
	NodesAdded    int
	NodesRemoved  int
	Details       string
}

// CaptureTree takes a widget tree snapshot through the given client,
// requesting JSON format at the given depth (0 for the server default).
func CaptureTree(ctx context.Context, client *MCPClient, maxDepth int, timeout time.Duration) TreeSnapshot {
	args := map[string]any{"format": "json"}
	if maxDepth > 0 {
		args["max_depth"] = maxDepth
	}

	resp := client.CallTool(ctx, "get_tree", args, timeout)
	env, err := resp.Envelope()
	if err != nil {
		return TreeSnapshot{Success: false, Error: err.Error()}
	}
	if !env.Success {
		return TreeSnapshot{Success: false, Error: env.Error}
	}

	snap := TreeSnapshot{Success: true}
	if wt, ok := env.Data["widget_tree"].(map[string]any); ok {
		snap.WidgetTree = decodeWidgetTree(wt)
	}
	if d, ok := env.Data["max_depth"].(float64); ok {
		snap.MaxDepth = int(d)
	}
	if t, ok := env.Data["text"].(string); ok {
		snap.Text = t
	}
	return snap
}

// CompareTrees diffs two snapshots by aggregate counts.
func CompareTrees(before, after TreeSnapshot) TreeDiff {
	if !before.Success || !after.Success {
		return TreeDiff{
			Identical: false,
			Details:   "cannot compare: one or both snapshots failed to capture",
		}
	}

	countDiff := after.Count() - before.Count()
	depthDiff := after.MaxDepth - before.MaxDepth
	diff := TreeDiff{
		Identical:     countDiff == 0 && depthDiff == 0,
		NodeCountDiff: countDiff,
		DepthDiff:     depthDiff,
		NodesAdded:    max(0, countDiff),
		NodesRemoved:  max(0, -countDiff),
	}

	if diff.Identical {
		diff.Details = fmt.Sprintf(
			"trees are identical (%d nodes, max depth %d)",
			before.Count(), before.MaxDepth,
		)
		return diff
	}

	var parts []string
	if countDiff != 0 {
		parts = append(parts, fmt.Sprintf(
			"node count %d -> %d (%+d)", before.Count(), after.Count(), countDiff))
	}
	if depthDiff != 0 {
		parts = append(parts, fmt.Sprintf(
			"max depth %d -> %d (%+d)", before.MaxDepth, after.MaxDepth, depthDiff))
	}
	diff.Details = "trees differ: " + strings.Join(parts, ", ")
	return diff
}

// WidgetMatch filters nodes in FindWidget. Zero-value fields are ignored;
// set fields must all match.
type WidgetMatch struct {
	Type string
	Key  string
	Text string
}

// FindWidget linearly scans a snapshot for the first node satisfying the
// match. Returns nil when nothing matches or the snapshot failed.
func FindWidget(snap TreeSnapshot, match WidgetMatch) *WidgetNode {
	if !snap.Success {
		return nil
	}
	for i := range snap.WidgetTree.Nodes {
		node := &snap.WidgetTree.Nodes[i]
		if match.Type != "" && node.Type != match.Type {
			continue
		}
		if match.Key != "" {
			key, _ := node.Properties["key"].(string)
			if key != match.Key {
				continue
			}
		}
		if match.Text != "" && node.Text != match.Text {
			continue
		}
		return node
	}
	return nil
}

func decodeWidgetTree(raw map[string]any) WidgetTree {
	tree := WidgetTree{}
	if c, ok := raw["node_count"].(float64); ok {
		tree.NodeCount = int(c)
	}
	nodes, _ := raw["nodes"].([]any)
	for _, n := range nodes {
		nm, ok := n.(map[string]any)
		if !ok {
			continue
		}
		node := WidgetNode{}
		node.ID, _ = nm["id"].(string)
		node.Type, _ = nm["type"].(string)
		node.Text, _ = nm["text"].(string)
		if d, ok := nm["depth"].(float64); ok {
			node.Depth = int(d)
		}
		node.Properties, _ = nm["properties"].(map[string]any)
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree
}
