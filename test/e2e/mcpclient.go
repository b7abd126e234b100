package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fireapache/flutterreflect-e2e/internal/jsonrpc"
)

// ProtocolVersion is the MCP protocol revision sent during the handshake.
const ProtocolVersion = "2024-11-05"

// readResult carries one stdout line (or the read error) from the pump
// goroutine to the caller waiting in send.
type readResult struct {
	line []byte
	err  error
}

// MCPClient communicates with a flutter_reflect subprocess via JSON-RPC 2.0
// over STDIO. Created by ServerRunner.Start. Exactly one request is in
// flight at a time; responses are correlated by reply order, not by
// inspecting ids.
type MCPClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader

	nextID      int64
	initialized bool
	mu          sync.Mutex

	lines     chan readResult
	pumpOnce  sync.Once
	callT     time.Duration
	initT     time.Duration
	shutGrace time.Duration
}

// callToolParams holds the parameters for a tools/call request.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// clientInfo identifies the MCP client in the initialize handshake.
type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// initializeParams holds the parameters for the initialize request.
type initializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      clientInfo `json:"clientInfo"`
	Capabilities    struct{}   `json:"capabilities"`
}

// startPump launches the single stdout reader goroutine. One goroutine owns
// the bufio.Reader for the life of the client so a timed-out call cannot
// race a later call on the same stream. A line that arrives after its
// caller gave up stays in the channel and is handed to the next call,
// desynchronizing the id sequence for the rest of this client's life.
func (c *MCPClient) startPump() {
	c.pumpOnce.Do(func() {
		c.lines = make(chan readResult)
		go func() {
			for {
				line, err := c.reader.ReadBytes('\n')
				c.lines <- readResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})
}

// notify sends a JSON-RPC 2.0 notification (no id, no response expected).
func (c *MCPClient) notify(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(jsonrpc.NewNotification(method))
	if err != nil {
		return fmt.Errorf("failed to marshal JSON-RPC notification: %w", err)
	}
	if _, err := fmt.Fprintf(c.stdin, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write notification to server stdin: %w", err)
	}
	return nil
}

// send marshals and writes a JSON-RPC request, then waits up to timeout for
// the next response line. On timeout it synthesizes a local error response
// (code -1) instead of returning a Go error, so callers always receive a
// response to inspect. The mu mutex serializes concurrent calls.
func (c *MCPClient) send(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (*jsonrpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startPump()

	c.nextID++
	req := jsonrpc.NewRequest(c.nextID, method, params)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	// Write JSON + newline to stdin.
	if _, err := fmt.Fprintf(c.stdin, "%s\n", data); err != nil {
		return nil, fmt.Errorf("failed to write to server stdin: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rr := <-c.lines:
		if rr.err != nil {
			return nil, fmt.Errorf("failed to read from server stdout: %w", rr.err)
		}
		var resp jsonrpc.Response
		if err := json.Unmarshal(rr.line, &resp); err != nil {
			return nil, fmt.Errorf(
				"failed to unmarshal JSON-RPC response: %w\nraw: %s", err, rr.line)
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("request %q canceled: %w", method, ctx.Err())
	case <-timer.C:
		return &jsonrpc.Response{
			JSONRPC: jsonrpc.Version,
			ID:      req.ID,
			Error:   jsonrpc.NewTimeoutError(timeout.String()),
		}, nil
	}
}

// Initialize performs the MCP initialize handshake and reports whether the
// server acknowledged it. Idempotent: after the first success subsequent
// calls short-circuit without sending another request.
func (c *MCPClient) Initialize(ctx context.Context) bool {
	c.mu.Lock()
	done := c.initialized
	c.mu.Unlock()
	if done {
		return true
	}

	resp, err := c.send(ctx, "initialize", initializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo: clientInfo{
			Name:    "flutterreflect-e2e",
			Version: "1.0.0",
		},
	}, c.initializeTimeout())
	if err != nil || resp.Error != nil || len(resp.Result) == 0 {
		return false
	}

	// Initialized notification is fire-and-forget (no id, no response).
	if err := c.notify("notifications/initialized"); err != nil {
		return false
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return true
}

// ListTools calls tools/list and returns the discovered tool descriptors.
// Any failure (transport error, RPC error, malformed result) yields an
// empty slice, never an error, so discovery assertions stay one-liners.
func (c *MCPClient) ListTools(ctx context.Context) []mcp.Tool {
	resp, err := c.send(ctx, "tools/list", struct{}{}, c.callTimeout())
	if err != nil || resp.Error != nil {
		return nil
	}

	var result mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil
	}
	return result.Tools
}

// CallTool invokes a tool by name with optional arguments, waiting up to
// timeout for the response. It never returns a Go error: transport failures
// and client-side timeouts surface as ToolResponse.RPCError, tool failures
// as IsError or the embedded envelope. Exactly one attempt is made.
func (c *MCPClient) CallTool(
	ctx context.Context,
	name string,
	args map[string]any,
	timeout time.Duration,
) ToolResponse {
	if timeout <= 0 {
		timeout = c.callTimeout()
	}

	start := time.Now()
	resp, err := c.send(ctx, "tools/call", callToolParams{
		Name: name, Arguments: args,
	}, timeout)
	elapsed := time.Since(start)

	if err != nil {
		return ToolResponse{
			Tool:    name,
			Elapsed: elapsed,
			RPCError: &jsonrpc.Error{
				Code:    jsonrpc.CodeInternalError,
				Message: err.Error(),
			},
		}
	}
	if resp.Error != nil {
		return ToolResponse{Tool: name, Elapsed: elapsed, RPCError: resp.Error}
	}

	var result mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return ToolResponse{
			Tool:    name,
			Elapsed: elapsed,
			RPCError: &jsonrpc.Error{
				Code:    jsonrpc.CodeParseError,
				Message: fmt.Sprintf("failed to unmarshal CallToolResult: %v", err),
			},
		}
	}

	return ToolResponse{CallToolResult: result, Tool: name, Elapsed: elapsed}
}

// Shutdown closes stdin so the server exits its read loop, then waits up to
// the grace period before killing the subprocess.
func (c *MCPClient) Shutdown() error {
	_ = c.stdin.Close()
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	grace := c.shutGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		if err := c.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill server process: %w", err)
		}
		return <-done
	}
}

func (c *MCPClient) callTimeout() time.Duration {
	if c.callT > 0 {
		return c.callT
	}
	return 2 * time.Second
}

// initializeTimeout bounds the handshake. The server may still be loading
// when the first request lands, so it gets its own knob instead of the
// per-call deadline.
func (c *MCPClient) initializeTimeout() time.Duration {
	if c.initT > 0 {
		return c.initT
	}
	return 5 * time.Second
}

// NewMCPClient instantiates an MCPClient over the given subprocess streams.
// callTimeout is the default per-call deadline, initTimeout bounds the
// initialize handshake, and shutdownGrace bounds Shutdown's wait before a
// forced kill.
func NewMCPClient(
	cmd *exec.Cmd,
	stdin io.WriteCloser,
	reader *bufio.Reader,
	callTimeout time.Duration,
	initTimeout time.Duration,
	shutdownGrace time.Duration,
) *MCPClient {
	return &MCPClient{
		cmd:       cmd,
		stdin:     stdin,
		reader:    reader,
		callT:     callTimeout,
		initT:     initTimeout,
		shutGrace: shutdownGrace,
	}
}
