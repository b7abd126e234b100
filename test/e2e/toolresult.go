package e2e

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fireapache/flutterreflect-e2e/internal/jsonrpc"
)

// Envelope is the application-level result convention the inspector places
// inside result.content[0].text: a JSON object with a success flag, a data
// payload and an error string. It is a convention of the server, not
// enforced by the transport.
type Envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ToolResponse wraps a CallToolResult with convenience accessors. RPCError
// is set for transport-level failures, including the client-synthesized
// timeout (code -1); it is nil when the server produced a result, even a
// failed one.
type ToolResponse struct {
	mcp.CallToolResult

	// Tool is the name the call was issued with.
	Tool string

	// Elapsed is the observed round-trip time.
	Elapsed time.Duration

	// RPCError holds the JSON-RPC error object, if any.
	RPCError *jsonrpc.Error
}

// Text extracts the concatenated text from all TextContent entries.
// Returns empty string if no text content is present.
func (r ToolResponse) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// Envelope decodes the {success, data, error} payload embedded in the text
// content. Fails when the call never produced content or the text is not
// the conventional JSON shape.
func (r ToolResponse) Envelope() (Envelope, error) {
	if r.RPCError != nil {
		return Envelope{}, fmt.Errorf("no envelope: %s", r.RPCError.Error())
	}
	text := r.Text()
	if text == "" {
		return Envelope{}, fmt.Errorf("tool %q returned no text content", r.Tool)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Envelope{}, fmt.Errorf(
			"tool %q text is not an envelope: %w", r.Tool, err)
	}
	return env, nil
}

// HasError reports whether the response failed on either error channel:
// the JSON-RPC error object, the MCP IsError flag, or the embedded
// envelope's success field. Call sites in the server are inconsistent
// about which channel a given failure uses, so assertions go through here.
func (r ToolResponse) HasError() bool {
	if r.RPCError != nil || r.IsError {
		return true
	}
	if env, err := r.Envelope(); err == nil && !env.Success {
		return true
	}
	return false
}

// TimedOut reports whether this response is the synthesized timeout
// sentinel rather than anything the server said.
func (r ToolResponse) TimedOut() bool {
	return r.RPCError.IsTimeout()
}

// ErrorMessage returns the most specific failure description available:
// the RPC error message, the envelope error string, or the raw text for
// IsError results. Empty when the call succeeded.
func (r ToolResponse) ErrorMessage() string {
	if r.RPCError != nil {
		return r.RPCError.Message
	}
	if env, err := r.Envelope(); err == nil && !env.Success {
		return env.Error
	}
	if r.IsError {
		return r.Text()
	}
	return ""
}
