package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/skills/builtin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcClient struct {
	t      *testing.T
	server *Server
	nextID int
}

func newClient(t *testing.T, s *Server) *rpcClient {
	c := &rpcClient{t: t, server: s}
	c.call("initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0.0"},
	})
	return c
}

// call sends a JSON-RPC request and returns the decoded result object
func (c *rpcClient) call(method string, params any) map[string]any {
	c.t.Helper()
	c.nextID++

	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      c.nextID,
		"method":  method,
		"params":  params,
	})
	require.NoError(c.t, err)

	resp := c.server.MCPServer().HandleMessage(context.Background(), req)
	raw, err := json.Marshal(resp)
	require.NoError(c.t, err)

	var decoded map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &decoded))
	require.Nil(c.t, decoded["error"], "unexpected JSON-RPC error: %s", raw)

	result, ok := decoded["result"].(map[string]any)
	require.True(c.t, ok, "missing result in %s", raw)
	return result
}

func (c *rpcClient) toolNames() []string {
	c.t.Helper()
	result := c.call("tools/list", map[string]any{})
	tools, _ := result["tools"].([]any)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	return names
}

func (c *rpcClient) callTool(name string, args map[string]any) (string, bool) {
	c.t.Helper()
	result := c.call("tools/call", map[string]any{"name": name, "arguments": args})

	content, _ := result["content"].([]any)
	require.Len(c.t, content, 1)
	text := content[0].(map[string]any)["text"].(string)
	isError, _ := result["isError"].(bool)
	return text, isError
}

func newTestRegistry(t *testing.T) *skills.Registry {
	t.Helper()
	ctx := context.Background()
	reg := skills.NewRegistry()
	require.NoError(t, builtin.Register(ctx, reg))
	require.NoError(t, reg.Register(ctx, "echo", skills.UnitFunc(func(_ context.Context, input any) (any, error) {
		return input, nil
	}), skills.Descriptor{Description: "echoes input"}))
	require.NoError(t, reg.Register(ctx, "broken", skills.UnitFunc(func(context.Context, any) (any, error) {
		return nil, errors.New("boom")
	}), skills.Descriptor{Description: "always fails"}))
	return reg
}

func TestServer_ListsOneToolPerSkill(t *testing.T) {
	reg := newTestRegistry(t)
	c := newClient(t, NewServer(reg, "test"))

	assert.ElementsMatch(t, []string{"agent-builder", "broken", "echo"}, c.toolNames())

	result := c.call("tools/list", map[string]any{})
	for _, raw := range result["tools"].([]any) {
		tool := raw.(map[string]any)
		if tool["name"] != "echo" {
			continue
		}
		assert.Equal(t, "echoes input", tool["description"])
		schema := tool["inputSchema"].(map[string]any)
		props := schema["properties"].(map[string]any)
		assert.Contains(t, props, "input")
	}
}

func TestServer_CallTool(t *testing.T) {
	reg := newTestRegistry(t)
	c := newClient(t, NewServer(reg, "test"))

	t.Run("success returns envelope", func(t *testing.T) {
		text, isError := c.callTool("echo", map[string]any{"input": map[string]any{"task": "build"}})
		require.False(t, isError)

		var envelope map[string]any
		require.NoError(t, json.Unmarshal([]byte(text), &envelope))
		assert.Equal(t, "Skill 'echo' loaded successfully!", envelope["message"])
		assert.Equal(t, map[string]any{"task": "build"}, envelope["input"])
		assert.Equal(t, map[string]any{"task": "build"}, envelope["output"])
	})

	t.Run("missing input is null", func(t *testing.T) {
		text, isError := c.callTool("agent-builder", map[string]any{})
		require.False(t, isError)
		assert.Contains(t, text, `"input":null`)
	})

	t.Run("execution error is a tool error", func(t *testing.T) {
		text, isError := c.callTool("broken", map[string]any{"input": map[string]any{}})
		assert.True(t, isError)
		assert.Equal(t, "skill 'broken' failed: boom", text)
	})
}

func TestServer_Sync(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	s := NewServer(reg, "test")
	c := newClient(t, s)

	require.NoError(t, reg.Register(ctx, "fresh", skills.UnitFunc(func(context.Context, any) (any, error) {
		return "hi", nil
	}), skills.Descriptor{Description: "new"}))
	reg.Unregister(ctx, "broken")
	s.Sync(ctx)

	assert.ElementsMatch(t, []string{"agent-builder", "echo", "fresh"}, c.toolNames())

	require.NoError(t, reg.Register(ctx, "echo", skills.UnitFunc(func(context.Context, any) (any, error) {
		return "replaced", nil
	}), skills.Descriptor{Description: "echo v2"}))
	s.Sync(ctx)

	text, isError := c.callTool("echo", map[string]any{})
	require.False(t, isError)
	assert.Contains(t, text, `"output":"replaced"`)
	assert.Contains(t, text, `"description":"echo v2"`)
}

func TestServer_ToolRemovedBetweenSyncs(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	c := newClient(t, NewServer(reg, "test"))

	reg.Unregister(ctx, "echo")

	text, isError := c.callTool("echo", map[string]any{})
	assert.True(t, isError)
	assert.Equal(t, fmt.Sprintf("skill '%s' not found", "echo"), text)
}
