package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name string
	err  error
}

func (f *fakeTool) Name() string                 { return f.name }
func (f *fakeTool) Description() string          { return "a fake tool for testing" }
func (f *fakeTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (f *fakeTool) Execute(_ context.Context, _ json.RawMessage) (*ToolsCallResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return TextContent("ok"), nil
}

func testServer(t *testing.T, tools ...Tool) *Server {
	t.Helper()
	reg := NewRegistry()
	for _, tl := range tools {
		reg.Register(tl)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(reg, ServerInfo{Name: "test", Version: "0.0.0"}, logger)
}

func TestHandleMessageInitialize(t *testing.T) {
	s := testServer(t)
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize"}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "test", result.ServerInfo.Name)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestHandleMessageNotificationReturnsNil(t *testing.T) {
	s := testServer(t)
	req := Request{JSONRPC: "2.0", Method: "notifications/initialized"}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	assert.Nil(t, resp)
}

func TestHandleMessageUnknownMethod(t *testing.T) {
	s := testServer(t)
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "bogus/method"}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageToolsCallSuccess(t *testing.T) {
	s := testServer(t, &fakeTool{name: "aipm_noop"})

	params, err := json.Marshal(ToolsCallParams{Name: "aipm_noop"})
	require.NoError(t, err)
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`3`), Method: "tools/call", Params: params}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(*ToolsCallResult)
	require.True(t, ok)
	assert.False(t, result.IsError)
	assert.Equal(t, "ok", result.Content[0].Text)
}

func TestHandleMessageToolsCallUnknownToolIsRPCError(t *testing.T) {
	s := testServer(t)

	params, err := json.Marshal(ToolsCallParams{Name: "does_not_exist"})
	require.NoError(t, err)
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`4`), Method: "tools/call", Params: params}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleMessageToolsListIncludesRegisteredTool(t *testing.T) {
	s := testServer(t, &fakeTool{name: "aipm_create_task"})
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`5`), Method: "tools/list"}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), body)
	result, ok := resp.Result.(*ToolsListResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "aipm_create_task", result.Tools[0].Name)
}

func TestHandleMessageParseError(t *testing.T) {
	s := testServer(t)
	resp := s.HandleMessage(context.Background(), []byte("not json"))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
}
