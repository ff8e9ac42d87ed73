package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cms-copilot/server/internal/agent/model"
)

func TestNormalizeResultContentListTextJSON(t *testing.T) {
	res := []any{
		map[string]any{"type": "text", "text": `{"rows": [], "row_count ": 0}`},
	}
	out := NormalizeResult(res)
	obj := AsObject(out)
	require.NotNil(t, obj)
	assert.Contains(t, obj, "rows")
	// Stray whitespace in field names is trimmed.
	assert.Contains(t, obj, "row_count")
}

func TestNormalizeResultPlainObject(t *testing.T) {
	out := NormalizeResult(map[string]any{" name ": " value "})
	obj := AsObject(out)
	require.NotNil(t, obj)
	assert.Equal(t, "value", obj["name"])
}

func TestNormalizeResultNonJSONTextStaysText(t *testing.T) {
	out := NormalizeResult([]any{map[string]any{"text": "done"}})
	assert.Equal(t, "done", out)
	assert.Nil(t, AsObject(out))
}

func TestNormalizeResultJSONEmbeddedInProse(t *testing.T) {
	out := NormalizeResult(`result: {"success": true} end`)
	obj := AsObject(out)
	require.NotNil(t, obj)
	assert.Equal(t, true, obj["success"])
}

func TestToolInfos(t *testing.T) {
	specs := []model.ToolSpec{
		{
			Name:        "update_site_name",
			Description: "更新站点名称",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]any{"type": "string", "description": "新名称"},
					"count": map[string]any{"type": "integer"},
				},
				"required": []any{"name"},
			},
		},
	}
	infos := ToolInfos(specs)
	require.Len(t, infos, 1)
	assert.Equal(t, "update_site_name", infos[0].Name)
	assert.Equal(t, "更新站点名称", infos[0].Desc)
}

func rpcServer(t *testing.T, handler func(method string, params map[string]any) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			ID     int64          `json:"id"`
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": handler(req.Method, req.Params)}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPRegistryListTools(t *testing.T) {
	srv := rpcServer(t, func(method string, _ map[string]any) any {
		assert.Equal(t, "tools/list", method)
		return map[string]any{"tools": []any{
			map[string]any{"name": "update_site_name", "description": "更新站点名称"},
			map[string]any{"description": "nameless"},
		}}
	})
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, 5*time.Second)
	specs, err := reg.ListTools(context.Background(), "t1", "s1")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "update_site_name", specs[0].Name)
}

func TestHTTPRegistryCallToolNormalizesContent(t *testing.T) {
	srv := rpcServer(t, func(method string, params map[string]any) any {
		assert.Equal(t, "tools/call", method)
		assert.Equal(t, "update_site_name", params["name"])
		return map[string]any{"content": []any{
			map[string]any{"type": "text", "text": `{"success": true}`},
		}}
	})
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, 5*time.Second)
	out, err := reg.CallTool(context.Background(), "update_site_name", map[string]any{"name": "新站点"}, "t1", "s1")
	require.NoError(t, err)
	obj := AsObject(out)
	require.NotNil(t, obj)
	assert.Equal(t, true, obj["success"])
}

func TestHTTPRegistryEventStreamBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: message\n")
		_, _ = io.WriteString(w, `data: {"jsonrpc": "2.0", "id": 1, "result": {"tools": [{"name": "a", "description": "b"}]}}`+"\n\n")
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, 5*time.Second)
	specs, err := reg.ListTools(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "a", specs[0].Name)
}

func TestHTTPRegistryRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32601, "message": "method not found"}}`)
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, 5*time.Second)
	_, err := reg.ListTools(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}
