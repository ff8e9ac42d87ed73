package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cms-copilot/server/internal/agent/model"
	logx "github.com/cms-copilot/server/pkg/logger"
)

// Registry is the tool-provider boundary. Two independent registries exist:
// the site-settings registry consumed by the shortcut machine and the
// analytics registry consumed by the report pipeline.
type Registry interface {
	ListTools(ctx context.Context, tenantID, siteID string) ([]model.ToolSpec, error)
	CallTool(ctx context.Context, name string, args map[string]any, tenantID, siteID string) (any, error)
}

const maxResponseBytes = 4 * 1024 * 1024

// HTTPRegistry talks JSON-RPC over streamable HTTP. Every call is a fresh
// request; no session state is carried across turns.
type HTTPRegistry struct {
	url    string
	client *http.Client
	seq    int64
}

func NewHTTPRegistry(url string, timeout time.Duration) *HTTPRegistry {
	return &HTTPRegistry{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type rpcReq struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResp struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r *HTTPRegistry) send(ctx context.Context, method string, params map[string]any, tenantID, siteID string) (map[string]any, error) {
	req := rpcReq{JSONRPC: "2.0", ID: atomic.AddInt64(&r.seq, 1), Method: method, Params: params}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if siteID != "" {
		httpReq.Header.Set("X-Site-Id", siteID)
	}
	if tenantID != "" {
		httpReq.Header.Set("X-Tenant-Id", tenantID)
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		logx.Error().Err(err).Str("url", r.url).Str("method", method).Msg("registry request failed")
		return nil, fmt.Errorf("registry %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("registry %s: unexpected status %d", method, httpResp.StatusCode)
	}

	body, err := decodeBody(httpResp)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", method, err)
	}

	var resp rpcResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("registry %s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("registry error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// decodeBody handles both plain JSON responses and the event-stream framing
// some servers answer with, where the payload rides on a "data:" line.
func decodeBody(resp *http.Response) ([]byte, error) {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	}
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxResponseBytes))
	scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if strings.HasPrefix(data, "{") {
				return []byte(data), nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("event stream carried no json payload")
}

func (r *HTTPRegistry) ListTools(ctx context.Context, tenantID, siteID string) ([]model.ToolSpec, error) {
	res, err := r.send(ctx, "tools/list", nil, tenantID, siteID)
	if err != nil {
		return nil, err
	}
	raw, ok := res["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("invalid tools/list result")
	}
	out := make([]model.ToolSpec, 0, len(raw))
	for _, v := range raw {
		b, _ := json.Marshal(v)
		var t model.ToolSpec
		_ = json.Unmarshal(b, &t)
		if t.Name != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *HTTPRegistry) CallTool(ctx context.Context, name string, args map[string]any, tenantID, siteID string) (any, error) {
	res, err := r.send(ctx, "tools/call", map[string]any{"name": name, "arguments": args}, tenantID, siteID)
	if err != nil {
		return nil, err
	}
	if content, ok := res["content"]; ok {
		return NormalizeResult(content), nil
	}
	return NormalizeResult(res), nil
}

var _ Registry = (*HTTPRegistry)(nil)

// NormalizeResult coerces a tool result into plain JSON values. Servers
// commonly answer with a content list whose first item wraps the real JSON
// payload as text; field names occasionally carry stray whitespace.
func NormalizeResult(res any) any {
	switch v := res.(type) {
	case []any:
		if len(v) == 0 {
			return stripKeys(v)
		}
		if first, ok := v[0].(map[string]any); ok {
			if text, ok := first["text"].(string); ok {
				return stripKeys(tryParseJSONText(text))
			}
		}
		if first, ok := v[0].(string); ok {
			return stripKeys(tryParseJSONText(first))
		}
		return stripKeys(v)
	case map[string]any:
		return stripKeys(v)
	case string:
		return stripKeys(tryParseJSONText(v))
	default:
		return v
	}
}

// AsObject narrows a normalized result to a JSON object.
func AsObject(res any) map[string]any {
	if m, ok := res.(map[string]any); ok {
		return m
	}
	return nil
}

func stripKeys(obj any) any {
	switch v := obj.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[strings.TrimSpace(k)] = stripKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stripKeys(item)
		}
		return out
	case string:
		return strings.TrimSpace(v)
	default:
		return obj
	}
}

func tryParseJSONText(text string) any {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	var obj any
	if err := json.Unmarshal([]byte(t), &obj); err == nil {
		return obj
	}
	l := strings.Index(t, "{")
	r := strings.LastIndex(t, "}")
	if 0 <= l && l < r {
		if err := json.Unmarshal([]byte(t[l:r+1]), &obj); err == nil {
			return obj
		}
	}
	return t
}
