// Package articlewf streams a long-running article generation job from the
// external workflow engine and surfaces its nested progress events.
package articlewf

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "github.com/cms-copilot/server/pkg/logger"
)

// Event is one streamed item from the workflow engine.
type Event struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// FlowNode is one step of the remote workflow's progress list.
type FlowNode struct {
	NodeCode    string `json:"node_code"`
	NodeName    string `json:"node_name"`
	NodeStatus  string `json:"node_status"`
	NodeMessage string `json:"node_message,omitempty"`
}

// RunInput carries the article parameters for one workflow run.
type RunInput struct {
	Topic          string
	ContentFormat  string
	TargetAudience string
	Tone           string
	TenantID       string
	SiteID         string
}

type Client struct {
	url         string
	apiKey      string
	assistantID string
	siteHost    string
	client      *http.Client
}

func NewClient(url, apiKey, assistantID, siteHost string, timeout time.Duration) *Client {
	return &Client{
		url:         url,
		apiKey:      apiKey,
		assistantID: assistantID,
		siteHost:    siteHost,
		client:      &http.Client{Timeout: timeout},
	}
}

const maxEventBytes = 1024 * 1024

// Run starts the workflow and invokes onEvent for every streamed item until
// the stream closes. Transport errors and bad statuses are returned; event
// payloads are passed through as-is.
func (c *Client) Run(ctx context.Context, in RunInput, onEvent func(Event)) error {
	body := map[string]any{
		"assistant_id": c.assistantID,
		"stream_mode":  []string{"updates"},
		"input": map[string]any{
			"chat_type":       "chat",
			"user_id":         1,
			"app_id":          "57",
			"model_id":        "76",
			"language":        "中文",
			"human_prompt":    in.Topic,
			"topic":           in.Topic,
			"content_format":  in.ContentFormat,
			"target_audience": in.TargetAudience,
			"tone":            in.Tone,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal workflow input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build workflow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if in.SiteID != "" {
		req.Header.Set("X-Site-Id", in.SiteID)
	}
	if in.TenantID != "" {
		req.Header.Set("X-Tenant-Id", in.TenantID)
	}
	if c.siteHost != "" {
		req.Header.Set("X-Site-Host", c.siteHost)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logx.Error().Err(err).Str("url", c.url).Msg("article workflow request failed")
		return fmt.Errorf("article workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("article workflow: unexpected status %d", resp.StatusCode)
	}

	return readEventStream(resp.Body, onEvent)
}

// readEventStream accepts both SSE framing (event:/data: lines) and plain
// NDJSON lines carrying {"event":..., "data":...} objects.
func readEventStream(r io.Reader, onEvent func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventBytes)

	var eventName string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			eventName = ""
			continue
		}
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			eventName = strings.TrimSpace(name)
			continue
		}
		payload := line
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			payload = strings.TrimSpace(data)
		}
		if !strings.HasPrefix(payload, "{") {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Event == "" {
			// SSE frames carry the data object bare; the event name came
			// from the preceding event: line.
			var data map[string]any
			if err := json.Unmarshal([]byte(payload), &data); err != nil {
				continue
			}
			ev = Event{Event: eventName, Data: data}
		}
		if ev.Event == "" {
			continue
		}
		onEvent(ev)
	}
	return scanner.Err()
}

// FindFlowProgress searches an event payload for a flow_progress object at
// any nesting depth. Upstream payloads are unversioned; the shape moves.
func FindFlowProgress(obj any) map[string]any {
	switch v := obj.(type) {
	case map[string]any:
		if fp, ok := v["flow_progress"].(map[string]any); ok {
			return fp
		}
		for _, child := range v {
			if found := FindFlowProgress(child); found != nil {
				return found
			}
		}
	case []any:
		for _, child := range v {
			if found := FindFlowProgress(child); found != nil {
				return found
			}
		}
	}
	return nil
}

// DecodeFlowNodes converts a raw flow_node_list into typed nodes.
func DecodeFlowNodes(raw any) []FlowNode {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]FlowNode, 0, len(list))
	for _, v := range list {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var n FlowNode
		if err := json.Unmarshal(b, &n); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// FinalizeFlowNodes normalizes statuses for the terminal card: anything not
// failed becomes SUCCESS, and a closing marker node is appended if the
// upstream never sent one.
func FinalizeFlowNodes(nodes []FlowNode) []FlowNode {
	finalized := make([]FlowNode, 0, len(nodes)+1)
	hasCompleted := false
	for _, n := range nodes {
		status := strings.ToUpper(n.NodeStatus)
		if status != "FAILED" && status != "ERROR" {
			status = "SUCCESS"
		}
		n.NodeStatus = status
		if n.NodeCode == "__completed__" {
			hasCompleted = true
		}
		finalized = append(finalized, n)
	}
	if !hasCompleted {
		finalized = append(finalized, FlowNode{
			NodeCode:    "__completed__",
			NodeName:    "Workflow completed",
			NodeStatus:  "SUCCESS",
			NodeMessage: "文章工作流已执行完成。",
		})
	}
	return finalized
}
