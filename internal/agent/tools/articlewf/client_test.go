package articlewf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEventStreamSSEFraming(t *testing.T) {
	stream := strings.Join([]string{
		"event: updates",
		`data: {"flow_progress": {"flow_node_list": []}}`,
		"",
		"event: end",
		`data: {"done": true}`,
		"",
	}, "\n")

	var events []Event
	err := readEventStream(strings.NewReader(stream), func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "updates", events[0].Event)
	assert.Contains(t, events[0].Data, "flow_progress")
	assert.Equal(t, "end", events[1].Event)
}

func TestReadEventStreamNDJSON(t *testing.T) {
	stream := `{"event": "updates", "data": {"step": 1}}` + "\n" +
		`not json` + "\n" +
		`{"event": "updates", "data": {"step": 2}}` + "\n"

	var events []Event
	err := readEventStream(strings.NewReader(stream), func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, float64(1), events[0].Data["step"])
	assert.Equal(t, float64(2), events[1].Data["step"])
}

func TestFindFlowProgressNested(t *testing.T) {
	payload := map[string]any{
		"values": []any{
			map[string]any{
				"agent": map[string]any{
					"flow_progress": map[string]any{"flow_node_list": []any{}},
				},
			},
		},
	}
	fp := FindFlowProgress(payload)
	require.NotNil(t, fp)
	assert.Contains(t, fp, "flow_node_list")

	assert.Nil(t, FindFlowProgress(map[string]any{"other": 1}))
	assert.Nil(t, FindFlowProgress("text"))
}

func TestDecodeFlowNodes(t *testing.T) {
	raw := []any{
		map[string]any{"node_code": "outline", "node_name": "生成大纲", "node_status": "RUNNING"},
		map[string]any{"node_code": "draft", "node_name": "撰写正文", "node_status": "PENDING"},
	}
	nodes := DecodeFlowNodes(raw)
	require.Len(t, nodes, 2)
	assert.Equal(t, "outline", nodes[0].NodeCode)
	assert.Equal(t, "RUNNING", nodes[0].NodeStatus)

	assert.Nil(t, DecodeFlowNodes("not a list"))
}

func TestFinalizeFlowNodes(t *testing.T) {
	nodes := []FlowNode{
		{NodeCode: "outline", NodeStatus: "running"},
		{NodeCode: "draft", NodeStatus: "FAILED"},
	}
	out := FinalizeFlowNodes(nodes)
	require.Len(t, out, 3)
	assert.Equal(t, "SUCCESS", out[0].NodeStatus)
	assert.Equal(t, "FAILED", out[1].NodeStatus)
	assert.Equal(t, "__completed__", out[2].NodeCode)
	assert.Equal(t, "SUCCESS", out[2].NodeStatus)
}

func TestFinalizeFlowNodesKeepsExistingMarker(t *testing.T) {
	nodes := []FlowNode{{NodeCode: "__completed__", NodeStatus: "SUCCESS"}}
	out := FinalizeFlowNodes(nodes)
	assert.Len(t, out, 1)
}

func TestRunStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "site-1", r.Header.Get("X-Site-Id"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: updates\ndata: {\"step\": 1}\n\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "assistant-1", "demo.example.com", 5*time.Second)
	var events []Event
	err := c.Run(context.Background(), RunInput{Topic: "春季营销", SiteID: "site-1"}, func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "updates", events[0].Event)
}

func TestRunRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "", 5*time.Second)
	err := c.Run(context.Background(), RunInput{Topic: "x"}, func(Event) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
