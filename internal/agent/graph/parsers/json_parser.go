package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	logx "github.com/cms-copilot/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxErrSnippet = 200        // limit error snippet size
)

var (
	fenceRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	commentRe = regexp.MustCompile(`(?s)<!--\s*(\{.*?\})\s*-->`)
)

// ExtractJSONObject pulls a JSON object out of raw model output. It tries the
// whole text first, then the content of a ```json``` fence, then the span
// between the first '{' and the last '}'. Returns nil when nothing decodes.
func ExtractJSONObject(content string) (obj map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			obj = nil
			err = fmt.Errorf("json parser panic")
		}
	}()

	t := strings.TrimSpace(content)
	if t == "" {
		return nil, fmt.Errorf("empty content")
	}
	if len(t) > maxContentLen {
		logx.Warn().
			Str("component", "json_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(t)).
			Msg("content truncated due to size limit")
		t = t[:maxContentLen]
	}

	if m := decodeObject(t); m != nil {
		return m, nil
	}
	if g := fenceRe.FindStringSubmatch(t); len(g) == 2 {
		if m := decodeObject(g[1]); m != nil {
			return m, nil
		}
	}
	l := strings.Index(t, "{")
	r := strings.LastIndex(t, "}")
	if 0 <= l && l < r {
		if m := decodeObject(t[l : r+1]); m != nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no json object in content: %s", safeSnippet(t))
}

// ExtractJSONArray is the array counterpart of ExtractJSONObject.
func ExtractJSONArray(content string) (arr []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			arr = nil
			err = fmt.Errorf("json parser panic")
		}
	}()

	t := strings.TrimSpace(content)
	if t == "" {
		return nil, fmt.Errorf("empty content")
	}
	if len(t) > maxContentLen {
		t = t[:maxContentLen]
	}

	if a := decodeArray(t); a != nil {
		return a, nil
	}
	if g := fenceRe.FindStringSubmatch(t); len(g) == 2 {
		if a := decodeArray(g[1]); a != nil {
			return a, nil
		}
	}
	l := strings.Index(t, "[")
	r := strings.LastIndex(t, "]")
	if 0 <= l && l < r {
		if a := decodeArray(t[l : r+1]); a != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no json array in content: %s", safeSnippet(t))
}

// ExtractCommentPayload finds a JSON object embedded in an HTML comment
// marker within user text, the structured-submission channel the frontend
// uses alongside plain prose.
func ExtractCommentPayload(text string) map[string]any {
	g := commentRe.FindStringSubmatch(text)
	if len(g) != 2 {
		return nil
	}
	return decodeObject(g[1])
}

func decodeObject(s string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &m); err != nil {
		return nil
	}
	return m
}

func decodeArray(s string) []any {
	var a []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &a); err != nil {
		return nil
	}
	return a
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
