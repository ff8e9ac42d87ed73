package model

// UISnapshot is one incremental UI update pushed to the frontend. Snapshots
// addressing the same ID form a total order: the consumer either replaces the
// card (Merge=false) or shallow-merges Props into it (Merge=true).
type UISnapshot struct {
	Name            string         `json:"name"`
	ID              string         `json:"id"`
	AnchorMessageID string         `json:"anchor_message_id"`
	Props           map[string]any `json:"props"`
	Merge           bool           `json:"merge"`
}

// mergeProps shallow-merges src over dst into a fresh map.
func mergeProps(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
