package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationConfigParseTTL(t *testing.T) {
	assert.Equal(t, 6*time.Hour, ConversationConfig{TTL: "6h"}.ParseTTL())
	assert.Equal(t, 24*time.Hour, ConversationConfig{TTL: "garbage"}.ParseTTL())
	assert.Equal(t, 24*time.Hour, ConversationConfig{TTL: "-1h"}.ParseTTL())
}

func TestArticleConfigStyleOptions(t *testing.T) {
	c := ArticleConfig{ContentStyleOptions: "Professional, 活泼亲和 ,,营销转化"}
	assert.Equal(t, []string{"Professional", "活泼亲和", "营销转化"}, c.StyleOptions())
}

func TestServerConfigParseTurnTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, ServerConfig{TurnTimeout: "30s"}.ParseTurnTimeout())
	assert.Equal(t, 2*time.Minute, ServerConfig{TurnTimeout: "nope"}.ParseTurnTimeout())
}
