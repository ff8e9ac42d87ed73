// Package ragkb answers knowledge-base questions for a site. The current
// implementation is a mock; the interface is what the graph depends on.
package ragkb

import (
	"context"
	"fmt"
)

type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

type KnowledgeBase interface {
	Query(ctx context.Context, question, tenantID, siteID string) (*Answer, error)
}

type MockKnowledgeBase struct{}

func NewMockKnowledgeBase() *MockKnowledgeBase { return &MockKnowledgeBase{} }

func (m *MockKnowledgeBase) Query(_ context.Context, question, tenantID, siteID string) (*Answer, error) {
	return &Answer{
		Answer: fmt.Sprintf(
			"【Mock RAG】站点 %s（租户 %s）的知识库回复：\n针对问题「%s」，请参考后台配置文档完成相应操作。",
			siteID, tenantID, question,
		),
		Citations: []Citation{
			{Title: "CMS 使用说明（Mock）", URL: "https://example.com/docs/cms/mock"},
		},
	}, nil
}

var _ KnowledgeBase = (*MockKnowledgeBase)(nil)
