package prompts

import (
	"encoding/json"
	"fmt"
)

// ArticleClarifySystemPrompt forces a bare JSON reply from the slot extractor.
const ArticleClarifySystemPrompt = "只输出符合下述 JSON 结构的结果，不要输出多余文字。"

// BuildArticleClarifyPrompt asks the extractor model to pull the four article
// parameters out of the user's text and, when some are missing, to draft a
// clarification question with a fill-in template.
func BuildArticleClarifyPrompt(userText string, collected map[string]string) string {
	collectedJSON, err := json.Marshal(collected)
	if err != nil {
		collectedJSON = []byte("{}")
	}
	return fmt.Sprintf(`你是一个 CMS 文章生成助手的“参数补齐器”。

目标：从用户输入中提取文章生成所需的 4 个必要参数：
- topic（主题/标题）
- content_format（内容格式/栏目）
- target_audience（目标受众）
- tone（语气/风格）

你会收到：
1) 用户本轮输入 user_text
2) 历史已收集的参数 collected（可能为空）

要求：
1) 如果 user_text 或 collected 中已经明确提供了某些参数，请填入对应字段。
2) 对于不确定/缺失的参数，请把字段名加入 missing 列表。
3) 当 missing 非空时，输出 question_to_user：
   - 中文
   - 先简短说明需要补齐哪些信息
   - 然后给出推荐回复模板（key: value 形式），让用户一次性填完
4) 当 missing 为空时，question_to_user 输出空字符串。
5) missing 只能包含：topic/content_format/target_audience/tone（不要输出其它值）。

输出严格 JSON，不要 Markdown 代码块：
{"topic": "...", "content_format": "...", "target_audience": "...", "tone": "...", "missing": ["..."], "question_to_user": "..."}
未提取到的参数输出空字符串。

user_text：
%s

collected（历史已收集，若无则为空）：
%s
`, userText, string(collectedJSON))
}
