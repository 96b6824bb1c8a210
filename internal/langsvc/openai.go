package langsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/E011011101001/HEAL-backend/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI 基于 chat completion 实现 Service。所有结构化能力都要求模型输出 JSON，
// 由 extractJSON 做宽松解析。
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAI) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0.1,
		MaxTokens:   512,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrBadReply
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) structured(ctx context.Context, op, system, input string, out any) error {
	reply, err := o.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: input},
	})
	if err != nil {
		metrics.LangServiceCalls.WithLabelValues(op, "error").Inc()
		return err
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), out); err != nil {
		metrics.LangServiceCalls.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%w: %s", ErrBadReply, op)
	}
	metrics.LangServiceCalls.WithLabelValues(op, "ok").Inc()
	return nil
}

func (o *OpenAI) Translate(ctx context.Context, text, targetLang string) (string, error) {
	var out struct {
		Status      string `json:"status"`
		Translation string `json:"translation"`
		Reason      string `json:"reason"`
	}
	if err := o.structured(ctx, "translate", translatorPrompt(targetLang), text, &out); err != nil {
		return "", err
	}
	if out.Status != "OK" {
		return "", fmt.Errorf("%w: translate: %s", ErrBadReply, out.Reason)
	}
	return out.Translation, nil
}

func (o *OpenAI) ExtractTerms(ctx context.Context, text, lang string) ([]ExtractedTerm, error) {
	var out []ExtractedTerm
	if err := o.structured(ctx, "extract_terms", extractionPrompt(lang), text, &out); err != nil {
		return nil, err
	}
	// 保证 term 本身原样出现在同义词列表里，同义词索引按字面值匹配
	for i := range out {
		out[i].Synonyms = ensureContains(out[i].Synonyms, out[i].Term)
	}
	return out, nil
}

func (o *OpenAI) ExplainTerm(ctx context.Context, term, lang string) (TermExplanation, error) {
	var out TermExplanation
	if err := o.structured(ctx, "explain_term", explanationPrompt(lang), term, &out); err != nil {
		return TermExplanation{}, err
	}
	switch out.Type {
	case "CONDITION", "PRESCRIPTION", "GENERAL":
	default:
		out.Type = "GENERAL"
	}
	return out, nil
}

func (o *OpenAI) Synonyms(ctx context.Context, term, lang string) ([]string, error) {
	var out struct {
		Synonyms []string `json:"synonyms"`
	}
	if err := o.structured(ctx, "synonyms", synonymsPrompt(lang), term, &out); err != nil {
		return nil, err
	}
	out.Synonyms = ensureContains(out.Synonyms, term)
	return out.Synonyms, nil
}

func (o *OpenAI) Chat(ctx context.Context, history []Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, t := range history {
		role := t.Role
		switch role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant:
		default:
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	reply, err := o.complete(ctx, msgs)
	if err != nil {
		metrics.LangServiceCalls.WithLabelValues("chat", "error").Inc()
		return "", err
	}
	metrics.LangServiceCalls.WithLabelValues("chat", "ok").Inc()
	return reply, nil
}

// extractJSON 容忍模型把 JSON 包在 markdown 代码块或闲聊文字里。
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end <= start {
		return s[start:]
	}
	return s[start : end+1]
}

// ensureContains 把 s 原样并入列表。大小写变体不算命中，
// 否则术语解析会因为精确查找落空而丢弃该术语。
func ensureContains(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
