// Package langsvc 封装对外部文本智能服务（翻译、术语抽取、术语解释、同义词、对话）
// 的访问。调用方都应传入带超时的 context，失败一律按降级处理。
package langsvc

import (
	"context"
	"errors"
)

// ExtractedTerm 是从一段文本中识别出的一个医疗术语及其同义词。
// Synonyms 恒包含 Term 本身。
type ExtractedTerm struct {
	Term     string   `json:"term"`
	Synonyms []string `json:"synonyms"`
}

// TermExplanation 术语的类型、说明与参考链接。
type TermExplanation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Turn 对话中的一轮。Role 取 "system" / "user" / "assistant"。
type Turn struct {
	Role    string
	Content string
}

// ErrBadReply 表示服务返回了无法解析的内容。
var ErrBadReply = errors.New("language service: unparsable reply")

type Service interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
	ExtractTerms(ctx context.Context, text, lang string) ([]ExtractedTerm, error)
	ExplainTerm(ctx context.Context, term, lang string) (TermExplanation, error)
	Synonyms(ctx context.Context, term, lang string) ([]string, error)
	Chat(ctx context.Context, history []Turn) (string, error)
}
