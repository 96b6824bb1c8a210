// Package chatbot 维护无人值守房间里的 AI 问诊机器人及其按房间缓存的实例池。
package chatbot

import (
	"context"
	"sync"

	"github.com/E011011101001/HEAL-backend/internal/langsvc"
	"github.com/E011011101001/HEAL-backend/internal/metrics"
)

// Bot 持有一段持续增长的对话历史，首条是按语言本地化的问诊系统提示。
type Bot struct {
	mu      sync.Mutex
	svc     langsvc.Service
	history []langsvc.Turn
}

func newBot(svc langsvc.Service, lang string) *Bot {
	return &Bot{
		svc: svc,
		history: []langsvc.Turn{
			{Role: "system", Content: langsvc.IntakePrompt(lang)},
		},
	}
}

// Reply 把用户消息追加到对话并返回机器人的回答。
// 调用失败时历史保持不变，下一条消息可以重新携带同样的上下文。
func (b *Bot) Reply(ctx context.Context, text string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	turns := make([]langsvc.Turn, len(b.history), len(b.history)+1)
	copy(turns, b.history)
	turns = append(turns, langsvc.Turn{Role: "user", Content: text})

	reply, err := b.svc.Chat(ctx, turns)
	if err != nil {
		return "", err
	}

	b.history = append(b.history,
		langsvc.Turn{Role: "user", Content: text},
		langsvc.Turn{Role: "assistant", Content: reply},
	)
	metrics.BotRepliesTotal.Inc()
	return reply, nil
}

// Turns 返回当前对话轮数（含系统提示），只用于观测和测试。
func (b *Bot) Turns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}
