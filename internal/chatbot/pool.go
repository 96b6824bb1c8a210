package chatbot

import (
	"sync"

	"github.com/E011011101001/HEAL-backend/internal/langsvc"
)

// Pool 按房间懒加载机器人实例。医生加入房间后由房间服务调用 Evict 释放，
// 避免池随无人值守房间数量无限增长。
type Pool struct {
	mu   sync.Mutex
	svc  langsvc.Service
	bots map[uint]*Bot
}

func NewPool(svc langsvc.Service) *Pool {
	return &Pool{svc: svc, bots: make(map[uint]*Bot)}
}

// GetOrCreate 返回房间现有的机器人；没有则用指定语言新建并缓存。
func (p *Pool) GetOrCreate(roomID uint, lang string) *Bot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bots[roomID]; ok {
		return b
	}
	b := newBot(p.svc, lang)
	p.bots[roomID] = b
	return b
}

// Evict 丢弃房间的机器人及其对话历史。
func (p *Pool) Evict(roomID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.bots, roomID)
}

// Size 返回池中机器人数量。
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bots)
}
