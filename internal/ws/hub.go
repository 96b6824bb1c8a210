package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event 房间工作协程消费的一条入站事件。
type Event struct {
	ConnID string
	Sender Sender
	Raw    []byte
}

// Sender 能向单个客户端推送消息。由 Client 实现。
type Sender interface {
	SendJSON(v interface{}) error
	Close()
}

// EventHandler 处理一个房间内的入站事件。由 MessageRouter 实现。
type EventHandler interface {
	Handle(room *RoomHub, ev Event)
}

// RoomHub 单个房间的连接集合。入站事件经 inbound 交给唯一的
// 工作协程串行处理，保证房间内消息的持久化与广播顺序一致。
// clients 用锁保护而不收进工作协程，处理器在处理事件时要回头广播。
type RoomHub struct {
	roomID  uint
	mu      sync.Mutex
	clients map[string]Sender
	inbound chan Event
	done    chan struct{}
}

func newRoomHub(roomID uint, handler EventHandler) *RoomHub {
	h := &RoomHub{
		roomID:  roomID,
		clients: make(map[string]Sender),
		inbound: make(chan Event, 64),
		done:    make(chan struct{}),
	}
	go h.run(handler)
	return h
}

func (h *RoomHub) run(handler EventHandler) {
	for {
		select {
		case ev := <-h.inbound:
			handler.Handle(h, ev)
		case <-h.done:
			return
		}
	}
}

func (h *RoomHub) RoomID() uint { return h.roomID }

func (h *RoomHub) Join(connID string, s Sender) {
	h.mu.Lock()
	h.clients[connID] = s
	h.mu.Unlock()
}

func (h *RoomHub) Leave(connID string) {
	h.mu.Lock()
	delete(h.clients, connID)
	h.mu.Unlock()
}

// Enqueue 把入站事件交给房间工作协程。队列满则丢弃并记日志。
func (h *RoomHub) Enqueue(ev Event) {
	select {
	case h.inbound <- ev:
	default:
		log.Warn().Uint("room", h.roomID).Str("conn", ev.ConnID).Msg("room queue full, dropping event")
	}
}

// Broadcast 向房间内所有连接推送 v，exclude 中的连接号除外。
func (h *RoomHub) Broadcast(v interface{}, exclude ...string) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Uint("room", h.roomID).Msg("broadcast marshal failed")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, client := range h.clients {
		if _, ok := skip[connID]; ok {
			continue
		}
		if err := client.SendJSON(json.RawMessage(payload)); err != nil {
			log.Warn().Err(err).Str("conn", connID).Msg("broadcast send failed")
		}
	}
}

func (h *RoomHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *RoomHub) stop() {
	close(h.done)
}

// Hub 按房间号惰性创建 RoomHub。
type Hub struct {
	mu      sync.Mutex
	rooms   map[uint]*RoomHub
	handler EventHandler
}

func NewHub(handler EventHandler) *Hub {
	return &Hub{rooms: make(map[uint]*RoomHub), handler: handler}
}

// Room 返回房间的 RoomHub，首次访问时创建并启动工作协程。
func (h *Hub) Room(roomID uint) *RoomHub {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[roomID]; ok {
		return room
	}
	room := newRoomHub(roomID, h.handler)
	h.rooms[roomID] = room
	return room
}

// Shutdown 停掉所有房间工作协程。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		room.stop()
	}
	h.rooms = make(map[uint]*RoomHub)
}
