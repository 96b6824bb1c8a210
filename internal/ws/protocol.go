// Package ws 实现聊天房间的 websocket 接入：握手、会话、房间广播与消息路由。
package ws

import "time"

// ConnectFrame 连接后第一帧，声明身份与目标房间。
type ConnectFrame struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	RoomID uint   `json:"roomId"`
}

// InboundFrame 后续入站帧。message=="ping" 时为心跳，
// 否则 text 与 timestamp 必填。
type InboundFrame struct {
	Message   string     `json:"message,omitempty"`
	Text      *string    `json:"text,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ErrorEvent 推送给客户端的错误事件，message 面向用户展示。
type ErrorEvent struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PongFrame 心跳应答。
type PongFrame struct {
	Message string `json:"message"`
}

// 错误事件的 error 字段取值。websocket 侧沿用历史线上协议，
// 与 REST 错误体的命名并不一致，客户端按字面值匹配。
const (
	KindUnauthorized   = "unauthorizationError"
	KindMissingItems   = "missing items"
	KindInternalServer = "internalServerError"
)

const missingItemsMessage = `"text" and "timestamp" are required`
