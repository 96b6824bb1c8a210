package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/E011011101001/HEAL-backend/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	connectWait    = 15 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client 一条已升级的 websocket 连接。出站消息经 send 通道由写协程发出。
type Client struct {
	connID    string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newClient(connID string, conn *websocket.Conn) *Client {
	return &Client{connID: connID, conn: conn, send: make(chan []byte, sendBuffer)}
}

// SendJSON 把 v 序列化后排入发送队列。队列满视作连接已不健康。
func (c *Client) SendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.Close()
		return websocket.ErrCloseSent
	}
}

// Close 关闭发送队列，写协程随后关闭底层连接。幂等。
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler 返回 websocket 接入的 gin handler。
// 升级后第一帧必须是 connect 帧，校验失败推送错误事件并断开。
func Handler(hub *Hub, sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		connID := uuid.NewString()
		client := newClient(connID, conn)
		go client.writePump()

		metrics.WsConnections.Inc()
		defer metrics.WsConnections.Dec()

		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(connectWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			client.Close()
			return
		}
		var frame ConnectFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "connect" {
			client.SendJSON(ErrorEvent{Error: KindMissingItems, Message: "expected a connect frame"})
			client.Close()
			return
		}
		sess, err := sessions.Connect(connID, frame.Token, frame.RoomID)
		if err != nil {
			client.SendJSON(ErrorEvent{Error: KindUnauthorized, Message: err.Error()})
			client.Close()
			return
		}
		log.Info().Str("conn", connID).Uint("user", sess.User.ID).Uint("room", sess.RoomID).
			Msg("websocket connected")

		room := hub.Room(sess.RoomID)
		room.Join(connID, client)
		defer func() {
			room.Leave(connID)
			sessions.Disconnect(connID)
			client.Close()
			log.Info().Str("conn", connID).Msg("websocket disconnected")
		}()

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			var probe InboundFrame
			if err := json.Unmarshal(raw, &probe); err == nil && probe.Message == "ping" {
				client.SendJSON(PongFrame{Message: "pong"})
				continue
			}
			room.Enqueue(Event{ConnID: connID, Sender: client, Raw: raw})
		}
	}
}
