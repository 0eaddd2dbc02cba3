package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub 运营后台的实时连接，推送订阅生命周期事件
type Hub struct {
	// 每个运营可以有多个连接（多标签页、重连等场景）
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	OperatorID int64
	Conn       *websocket.Conn
	mu         sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.OperatorID] == nil {
		h.clients[client.OperatorID] = make(map[*Client]struct{})
	}
	h.clients[client.OperatorID][client] = struct{}{}

	log.Debug().
		Int64("operator_id", client.OperatorID).
		Int("operator_conns", len(h.clients[client.OperatorID])).
		Int("total", h.countLocked()).
		Msg("operator connected")
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.OperatorID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.OperatorID)
		}
	}
	log.Debug().Int64("operator_id", client.OperatorID).Msg("operator disconnected")
}

// SendToOperator 向指定运营的所有连接发送消息
func (h *Hub) SendToOperator(operatorID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[operatorID]))
	for c := range h.clients[operatorID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	h.write(clients, data)
	return nil
}

// Broadcast 向所有在线连接发送消息
func (h *Hub) Broadcast(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// 复制一份引用，避免长时间持锁
	h.mu.RLock()
	clients := make([]*Client, 0, h.countLocked())
	for _, conns := range h.clients {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	h.write(clients, data)
	return nil
}

func (h *Hub) write(clients []*Client, data []byte) {
	for _, c := range clients {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Int64("operator_id", c.OperatorID).Msg("websocket write failed")
		}
	}
}

// IsOnline 检查运营是否在线
func (h *Hub) IsOnline(operatorID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[operatorID]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
