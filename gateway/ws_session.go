package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSSession 通过节点 websocket 端点维护钱包会话状态（地址 + 链 ID）。
// 仅提供最小骨架：连接、eth_chainId 握手、读取通知；断开即视为未连接。
type WSSession struct {
	Endpoint string
	Dialer   *websocket.Dialer

	mu        sync.RWMutex
	address   string
	chainID   uint64
	connected bool
	closed    bool
	conn      *websocket.Conn

	onChainChanged func(uint64)
}

func NewWSSession(endpoint, address string) *WSSession {
	return &WSSession{
		Endpoint: endpoint,
		Dialer:   websocket.DefaultDialer,
		address:  address,
	}
}

// SetChainChangedHandler 注册链切换回调（重新验证部署前置条件用）。
func (s *WSSession) SetChainChangedHandler(fn func(uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChainChanged = fn
}

// Address 当前连接地址。
func (s *WSSession) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// ChainID 当前链 ID。
func (s *WSSession) ChainID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// Connected 会话是否在线。
func (s *WSSession) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

type wsChainIDResp struct {
	ID     int    `json:"id"`
	Result string `json:"result"`
	Method string `json:"method"`
	Params struct {
		ChainID string `json:"chainId"`
	} `json:"params"`
}

// Run 连接端点并维护会话状态，连接断开时返回错误。
func (s *WSSession) Run() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint required")
	}
	conn, _, err := s.Dialer.Dial(s.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	// 握手：查询链 ID
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "eth_chainId", "params": []interface{}{}}
	if err := conn.WriteJSON(req); err != nil {
		return err
	}

	s.setConnected(true)
	defer s.setConnected(false)

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var resp wsChainIDResp
		if err := json.Unmarshal(message, &resp); err != nil {
			continue
		}
		switch {
		case resp.Result != "":
			s.applyChainID(resp.Result)
		case resp.Method == "chainChanged":
			s.applyChainID(resp.Params.ChainID)
		}
	}
}

// Close 终止会话，Run 随之返回 nil。
func (s *WSSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *WSSession) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *WSSession) applyChainID(hexID string) {
	id, ok := parseHexUint(hexID)
	if !ok {
		return
	}
	s.mu.Lock()
	changed := id != s.chainID
	s.chainID = id
	fn := s.onChainChanged
	s.mu.Unlock()
	if changed && fn != nil {
		fn(id)
	}
}

func parseHexUint(hex string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 64)
	return v, err == nil
}
