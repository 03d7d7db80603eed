package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// EVMRPCClient 一个简化的 JSON-RPC 提交客户端；默认不发起真实网络调用，
// HTTPClient 可注入 httptest。
type EVMRPCClient struct {
	BaseURL    string
	From       string
	HTTPClient *http.Client
	Limiter    RateLimiter
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

type txParams struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

// Submit 调用 eth_sendTransaction 广播交易，返回交易哈希。
// 节点返回的错误消息原样向上传递。
func (c *EVMRPCClient) Submit(calldata, to string) (string, error) {
	return c.SubmitContext(context.Background(), calldata, to)
}

// SubmitContext 同 Submit，但限流等待和 HTTP 请求都挂在 ctx 上。
func (c *EVMRPCClient) SubmitContext(ctx context.Context, calldata, to string) (string, error) {
	if c == nil || c.HTTPClient == nil {
		return "", fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}
	resp, err := c.call(ctx, "eth_sendTransaction", []interface{}{txParams{
		From: c.From,
		To:   to,
		Data: calldata,
	}})
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("empty transaction hash")
	}
	return resp, nil
}

// ChainID 查询节点链 ID（eth_chainId 返回十六进制字符串）。
func (c *EVMRPCClient) ChainID() (uint64, error) {
	if c == nil || c.HTTPClient == nil {
		return 0, fmt.Errorf("http client not set")
	}
	resp, err := c.call(context.Background(), "eth_chainId", []interface{}{})
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(resp, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse chain id %q: %w", resp, err)
	}
	return id, nil
}

// ERC-20 元数据查询选择器。
const (
	selectorName     = "0x06fdde03"
	selectorSymbol   = "0x95d89b41"
	selectorDecimals = "0x313ce567"
)

type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// TokenInfo 通过三次 eth_call 读取代币的 name/symbol/decimals。
// 任何一次失败都让整个查询失败，调用方据此拒绝该代币。
func (c *EVMRPCClient) TokenInfo(address string) (TokenInfo, error) {
	if c == nil || c.HTTPClient == nil {
		return TokenInfo{}, fmt.Errorf("http client not set")
	}
	ctx := context.Background()
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return TokenInfo{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	name, err := c.callString(ctx, address, selectorName)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("name(): %w", err)
	}
	symbol, err := c.callString(ctx, address, selectorSymbol)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("symbol(): %w", err)
	}
	raw, err := c.ethCall(ctx, address, selectorDecimals)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("decimals(): %w", err)
	}
	decimals, err := decodeUint8(raw)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("decimals(): %w", err)
	}

	return TokenInfo{
		Address:  address,
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
	}, nil
}

func (c *EVMRPCClient) ethCall(ctx context.Context, to, data string) (string, error) {
	return c.call(ctx, "eth_call", []interface{}{callParams{To: to, Data: data}, "latest"})
}

func (c *EVMRPCClient) callString(ctx context.Context, to, selector string) (string, error) {
	raw, err := c.ethCall(ctx, to, selector)
	if err != nil {
		return "", err
	}
	return decodeString(raw)
}

// decodeString 解码 ABI 编码的动态 string 返回值
// （32 字节偏移 + 32 字节长度 + 数据）。
func decodeString(raw string) (string, error) {
	hexStr := strings.TrimPrefix(raw, "0x")
	if len(hexStr) < 128 {
		return "", fmt.Errorf("short string response %q", raw)
	}
	length, err := strconv.ParseUint(hexStr[64:128], 16, 32)
	if err != nil {
		return "", fmt.Errorf("parse string length: %w", err)
	}
	if uint64(len(hexStr[128:])) < length*2 {
		return "", fmt.Errorf("truncated string response")
	}
	data, err := hex.DecodeString(hexStr[128 : 128+length*2])
	if err != nil {
		return "", fmt.Errorf("decode string data: %w", err)
	}
	return string(data), nil
}

// decodeUint8 解码 32 字节定长返回值的最低字节。
func decodeUint8(raw string) (uint8, error) {
	hexStr := strings.TrimPrefix(raw, "0x")
	if len(hexStr) != 64 {
		return 0, fmt.Errorf("unexpected uint response %q", raw)
	}
	v, err := strconv.ParseUint(hexStr[62:], 16, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func (c *EVMRPCClient) call(ctx context.Context, method string, params []interface{}) (string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		return "", fmt.Errorf("%s status %d", method, httpResp.StatusCode)
	}
	var rr rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&rr); err != nil {
		return "", err
	}
	if rr.Error != nil {
		return "", fmt.Errorf("%s", rr.Error.Message)
	}
	return rr.Result, nil
}
