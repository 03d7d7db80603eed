package gateway

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEVMRPCClientSubmit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Method != "eth_sendTransaction" {
			t.Fatalf("unexpected method %s", req.Method)
		}
		if !strings.Contains(string(body), `"data":"0xdeadbeef"`) {
			t.Fatalf("calldata missing from params: %s", body)
		}
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":"0xabc123"}`)
	}))
	defer ts.Close()

	cli := &EVMRPCClient{
		BaseURL:    ts.URL,
		From:       "0xf00",
		HTTPClient: ts.Client(),
	}
	hash, err := cli.Submit("0xdeadbeef", "0x0rderbook")
	if err != nil {
		t.Fatalf("submit err: %v", err)
	}
	if hash != "0xabc123" {
		t.Fatalf("unexpected hash %s", hash)
	}
}

func TestEVMRPCClientSubmitRPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":4001,"message":"user rejected transaction"}}`)
	}))
	defer ts.Close()

	cli := &EVMRPCClient{BaseURL: ts.URL, From: "0xf00", HTTPClient: ts.Client()}
	_, err := cli.Submit("0x00", "0x01")
	if err == nil {
		t.Fatal("expected rpc error")
	}
	// 节点消息必须原样透出
	if err.Error() != "user rejected transaction" {
		t.Fatalf("unexpected error message %q", err.Error())
	}
}

func TestEVMRPCClientChainID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":"0x89"}`)
	}))
	defer ts.Close()

	cli := &EVMRPCClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	id, err := cli.ChainID()
	if err != nil {
		t.Fatalf("chain id err: %v", err)
	}
	if id != 137 {
		t.Fatalf("expected 137, got %d", id)
	}
}

func TestEVMRPCClientNoHTTPClient(t *testing.T) {
	cli := &EVMRPCClient{BaseURL: "http://localhost"}
	if _, err := cli.Submit("0x00", "0x01"); err == nil {
		t.Fatal("expected error without http client")
	}
}

// abiString 构造动态 string 返回值的 ABI 编码。
func abiString(s string) string {
	data := hex.EncodeToString([]byte(s))
	for len(data)%64 != 0 {
		data += "0"
	}
	return fmt.Sprintf("0x%064x%064x%s", 32, len(s), data)
}

func TestEVMRPCClientTokenInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var result string
		switch {
		case strings.Contains(string(body), selectorName):
			result = abiString("Wrapped Ether")
		case strings.Contains(string(body), selectorSymbol):
			result = abiString("WETH")
		case strings.Contains(string(body), selectorDecimals):
			result = fmt.Sprintf("0x%064x", 18)
		default:
			t.Fatalf("unexpected call: %s", body)
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"%s"}`, result)
	}))
	defer ts.Close()

	cli := &EVMRPCClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	info, err := cli.TokenInfo("0xweth")
	if err != nil {
		t.Fatalf("token info err: %v", err)
	}
	if info.Name != "Wrapped Ether" || info.Symbol != "WETH" || info.Decimals != 18 {
		t.Fatalf("unexpected token info: %+v", info)
	}
}

func TestEVMRPCClientTokenInfoNotAContract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`)
	}))
	defer ts.Close()

	cli := &EVMRPCClient{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, err := cli.TokenInfo("0xnotatoken"); err == nil {
		t.Fatal("expected error for reverting call")
	}
}
