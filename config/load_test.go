package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validYAML = `
env: dev
networks:
  polygon:
    chainId: 137
    rpcURL: https://rpc.test
    wsURL: wss://ws.test
    explorerURL: https://polygonscan.com
    orderbookAddress: "0xc95A5f8eFe14d7a20BD2E5BAFEC4E71f8Ce0B9A6"
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("unexpected env: %q", cfg.Env)
	}
	nc, ok := cfg.Networks["polygon"]
	if !ok || nc.ChainID != 137 {
		t.Fatalf("unexpected network config: %+v", cfg.Networks)
	}
	// 默认节奏参数
	if cfg.Validation.FormDebounceMs != 300 || cfg.Validation.TokenDebounceMs != 1000 || cfg.Validation.TokenTimeoutMs != 10000 {
		t.Fatalf("unexpected validation defaults: %+v", cfg.Validation)
	}
	if cfg.RPC.RatePerSec != 5 || cfg.RPC.Burst != 10 {
		t.Fatalf("unexpected rpc limiter defaults: %+v", cfg.RPC)
	}
}

func TestLoadMissingNetworks(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing networks")
	}
}

func TestLoadBadChainID(t *testing.T) {
	path := writeTempConfig(t, `
env: dev
networks:
  polygon:
    chainId: 0
    rpcURL: https://rpc.test
    explorerURL: https://polygonscan.com
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for zero chainId")
	}
}

func TestLoadMissingOrderbook(t *testing.T) {
	path := writeTempConfig(t, `
env: dev
networks:
  polygon:
    chainId: 137
    rpcURL: https://rpc.test
    explorerURL: https://polygonscan.com
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing orderbookAddress")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	t.Setenv("GRID_RPC_URL_POLYGON", "https://rpc.override")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Networks["polygon"].RPCURL != "https://rpc.override" {
		t.Fatalf("env override not applied: %+v", cfg.Networks["polygon"])
	}
}

func TestValidateParams(t *testing.T) {
	cfg := AppConfig{Env: "dev", Networks: map[string]NetworkConfig{
		"polygon": {ChainID: 137, RPCURL: "https://rpc.test", ExplorerURL: "https://polygonscan.com"},
	}}
	applyDefaults(&cfg)

	cfg.Validation.TokenTimeoutMs = 500 // 小于防抖窗口
	if err := ValidateParams(cfg); err == nil {
		t.Fatal("expected timeout < debounce to fail")
	}
}
