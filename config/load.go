package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"grid-deployer-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string                   `yaml:"env"`
	Logger     logger.Config            `yaml:"logger"`
	Metrics    MetricsConfig            `yaml:"metrics"`
	Reload     ReloadConfig             `yaml:"reload"`
	RPC        RPCConfig                `yaml:"rpc"`
	Validation ValidationConfig         `yaml:"validation"`
	Networks   map[string]NetworkConfig `yaml:"networks"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空则关闭指标服务
}

type ReloadConfig struct {
	Enabled    bool `yaml:"enabled"`
	CooldownMs int  `yaml:"cooldownMs"` // 两次重载的最小间隔
}

// RPCConfig 节点提交限流参数。
type RPCConfig struct {
	RatePerSec float64 `yaml:"ratePerSec"` // 每秒允许的提交数
	Burst      int     `yaml:"burst"`      // 突发上限
}

// ValidationConfig 防抖/超时等验证节奏参数（毫秒）。
type ValidationConfig struct {
	FormDebounceMs  int `yaml:"formDebounceMs"`  // 整表验证静默窗口
	TokenDebounceMs int `yaml:"tokenDebounceMs"` // 代币地址验证静默窗口
	TokenTimeoutMs  int `yaml:"tokenTimeoutMs"`  // 代币验证强制超时
}

// NetworkConfig 每个可部署网络的链参数。
type NetworkConfig struct {
	ChainID          uint64 `yaml:"chainId"`
	RPCURL           string `yaml:"rpcURL"`
	WSURL            string `yaml:"wsURL"`
	ExplorerURL      string `yaml:"explorerURL"`
	OrderbookAddress string `yaml:"orderbookAddress"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides node endpoints from env
// vars if present (GRID_RPC_URL_<NETWORK> / GRID_WS_URL_<NETWORK>).
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	for key, nc := range cfg.Networks {
		envKey := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if v := os.Getenv("GRID_RPC_URL_" + envKey); v != "" {
			nc.RPCURL = v
		}
		if v := os.Getenv("GRID_WS_URL_" + envKey); v != "" {
			nc.WSURL = v
		}
		cfg.Networks[key] = nc
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logger.Level == "" {
		cfg.Logger = logger.DefaultConfig()
	}
	if cfg.Validation.FormDebounceMs == 0 {
		cfg.Validation.FormDebounceMs = 300
	}
	if cfg.Validation.TokenDebounceMs == 0 {
		cfg.Validation.TokenDebounceMs = 1000
	}
	if cfg.Validation.TokenTimeoutMs == 0 {
		cfg.Validation.TokenTimeoutMs = 10000
	}
	if cfg.Reload.CooldownMs == 0 {
		cfg.Reload.CooldownMs = 5000
	}
	if cfg.RPC.RatePerSec == 0 {
		cfg.RPC.RatePerSec = 5
	}
	if cfg.RPC.Burst == 0 {
		cfg.RPC.Burst = 10
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if len(cfg.Networks) == 0 {
		return errors.New("networks config is required")
	}
	for key, nc := range cfg.Networks {
		if nc.ChainID == 0 {
			return fmt.Errorf("network %s chainId must be > 0", key)
		}
		if nc.RPCURL == "" {
			return fmt.Errorf("network %s rpcURL is required (or env override)", key)
		}
		if nc.ExplorerURL == "" {
			return fmt.Errorf("network %s explorerURL is required", key)
		}
		if nc.OrderbookAddress == "" {
			return fmt.Errorf("network %s orderbookAddress is required", key)
		}
	}
	return ValidateParams(cfg)
}
