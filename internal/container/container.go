package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"grid-deployer-go/config"
	"grid-deployer-go/deploy"
	"grid-deployer-go/gateway"
	"grid-deployer-go/infrastructure/alert"
	"grid-deployer-go/infrastructure/logger"
	"grid-deployer-go/internal/store"
	"grid-deployer-go/internal/token"
	"grid-deployer-go/metrics"
	"grid-deployer-go/strategy"
)

// defaultDotrain 内置网格策略模板；生产环境可用 --dotrain 指定外部文件。
const defaultDotrain = `#calculate-io
baseline: ${baseline-io-ratio},
growth: ${io-ratio-growth},
tranche: ${tranche-size};

#handle-io
:;`

// tokenSlots 部署前必须完成选择的代币槽位。
var tokenSlots = []string{"input", "output"}

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置；mu 保护 cfg 的热更新写入
	mu         sync.Mutex
	cfg        *config.AppConfig
	configPath string
	networkKey string
	dotrain    string

	// 基础设施
	logger  *logger.Logger
	metrics *metrics.Metrics
	alerts  *alert.Manager

	// 链上网关
	gateway   *gateway.DotrainGateway
	submitter *gateway.EVMRPCClient
	wallet    *gateway.WSSession

	// 核心服务
	registry      *strategy.Registry
	store         *store.Store
	formScheduler *store.FormScheduler
	tokenChecker  *token.Validator
	orchestrator  *deploy.Orchestrator

	// HTTP服务器
	metricsServer *http.Server

	// 生命周期管理
	lifecycle *LifecycleManager
}

// Options 容器构造选项。
type Options struct {
	ConfigPath string
	NetworkKey string // 必须存在于配置的 networks 中
	Dotrain    string // 留空使用内置模板
}

// New 创建新的Container实例
func New(opts Options) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if _, ok := cfg.Networks[opts.NetworkKey]; !ok {
		return nil, fmt.Errorf("network %q not found in config", opts.NetworkKey)
	}
	dotrain := opts.Dotrain
	if dotrain == "" {
		dotrain = defaultDotrain
	}

	return &Container{
		cfg:        &cfg,
		configPath: opts.ConfigPath,
		networkKey: opts.NetworkKey,
		dotrain:    dotrain,
		lifecycle:  NewLifecycleManager(),
	}, nil
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	if err := c.buildGateway(); err != nil {
		return fmt.Errorf("build gateway failed: %w", err)
	}

	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Logger.Info("container built")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Logger)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}

	c.metrics = metrics.New(metrics.DefaultConfig())
	c.alerts = alert.NewManager(
		[]alert.Channel{alert.NewZapChannel("log", c.logger)},
		time.Minute,
	)

	c.logger.Logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildGateway() error {
	network := c.cfg.Networks[c.networkKey]

	c.wallet = gateway.NewWSSession(network.WSURL, "")

	c.submitter = &gateway.EVMRPCClient{
		BaseURL:    network.RPCURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Limiter:    gateway.NewTokenBucketLimiter(c.cfg.RPC.RatePerSec, c.cfg.RPC.Burst),
	}

	gw, err := gateway.NewDotrainGateway(gateway.DotrainConfig{
		Strategy: gateway.StrategyDetail{
			Name:        "Grid",
			Description: "Buy orders at geometrically increasing prices",
		},
		Dotrain: c.dotrain,
		Deployments: map[string]gateway.DeploymentDetail{
			c.networkKey: {
				Name:    c.networkKey,
				ChainID: network.ChainID,
			},
		},
		Orderbooks: map[string]string{
			c.networkKey: network.OrderbookAddress,
		},
		TokenLookup: c.lookupToken,
	})
	if err != nil {
		return err
	}
	c.gateway = gw

	c.logger.Logger.Info("gateway built")
	return nil
}

// lookupToken 通过节点查询代币元数据。
func (c *Container) lookupToken(address string) (gateway.TokenInfo, error) {
	return c.submitter.TokenInfo(address)
}

func (c *Container) buildCoreServices() error {
	c.registry = strategy.NewRegistry()
	grid, err := strategy.NewGridStrategy()
	if err != nil {
		return fmt.Errorf("build grid strategy failed: %w", err)
	}
	if err := c.registry.Register(grid); err != nil {
		return fmt.Errorf("register grid strategy failed: %w", err)
	}

	c.store = store.New(store.Config{
		Registry:    c.registry,
		StrategyKey: strategy.GridKey,
		TokenSlots:  tokenSlots,
		Wallet:      c.wallet,
		Sink: func(event string, fields map[string]interface{}) {
			c.logger.LogValidation(event, fields)
		},
		Metrics: c.metrics,
	})

	c.formScheduler = store.NewFormScheduler(
		c.store,
		time.Duration(c.cfg.Validation.FormDebounceMs)*time.Millisecond,
		c.syncFormToGateway,
	)

	c.tokenChecker, err = token.New(token.Config{
		Lookup: c.gateway.GetTokenInfo,
		OnResult: func(slot string, info gateway.TokenInfo, err error) {
			c.store.SetValidating(false)
			if err != nil {
				c.store.ClearToken(slot)
				c.logger.LogError(err, map[string]interface{}{
					"action": "token_validation",
					"slot":   slot,
				})
				return
			}
			c.store.SetToken(slot, info)
		},
		Debounce: time.Duration(c.cfg.Validation.TokenDebounceMs) * time.Millisecond,
		Timeout:  time.Duration(c.cfg.Validation.TokenTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("build token validator failed: %w", err)
	}

	network := c.cfg.Networks[c.networkKey]
	c.orchestrator, err = deploy.New(deploy.Config{
		NetworkKey:  c.networkKey,
		ExplorerURL: network.ExplorerURL,
		OnReset:     c.store.Reset,
		OnStateChange: func(st deploy.State) {
			c.store.SetDeploying(st.IsDeploying)
		},
	}, deploy.Components{
		Gateway:   c.gateway,
		Submitter: c.submitter,
		Wallet:    c.wallet,
		Logger:    c.logger,
		Metrics:   c.metrics,
		Alerts:    c.alerts,
	})
	if err != nil {
		return fmt.Errorf("build orchestrator failed: %w", err)
	}

	c.logger.Logger.Info("core services built")
	return nil
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register("metrics_server", &httpServerComponent{
			name:    "metrics_server",
			handler: c.metrics.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
			server:  &c.metricsServer,
		})
	}

	c.lifecycle.Register("wallet_session", &funcComponent{
		name: "wallet_session",
		start: func(ctx context.Context) error {
			go func() {
				if err := c.wallet.Run(); err != nil {
					c.logger.LogError(err, map[string]interface{}{
						"action": "wallet_session",
					})
				}
			}()
			return nil
		},
		stop: c.wallet.Close,
	})

	if c.cfg.Reload.Enabled {
		cooldown := time.Duration(c.cfg.Reload.CooldownMs) * time.Millisecond
		watcher, err := config.NewWatcher(c.configPath, cooldown, c.applyConfig)
		if err != nil {
			c.logger.LogError(err, map[string]interface{}{"action": "config_watcher"})
			return
		}
		c.lifecycle.Register("config_watcher", watcher)
	}
}

// syncFormToGateway 把整表字段值推进 dotrain 网关。
func (c *Container) syncFormToGateway(values map[string]string) {
	for binding, value := range values {
		if err := c.gateway.SetFieldValue(binding, value); err != nil {
			c.logger.LogError(err, map[string]interface{}{
				"action":  "form_sync",
				"binding": binding,
			})
		}
	}
}

// applyConfig 热更新可在线调整的配置项；网络与链参数需要重启。
func (c *Container) applyConfig(next config.AppConfig) {
	c.mu.Lock()
	c.cfg.Validation = next.Validation
	c.mu.Unlock()

	c.tokenChecker.SetPacing(
		time.Duration(next.Validation.TokenDebounceMs)*time.Millisecond,
		time.Duration(next.Validation.TokenTimeoutMs)*time.Millisecond,
	)
	c.formScheduler.SetWindow(time.Duration(next.Validation.FormDebounceMs) * time.Millisecond)

	c.logger.Logger.Info("config reloaded")
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Logger.Info("stopping container...")

	if err := c.lifecycle.StopAll(); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
		return err
	}

	// 放弃所有在途代币验证，防止回调打到已关闭的组件
	for _, slot := range tokenSlots {
		c.tokenChecker.Cancel(slot)
	}

	if c.logger != nil {
		c.logger.Close()
	}
	return nil
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

// Store 暴露表单存储（CLI/服务端点使用）。
func (c *Container) Store() *store.Store {
	return c.store
}

// Orchestrator 暴露部署编排器。
func (c *Container) Orchestrator() *deploy.Orchestrator {
	return c.orchestrator
}

// TokenChecker 暴露代币验证器。
func (c *Container) TokenChecker() *token.Validator {
	return c.tokenChecker
}

// EditField 同步重算本地验证，网关同步按静默窗口合并。
func (c *Container) EditField(binding, value string) {
	c.formScheduler.FieldEdited(binding, value)
}

// FlushForm 立即执行挂起的网关同步（部署前调用）。
func (c *Container) FlushForm() {
	c.formScheduler.Flush()
}

// RequestTokenValidation 发起一次防抖的代币验证并标记验证进行中。
func (c *Container) RequestTokenValidation(slot, address string) {
	c.store.SetValidating(true)
	c.tokenChecker.Request(slot, address)
}

// Gateway 暴露策略网关。
func (c *Container) Gateway() *gateway.DotrainGateway {
	return c.gateway
}
