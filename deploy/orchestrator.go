package deploy

import (
	"errors"
	"fmt"
	"sync"

	"grid-deployer-go/gateway"
	"grid-deployer-go/infrastructure/alert"
	"grid-deployer-go/infrastructure/logger"
	"grid-deployer-go/metrics"
)

// State 一次部署尝试的完整状态。Orchestrator 是唯一写入方，
// 读取方通过 Snapshot 拿副本。
type State struct {
	IsDeploying bool
	CurrentStep Step
	TxHash      string
	ExplorerURL string
	Error       string
}

// Config 部署编排配置
type Config struct {
	NetworkKey  string // 目标网络 key（用于派生浏览器链接）
	ExplorerURL string // 区块浏览器基础地址

	// OnReset 部署成功后重置上游表单/策略状态；
	// success 横幅字段保留到 ClearSuccess 被调用为止。
	OnReset func()
	// OnStateChange 每次状态变化后同步回调
	OnStateChange func(State)
}

// Components 编排器依赖组件
type Components struct {
	Gateway   gateway.Gateway
	Submitter gateway.Submitter
	Wallet    gateway.WalletSession
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Alerts    *alert.Manager
}

// Orchestrator 驱动 approvals → deployment 的交易序列。
type Orchestrator struct {
	config Config

	gw        gateway.Gateway
	submitter gateway.Submitter
	wallet    gateway.WalletSession
	logger    *logger.Logger
	metrics   *metrics.Metrics
	alerts    *alert.Manager

	machine *StateMachine

	mu    sync.RWMutex
	state State
}

// New 创建部署编排器
func New(cfg Config, components Components) (*Orchestrator, error) {
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}

	return &Orchestrator{
		config:    cfg,
		gw:        components.Gateway,
		submitter: components.Submitter,
		wallet:    components.Wallet,
		logger:    components.Logger,
		metrics:   components.Metrics,
		alerts:    components.Alerts,
		machine:   NewStateMachine(),
		state:     State{CurrentStep: StepIdle},
	}, nil
}

// Snapshot 返回当前状态副本。
func (o *Orchestrator) Snapshot() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// StartDeployment runs one deployment attempt: fetch transaction args,
// verify the wallet chain, submit approvals strictly in order, then the
// deployment transaction. The caller checks canSubmit before invoking;
// preconditions are assumed met here. Runs synchronously.
func (o *Orchestrator) StartDeployment() error {
	o.mu.Lock()
	if o.state.IsDeploying {
		o.mu.Unlock()
		return errors.New("deployment already in progress")
	}
	if err := o.machine.ValidateTransition(o.state.CurrentStep, StepApproving); err != nil {
		o.mu.Unlock()
		return err
	}
	// 进入 approving：清除上一次的错误
	o.state = State{IsDeploying: true, CurrentStep: StepApproving}
	o.mu.Unlock()
	o.notify()

	if o.metrics != nil {
		o.metrics.RecordDeploymentStarted()
	}
	o.logger.LogDeployment("deployment_started", string(StepApproving), map[string]interface{}{
		"network": o.config.NetworkKey,
		"address": o.wallet.Address(),
	})

	args, err := o.gw.GetDeploymentTransactionArgs(o.wallet.Address())
	if err != nil {
		o.fail(messageOr(err, "Transaction failed"))
		return nil
	}

	// 链ID守卫：不匹配则一笔交易都不提交
	if walletChain := o.wallet.ChainID(); walletChain != args.ChainID {
		if o.metrics != nil {
			o.metrics.RecordChainMismatch()
		}
		o.fail(fmt.Sprintf("chain mismatch: wallet is on chain %d, deployment requires chain ID %d", walletChain, args.ChainID))
		return nil
	}

	// 授权阶段：严格按列表顺序逐笔提交，首个失败中止后续全部
	for i, approval := range args.Approvals {
		hash, err := o.submitter.Submit(approval.Calldata, approval.Token)
		if err != nil {
			o.fail(prefixed("Approval failed", err))
			return nil
		}
		if o.metrics != nil {
			o.metrics.RecordApprovalSubmitted()
		}
		o.logger.LogDeployment("approval_submitted", string(StepApproving), map[string]interface{}{
			"index":   i,
			"token":   approval.Token,
			"tx_hash": hash,
		})
	}

	// 部署阶段
	o.transition(StepDeploying)

	hash, err := o.submitter.Submit(args.DeploymentCalldata, args.OrderbookAddress)
	if err != nil {
		o.fail(prefixed("Deployment failed", err))
		return nil
	}

	explorerURL := fmt.Sprintf("%s/address/%s", o.config.ExplorerURL, args.OrderbookAddress)

	o.mu.Lock()
	o.state = State{
		CurrentStep: StepSuccess,
		TxHash:      hash,
		ExplorerURL: explorerURL,
	}
	o.mu.Unlock()
	o.notify()

	if o.metrics != nil {
		o.metrics.RecordDeploymentOutcome(true)
	}
	o.logger.LogDeployment("deployment_succeeded", string(StepSuccess), map[string]interface{}{
		"tx_hash":  hash,
		"explorer": explorerURL,
	})

	// 重置上游表单状态；success 横幅字段保留
	if o.config.OnReset != nil {
		o.config.OnReset()
	}
	return nil
}

// ClearSuccess 清除 success 终态（例如下一次 token 切换时调用）。
func (o *Orchestrator) ClearSuccess() {
	o.mu.Lock()
	if o.state.CurrentStep != StepSuccess {
		o.mu.Unlock()
		return
	}
	o.state = State{CurrentStep: StepIdle}
	o.mu.Unlock()
	o.notify()
}

// Reset 回到初始状态，开始新一轮配置前调用。
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.state = State{CurrentStep: StepIdle}
	o.mu.Unlock()
	o.notify()
}

// transition 推进到下一步骤并通知。
func (o *Orchestrator) transition(to Step) {
	o.mu.Lock()
	o.state.CurrentStep = to
	o.mu.Unlock()
	o.notify()
}

// fail 进入 error 终态。
func (o *Orchestrator) fail(msg string) {
	o.mu.Lock()
	o.state = State{CurrentStep: StepError, Error: msg}
	o.mu.Unlock()
	o.notify()

	if o.metrics != nil {
		o.metrics.RecordDeploymentOutcome(false)
	}
	if o.alerts != nil {
		_ = o.alerts.SendError("部署失败: "+msg, map[string]interface{}{
			"network": o.config.NetworkKey,
		})
	}
	o.logger.LogDeployment("deployment_failed", string(StepError), map[string]interface{}{
		"error": msg,
	})
}

func (o *Orchestrator) notify() {
	snap := o.Snapshot()
	if o.metrics != nil {
		o.metrics.SetDeploymentStep(stepGaugeValue(snap.CurrentStep))
	}
	if o.config.OnStateChange != nil {
		o.config.OnStateChange(snap)
	}
}

func stepGaugeValue(s Step) float64 {
	switch s {
	case StepApproving:
		return 1
	case StepDeploying:
		return 2
	case StepSuccess:
		return 3
	case StepError:
		return 4
	default:
		return 0
	}
}

// messageOr 优先取错误自身的消息，空则用阶段回退消息。
func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

// prefixed 按阶段加前缀，消息可用时原样保留。
func prefixed(phase string, err error) string {
	if err == nil || err.Error() == "" {
		return phase
	}
	return phase + ": " + err.Error()
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Gateway == nil {
		return errors.New("gateway is required")
	}
	if comp.Submitter == nil {
		return errors.New("submitter is required")
	}
	if comp.Wallet == nil {
		return errors.New("wallet is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
