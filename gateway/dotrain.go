package gateway

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
)

// erc20ApproveSelector ERC-20 approve(address,uint256) 的 4 字节选择器。
const erc20ApproveSelector = "095ea7b3"

// addOrderSelector orderbook addOrder 入口的 4 字节选择器。
const addOrderSelector = "847a1bc9"

// DotrainConfig 本地 dotrain gateway 的构造配置。
type DotrainConfig struct {
	Strategy    StrategyDetail
	Dotrain     string                      // 策略模板文本，绑定占位符形如 ${binding}
	Deployments map[string]DeploymentDetail // key -> 可选部署目标
	Orderbooks  map[string]string           // key -> orderbook 合约地址
	TokenLookup func(address string) (TokenInfo, error)
}

// DotrainGateway 进程内的 Gateway 实现：持有模板与字段绑定，
// 组合 rainlang 并生成 approvals + 部署 calldata。
type DotrainGateway struct {
	mu sync.RWMutex

	strategy    StrategyDetail
	dotrain     string
	deployments map[string]DeploymentDetail
	orderbooks  map[string]string
	lookup      func(address string) (TokenInfo, error)

	selected    string
	fieldValues map[string]string
	deposits    map[string]string // token 地址 -> 数量（十进制字符串）
	vaultIDs    map[string]string
	tokenCache  map[string]TokenInfo

	onStateChange func(serialized string)
}

// NewDotrainGateway 创建本地 gateway；模板和部署目标缺失时同步报错。
func NewDotrainGateway(cfg DotrainConfig) (*DotrainGateway, error) {
	if cfg.Strategy.Name == "" {
		return nil, fmt.Errorf("strategy name is required")
	}
	if strings.TrimSpace(cfg.Dotrain) == "" {
		return nil, fmt.Errorf("dotrain template is required")
	}
	if len(cfg.Deployments) == 0 {
		return nil, fmt.Errorf("at least one deployment is required")
	}
	return &DotrainGateway{
		strategy:    cfg.Strategy,
		dotrain:     cfg.Dotrain,
		deployments: cfg.Deployments,
		orderbooks:  cfg.Orderbooks,
		lookup:      cfg.TokenLookup,
		fieldValues: make(map[string]string),
		deposits:    make(map[string]string),
		vaultIDs:    make(map[string]string),
		tokenCache:  make(map[string]TokenInfo),
	}, nil
}

func (g *DotrainGateway) GetStrategyDetails() (StrategyDetail, error) {
	return g.strategy, nil
}

func (g *DotrainGateway) GetDeploymentDetails() (map[string]DeploymentDetail, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]DeploymentDetail, len(g.deployments))
	for k, v := range g.deployments {
		out[k] = v
	}
	return out, nil
}

// ChooseDeployment 选中一个部署目标。已设置的字段值保留，
// 后续每次 gateway 侧变更都会通过 onStateChange 推送序列化状态。
func (g *DotrainGateway) ChooseDeployment(key string, onStateChange func(serialized string)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.deployments[key]; !ok {
		return fmt.Errorf("deployment %q not found", key)
	}
	g.selected = key
	g.onStateChange = onStateChange
	g.emitLocked()
	return nil
}

// gatewayState 序列化载荷。
type gatewayState struct {
	Selected    string            `json:"selected"`
	FieldValues map[string]string `json:"fieldValues"`
	Deposits    map[string]string `json:"deposits"`
	VaultIDs    map[string]string `json:"vaultIds"`
}

// DeserializeState 从序列化 blob 恢复 gateway 状态。
func (g *DotrainGateway) DeserializeState(blob string, onStateChange func(serialized string)) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	var st gatewayState
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if st.Selected != "" {
		if _, ok := g.deployments[st.Selected]; !ok {
			return fmt.Errorf("deployment %q not found", st.Selected)
		}
	}
	g.selected = st.Selected
	g.fieldValues = orEmpty(st.FieldValues)
	g.deposits = orEmpty(st.Deposits)
	g.vaultIDs = orEmpty(st.VaultIDs)
	g.onStateChange = onStateChange
	g.emitLocked()
	return nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return m
}

// GetComposedRainlang 把字段值代入模板占位符。
// 任何未解析的占位符都是错误，组合结果不允许带洞。
func (g *DotrainGateway) GetComposedRainlang() (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.composeLocked()
}

func (g *DotrainGateway) composeLocked() (string, error) {
	out := g.dotrain
	for binding, value := range g.fieldValues {
		out = strings.ReplaceAll(out, "${"+binding+"}", value)
	}
	if idx := strings.Index(out, "${"); idx >= 0 {
		end := strings.Index(out[idx:], "}")
		if end < 0 {
			end = len(out) - idx - 1
		}
		return "", fmt.Errorf("unresolved binding %s", out[idx+2:idx+end])
	}
	return out, nil
}

// GetDeploymentTransactionArgs 生成 owner 名下的 approvals 与部署 calldata。
// approvals 按代币地址排序，保证调用方消费顺序稳定。
func (g *DotrainGateway) GetDeploymentTransactionArgs(owner string) (DeploymentArgs, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if owner == "" {
		return DeploymentArgs{}, fmt.Errorf("owner address is required")
	}
	if g.selected == "" {
		return DeploymentArgs{}, fmt.Errorf("no deployment selected")
	}
	dep := g.deployments[g.selected]
	orderbook, ok := g.orderbooks[g.selected]
	if !ok || orderbook == "" {
		return DeploymentArgs{}, fmt.Errorf("orderbook address missing for deployment %q", g.selected)
	}

	rainlang, err := g.composeLocked()
	if err != nil {
		return DeploymentArgs{}, err
	}

	tokens := make([]string, 0, len(g.deposits))
	for token := range g.deposits {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	approvals := make([]Approval, 0, len(tokens))
	for _, token := range tokens {
		info, err := g.tokenInfoLocked(token)
		if err != nil {
			return DeploymentArgs{}, fmt.Errorf("token %s: %w", token, err)
		}
		amount, err := scaleAmount(g.deposits[token], info.Decimals)
		if err != nil {
			return DeploymentArgs{}, fmt.Errorf("deposit for %s: %w", info.Symbol, err)
		}
		approvals = append(approvals, Approval{
			Token:    token,
			Symbol:   info.Symbol,
			Calldata: approveCalldata(orderbook, amount),
		})
	}

	return DeploymentArgs{
		Approvals:          approvals,
		DeploymentCalldata: "0x" + addOrderSelector + hex.EncodeToString([]byte(rainlang)),
		OrderbookAddress:   orderbook,
		ChainID:            dep.ChainID,
	}, nil
}

// GetTokenInfo 查询代币信息，命中缓存则不再走节点。
func (g *DotrainGateway) GetTokenInfo(address string) (TokenInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokenInfoLocked(address)
}

func (g *DotrainGateway) tokenInfoLocked(address string) (TokenInfo, error) {
	if info, ok := g.tokenCache[address]; ok {
		return info, nil
	}
	if g.lookup == nil {
		return TokenInfo{}, fmt.Errorf("token lookup not configured")
	}
	info, err := g.lookup(address)
	if err != nil {
		return TokenInfo{}, err
	}
	g.tokenCache[address] = info
	return info, nil
}

func (g *DotrainGateway) SetFieldValue(binding, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fieldValues[binding] = value
	g.emitLocked()
	return nil
}

func (g *DotrainGateway) GetFieldValue(binding string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.fieldValues[binding]
	if !ok {
		return "", fmt.Errorf("field %q is not set", binding)
	}
	return v, nil
}

func (g *DotrainGateway) SetDeposit(token, amount string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.TrimSpace(amount) == "" {
		delete(g.deposits, token)
	} else {
		g.deposits[token] = amount
	}
	g.emitLocked()
	return nil
}

func (g *DotrainGateway) SetVaultID(token, vaultID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vaultIDs[token] = vaultID
	g.emitLocked()
	return nil
}

func (g *DotrainGateway) emitLocked() {
	if g.onStateChange == nil {
		return
	}
	raw, err := json.Marshal(gatewayState{
		Selected:    g.selected,
		FieldValues: g.fieldValues,
		Deposits:    g.deposits,
		VaultIDs:    g.vaultIDs,
	})
	if err != nil {
		return
	}
	g.onStateChange(base64.StdEncoding.EncodeToString(raw))
}

// scaleAmount 把十进制数量按代币精度放大为最小单位整数。
// 超出精度的小数位是错误而不是静默截断。
func scaleAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	whole, frac := amount, ""
	if i := strings.Index(amount, "."); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s exceeds %d decimals", amount, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return n, nil
}

// approveCalldata 手工编码 approve(spender, amount)。
func approveCalldata(spender string, amount *big.Int) string {
	return "0x" + erc20ApproveSelector +
		leftPad64(strings.TrimPrefix(strings.ToLower(spender), "0x")) +
		leftPad64(amount.Text(16))
}

func leftPad64(s string) string {
	if len(s) >= 64 {
		return s[len(s)-64:]
	}
	return strings.Repeat("0", 64-len(s)) + s
}
