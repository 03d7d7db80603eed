// Package gateway defines the external collaborators of the deployment core:
// the strategy execution gateway (dotrain composer), the transaction
// submission service and the wallet session.
package gateway

// StrategyDetail 策略展示信息。
type StrategyDetail struct {
	Name        string
	Description string
}

// DeploymentDetail 单个可选部署目标的信息。
type DeploymentDetail struct {
	Name        string
	Description string
	ChainID     uint64
}

// TokenInfo 链上代币信息。
type TokenInfo struct {
	Address  string
	Name     string
	Symbol   string
	Decimals uint8
}

// Approval 一笔授权交易：目标代币地址 + 不透明 calldata。
// 由 gateway 生成，按列表顺序严格消费。
type Approval struct {
	Token    string
	Symbol   string
	Calldata string
}

// DeploymentArgs 部署所需的全部交易参数。
type DeploymentArgs struct {
	Approvals          []Approval
	DeploymentCalldata string
	OrderbookAddress   string
	ChainID            uint64
}

// Gateway is the strategy execution gateway. Implementations return errors
// instead of panicking; construction itself may fail synchronously.
type Gateway interface {
	GetStrategyDetails() (StrategyDetail, error)
	GetDeploymentDetails() (map[string]DeploymentDetail, error)

	// ChooseDeployment selects a deployment target. onStateChange receives
	// the serialized configuration blob after every gateway-side mutation.
	ChooseDeployment(key string, onStateChange func(serialized string)) error
	// DeserializeState restores a previously serialized configuration.
	DeserializeState(blob string, onStateChange func(serialized string)) error

	GetComposedRainlang() (string, error)
	// GetDeploymentTransactionArgs prepares approvals and the deployment
	// calldata for the given owner address.
	GetDeploymentTransactionArgs(owner string) (DeploymentArgs, error)

	GetTokenInfo(address string) (TokenInfo, error)
	SetFieldValue(binding, value string) error
	GetFieldValue(binding string) (string, error)
	SetDeposit(token, amount string) error
	SetVaultID(token, vaultID string) error
}

// Submitter 签名并广播一笔交易，返回交易哈希；失败时返回错误
// （网络错误、用户拒签、revert）。
type Submitter interface {
	Submit(calldata, to string) (txHash string, err error)
}

// WalletSession 暴露当前连接的钱包状态。
type WalletSession interface {
	Address() string
	ChainID() uint64
	Connected() bool
}
