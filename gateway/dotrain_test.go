package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) *DotrainGateway {
	t.Helper()
	gw, err := NewDotrainGateway(DotrainConfig{
		Strategy: StrategyDetail{Name: "Grid", Description: "网格策略"},
		Dotrain:  "#calculate-io\nratio: ${baseline-io-ratio},\nsize: ${tranche-size};",
		Deployments: map[string]DeploymentDetail{
			"polygon": {Name: "Polygon", ChainID: 137},
		},
		Orderbooks: map[string]string{
			"polygon": "0x0rderbook",
		},
		TokenLookup: func(address string) (TokenInfo, error) {
			return TokenInfo{Address: address, Symbol: "TKN", Decimals: 6}, nil
		},
	})
	require.NoError(t, err)
	return gw
}

func TestComposeRainlangSubstitutesBindings(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.SetFieldValue("baseline-io-ratio", "0.5"))
	require.NoError(t, gw.SetFieldValue("tranche-size", "100"))

	out, err := gw.GetComposedRainlang()
	require.NoError(t, err)
	assert.Contains(t, out, "ratio: 0.5,")
	assert.Contains(t, out, "size: 100;")
	assert.NotContains(t, out, "${")
}

func TestComposeRainlangUnresolvedBinding(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.SetFieldValue("baseline-io-ratio", "0.5"))

	_, err := gw.GetComposedRainlang()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tranche-size")
}

func TestChooseDeploymentUnknownKey(t *testing.T) {
	gw := newTestGateway(t)
	err := gw.ChooseDeployment("mainnet", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mainnet")
}

func TestTransactionArgsRequireSelection(t *testing.T) {
	gw := newTestGateway(t)
	_, err := gw.GetDeploymentTransactionArgs("0xowner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deployment selected")
}

func TestTransactionArgsBuildApprovals(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.ChooseDeployment("polygon", nil))
	require.NoError(t, gw.SetFieldValue("baseline-io-ratio", "0.5"))
	require.NoError(t, gw.SetFieldValue("tranche-size", "100"))
	require.NoError(t, gw.SetDeposit("0xbbb", "2"))
	require.NoError(t, gw.SetDeposit("0xaaa", "1.5"))

	args, err := gw.GetDeploymentTransactionArgs("0xowner")
	require.NoError(t, err)

	assert.Equal(t, uint64(137), args.ChainID)
	assert.Equal(t, "0x0rderbook", args.OrderbookAddress)
	require.Len(t, args.Approvals, 2)
	// 按代币地址排序
	assert.Equal(t, "0xaaa", args.Approvals[0].Token)
	assert.Equal(t, "0xbbb", args.Approvals[1].Token)
	// 1.5 按 6 位精度放大后是 1500000 = 0x16e360
	assert.True(t, strings.HasSuffix(args.Approvals[0].Calldata, "16e360"))
	assert.True(t, strings.HasPrefix(args.Approvals[0].Calldata, "0x"+erc20ApproveSelector))
	assert.True(t, strings.HasPrefix(args.DeploymentCalldata, "0x"+addOrderSelector))
}

func TestTransactionArgsRejectOversizedPrecision(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.ChooseDeployment("polygon", nil))
	require.NoError(t, gw.SetFieldValue("baseline-io-ratio", "0.5"))
	require.NoError(t, gw.SetFieldValue("tranche-size", "100"))
	require.NoError(t, gw.SetDeposit("0xaaa", "1.1234567")) // 7 位小数，超过 6 位精度

	_, err := gw.GetDeploymentTransactionArgs("0xowner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimals")
}

func TestSerializeRoundTrip(t *testing.T) {
	gw := newTestGateway(t)
	var blob string
	require.NoError(t, gw.ChooseDeployment("polygon", func(s string) { blob = s }))
	require.NoError(t, gw.SetFieldValue("baseline-io-ratio", "0.7"))
	require.NotEmpty(t, blob)

	restored := newTestGateway(t)
	require.NoError(t, restored.DeserializeState(blob, nil))
	v, err := restored.GetFieldValue("baseline-io-ratio")
	require.NoError(t, err)
	assert.Equal(t, "0.7", v)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	gw := newTestGateway(t)
	require.Error(t, gw.DeserializeState("!!not-base64!!", nil))
}

func TestTokenInfoCached(t *testing.T) {
	calls := 0
	gw, err := NewDotrainGateway(DotrainConfig{
		Strategy:    StrategyDetail{Name: "Grid"},
		Dotrain:     "x",
		Deployments: map[string]DeploymentDetail{"polygon": {ChainID: 137}},
		TokenLookup: func(address string) (TokenInfo, error) {
			calls++
			return TokenInfo{Address: address, Symbol: "USDC", Decimals: 6}, nil
		},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		info, err := gw.GetTokenInfo("0xusdc")
		require.NoError(t, err)
		assert.Equal(t, "USDC", info.Symbol)
	}
	assert.Equal(t, 1, calls)
}
