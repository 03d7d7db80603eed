package store_test

import (
	"testing"

	"grid-deployer-go/gateway"
	"grid-deployer-go/internal/store"
	"grid-deployer-go/strategy"
)

type stubWallet struct {
	connected bool
}

func (w *stubWallet) Address() string { return "0xme" }
func (w *stubWallet) ChainID() uint64 { return 137 }
func (w *stubWallet) Connected() bool { return w.connected }

func newTestStore(t *testing.T, wallet gateway.WalletSession) *store.Store {
	t.Helper()
	reg := strategy.NewRegistry()
	cfg, err := strategy.NewGridStrategy()
	if err != nil {
		t.Fatalf("grid strategy: %v", err)
	}
	if err := reg.Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}
	return store.New(store.Config{
		Registry:    reg,
		StrategyKey: "grid",
		TokenSlots:  []string{"input", "output"},
		Wallet:      wallet,
	})
}

func fillValidForm(s *store.Store) {
	s.SetFieldValue(strategy.BindingBaselineRatio, "0.5")
	s.SetFieldValue(strategy.BindingGrowthRate, "0.1")
	s.SetFieldValue(strategy.BindingTrancheSize, "100")
	s.SetToken("input", gateway.TokenInfo{Address: "0xa", Symbol: "USDC", Decimals: 6})
	s.SetToken("output", gateway.TokenInfo{Address: "0xb", Symbol: "WETH", Decimals: 18})
}

func TestStoreValidationRecomputedOnEveryEdit(t *testing.T) {
	s := newTestStore(t, &stubWallet{connected: true})

	s.SetFieldValue(strategy.BindingGrowthRate, "abc")
	v := s.Validation()
	if v.IsValid {
		t.Fatal("expected invalid after bad edit")
	}
	msgs := v.Errors["parameters.io-ratio-growth"]
	if len(msgs) == 0 || msgs[0] != "Must be a valid number" {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}

	// 修正后错误立即清除
	s.SetFieldValue(strategy.BindingGrowthRate, "0.1")
	v = s.Validation()
	if _, ok := v.Errors["parameters.io-ratio-growth"]; ok {
		t.Fatalf("error should clear as soon as the field is valid: %v", v.Errors)
	}
}

func TestHasRequiredValues_StringLevelCheck(t *testing.T) {
	s := newTestStore(t, &stubWallet{connected: true})

	cases := []struct {
		name     string
		baseline string
		want     bool
	}{
		{"all set", "0.5", true},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"literal zero", "0", false},
		{"literal NaN", "NaN", false},
		// 字符串级检查："0.0" 不等于 "0"，按原行为放行
		{"zero point zero", "0.0", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.SetFieldValue(strategy.BindingBaselineRatio, tc.baseline)
			s.SetFieldValue(strategy.BindingGrowthRate, "0.1")
			s.SetFieldValue(strategy.BindingTrancheSize, "100")
			if got := s.HasRequiredValues(); got != tc.want {
				t.Fatalf("HasRequiredValues = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanSubmit_AllGates(t *testing.T) {
	wallet := &stubWallet{connected: true}
	s := newTestStore(t, wallet)
	fillValidForm(s)

	if !s.CanSubmit() {
		t.Fatal("expected CanSubmit with complete valid form")
	}

	// 钱包断开
	wallet.connected = false
	if s.CanSubmit() {
		t.Fatal("disconnected wallet must block submit")
	}
	wallet.connected = true

	// 缺少代币选择
	s.ClearToken("output")
	if s.CanSubmit() {
		t.Fatal("missing token slot must block submit")
	}
	s.SetToken("output", gateway.TokenInfo{Address: "0xb"})

	// 验证错误
	s.SetFieldValue(strategy.BindingGrowthRate, "oops")
	if s.CanSubmit() {
		t.Fatal("validation error must block submit")
	}
	s.SetFieldValue(strategy.BindingGrowthRate, "0.1")

	// 部署进行中
	s.SetDeploying(true)
	if s.CanSubmit() {
		t.Fatal("in-flight deployment must block submit")
	}
	s.SetDeploying(false)

	if !s.CanSubmit() {
		t.Fatal("expected CanSubmit after all gates reopen")
	}
}

func TestStoreResetClearsFormState(t *testing.T) {
	s := newTestStore(t, &stubWallet{connected: true})
	fillValidForm(s)

	s.Reset()
	if s.FieldValue(strategy.BindingBaselineRatio) != "" {
		t.Fatal("field values should clear on reset")
	}
	if _, ok := s.Token("input"); ok {
		t.Fatal("token slots should clear on reset")
	}
	if s.CanSubmit() {
		t.Fatal("reset form must not be submittable")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := newTestStore(t, &stubWallet{connected: true})
	fillValidForm(s)

	blob, err := s.SerializeState()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	restored := newTestStore(t, &stubWallet{connected: true})
	if err := restored.RestoreState(blob); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.FieldValue(strategy.BindingGrowthRate) != "0.1" {
		t.Fatal("field values should round-trip")
	}
	if tok, ok := restored.Token("input"); !ok || tok.Symbol != "USDC" {
		t.Fatalf("tokens should round-trip, got %+v", tok)
	}
	if !restored.CanSubmit() {
		t.Fatal("restored form should be submittable again")
	}
}

func TestRestoreStateRejectsGarbage(t *testing.T) {
	s := newTestStore(t, &stubWallet{connected: true})
	if err := s.RestoreState("not-base64!!"); err == nil {
		t.Fatal("expected error for bad blob")
	}
}
