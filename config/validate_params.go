package config

// ValidateParams 额外验证非空/非零的节奏参数。
func ValidateParams(cfg AppConfig) error {
	if cfg.Validation.FormDebounceMs <= 0 {
		return ErrInvalid("validation.formDebounceMs must be > 0")
	}
	if cfg.Validation.TokenDebounceMs <= 0 {
		return ErrInvalid("validation.tokenDebounceMs must be > 0")
	}
	if cfg.Validation.TokenTimeoutMs <= 0 {
		return ErrInvalid("validation.tokenTimeoutMs must be > 0")
	}
	if cfg.Validation.TokenTimeoutMs <= cfg.Validation.TokenDebounceMs {
		return ErrInvalid("validation.tokenTimeoutMs must exceed tokenDebounceMs")
	}
	if cfg.Reload.Enabled && cfg.Reload.CooldownMs <= 0 {
		return ErrInvalid("reload.cooldownMs must be > 0 when reload is enabled")
	}
	return nil
}

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }
