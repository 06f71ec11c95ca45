package main

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.TreasuryAddress = "treasury-addr"
	cfg.TokenAccount = "treasury-token-acct"
	cfg.RewardMint = "reward-mint"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing treasury address", func(c *Config) { c.TreasuryAddress = "" }, "XPO_TREASURY_ADDRESS"},
		{"missing token account", func(c *Config) { c.TokenAccount = "" }, "XPO_TOKEN_ACCOUNT"},
		{"missing reward mint", func(c *Config) { c.RewardMint = "" }, "XPO_REWARD_MINT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("missing credential should fail validation")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error should name the env var %s: %v", tc.want, err)
			}
		})
	}
}
