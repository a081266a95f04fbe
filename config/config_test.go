package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"blocksui.xyz/ledger/ledger"
)

const sample = `
admin: "0x00000000000000000000000000000000000000ad"
staking:
  cost: "1"
content:
  publish_price: "0.5"
genesis:
  balances:
    "0x0000000000000000000000000000000000000001": "10"
    "0x0000000000000000000000000000000000000002": "2.5"
checkpoint:
  backend: pebble
  dir: /var/lib/bui
log:
  level: debug
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "ledger.yaml", sample))
	require.NoError(t, err)

	require.Equal(t, "pebble", cfg.Checkpoint.Backend)
	require.Equal(t, ":7400", cfg.GRPC.Listen)
	require.Equal(t, "bui:ledger:events", cfg.Events.Stream)

	p, err := cfg.Params()
	require.NoError(t, err)
	require.Equal(t, ledger.MustParseIdentity("0x00000000000000000000000000000000000000ad"), p.Admin)
	require.Equal(t, ledger.Ether, p.StakingCost)
	require.Equal(t, ledger.MustParseEther("0.5"), p.PublishPrice)
	require.Equal(t, ledger.MustParseEther("0.01"), p.ListingFee)
	require.Equal(t, ledger.MustParseEther("0.1"), p.MinimumBalance)
	require.Len(t, p.Genesis, 2)
	require.Equal(t, ledger.MustParseEther("2.5"), p.Genesis[ledger.MustParseIdentity("0x0000000000000000000000000000000000000002")])

	lvl, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BUI_ADMIN", "0x00000000000000000000000000000000000000ff")
	t.Setenv("BUI_CHECKPOINT_BACKEND", "memory")
	t.Setenv("BUI_MARKETPLACE_LISTING_FEE", "0.02")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Checkpoint.Backend)

	p, err := cfg.Params()
	require.NoError(t, err)
	require.Equal(t, ledger.MustParseIdentity("0x00000000000000000000000000000000000000ff"), p.Admin)
	require.Equal(t, ledger.MustParseEther("0.02"), p.ListingFee)
	require.Empty(t, p.Genesis)
}

func TestValidateRejects(t *testing.T) {
	valid := func() Config {
		return Config{
			Admin:       "0x00000000000000000000000000000000000000ad",
			Staking:     StakingConfig{Cost: "0.1"},
			Content:     ContentConfig{PublishPrice: "0.1"},
			Marketplace: MarketplaceConfig{ListingFee: "0.01"},
			Origins:     OriginsConfig{MinimumBalance: "0.1"},
			Checkpoint:  CheckpointConfig{Backend: "localfs", Dir: "/tmp/x"},
			Log:         LogConfig{Level: "info"},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"missing admin":   func(c *Config) { c.Admin = "" },
		"bad admin":       func(c *Config) { c.Admin = "0x1234" },
		"zero admin":      func(c *Config) { c.Admin = "0x0000000000000000000000000000000000000000" },
		"bad amount":      func(c *Config) { c.Staking.Cost = "one" },
		"sub-gwei amount": func(c *Config) { c.Content.PublishPrice = "0.0000000001" },
		"bad genesis":     func(c *Config) { c.Genesis.Balances = map[string]string{"nope": "1"} },
		"unknown backend": func(c *Config) { c.Checkpoint.Backend = "s3" },
		"missing dir":     func(c *Config) { c.Checkpoint.Dir = "" },
		"bad level":       func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
