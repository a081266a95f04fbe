// Package config loads ledger deployment settings from a file and BUI_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"blocksui.xyz/ledger/ledger"
	"blocksui.xyz/ledger/storage/casregistry"
	_ "blocksui.xyz/ledger/storage/localfs"
	_ "blocksui.xyz/ledger/storage/pebblecas"
)

// EnvPrefix is prepended to environment overrides: checkpoint.dir is read
// from BUI_CHECKPOINT_DIR.
const EnvPrefix = "BUI"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Admin       string            `mapstructure:"admin"`
	Staking     StakingConfig     `mapstructure:"staking"`
	Content     ContentConfig     `mapstructure:"content"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Origins     OriginsConfig     `mapstructure:"origins"`
	Genesis     GenesisConfig     `mapstructure:"genesis"`
	Checkpoint  CheckpointConfig  `mapstructure:"checkpoint"`
	GRPC        ListenConfig      `mapstructure:"grpc"`
	HTTP        ListenConfig      `mapstructure:"http"`
	Log         LogConfig         `mapstructure:"log"`
	Events      EventsConfig      `mapstructure:"events"`
}

// Amounts are decimal ether strings such as "0.1".
type StakingConfig struct {
	Cost string `mapstructure:"cost"`
}

type ContentConfig struct {
	PublishPrice string `mapstructure:"publish_price"`
}

type MarketplaceConfig struct {
	ListingFee string `mapstructure:"listing_fee"`
}

type OriginsConfig struct {
	MinimumBalance string `mapstructure:"minimum_balance"`
}

// GenesisConfig maps addresses to their initial ether balance.
type GenesisConfig struct {
	Balances map[string]string `mapstructure:"balances"`
}

type CheckpointConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	MirrorDir string `mapstructure:"mirror_dir"`
	// Restore is the CID of a checkpoint to load at startup.
	Restore string `mapstructure:"restore"`
}

type ListenConfig struct {
	Listen string `mapstructure:"listen"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type EventsConfig struct {
	RedisURL string `mapstructure:"redis_url"`
	Stream   string `mapstructure:"stream"`
}

// Params are the parsed registry parameters of a Config.
type Params struct {
	Admin          ledger.Identity
	StakingCost    ledger.Value
	PublishPrice   ledger.Value
	ListingFee     ledger.Value
	MinimumBalance ledger.Value
	Genesis        map[ledger.Identity]ledger.Value
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("staking.cost", "0.1")
	v.SetDefault("content.publish_price", "0.1")
	v.SetDefault("marketplace.listing_fee", "0.01")
	v.SetDefault("origins.minimum_balance", "0.1")
	v.SetDefault("checkpoint.backend", "localfs")
	v.SetDefault("checkpoint.dir", "./data/checkpoints")
	v.SetDefault("checkpoint.mirror_dir", "")
	v.SetDefault("checkpoint.restore", "")
	v.SetDefault("grpc.listen", ":7400")
	v.SetDefault("http.listen", ":7401")
	v.SetDefault("log.level", "info")
	v.SetDefault("events.redis_url", "")
	v.SetDefault("events.stream", "bui:ledger:events")
	v.SetDefault("admin", "")
}

// Load reads path (when non-empty) and applies BUI_* overrides on top of the
// defaults. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	if _, ok := casregistry.Lookup(c.Checkpoint.Backend); !ok {
		return fmt.Errorf("%w: unknown checkpoint backend %q (have %s)", ErrInvalid, c.Checkpoint.Backend, strings.Join(casregistry.Names(), ", "))
	}
	if c.Checkpoint.Backend != "memory" && strings.TrimSpace(c.Checkpoint.Dir) == "" {
		return fmt.Errorf("%w: checkpoint.dir is required for backend %q", ErrInvalid, c.Checkpoint.Backend)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Params parses the admin, fees and genesis balances.
func (c *Config) Params() (Params, error) {
	var p Params
	var err error
	if strings.TrimSpace(c.Admin) == "" {
		return p, fmt.Errorf("%w: admin is required", ErrInvalid)
	}
	if p.Admin, err = ledger.ParseIdentity(c.Admin); err != nil {
		return p, fmt.Errorf("%w: admin: %v", ErrInvalid, err)
	}
	if p.Admin.IsZero() {
		return p, fmt.Errorf("%w: admin must not be the zero address", ErrInvalid)
	}

	amounts := []struct {
		key string
		raw string
		dst *ledger.Value
	}{
		{"staking.cost", c.Staking.Cost, &p.StakingCost},
		{"content.publish_price", c.Content.PublishPrice, &p.PublishPrice},
		{"marketplace.listing_fee", c.Marketplace.ListingFee, &p.ListingFee},
		{"origins.minimum_balance", c.Origins.MinimumBalance, &p.MinimumBalance},
	}
	for _, a := range amounts {
		if *a.dst, err = ledger.ParseEther(a.raw); err != nil {
			return p, fmt.Errorf("%w: %s: %v", ErrInvalid, a.key, err)
		}
	}

	p.Genesis = make(map[ledger.Identity]ledger.Value, len(c.Genesis.Balances))
	addrs := make([]string, 0, len(c.Genesis.Balances))
	for addr := range c.Genesis.Balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		id, err := ledger.ParseIdentity(addr)
		if err != nil {
			return p, fmt.Errorf("%w: genesis.balances: %v", ErrInvalid, err)
		}
		v, err := ledger.ParseEther(c.Genesis.Balances[addr])
		if err != nil {
			return p, fmt.Errorf("%w: genesis.balances[%s]: %v", ErrInvalid, addr, err)
		}
		if _, dup := p.Genesis[id]; dup {
			return p, fmt.Errorf("%w: genesis.balances: %s listed twice", ErrInvalid, id)
		}
		p.Genesis[id] = v
	}
	return p, nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return lvl, nil
}
