package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"savings-vault-engine/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Plans    PlansConfig    `mapstructure:"plans"`
	Penalty  PenaltyConfig  `mapstructure:"penalty"`
	Faucet   FaucetConfig   `mapstructure:"faucet"`
	Project  ProjectConfig  `mapstructure:"project"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates the PostgreSQL snapshot cache. The cache is
// advisory; all durable state lives in the vault contract.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// PollerConfig governs the off-band reconciliation cadence.
type PollerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// LedgerConfig covers access to the savings vault contract.
type LedgerConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	VaultAddress        string        `mapstructure:"vault_address"`
	TokenAddress        string        `mapstructure:"token_address"`
	OwnerAddress        string        `mapstructure:"owner_address"`
	PrivateKey          string        `mapstructure:"private_key"`
	ChainID             int64         `mapstructure:"chain_id"`
	TokenDecimals       int32         `mapstructure:"token_decimals"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	GasLimit            uint64        `mapstructure:"gas_limit"`
}

// PlansConfig seeds the plan registry before the first on-chain sync.
type PlansConfig struct {
	IDs []uint32 `mapstructure:"ids"`
}

// PenaltyConfig parameterises early-exit pricing. The penalty base is the
// position principal only; accrued interest is never part of the base.
type PenaltyConfig struct {
	RateBps  int64  `mapstructure:"rate_bps"`
	MinFloor string `mapstructure:"min_floor"`
}

// FaucetConfig carries display fallbacks for the test-token faucet. The
// authoritative cooldown and supply checks happen inside the contract.
type FaucetConfig struct {
	Cooldown    time.Duration `mapstructure:"cooldown"`
	ClaimAmount string        `mapstructure:"claim_amount"`
}

// ProjectConfig sets projection export behaviour.
type ProjectConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULTKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vaultkeeper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("poller.interval", "30s")
	v.SetDefault("poller.align_to_interval", true)
	v.SetDefault("poller.advisory_lock_key", int64(0x76617564))
	v.SetDefault("poller.startup_delay", "0s")

	v.SetDefault("ledger.request_timeout", "10s")
	v.SetDefault("ledger.confirm_timeout", "2m")
	v.SetDefault("ledger.confirm_poll_interval", "3s")
	v.SetDefault("ledger.token_decimals", int32(18))

	v.SetDefault("plans.ids", []uint32{7, 30, 90, 180, 365})

	v.SetDefault("penalty.rate_bps", int64(50))
	v.SetDefault("penalty.min_floor", "0")

	v.SetDefault("faucet.cooldown", "24h")
	v.SetDefault("faucet.claim_amount", "100")

	v.SetDefault("project.max_data_points", 365)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be greater than zero")
	}
	if c.Ledger.TokenDecimals < 0 || c.Ledger.TokenDecimals > 30 {
		return fmt.Errorf("ledger.token_decimals out of range")
	}
	if c.Ledger.ConfirmPollInterval <= 0 {
		return fmt.Errorf("ledger.confirm_poll_interval must be greater than zero")
	}
	if c.Ledger.PrivateKey != "" && c.Ledger.ChainID <= 0 {
		return fmt.Errorf("ledger.chain_id 必须配置")
	}
	if c.Penalty.RateBps < 0 {
		return fmt.Errorf("penalty.rate_bps cannot be negative")
	}
	if c.Faucet.Cooldown <= 0 {
		return fmt.Errorf("faucet.cooldown must be greater than zero")
	}
	if c.Project.MaxDataPoints <= 0 {
		return fmt.Errorf("project.max_data_points must be greater than zero")
	}
	if len(c.Plans.IDs) == 0 {
		return fmt.Errorf("plans.ids cannot be empty")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Project.MaxDataPoints
}
