package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from a TOML file.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	Environment    string `toml:"Environment"`
	VaultAddress   string `toml:"VaultAddress"`

	Gateway GatewayConfig `toml:"gateway"`
	Indexer IndexerConfig `toml:"indexer"`
	Staking StakingConfig `toml:"staking"`
	Lottery LotteryConfig `toml:"lottery"`
}

// GatewayConfig controls the HTTP surface.
type GatewayConfig struct {
	AuthSecret        string  `toml:"AuthSecret"`
	AuthIssuer        string  `toml:"AuthIssuer"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// IndexerConfig controls event persistence. A postgres:// DSN selects the
// Postgres driver; anything else is treated as a SQLite path.
type IndexerConfig struct {
	DSN string `toml:"DSN"`
}

// StakingConfig seeds the reward accumulator.
type StakingConfig struct {
	RewardRatePerSecond string `toml:"RewardRatePerSecond"`
	Authority           string `toml:"Authority"`
}

// LotteryConfig seeds the lottery engine and its randomness source.
type LotteryConfig struct {
	Authority            string `toml:"Authority"`
	RandomSeed           string `toml:"RandomSeed"`
	DeliveryDelaySeconds int64  `toml:"DeliveryDelaySeconds"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./prizepool-data"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = "leveldb"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.Gateway.RequestsPerMinute <= 0 {
		cfg.Gateway.RequestsPerMinute = 120
	}
	if cfg.Gateway.Burst <= 0 {
		cfg.Gateway.Burst = 20
	}
	if strings.TrimSpace(cfg.Staking.RewardRatePerSecond) == "" {
		cfg.Staking.RewardRatePerSecond = "0"
	}
	if cfg.Lottery.DeliveryDelaySeconds <= 0 {
		cfg.Lottery.DeliveryDelaySeconds = 2
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
