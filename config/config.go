package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	OneInchAPIKey string
	AggregatorURL string
	ChainID       uint64
	RPCURL        string

	ScanAPIURL      string
	ScanAPIKey      string
	PollInterval    time.Duration
	MaxPollAttempts int

	RelayURL      string
	WalletTopic   string
	WalletAddress string

	MaxParts            int
	SlippageBps         int
	PartDelay           time.Duration
	WaitForConfirmation bool
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".slip-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("aggregator_url", "https://api.1inch.dev")
	viper.SetDefault("chain_id", 137)
	viper.SetDefault("rpc_url", "https://polygon-rpc.com")
	viper.SetDefault("scan_api_url", "https://api.polygonscan.com/api")
	viper.SetDefault("poll_interval_sec", 4)
	viper.SetDefault("max_poll_attempts", 40)
	viper.SetDefault("relay_url", "wss://relay.walletconnect.com")
	viper.SetDefault("max_parts", 5)
	viper.SetDefault("slippage_bps", 100)
	viper.SetDefault("part_delay_ms", 800)

	// Read from environment variables
	viper.SetEnvPrefix("SLIPSWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		OneInchAPIKey: viper.GetString("oneinch_api_key"),
		AggregatorURL: viper.GetString("aggregator_url"),
		ChainID:       viper.GetUint64("chain_id"),
		RPCURL:        viper.GetString("rpc_url"),

		ScanAPIURL:      viper.GetString("scan_api_url"),
		ScanAPIKey:      viper.GetString("scan_api_key"),
		PollInterval:    time.Duration(viper.GetInt("poll_interval_sec")) * time.Second,
		MaxPollAttempts: viper.GetInt("max_poll_attempts"),

		RelayURL:      viper.GetString("relay_url"),
		WalletTopic:   viper.GetString("wallet_topic"),
		WalletAddress: viper.GetString("wallet_address"),

		MaxParts:            viper.GetInt("max_parts"),
		SlippageBps:         viper.GetInt("slippage_bps"),
		PartDelay:           time.Duration(viper.GetInt("part_delay_ms")) * time.Millisecond,
		WaitForConfirmation: viper.GetBool("wait_for_confirmation"),
	}

	if cfg.OneInchAPIKey == "" {
		return nil, fmt.Errorf("1inch API key not found. Please set SLIPSWAP_ONEINCH_API_KEY environment variable or create a .slip-swap.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
