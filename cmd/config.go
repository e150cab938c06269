package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FAUCET"

// Clusters accepted by --env.
const (
	clusterMainnetBeta = "mainnet-beta"
	clusterTestnet     = "testnet"
	clusterDevnet      = "devnet"
)

// Config is the resolved session configuration. Flags win over FAUCET_* environment
// variables, which win over defaults.
type Config struct {
	Env          string
	RPC          string
	Keypair      string
	PrivateKey   string
	LogLevel     string
	MaxRetries   int
	Yes          bool
	OpenExplorer bool
	HeliusAPIKey string
}

// loadConfig reads .env, then binds the command's flags and FAUCET_* variables.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	_ = v.BindEnv("private-key")
	_ = v.BindEnv("helius-api-key", "HELIUS_API_KEY")

	cfg := &Config{
		Env:          v.GetString("env"),
		RPC:          v.GetString("rpc"),
		Keypair:      v.GetString("keypair"),
		PrivateKey:   v.GetString("private-key"),
		LogLevel:     v.GetString("log-level"),
		MaxRetries:   v.GetInt("max-retries"),
		Yes:          v.GetBool("yes"),
		OpenExplorer: v.GetBool("open"),
		HeliusAPIKey: v.GetString("helius-api-key"),
	}
	if cfg.Env == "" {
		cfg.Env = clusterDevnet
	}
	if cfg.MaxRetries < 0 {
		return nil, &InputValidationError{Field: "max-retries", Value: fmt.Sprint(cfg.MaxRetries), Reason: "must not be negative"}
	}
	return cfg, nil
}

// Endpoint returns the RPC endpoint for the configured cluster. An explicit --rpc wins;
// otherwise HELIUS_API_KEY selects a Helius endpoint where one exists.
func (c *Config) Endpoint() (string, error) {
	if c.RPC != "" {
		return c.RPC, nil
	}
	switch c.Env {
	case clusterDevnet:
		if c.HeliusAPIKey != "" {
			return fmt.Sprintf("https://devnet.helius-rpc.com/?api-key=%s", c.HeliusAPIKey), nil
		}
		return rpc.DevNet_RPC, nil
	case clusterMainnetBeta:
		if c.HeliusAPIKey != "" {
			return fmt.Sprintf("https://mainnet.helius-rpc.com/?api-key=%s", c.HeliusAPIKey), nil
		}
		return rpc.MainNetBeta_RPC, nil
	case clusterTestnet:
		return rpc.TestNet_RPC, nil
	default:
		return "", &InputValidationError{
			Field:  "env",
			Value:  c.Env,
			Reason: fmt.Sprintf("must be one of %s, %s, %s", clusterMainnetBeta, clusterTestnet, clusterDevnet),
		}
	}
}
