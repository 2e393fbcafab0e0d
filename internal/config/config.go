package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"deployer/internal/retry"
	"deployer/internal/sandbox"

	"github.com/joho/godotenv"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
)

// Sandbox ledger state backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type Config struct {
	// RPC Server URL. Empty selects the local sandbox.
	RPCServerURL string

	// Network passphrase ( mainnet or testnet )
	NetworkPassphrase string

	// Secret seed (S...) of the deploying account, network mode only
	SecretKey string

	// Inclusion fee in stroops, the simulated resource fee is added on top
	Fee uint32

	// Timeout of a single RPC request
	RPCTimeout time.Duration

	// Sandbox ledger state backend: "file" or "postgres"
	SandboxStore string

	// Sandbox ledger state file
	LedgerFile string

	// PostgreSQL connection string, optional
	DatabaseURL string

	LogLevel string
	APIPort  string

	// Confirmation polling
	Retry retry.Config

	feeErr error
}

// Load reads .env, if present, and then the environment
func Load() *Config {
	_ = godotenv.Load()

	fee, feeErr := getEnvAsUint32("SOROBAN_FEE", 100)

	return &Config{
		RPCServerURL:      getEnv("SOROBAN_RPC_URL", ""),
		NetworkPassphrase: getEnv("SOROBAN_NETWORK_PASSPHRASE", network.TestNetworkPassphrase),
		SecretKey:         getEnv("SOROBAN_SECRET_KEY", ""),
		Fee:               fee,
		RPCTimeout:        time.Duration(getEnvAsInt("SOROBAN_RPC_TIMEOUT_SEC", 30)) * time.Second,
		SandboxStore:      getEnv("SOROBAN_SANDBOX_STORE", StoreFile),
		LedgerFile:        getEnv("SOROBAN_LEDGER_FILE", sandbox.DefaultLedgerFile),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		APIPort:           getEnv("API_PORT", "8080"),
		Retry:             retry.LoadConfig(),
		feeErr:            feeErr,
	}
}

// IsNoNetwork reports whether deployments run against the local sandbox
func (c *Config) IsNoNetwork() bool {
	return c.RPCServerURL == ""
}

// Validate checks if the configuration is valid for the selected mode
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	if c.IsNoNetwork() {
		switch c.SandboxStore {
		case StoreFile:
			if c.LedgerFile == "" {
				return fmt.Errorf("SOROBAN_LEDGER_FILE is required for the file sandbox store")
			}
		case StorePostgres:
			if c.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for the postgres sandbox store")
			}
		default:
			return fmt.Errorf("SOROBAN_SANDBOX_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.SandboxStore)
		}
		return nil
	}

	if c.NetworkPassphrase == "" {
		return fmt.Errorf("SOROBAN_NETWORK_PASSPHRASE is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SOROBAN_SECRET_KEY is required when SOROBAN_RPC_URL is set")
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if c.feeErr != nil {
		return c.feeErr
	}
	if c.Fee == 0 {
		return fmt.Errorf("SOROBAN_FEE must be positive")
	}
	return nil
}

// SigningKey parses the secret seed of the deploying account
func (c *Config) SigningKey() (*keypair.Full, error) {
	kp, err := keypair.ParseFull(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("SOROBAN_SECRET_KEY is not a valid secret seed: %w", err)
	}
	return kp, nil
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}

// Helper: get uint32 from env, rejecting values that do not fit
func getEnvAsUint32(key string, defaultVal uint32) (uint32, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseUint(valStr, 10, 32)
	if err != nil {
		return defaultVal, fmt.Errorf("%s must be an integer between 0 and %d, got %q", key, uint32(math.MaxUint32), valStr)
	}
	return uint32(val), nil
}
