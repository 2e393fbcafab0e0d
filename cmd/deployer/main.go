package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"deployer/internal/config"
	"deployer/internal/errs"

	"github.com/spf13/cobra"
)

// Persistent flag values. loadConfig reads them through the flag set so
// that only flags given on the command line override the environment.
var (
	flagRPCURL     string
	flagPassphrase string
	flagSecretKey  string
	flagLedgerFile string
	flagLogLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "deployer",
	Short: "Install Soroban WASM modules and deploy contract instances",
	Long: "Installs WASM modules and creates contract instances, either on a Stellar network " +
		"through RPC or in a local sandbox ledger when no RPC endpoint is configured.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRPCURL, "rpc-url", "", "Stellar RPC endpoint, empty selects the sandbox (overrides SOROBAN_RPC_URL)")
	flags.StringVar(&flagPassphrase, "network-passphrase", "", "Network passphrase (overrides SOROBAN_NETWORK_PASSPHRASE)")
	flags.StringVar(&flagSecretKey, "secret-key", "", "Secret seed of the deploying account (overrides SOROBAN_SECRET_KEY)")
	flags.StringVar(&flagLedgerFile, "ledger-file", "", "Sandbox ledger state file (overrides SOROBAN_LEDGER_FILE)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies command line overrides and
// configures the logger before any command runs
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg = config.Load()

	overrides := map[string]*string{
		"rpc-url":            &cfg.RPCServerURL,
		"network-passphrase": &cfg.NetworkPassphrase,
		"secret-key":         &cfg.SecretKey,
		"ledger-file":        &cfg.LedgerFile,
		"log-level":          &cfg.LogLevel,
	}
	for name, field := range overrides {
		if cmd.Flags().Changed(name) {
			value, err := cmd.Flags().GetString(name)
			if err != nil {
				return err
			}
			*field = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogger(cfg.LogLevel)
	slog.Debug("Configuration loaded",
		"rpc_server", cfg.RPCServerURL,
		"network", cfg.NetworkPassphrase,
		"sandbox_store", cfg.SandboxStore,
		"log_level", cfg.LogLevel,
	)
	return nil
}

// setupLogger installs the default slog logger. Logs go to stderr so that
// stdout carries only command results.
func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// formatError renders a failure with its kind when it has one
func formatError(err error) string {
	kind := errs.KindOf(err)
	if kind == errs.KindUnknown {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("error [%s]: %v", kind, err)
}
