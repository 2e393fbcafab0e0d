package main

import (
	"fmt"

	"deployer/internal/debug"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <contract-id>",
	Short: "Print the module hash a sandbox contract is bound to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.IsNoNetwork() {
			return fmt.Errorf("lookup reads the sandbox ledger, unset SOROBAN_RPC_URL")
		}

		c, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		moduleHash, err := c.sandbox.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if state, err := c.sandbox.State(cmd.Context()); err == nil {
			debug.PrintLedgerState(state)
		}

		fmt.Fprintln(cmd.OutOrStdout(), moduleHash.HexString())
		return nil
	},
}
