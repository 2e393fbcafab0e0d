package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadWasm string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Install a WASM module and print its hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		module, err := readModule(uploadWasm)
		if err != nil {
			return err
		}

		c, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		moduleHash, err := c.orchestrator.Upload(cmd.Context(), module)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), moduleHash.HexString())
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadWasm, "wasm", "", "Path to the WASM module")
	uploadCmd.MarkFlagRequired("wasm")
}
