package main

import (
	"fmt"
	"os"

	"deployer/internal/errs"
	"deployer/internal/orchestrator"

	"github.com/spf13/cobra"
)

var (
	deployWasm       string
	deployWasmHash   string
	deploySalt       string
	deployContractID string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a contract instance from a WASM file or an installed module hash",
	Example: "  deployer deploy --wasm token.wasm\n" +
		"  deployer deploy --wasm-hash 3a1f... --salt 01\n" +
		"  deployer deploy --wasm token.wasm --id CONTRACT_A",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if deployWasm == "" && deployWasmHash == "" {
			return errs.ErrModuleSourceMissing
		}

		req := orchestrator.Request{
			ModuleHash: deployWasmHash,
			Salt:       deploySalt,
			ContractID: deployContractID,
		}
		if deployWasm != "" {
			module, err := readModule(deployWasm)
			if err != nil {
				return err
			}
			req.Module = module
		}

		c, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		contractID, err := c.orchestrator.Deploy(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), contractID)
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployWasm, "wasm", "", "Path to the WASM module to install and deploy")
	deployCmd.Flags().StringVar(&deployWasmHash, "wasm-hash", "", "Hash of an already installed module, hex or C... strkey")
	deployCmd.Flags().StringVar(&deploySalt, "salt", "", "Hex salt for the contract id, network mode only (random when empty)")
	deployCmd.Flags().StringVar(&deployContractID, "id", "", "Contract id or label to bind, sandbox mode only")
}

// readModule loads WASM bytes from disk
func readModule(path string) ([]byte, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Malformed("wasm file", path, err)
	}
	return module, nil
}
