package models

import "time"

// DeploymentMode tells which backend executed a deployment
type DeploymentMode string

const (
	ModeSandbox DeploymentMode = "sandbox"
	ModeNetwork DeploymentMode = "network"
)

// Deployment records a contract instance created by the deployer
type Deployment struct {
	// Identification
	ID         string `json:"id"`          // uuid of the deployment attempt
	ContractID string `json:"contract_id"` // C... strkey

	// Code
	WasmHash string `json:"wasm_hash"`           // hex module hash
	WasmSize int    `json:"wasm_size,omitempty"` // 0 when deployed from an existing hash

	// Execution context
	Mode              DeploymentMode `json:"mode"`
	NetworkPassphrase string         `json:"network_passphrase,omitempty"`
	Deployer          string         `json:"deployer,omitempty"` // G... account, network mode only
	Salt              string         `json:"salt,omitempty"`     // hex, network mode only

	// Transactions (network mode only)
	InstallTxHash string `json:"install_tx_hash,omitempty"`
	CreateTxHash  string `json:"create_tx_hash,omitempty"`
	FeeCharged    int64  `json:"fee_charged,omitempty"`

	DeployedAt time.Time `json:"deployed_at"`
}
