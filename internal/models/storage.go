package models

import (
	"time"

	"deployer/internal/address"
)

// ContractInstance is a sandbox contract bound to an installed module
type ContractInstance struct {
	WasmHash  address.Hash `json:"wasm_hash"`
	Alias     string       `json:"alias,omitempty"` // label the id was derived from, if any
	CreatedAt time.Time    `json:"created_at"`
}

// LedgerState is the offline substitute for the network ledger
type LedgerState struct {
	Modules   map[address.Hash][]byte                 `json:"modules"`
	Instances map[address.ContractID]ContractInstance `json:"instances"`
}

// NewLedgerState returns an empty state
func NewLedgerState() *LedgerState {
	return &LedgerState{
		Modules:   make(map[address.Hash][]byte),
		Instances: make(map[address.ContractID]ContractInstance),
	}
}

// Normalize makes sure both tables are allocated, e.g. after decoding an empty file
func (s *LedgerState) Normalize() {
	if s.Modules == nil {
		s.Modules = make(map[address.Hash][]byte)
	}
	if s.Instances == nil {
		s.Instances = make(map[address.ContractID]ContractInstance)
	}
}

// InstanceOptions carries the mode specific inputs of an instance creation
type InstanceOptions struct {
	// ContractID is an explicit sandbox identifier: a contract strkey, hex,
	// or a label. Empty means a random id.
	ContractID string

	// Salt seeds the network contract id. Nil means a random salt.
	Salt *address.Salt
}
