package models

// DiagnosticEvent is a decoded diagnostic event returned by the RPC server
type DiagnosticEvent struct {
	ContractID string `json:"contract_id,omitempty"`
	Type       string `json:"type"` // contract, system or diagnostic
	EventIndex int    `json:"event_index"`

	Topics []string    `json:"topics"`
	Data   interface{} `json:"data,omitempty"`

	InSuccessfulContractCall bool `json:"in_successful_contract_call"`
}
