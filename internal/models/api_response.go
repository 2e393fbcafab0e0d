package models

import "time"

// DeployRequest is the body of POST /deployments
type DeployRequest struct {
	Wasm       []byte `json:"wasm,omitempty"`        // base64 in JSON
	WasmHash   string `json:"wasm_hash,omitempty"`   // hex or strkey
	Salt       string `json:"salt,omitempty"`        // network mode only
	ContractID string `json:"contract_id,omitempty"` // sandbox mode only
}

// DeployResponse is returned after a successful deployment
type DeployResponse struct {
	ContractID string `json:"contract_id"`
	WasmHash   string `json:"wasm_hash"`
	Mode       string `json:"mode"`
}

// ErrorResponse carries a failure and, for deployment failures, its kind
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
}

// PaginatedResponse wraps list endpoints
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination describes the window of a list response
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Mode      string            `json:"mode"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
