package debug

import (
	"encoding/json"
	"log/slog"

	"deployer/internal/models"
)

// PrintDeployment prints the deployment record in JSON format
func PrintDeployment(deployment *models.Deployment) {
	jsonData, err := json.MarshalIndent(deployment, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal deployment to JSON", "error", err)
		return
	}

	slog.Debug("Deployment details", "json", string(jsonData))
}

// PrintLedgerState prints a summary of the sandbox ledger in JSON format
func PrintLedgerState(state *models.LedgerState) {
	summary := struct {
		Modules   int                                `json:"modules"`
		Instances map[string]models.ContractInstance `json:"instances"`
	}{
		Modules:   len(state.Modules),
		Instances: make(map[string]models.ContractInstance, len(state.Instances)),
	}
	for id, instance := range state.Instances {
		summary.Instances[id.String()] = instance
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal ledger state to JSON", "error", err)
		return
	}

	slog.Debug("Sandbox ledger state", "json", string(jsonData))
}
