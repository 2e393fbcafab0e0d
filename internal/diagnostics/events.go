package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deployer/internal/models"
	"deployer/internal/network"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// DecodeEvents decodes the base64 diagnostic events attached to an RPC
// response. Undecodable entries are skipped and reported in the error.
func DecodeEvents(eventsXDR []string) ([]models.DiagnosticEvent, error) {
	var (
		result []models.DiagnosticEvent
		failed int
	)
	for i, raw := range eventsXDR {
		event, err := DecodeEvent(raw, i)
		if err != nil {
			failed++
			continue
		}
		result = append(result, event)
	}
	if failed > 0 {
		return result, fmt.Errorf("%d of %d diagnostic events could not be decoded", failed, len(eventsXDR))
	}
	return result, nil
}

// DecodeEvent decodes one base64 xdr.DiagnosticEvent
func DecodeEvent(eventXDR string, index int) (models.DiagnosticEvent, error) {
	var diag xdr.DiagnosticEvent
	if err := xdr.SafeUnmarshalBase64(eventXDR, &diag); err != nil {
		return models.DiagnosticEvent{}, fmt.Errorf("decoding diagnostic event %d: %w", index, err)
	}

	event := diag.Event
	decoded := models.DiagnosticEvent{
		Type:                     strings.ToLower(strings.TrimPrefix(event.Type.String(), "ContractEventType")),
		EventIndex:               index,
		InSuccessfulContractCall: diag.InSuccessfulContractCall,
	}

	if event.ContractId != nil {
		raw := *event.ContractId
		if id, err := strkey.Encode(strkey.VersionByteContract, raw[:]); err == nil {
			decoded.ContractID = id
		}
	}

	if event.Body.V0 != nil {
		decoded.Topics = make([]string, len(event.Body.V0.Topics))
		for i, topic := range event.Body.V0.Topics {
			decoded.Topics[i] = scValToString(topic)
		}
		decoded.Data = scValToInterface(event.Body.V0.Data)
	}

	return decoded, nil
}

// DescribeResult names the result code of a base64 xdr.TransactionResult,
// e.g. TransactionResultCodeTxBadSeq
func DescribeResult(resultXDR string) string {
	if resultXDR == "" {
		return "no result"
	}
	var result xdr.TransactionResult
	if err := xdr.SafeUnmarshalBase64(resultXDR, &result); err != nil {
		return "undecodable result"
	}
	return result.Result.Code.String()
}

// FeeCharged returns the fee recorded in a base64 xdr.TransactionResult
func FeeCharged(resultXDR string) (int64, bool) {
	if resultXDR == "" {
		return 0, false
	}
	var result xdr.TransactionResult
	if err := xdr.SafeUnmarshalBase64(resultXDR, &result); err != nil {
		return 0, false
	}
	return int64(result.FeeCharged), true
}

// Logger logs every submission outcome and its diagnostic events
type Logger struct{}

// NewLogger creates a diagnostics Logger
func NewLogger() *Logger {
	return &Logger{}
}

// Report implements network.Reporter
func (l *Logger) Report(ctx context.Context, phase network.Phase, result *network.SubmissionResult) {
	if result == nil {
		return
	}

	level := slog.LevelDebug
	if result.Status != "SUCCESS" {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "Submission outcome",
		"phase", phase,
		"tx_hash", result.Hash,
		"status", result.Status,
		"result", DescribeResult(result.ResultXDR),
		"diagnostic_events", len(result.DiagnosticEventsXDR),
	)

	events, err := DecodeEvents(result.DiagnosticEventsXDR)
	if err != nil {
		slog.Warn("Failed to decode diagnostic events", "tx_hash", result.Hash, "error", err)
	}
	for _, event := range events {
		slog.Log(ctx, level, "Diagnostic event",
			"tx_hash", result.Hash,
			"index", event.EventIndex,
			"type", event.Type,
			"contract_id", event.ContractID,
			"topics", event.Topics,
			"data", event.Data,
		)
	}
}
