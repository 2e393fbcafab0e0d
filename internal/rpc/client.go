package rpc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"deployer/internal/address"
	"deployer/internal/diagnostics"
	"deployer/internal/errs"
	"deployer/internal/metrics"
	"deployer/internal/network"
	"deployer/internal/retry"
	"deployer/internal/txbuild"

	rpcclient "github.com/stellar/go/clients/rpcclient"
	"github.com/stellar/go/keypair"
	stellarnetwork "github.com/stellar/go/network"
	protocol "github.com/stellar/go/protocols/rpc"
	"github.com/stellar/go/xdr"
)

// Transaction statuses reported by sendTransaction and getTransaction
const (
	statusPending       = "PENDING"
	statusDuplicate     = "DUPLICATE"
	statusTryAgainLater = "TRY_AGAIN_LATER"
	statusError         = "ERROR"

	statusSuccess  = "SUCCESS"
	statusNotFound = "NOT_FOUND"
	statusFailed   = "FAILED"
)

// Endpoint is the subset of the Stellar RPC API the deployer talks to
type Endpoint interface {
	GetHealth(ctx context.Context) (protocol.GetHealthResponse, error)
	GetLedgerEntries(ctx context.Context, request protocol.GetLedgerEntriesRequest) (protocol.GetLedgerEntriesResponse, error)
	SimulateTransaction(ctx context.Context, request protocol.SimulateTransactionRequest) (protocol.SimulateTransactionResponse, error)
	SendTransaction(ctx context.Context, request protocol.SendTransactionRequest) (protocol.SendTransactionResponse, error)
	GetTransaction(ctx context.Context, request protocol.GetTransactionRequest) (protocol.GetTransactionResponse, error)
}

var _ Endpoint = (*rpcclient.Client)(nil)

// ClientConfig describes how to reach the RPC server
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Dial creates an rpcclient for the configured endpoint
func Dial(cfg ClientConfig) (*rpcclient.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is empty, please provide a valid endpoint")
	}
	return rpcclient.NewClient(cfg.Endpoint, &http.Client{Timeout: cfg.Timeout}), nil
}

// Client implements network.Client on top of Stellar RPC
type Client struct {
	endpoint Endpoint
	poller   retry.Strategy
}

var _ network.Client = (*Client)(nil)

// NewClient creates a Client. The poller bounds how long a pending
// transaction is waited for.
func NewClient(endpoint Endpoint, poller retry.Strategy) *Client {
	return &Client{
		endpoint: endpoint,
		poller:   poller,
	}
}

// LatestLedger reports the most recent ledger known to the RPC server
func (c *Client) LatestLedger(ctx context.Context) (uint32, error) {
	health, err := c.endpoint.GetHealth(ctx)
	if err != nil {
		return 0, fmt.Errorf("rpc health check: %w", err)
	}
	return health.LatestLedger, nil
}

// GetAccount reads the account ledger entry of addr
func (c *Client) GetAccount(ctx context.Context, addr string) (network.Account, error) {
	publicKey, err := address.PublicKeyFromAddress(addr)
	if err != nil {
		return network.Account{}, err
	}

	key := xdr.LedgerKey{
		Type:    xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{AccountId: address.AccountID(publicKey)},
	}
	keyXDR, err := xdr.MarshalBase64(key)
	if err != nil {
		return network.Account{}, fmt.Errorf("encoding account key: %w", err)
	}

	resp, err := c.endpoint.GetLedgerEntries(ctx, protocol.GetLedgerEntriesRequest{Keys: []string{keyXDR}})
	if err != nil {
		return network.Account{}, fmt.Errorf("getLedgerEntries: %w", err)
	}
	if len(resp.Entries) == 0 {
		return network.Account{}, fmt.Errorf("account %s not found", addr)
	}

	var data xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(resp.Entries[0].DataXDR, &data); err != nil {
		return network.Account{}, fmt.Errorf("decoding account entry: %w", err)
	}
	entry, ok := data.GetAccount()
	if !ok {
		return network.Account{}, fmt.Errorf("ledger entry for %s is not an account", addr)
	}

	return network.Account{Address: addr, Sequence: int64(entry.SeqNum)}, nil
}

// PrepareAndSubmit simulates the envelope, applies the simulated resources,
// signs, submits and waits for the transaction to reach a terminal status
func (c *Client) PrepareAndSubmit(ctx context.Context, envelope xdr.TransactionEnvelope, key *keypair.Full, passphrase string) (*network.SubmissionResult, error) {
	prepared, err := c.prepare(ctx, envelope)
	if err != nil {
		return nil, err
	}

	txHash, err := stellarnetwork.HashTransactionInEnvelope(prepared, passphrase)
	if err != nil {
		return nil, errs.New(errs.KindEncoding, "hashing transaction", err)
	}
	signature, err := key.SignDecorated(txHash[:])
	if err != nil {
		return nil, errs.New(errs.KindEncoding, "signing transaction", err)
	}
	prepared.V1.Signatures = append(prepared.V1.Signatures, signature)

	signedXDR, err := xdr.MarshalBase64(prepared)
	if err != nil {
		return nil, errs.New(errs.KindEncoding, "encoding signed transaction", err)
	}

	sent, err := c.endpoint.SendTransaction(ctx, protocol.SendTransactionRequest{Transaction: signedXDR})
	if err != nil {
		return nil, fmt.Errorf("sendTransaction: %w", err)
	}

	result := &network.SubmissionResult{
		Hash:                sent.Hash,
		Status:              sent.Status,
		ResultXDR:           sent.ErrorResultXDR,
		DiagnosticEventsXDR: sent.DiagnosticEventsXDR,
	}
	if result.Hash == "" {
		result.Hash = hex.EncodeToString(txHash[:])
	}

	switch sent.Status {
	case statusPending, statusDuplicate:
	case statusError:
		return result, fmt.Errorf("transaction %s rejected: %s", result.Hash, diagnostics.DescribeResult(sent.ErrorResultXDR))
	case statusTryAgainLater:
		return result, fmt.Errorf("transaction %s not accepted: server asked to try again later", result.Hash)
	default:
		return result, fmt.Errorf("transaction %s: unexpected send status %q", result.Hash, sent.Status)
	}

	slog.Debug("RPC: transaction sent, waiting for confirmation",
		"tx_hash", result.Hash,
		"status", sent.Status,
	)
	return c.awaitConfirmation(ctx, result)
}

var errTransactionFailed = errors.New("transaction failed")

// awaitConfirmation polls getTransaction until the submission succeeds or
// fails. It never resubmits.
func (c *Client) awaitConfirmation(ctx context.Context, result *network.SubmissionResult) (*network.SubmissionResult, error) {
	polls := 0
	err := c.poller.Execute(ctx, func() error {
		polls++
		tx, err := c.endpoint.GetTransaction(ctx, protocol.GetTransactionRequest{Hash: result.Hash})
		if err != nil {
			return fmt.Errorf("getTransaction: %w", err)
		}

		switch tx.Status {
		case statusNotFound:
			return fmt.Errorf("transaction %s: %w", result.Hash, retry.ErrPending)
		case statusSuccess, statusFailed:
			result.Status = tx.Status
			result.Ledger = tx.Ledger
			result.ResultXDR = tx.ResultXDR
			if len(tx.DiagnosticEventsXDR) > 0 {
				result.DiagnosticEventsXDR = tx.DiagnosticEventsXDR
			}
			if fee, ok := diagnostics.FeeCharged(tx.ResultXDR); ok {
				result.FeeCharged = fee
			}
			if tx.Status == statusFailed {
				return fmt.Errorf("%w: %s", errTransactionFailed, diagnostics.DescribeResult(tx.ResultXDR))
			}
			return nil
		default:
			return fmt.Errorf("transaction %s: unexpected status %q", result.Hash, tx.Status)
		}
	})
	metrics.ConfirmationPolls.Observe(float64(polls))

	if err != nil {
		if errors.Is(err, retry.ErrPending) {
			return result, fmt.Errorf("transaction %s not confirmed after %d polls: %w", result.Hash, polls, err)
		}
		return result, err
	}
	return result, nil
}

// prepare simulates the transaction and assembles the envelope with the
// resources, fee and authorization the simulation requires
func (c *Client) prepare(ctx context.Context, envelope xdr.TransactionEnvelope) (xdr.TransactionEnvelope, error) {
	txXDR, err := xdr.MarshalBase64(envelope)
	if err != nil {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindEncoding, "encoding transaction", err)
	}

	sim, err := c.endpoint.SimulateTransaction(ctx, protocol.SimulateTransactionRequest{Transaction: txXDR})
	if err != nil {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindPreparation, "simulating transaction", err)
	}
	if sim.Error != "" {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindPreparation, "simulating transaction", errors.New(sim.Error))
	}

	if sim.RestorePreamble != nil {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindPreparation, "simulating transaction",
			errors.New("archived ledger entries must be restored before this transaction can run"))
	}

	var sorobanData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionDataXDR, &sorobanData); err != nil {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindPreparation, "decoding simulated transaction data", err)
	}

	auth, err := simulatedAuth(sim)
	if err != nil {
		return xdr.TransactionEnvelope{}, err
	}

	return Assemble(envelope, sorobanData, sim.MinResourceFee, auth)
}

// simulatedAuth decodes the authorization entries the simulation recorded
// for the host function
func simulatedAuth(sim protocol.SimulateTransactionResponse) ([]xdr.SorobanAuthorizationEntry, error) {
	if len(sim.Results) == 0 || sim.Results[0].AuthXDR == nil {
		return nil, nil
	}

	entries := make([]xdr.SorobanAuthorizationEntry, 0, len(*sim.Results[0].AuthXDR))
	for _, b64 := range *sim.Results[0].AuthXDR {
		var entry xdr.SorobanAuthorizationEntry
		if err := xdr.SafeUnmarshalBase64(b64, &entry); err != nil {
			return nil, errs.New(errs.KindPreparation, "decoding simulated authorization", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Assemble returns a copy of the envelope carrying the simulated soroban
// data, the resource fee on top of the inclusion fee, and the authorization
// entries. Simulated entries win; without them a contract creation gets the
// source account authorization built locally.
func Assemble(envelope xdr.TransactionEnvelope, sorobanData xdr.SorobanTransactionData, minResourceFee int64, auth []xdr.SorobanAuthorizationEntry) (xdr.TransactionEnvelope, error) {
	if envelope.V1 == nil || len(envelope.V1.Tx.Operations) != 1 {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindPreparation, "assembling transaction", errors.New("expected a single operation transaction"))
	}

	fee := int64(envelope.V1.Tx.Fee) + minResourceFee
	if minResourceFee < 0 || fee > math.MaxUint32 {
		return xdr.TransactionEnvelope{}, errs.New(errs.KindEncoding, "assembling transaction",
			fmt.Errorf("fee %d does not fit in a transaction", fee))
	}

	tx := envelope.V1.Tx
	tx.Fee = xdr.Uint32(fee)
	tx.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}

	op := tx.Operations[0]
	if hostFn, ok := txbuild.HostFunctionOp(envelope); ok {
		invoke := *hostFn
		if len(auth) > 0 {
			invoke.Auth = auth
		} else if len(invoke.Auth) == 0 {
			invoke.Auth = txbuild.SourceAccountAuth(envelope)
		}
		op.Body.InvokeHostFunctionOp = &invoke
	}
	tx.Operations = []xdr.Operation{op}

	return xdr.TransactionEnvelope{
		Type: xdr.EnvelopeTypeEnvelopeTypeTx,
		V1: &xdr.TransactionV1Envelope{
			Tx:         tx,
			Signatures: append([]xdr.DecoratedSignature(nil), envelope.V1.Signatures...),
		},
	}, nil
}
