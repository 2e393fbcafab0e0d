package rpc

import (
	"context"
	"math"
	"testing"
	"time"

	"deployer/internal/address"
	"deployer/internal/errs"
	"deployer/internal/retry"
	"deployer/internal/txbuild"

	"github.com/stellar/go/keypair"
	stellarnetwork "github.com/stellar/go/network"
	protocol "github.com/stellar/go/protocols/rpc"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

type fakeEndpoint struct {
	sequence int64
	noEntry  bool

	simError       string
	minResourceFee int64
	simAuth        []xdr.SorobanAuthorizationEntry
	needsRestore   bool

	sendStatus      string
	sendErrorResult string

	// statuses returned by successive getTransaction calls, the last one repeats
	txStatuses []string
	txResult   string

	simulated []xdr.TransactionEnvelope
	sent      []xdr.TransactionEnvelope
	polls     int
}

func (f *fakeEndpoint) GetHealth(context.Context) (protocol.GetHealthResponse, error) {
	var resp protocol.GetHealthResponse
	resp.Status = "healthy"
	resp.LatestLedger = 1234
	return resp, nil
}

func (f *fakeEndpoint) GetLedgerEntries(_ context.Context, req protocol.GetLedgerEntriesRequest) (protocol.GetLedgerEntriesResponse, error) {
	var resp protocol.GetLedgerEntriesResponse
	if f.noEntry {
		return resp, nil
	}

	var key xdr.LedgerKey
	if err := xdr.SafeUnmarshalBase64(req.Keys[0], &key); err != nil {
		return resp, err
	}
	data := xdr.LedgerEntryData{
		Type: xdr.LedgerEntryTypeAccount,
		Account: &xdr.AccountEntry{
			AccountId: key.Account.AccountId,
			Balance:   100_0000000,
			SeqNum:    xdr.SequenceNumber(f.sequence),
		},
	}
	dataXDR, err := xdr.MarshalBase64(data)
	if err != nil {
		return resp, err
	}
	resp.Entries = []protocol.LedgerEntryResult{{DataXDR: dataXDR}}
	return resp, nil
}

func (f *fakeEndpoint) SimulateTransaction(_ context.Context, req protocol.SimulateTransactionRequest) (protocol.SimulateTransactionResponse, error) {
	var envelope xdr.TransactionEnvelope
	if err := xdr.SafeUnmarshalBase64(req.Transaction, &envelope); err != nil {
		return protocol.SimulateTransactionResponse{}, err
	}
	f.simulated = append(f.simulated, envelope)

	var resp protocol.SimulateTransactionResponse
	if f.simError != "" {
		resp.Error = f.simError
		return resp, nil
	}
	dataXDR, err := xdr.MarshalBase64(xdr.SorobanTransactionData{ResourceFee: xdr.Int64(f.minResourceFee)})
	if err != nil {
		return resp, err
	}
	resp.TransactionDataXDR = dataXDR
	resp.MinResourceFee = f.minResourceFee
	if f.needsRestore {
		resp.RestorePreamble = &protocol.RestorePreamble{TransactionDataXDR: dataXDR}
	}
	if f.simAuth != nil {
		authXDR := make([]string, 0, len(f.simAuth))
		for _, entry := range f.simAuth {
			b64, err := xdr.MarshalBase64(entry)
			if err != nil {
				return resp, err
			}
			authXDR = append(authXDR, b64)
		}
		resp.Results = []protocol.SimulateHostFunctionResult{{AuthXDR: &authXDR}}
	}
	return resp, nil
}

func (f *fakeEndpoint) SendTransaction(_ context.Context, req protocol.SendTransactionRequest) (protocol.SendTransactionResponse, error) {
	var envelope xdr.TransactionEnvelope
	if err := xdr.SafeUnmarshalBase64(req.Transaction, &envelope); err != nil {
		return protocol.SendTransactionResponse{}, err
	}
	f.sent = append(f.sent, envelope)

	var resp protocol.SendTransactionResponse
	resp.Status = f.sendStatus
	resp.Hash = "abcd"
	resp.ErrorResultXDR = f.sendErrorResult
	return resp, nil
}

func (f *fakeEndpoint) GetTransaction(_ context.Context, req protocol.GetTransactionRequest) (protocol.GetTransactionResponse, error) {
	status := f.txStatuses[len(f.txStatuses)-1]
	if f.polls < len(f.txStatuses) {
		status = f.txStatuses[f.polls]
	}
	f.polls++

	var resp protocol.GetTransactionResponse
	resp.Status = status
	if status != statusNotFound {
		resp.Ledger = 77
		resp.ResultXDR = f.txResult
	}
	return resp, nil
}

func resultXDR(t *testing.T, code xdr.TransactionResultCode, fee int64) string {
	t.Helper()
	result := xdr.TransactionResultResult{Code: code}
	if code == xdr.TransactionResultCodeTxSuccess || code == xdr.TransactionResultCodeTxFailed {
		result.Results = &[]xdr.OperationResult{}
	}
	b64, err := xdr.MarshalBase64(xdr.TransactionResult{
		FeeCharged: xdr.Int64(fee),
		Result:     result,
	})
	require.NoError(t, err)
	return b64
}

func fastPoller() retry.Strategy {
	return retry.NewExponentialBackoffStrategy(5, time.Millisecond, 2*time.Millisecond)
}

func createEnvelope(t *testing.T, kp *keypair.Full) xdr.TransactionEnvelope {
	t.Helper()
	envelope, _, err := txbuild.BuildCreateInstanceTx(address.Hash{1}, 11, 100, stellarnetwork.TestNetworkPassphrase, address.Salt{2}, kp.Address())
	require.NoError(t, err)
	return envelope
}

func TestGetAccount(t *testing.T) {
	kp := keypair.MustRandom()
	client := NewClient(&fakeEndpoint{sequence: 41}, fastPoller())

	account, err := client.GetAccount(context.Background(), kp.Address())
	require.NoError(t, err)
	require.Equal(t, kp.Address(), account.Address)
	require.Equal(t, int64(41), account.Sequence)
}

func TestGetAccount_NotFound(t *testing.T) {
	client := NewClient(&fakeEndpoint{noEntry: true}, fastPoller())

	_, err := client.GetAccount(context.Background(), keypair.MustRandom().Address())
	require.ErrorContains(t, err, "not found")
}

func TestGetAccount_MalformedAddress(t *testing.T) {
	client := NewClient(&fakeEndpoint{}, fastPoller())

	_, err := client.GetAccount(context.Background(), "GNOPE")
	require.Equal(t, errs.KindMalformedInput, errs.KindOf(err))
}

func TestPrepareAndSubmit_Confirmed(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{
		minResourceFee: 50,
		sendStatus:     statusPending,
		txStatuses:     []string{statusNotFound, statusNotFound, statusSuccess},
		txResult:       resultXDR(t, xdr.TransactionResultCodeTxSuccess, 150),
	}
	client := NewClient(endpoint, fastPoller())

	result, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.NoError(t, err)
	require.Equal(t, statusSuccess, result.Status)
	require.Equal(t, uint32(77), result.Ledger)
	require.Equal(t, int64(150), result.FeeCharged)
	require.Equal(t, 3, endpoint.polls)

	require.Len(t, endpoint.simulated, 1)
	require.Len(t, endpoint.sent, 1)
	sent := endpoint.sent[0]
	require.Equal(t, xdr.Uint32(150), sent.V1.Tx.Fee, "resource fee is added to the inclusion fee")
	require.Equal(t, int32(1), sent.V1.Tx.Ext.V)
	require.Len(t, sent.Operations()[0].Body.MustInvokeHostFunctionOp().Auth, 1)

	require.Len(t, sent.V1.Signatures, 1)
	hash, err := stellarnetwork.HashTransactionInEnvelope(sent, stellarnetwork.TestNetworkPassphrase)
	require.NoError(t, err)
	require.NoError(t, kp.Verify(hash[:], sent.V1.Signatures[0].Signature))
}

func TestPrepareAndSubmit_SimulationError(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{simError: "HostError: Error(Storage, MissingValue)"}
	client := NewClient(endpoint, fastPoller())

	_, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.Error(t, err)
	require.Equal(t, errs.KindPreparation, errs.KindOf(err))
	require.Contains(t, err.Error(), "MissingValue")
	require.Empty(t, endpoint.sent)
}

func TestPrepareAndSubmit_Rejected(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{
		sendStatus:      statusError,
		sendErrorResult: resultXDR(t, xdr.TransactionResultCodeTxBadSeq, 0),
	}
	client := NewClient(endpoint, fastPoller())

	result, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TxBadSeq")
	require.NotNil(t, result)
	require.Equal(t, statusError, result.Status)
	require.Zero(t, endpoint.polls, "a rejected transaction is not polled")
	require.Len(t, endpoint.sent, 1)
}

func TestPrepareAndSubmit_Failed(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{
		sendStatus: statusPending,
		txStatuses: []string{statusFailed},
		txResult:   resultXDR(t, xdr.TransactionResultCodeTxFailed, 100),
	}
	client := NewClient(endpoint, fastPoller())

	result, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.ErrorIs(t, err, errTransactionFailed)
	require.Equal(t, statusFailed, result.Status)
	require.Equal(t, 1, endpoint.polls)
	require.Len(t, endpoint.sent, 1)
}

func TestPrepareAndSubmit_NeverConfirmed(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{
		sendStatus: statusPending,
		txStatuses: []string{statusNotFound},
	}
	client := NewClient(endpoint, retry.NewExponentialBackoffStrategy(2, time.Millisecond, time.Millisecond))

	_, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.ErrorIs(t, err, retry.ErrPending)
	require.Equal(t, 3, endpoint.polls)
	require.Len(t, endpoint.sent, 1, "polling never resubmits")
}

func TestPrepareAndSubmit_UsesSimulatedAuth(t *testing.T) {
	kp := keypair.MustRandom()
	envelope := createEnvelope(t, kp)
	local := txbuild.SourceAccountAuth(envelope)
	endpoint := &fakeEndpoint{
		sendStatus: statusPending,
		txStatuses: []string{statusSuccess},
		txResult:   resultXDR(t, xdr.TransactionResultCodeTxSuccess, 100),
		simAuth:    append(local, local...),
	}
	client := NewClient(endpoint, fastPoller())

	_, err := client.PrepareAndSubmit(context.Background(), envelope, kp, stellarnetwork.TestNetworkPassphrase)
	require.NoError(t, err)
	require.Len(t, endpoint.sent, 1)
	require.Len(t, endpoint.sent[0].Operations()[0].Body.MustInvokeHostFunctionOp().Auth, 2)
}

func TestPrepareAndSubmit_RestoreRequired(t *testing.T) {
	kp := keypair.MustRandom()
	endpoint := &fakeEndpoint{needsRestore: true, sendStatus: statusPending}
	client := NewClient(endpoint, fastPoller())

	_, err := client.PrepareAndSubmit(context.Background(), createEnvelope(t, kp), kp, stellarnetwork.TestNetworkPassphrase)
	require.Equal(t, errs.KindPreparation, errs.KindOf(err))
	require.ErrorContains(t, err, "restored")
	require.Empty(t, endpoint.sent)
}

func TestAssemble_FeeOverflow(t *testing.T) {
	kp := keypair.MustRandom()
	_, err := Assemble(createEnvelope(t, kp), xdr.SorobanTransactionData{}, math.MaxUint32, nil)
	require.Error(t, err)
	require.Equal(t, errs.KindEncoding, errs.KindOf(err))
}

func TestAssemble_InstallHasNoAuth(t *testing.T) {
	kp := keypair.MustRandom()
	envelope, _, err := txbuild.BuildInstallTx([]byte{1, 2, 3}, 1, 100, kp.Address())
	require.NoError(t, err)

	assembled, err := Assemble(envelope, xdr.SorobanTransactionData{}, 10, nil)
	require.NoError(t, err)
	require.Empty(t, assembled.Operations()[0].Body.MustInvokeHostFunctionOp().Auth)
	require.Equal(t, xdr.Uint32(110), assembled.V1.Tx.Fee)
	require.Equal(t, xdr.Uint32(100), envelope.V1.Tx.Fee, "the input envelope is left untouched")
}

func TestLatestLedger(t *testing.T) {
	latest, err := NewClient(&fakeEndpoint{}, fastPoller()).LatestLedger(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(1234), latest)
}

func TestDial_EmptyEndpoint(t *testing.T) {
	_, err := Dial(ClientConfig{})
	require.Error(t, err)
}
