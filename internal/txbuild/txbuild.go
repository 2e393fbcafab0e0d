// Package txbuild assembles unsigned single-operation Soroban transactions.
// Builders perform no I/O: the sequence number and fee always come from the caller.
package txbuild

import (
	"fmt"

	"deployer/internal/address"
	"deployer/internal/errs"

	"github.com/stellar/go/xdr"
)

// BuildInstallTx wraps module in an UPLOAD_CONTRACT_WASM operation whose
// source account is account. It returns the unsigned envelope and the
// module hash the ledger will store the code under.
func BuildInstallTx(module []byte, sequence int64, fee uint32, account string) (xdr.TransactionEnvelope, address.Hash, error) {
	publicKey, err := address.PublicKeyFromAddress(account)
	if err != nil {
		return xdr.TransactionEnvelope{}, address.Hash{}, err
	}

	moduleHash := address.HashModule(module)

	code := make([]byte, len(module))
	copy(code, module)

	source := address.MuxedAccount(publicKey)
	op := xdr.Operation{
		SourceAccount: &source,
		Body: xdr.OperationBody{
			Type: xdr.OperationTypeInvokeHostFunction,
			InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
				HostFunction: xdr.HostFunction{
					Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm,
					Wasm: &code,
				},
				Auth: []xdr.SorobanAuthorizationEntry{},
			},
		},
	}

	envelope := newEnvelope(publicKey, sequence, fee, op)
	if err := checkEncodable(envelope); err != nil {
		return xdr.TransactionEnvelope{}, address.Hash{}, err
	}

	return envelope, moduleHash, nil
}

// BuildCreateInstanceTx emits a CREATE_CONTRACT operation instantiating the
// module stored under moduleHash. The contract id is derived from the
// network passphrase, the account and the salt, and returned alongside the
// unsigned envelope.
func BuildCreateInstanceTx(
	moduleHash address.Hash,
	sequence int64,
	fee uint32,
	networkPassphrase string,
	salt address.Salt,
	account string,
) (xdr.TransactionEnvelope, address.ContractID, error) {
	publicKey, err := address.PublicKeyFromAddress(account)
	if err != nil {
		return xdr.TransactionEnvelope{}, address.ContractID{}, err
	}

	networkID := address.NetworkID(networkPassphrase)
	contractID, err := address.DeriveContractID(networkID, publicKey, salt)
	if err != nil {
		return xdr.TransactionEnvelope{}, address.ContractID{}, err
	}

	wasmHash := xdr.Hash(moduleHash)
	op := xdr.Operation{
		Body: xdr.OperationBody{
			Type: xdr.OperationTypeInvokeHostFunction,
			InvokeHostFunctionOp: &xdr.InvokeHostFunctionOp{
				HostFunction: xdr.HostFunction{
					Type: xdr.HostFunctionTypeHostFunctionTypeCreateContract,
					CreateContract: &xdr.CreateContractArgs{
						ContractIdPreimage: address.FromAccountPreimage(publicKey, salt),
						Executable: xdr.ContractExecutable{
							Type:     xdr.ContractExecutableTypeContractExecutableWasm,
							WasmHash: &wasmHash,
						},
					},
				},
				Auth: []xdr.SorobanAuthorizationEntry{},
			},
		},
	}

	envelope := newEnvelope(publicKey, sequence, fee, op)
	if err := checkEncodable(envelope); err != nil {
		return xdr.TransactionEnvelope{}, address.ContractID{}, err
	}

	return envelope, contractID, nil
}

// SourceAccountAuth returns the authorization entries the single operation
// of envelope needs when the transaction source account signs for it. Only
// CREATE_CONTRACT needs one: the creating address authorizes the creation.
func SourceAccountAuth(envelope xdr.TransactionEnvelope) []xdr.SorobanAuthorizationEntry {
	op, ok := HostFunctionOp(envelope)
	if !ok || op.HostFunction.Type != xdr.HostFunctionTypeHostFunctionTypeCreateContract {
		return nil
	}

	args := *op.HostFunction.CreateContract
	return []xdr.SorobanAuthorizationEntry{
		{
			Credentials: xdr.SorobanCredentials{
				Type: xdr.SorobanCredentialsTypeSorobanCredentialsSourceAccount,
			},
			RootInvocation: xdr.SorobanAuthorizedInvocation{
				Function: xdr.SorobanAuthorizedFunction{
					Type:                 xdr.SorobanAuthorizedFunctionTypeSorobanAuthorizedFunctionTypeCreateContractHostFn,
					CreateContractHostFn: &args,
				},
				SubInvocations: []xdr.SorobanAuthorizedInvocation{},
			},
		},
	}
}

// HostFunctionOp returns the InvokeHostFunction body of the envelope's only operation
func HostFunctionOp(envelope xdr.TransactionEnvelope) (*xdr.InvokeHostFunctionOp, bool) {
	if envelope.Type != xdr.EnvelopeTypeEnvelopeTypeTx || envelope.V1 == nil {
		return nil, false
	}
	ops := envelope.V1.Tx.Operations
	if len(ops) != 1 || ops[0].Body.Type != xdr.OperationTypeInvokeHostFunction {
		return nil, false
	}
	return ops[0].Body.InvokeHostFunctionOp, ops[0].Body.InvokeHostFunctionOp != nil
}

func newEnvelope(publicKey [address.Size]byte, sequence int64, fee uint32, op xdr.Operation) xdr.TransactionEnvelope {
	return xdr.TransactionEnvelope{
		Type: xdr.EnvelopeTypeEnvelopeTypeTx,
		V1: &xdr.TransactionV1Envelope{
			Tx: xdr.Transaction{
				SourceAccount: address.MuxedAccount(publicKey),
				Fee:           xdr.Uint32(fee),
				SeqNum:        xdr.SequenceNumber(sequence),
				Cond:          xdr.Preconditions{Type: xdr.PreconditionTypePrecondNone},
				Memo:          xdr.Memo{Type: xdr.MemoTypeMemoNone},
				Operations:    []xdr.Operation{op},
				Ext:           xdr.TransactionExt{V: 0},
			},
			Signatures: []xdr.DecoratedSignature{},
		},
	}
}

// checkEncodable surfaces XDR size violations (e.g. an oversized module) at build time
func checkEncodable(envelope xdr.TransactionEnvelope) error {
	if _, err := envelope.MarshalBinary(); err != nil {
		return errs.New(errs.KindEncoding, "encoding transaction", fmt.Errorf("xdr: %w", err))
	}
	return nil
}
