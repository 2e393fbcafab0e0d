package txbuild

import (
	"testing"

	"deployer/internal/address"
	"deployer/internal/errs"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallTx(t *testing.T) {
	kp := keypair.MustRandom()
	module := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	envelope, moduleHash, err := BuildInstallTx(module, 42, 100, kp.Address())
	require.NoError(t, err)
	require.Equal(t, address.HashModule(module), moduleHash)

	tx := envelope.V1.Tx
	require.Equal(t, xdr.SequenceNumber(42), tx.SeqNum)
	require.Equal(t, xdr.Uint32(100), tx.Fee)
	require.Equal(t, xdr.MemoTypeMemoNone, tx.Memo.Type)
	require.Equal(t, xdr.PreconditionTypePrecondNone, tx.Cond.Type)
	require.Len(t, tx.Operations, 1)
	require.Empty(t, envelope.V1.Signatures)

	source, err := tx.SourceAccount.GetAddress()
	require.NoError(t, err)
	require.Equal(t, kp.Address(), source)

	op := tx.Operations[0]
	require.NotNil(t, op.SourceAccount, "install sets the operation source account")
	opSource, err := op.SourceAccount.GetAddress()
	require.NoError(t, err)
	require.Equal(t, kp.Address(), opSource)

	hostFn := op.Body.MustInvokeHostFunctionOp().HostFunction
	require.Equal(t, xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm, hostFn.Type)
	require.Equal(t, module, hostFn.MustWasm())
}

func TestBuildInstallTx_CopiesModule(t *testing.T) {
	kp := keypair.MustRandom()
	module := []byte{1, 2, 3}

	envelope, _, err := BuildInstallTx(module, 1, 100, kp.Address())
	require.NoError(t, err)

	module[0] = 9
	hostFn := envelope.V1.Tx.Operations[0].Body.MustInvokeHostFunctionOp().HostFunction
	require.Equal(t, []byte{1, 2, 3}, hostFn.MustWasm())
}

func TestBuildCreateInstanceTx(t *testing.T) {
	kp := keypair.MustRandom()
	moduleHash := address.HashModule([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	salt, err := address.ParseSalt("01")
	require.NoError(t, err)

	envelope, contractID, err := BuildCreateInstanceTx(moduleHash, 7, 250, network.TestNetworkPassphrase, salt, kp.Address())
	require.NoError(t, err)

	pub, err := address.PublicKeyFromAddress(kp.Address())
	require.NoError(t, err)
	expected, err := address.DeriveContractID(address.NetworkID(network.TestNetworkPassphrase), pub, salt)
	require.NoError(t, err)
	require.Equal(t, expected, contractID)

	tx := envelope.V1.Tx
	require.Equal(t, xdr.SequenceNumber(7), tx.SeqNum)
	require.Equal(t, xdr.Uint32(250), tx.Fee)
	require.Equal(t, xdr.MemoTypeMemoNone, tx.Memo.Type)
	require.Equal(t, xdr.PreconditionTypePrecondNone, tx.Cond.Type)
	require.Len(t, tx.Operations, 1)
	require.Nil(t, tx.Operations[0].SourceAccount, "create does not override the source account")

	args := tx.Operations[0].Body.MustInvokeHostFunctionOp().HostFunction.MustCreateContract()
	require.Equal(t, xdr.Hash(moduleHash), *args.Executable.WasmHash)
	require.Equal(t, xdr.Uint256(salt), args.ContractIdPreimage.FromAddress.Salt)
}

func TestBuildCreateInstanceTx_SameInputsSameID(t *testing.T) {
	kp := keypair.MustRandom()
	moduleHash := address.HashModule([]byte("wasm"))
	salt, _ := address.ParseSalt("01")

	_, first, err := BuildCreateInstanceTx(moduleHash, 1, 100, network.TestNetworkPassphrase, salt, kp.Address())
	require.NoError(t, err)
	_, second, err := BuildCreateInstanceTx(moduleHash, 2, 100, network.TestNetworkPassphrase, salt, kp.Address())
	require.NoError(t, err)

	require.Equal(t, first, second, "sequence and fee do not affect the contract id")
}

func TestBuilders_RejectBadAccount(t *testing.T) {
	_, _, err := BuildInstallTx([]byte{1}, 1, 100, "GBAD")
	require.Error(t, err)
	require.Equal(t, errs.KindMalformedInput, errs.KindOf(err))

	_, _, err = BuildCreateInstanceTx(address.Hash{}, 1, 100, network.TestNetworkPassphrase, address.Salt{}, "GBAD")
	require.Error(t, err)
	require.Equal(t, errs.KindMalformedInput, errs.KindOf(err))
}

func TestSourceAccountAuth(t *testing.T) {
	kp := keypair.MustRandom()

	install, _, err := BuildInstallTx([]byte{1}, 1, 100, kp.Address())
	require.NoError(t, err)
	require.Nil(t, SourceAccountAuth(install))

	create, _, err := BuildCreateInstanceTx(address.Hash{1}, 1, 100, network.TestNetworkPassphrase, address.Salt{2}, kp.Address())
	require.NoError(t, err)

	auth := SourceAccountAuth(create)
	require.Len(t, auth, 1)
	require.Equal(t, xdr.SorobanCredentialsTypeSorobanCredentialsSourceAccount, auth[0].Credentials.Type)
	require.Equal(t,
		xdr.SorobanAuthorizedFunctionTypeSorobanAuthorizedFunctionTypeCreateContractHostFn,
		auth[0].RootInvocation.Function.Type)
}
