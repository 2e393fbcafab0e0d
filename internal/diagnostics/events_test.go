package diagnostics

import (
	"testing"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

func symbol(s string) xdr.ScVal {
	sym := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}
}

func encodeEvent(t *testing.T, event xdr.DiagnosticEvent) string {
	t.Helper()
	b64, err := xdr.MarshalBase64(event)
	require.NoError(t, err)
	return b64
}

func TestDecodeEvent(t *testing.T) {
	n := xdr.Uint32(7)
	contract := xdr.ContractId{1, 2, 3}

	raw := encodeEvent(t, xdr.DiagnosticEvent{
		InSuccessfulContractCall: true,
		Event: xdr.ContractEvent{
			ContractId: &contract,
			Type:       xdr.ContractEventTypeDiagnostic,
			Body: xdr.ContractEventBody{
				V: 0,
				V0: &xdr.ContractEventV0{
					Topics: []xdr.ScVal{symbol("fn_call"), symbol("init")},
					Data:   xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &n},
				},
			},
		},
	})

	event, err := DecodeEvent(raw, 3)
	require.NoError(t, err)
	require.Equal(t, "diagnostic", event.Type)
	require.Equal(t, 3, event.EventIndex)
	require.True(t, event.InSuccessfulContractCall)
	require.Equal(t, []string{"fn_call", "init"}, event.Topics)
	require.Equal(t, xdr.Uint32(7), event.Data)

	expectedID := strkey.MustEncode(strkey.VersionByteContract, contract[:])
	require.Equal(t, expectedID, event.ContractID)
}

func TestDecodeEvents_SkipsGarbage(t *testing.T) {
	good := encodeEvent(t, xdr.DiagnosticEvent{
		Event: xdr.ContractEvent{
			Type: xdr.ContractEventTypeSystem,
			Body: xdr.ContractEventBody{V: 0, V0: &xdr.ContractEventV0{
				Data: xdr.ScVal{Type: xdr.ScValTypeScvVoid},
			}},
		},
	})

	events, err := DecodeEvents([]string{good, "not-xdr"})
	require.Error(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "system", events[0].Type)
	require.Empty(t, events[0].ContractID)
}

func TestDescribeResult(t *testing.T) {
	b64, err := xdr.MarshalBase64(xdr.TransactionResult{
		FeeCharged: 1234,
		Result:     xdr.TransactionResultResult{Code: xdr.TransactionResultCodeTxBadSeq},
	})
	require.NoError(t, err)

	require.Equal(t, "TransactionResultCodeTxBadSeq", DescribeResult(b64))
	fee, ok := FeeCharged(b64)
	require.True(t, ok)
	require.Equal(t, int64(1234), fee)

	require.Equal(t, "no result", DescribeResult(""))
	_, ok = FeeCharged("")
	require.False(t, ok)
}

func TestScErrorString(t *testing.T) {
	code := xdr.ScErrorCodeScecMissingValue
	require.Equal(t, "Error(Storage, MissingValue)",
		scErrorString(xdr.ScError{Type: xdr.ScErrorTypeSceStorage, Code: &code}))

	contractCode := xdr.Uint32(4)
	require.Equal(t, "Error(Contract, #4)",
		scErrorString(xdr.ScError{Type: xdr.ScErrorTypeSceContract, ContractCode: &contractCode}))
}
