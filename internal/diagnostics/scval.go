package diagnostics

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stellar/go/xdr"
)

// scValToString renders an ScVal as a short topic string
func scValToString(val xdr.ScVal) string {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		if val.MustB() {
			return "true"
		}
		return "false"
	case xdr.ScValTypeScvVoid:
		return "void"
	case xdr.ScValTypeScvU32:
		return fmt.Sprintf("%d", val.MustU32())
	case xdr.ScValTypeScvI32:
		return fmt.Sprintf("%d", val.MustI32())
	case xdr.ScValTypeScvU64:
		return fmt.Sprintf("%d", val.MustU64())
	case xdr.ScValTypeScvI64:
		return fmt.Sprintf("%d", val.MustI64())
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	case xdr.ScValTypeScvAddress:
		str, err := val.MustAddress().String()
		if err != nil {
			return "<invalid address>"
		}
		return str
	case xdr.ScValTypeScvBytes:
		return hex.EncodeToString(val.MustBytes())
	case xdr.ScValTypeScvError:
		return scErrorString(val.MustError())
	default:
		return fmt.Sprintf("<%s>", val.Type.String())
	}
}

// scValToInterface converts an ScVal into a JSON friendly value
func scValToInterface(val xdr.ScVal) interface{} {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		return val.MustB()
	case xdr.ScValTypeScvVoid:
		return nil
	case xdr.ScValTypeScvU32:
		return val.MustU32()
	case xdr.ScValTypeScvI32:
		return val.MustI32()
	case xdr.ScValTypeScvU64:
		return val.MustU64()
	case xdr.ScValTypeScvI64:
		return val.MustI64()
	case xdr.ScValTypeScvU128:
		u128 := val.MustU128()
		return fmt.Sprintf("0x%016x%016x", u128.Hi, u128.Lo)
	case xdr.ScValTypeScvI128:
		i128 := val.MustI128()
		return fmt.Sprintf("0x%016x%016x", uint64(i128.Hi), i128.Lo)
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	case xdr.ScValTypeScvAddress, xdr.ScValTypeScvError:
		return scValToString(val)
	case xdr.ScValTypeScvBytes:
		return hex.EncodeToString(val.MustBytes())
	case xdr.ScValTypeScvVec:
		vec := val.MustVec()
		if vec == nil {
			return []interface{}{}
		}
		result := make([]interface{}, len(*vec))
		for i, element := range *vec {
			result[i] = scValToInterface(element)
		}
		return result
	case xdr.ScValTypeScvMap:
		scMap := val.MustMap()
		result := make(map[string]interface{})
		if scMap == nil {
			return result
		}
		for _, entry := range *scMap {
			result[scValToString(entry.Key)] = scValToInterface(entry.Val)
		}
		return result
	default:
		return val.Type.String()
	}
}

// scErrorString renders a host error the way the RPC server prints it, e.g. Error(Storage, MissingValue)
func scErrorString(e xdr.ScError) string {
	if e.Type == xdr.ScErrorTypeSceContract && e.ContractCode != nil {
		return fmt.Sprintf("Error(Contract, #%d)", *e.ContractCode)
	}
	if e.Code != nil {
		return fmt.Sprintf("Error(%s, %s)", strings.TrimPrefix(e.Type.String(), "ScErrorTypeSce"), strings.TrimPrefix(e.Code.String(), "ScErrorCodeScec"))
	}
	return fmt.Sprintf("Error(%s)", strings.TrimPrefix(e.Type.String(), "ScErrorTypeSce"))
}
