package address

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"deployer/internal/errs"

	"github.com/stellar/go/strkey"
)

// labels accepted as sandbox contract ids when the input is neither a strkey nor hex
var labelPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ParsePaddedHex decodes up to 2*n hex characters, left-padding with zeros to n bytes
func ParsePaddedHex(s string, n int) ([]byte, error) {
	if len(s) > 2*n {
		return nil, fmt.Errorf("hex string longer than %d bytes", n)
	}
	padded := strings.Repeat("0", 2*n-len(s)) + s
	out, err := hex.DecodeString(padded)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseSalt parses a hex salt, zero-padded to 32 bytes ("01" is 31 zero bytes then 0x01)
func ParseSalt(s string) (Salt, error) {
	b, err := ParsePaddedHex(s, Size)
	if err != nil {
		return Salt{}, errs.Malformed("salt", s, err)
	}
	var salt Salt
	copy(salt[:], b)
	return salt, nil
}

// ParseHash parses a module hash given as (padded) hex or as a contract-style strkey
func ParseHash(s string) (Hash, error) {
	raw, err := decodeID(s)
	if err != nil {
		return Hash{}, errs.Malformed("WASM hash", s, err)
	}
	return Hash(raw), nil
}

// ParseContractID parses a contract strkey (C...) or a hex id
func ParseContractID(s string) (ContractID, error) {
	raw, err := decodeID(s)
	if err != nil {
		return ContractID{}, errs.Malformed("contract ID", s, err)
	}
	return ContractID(raw), nil
}

// ResolveSandboxID turns a sandbox identifier into a contract id. Besides the
// forms ParseContractID accepts, a plain label such as "CONTRACT_A" maps to
// the hash of the label so the same label always names the same contract.
func ResolveSandboxID(s string) (ContractID, error) {
	if raw, err := decodeID(s); err == nil {
		return ContractID(raw), nil
	}
	if looksLikeStrkey(s) {
		// a mistyped strkey must not silently become a label
		_, err := strkey.Decode(strkey.VersionByteContract, s)
		return ContractID{}, errs.Malformed("contract ID", s, err)
	}
	if !labelPattern.MatchString(s) {
		return ContractID{}, errs.Malformed("contract ID", s,
			fmt.Errorf("expected a contract strkey, up to 64 hex characters or a label matching %s", labelPattern))
	}
	return ContractID(HashModule([]byte(s))), nil
}

// PublicKeyFromAddress decodes an account strkey (G...) into its raw ed25519 key
func PublicKeyFromAddress(account string) ([Size]byte, error) {
	var key [Size]byte
	raw, err := strkey.Decode(strkey.VersionByteAccountID, account)
	if err != nil {
		return key, errs.Malformed("account", account, err)
	}
	copy(key[:], raw)
	return key, nil
}

func decodeID(s string) ([Size]byte, error) {
	var out [Size]byte
	if s == "" {
		return out, fmt.Errorf("empty identifier")
	}
	if raw, err := strkey.Decode(strkey.VersionByteContract, s); err == nil {
		copy(out[:], raw)
		return out, nil
	}
	raw, err := ParsePaddedHex(s, Size)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func looksLikeStrkey(s string) bool {
	return len(s) == 56 && s[0] == 'C'
}
