package address

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"deployer/internal/errs"

	"github.com/stellar/go/hash"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Size is the length in bytes of every hash, salt and contract id
const Size = 32

// Hash is the content address of a module (SHA-256 of the WASM bytes)
type Hash [Size]byte

// HexString returns the lowercase hex form of the hash
func (h Hash) HexString() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.HexString()
}

// MarshalText encodes the hash as hex so it can be used as a JSON map key
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.HexString()), nil
}

// UnmarshalText decodes a 64 character hex hash
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", text, err)
	}
	if len(b) != Size {
		return fmt.Errorf("invalid hash %q: expected %d bytes, got %d", text, Size, len(b))
	}
	copy(h[:], b)
	return nil
}

// Salt disambiguates contracts created by the same account
type Salt [Size]byte

func (s Salt) String() string {
	return hex.EncodeToString(s[:])
}

// ContractID is the address of a contract instance
type ContractID [Size]byte

// String renders the checksummed contract strkey (C...)
func (c ContractID) String() string {
	return strkey.MustEncode(strkey.VersionByteContract, c[:])
}

// HexString returns the raw id as hex
func (c ContractID) HexString() string {
	return hex.EncodeToString(c[:])
}

// MarshalText encodes the id as a strkey
func (c ContractID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts a contract strkey or a 64 character hex id
func (c *ContractID) UnmarshalText(text []byte) error {
	id, err := ParseContractID(string(text))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// HashModule returns the content address of a module. Any length is accepted.
func HashModule(module []byte) Hash {
	return Hash(hash.Hash(module))
}

// NetworkID hashes a network passphrase into the network identifier
func NetworkID(passphrase string) Hash {
	return Hash(network.ID(passphrase))
}

// DeriveContractID computes the id of a contract created by an account:
// SHA-256 over the XDR of the CONTRACT_ID preimage built from the network
// id, the account and the salt.
func DeriveContractID(networkID Hash, publicKey [Size]byte, salt Salt) (ContractID, error) {
	preimage := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeContractId,
		ContractId: &xdr.HashIdPreimageContractId{
			NetworkId:          xdr.Hash(networkID),
			ContractIdPreimage: FromAccountPreimage(publicKey, salt),
		},
	}

	raw, err := preimage.MarshalBinary()
	if err != nil {
		return ContractID{}, errs.New(errs.KindEncoding, "encoding contract id preimage", err)
	}

	return ContractID(hash.Hash(raw)), nil
}

// FromAccountPreimage builds the "contract id from address" preimage for an
// ed25519 account key and salt.
func FromAccountPreimage(publicKey [Size]byte, salt Salt) xdr.ContractIdPreimage {
	return xdr.ContractIdPreimage{
		Type: xdr.ContractIdPreimageTypeContractIdPreimageFromAddress,
		FromAddress: &xdr.ContractIdPreimageFromAddress{
			Address: AccountScAddress(publicKey),
			Salt:    xdr.Uint256(salt),
		},
	}
}

// AccountID converts a raw ed25519 public key into an XDR account id
func AccountID(publicKey [Size]byte) xdr.AccountId {
	key := xdr.Uint256(publicKey)
	return xdr.AccountId(xdr.PublicKey{
		Type:    xdr.PublicKeyTypePublicKeyTypeEd25519,
		Ed25519: &key,
	})
}

// AccountScAddress wraps an account key into an ScAddress
func AccountScAddress(publicKey [Size]byte) xdr.ScAddress {
	accountID := AccountID(publicKey)
	return xdr.ScAddress{
		Type:      xdr.ScAddressTypeScAddressTypeAccount,
		AccountId: &accountID,
	}
}

// MuxedAccount converts a raw ed25519 public key into an unmuxed XDR source account
func MuxedAccount(publicKey [Size]byte) xdr.MuxedAccount {
	key := xdr.Uint256(publicKey)
	return xdr.MuxedAccount{
		Type:    xdr.CryptoKeyTypeKeyTypeEd25519,
		Ed25519: &key,
	}
}

// RandomSalt draws a salt from the system CSPRNG
func RandomSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return Salt{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	return s, nil
}

// RandomContractID draws a contract id from the system CSPRNG
func RandomContractID() (ContractID, error) {
	var c ContractID
	if _, err := rand.Read(c[:]); err != nil {
		return ContractID{}, fmt.Errorf("failed to generate contract id: %w", err)
	}
	return c, nil
}
