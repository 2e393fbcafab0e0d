package main

import (
	"fmt"
	"os"

	"deployer/internal/address"

	"github.com/stellar/go/network"
)

func main() {
	switch len(os.Args) {
	case 2:
		convert(os.Args[1])
	case 3, 4:
		passphrase := network.TestNetworkPassphrase
		if len(os.Args) == 4 {
			passphrase = os.Args[3]
		}
		derive(os.Args[1], os.Args[2], passphrase)
	default:
		fmt.Println("Usage: contractid <C... | hex>")
		fmt.Println("       contractid <G... deployer> <salt hex> [network passphrase]")
		os.Exit(1)
	}
}

// convert prints a contract id as strkey and hex
func convert(id string) {
	contractID, err := address.ParseContractID(id)
	if err != nil {
		fmt.Printf("Error decoding contract id: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n%s\n", contractID.String(), contractID.HexString())
}

// derive computes the id a deployer account gets for a salt
func derive(account, saltHex, passphrase string) {
	publicKey, err := address.PublicKeyFromAddress(account)
	if err != nil {
		fmt.Printf("Error decoding account: %v\n", err)
		os.Exit(1)
	}
	salt, err := address.ParseSalt(saltHex)
	if err != nil {
		fmt.Printf("Error decoding salt: %v\n", err)
		os.Exit(1)
	}

	contractID, err := address.DeriveContractID(address.NetworkID(passphrase), publicKey, salt)
	if err != nil {
		fmt.Printf("Error deriving contract id: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n%s\n", contractID.String(), contractID.HexString())
}
