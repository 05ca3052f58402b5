package main

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// runKeygen genera un par de claves secp256k1 para el signer del oráculo.
func runKeygen(w io.Writer) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	fmt.Fprintf(w, "SIGNER_PRIVATE_KEY=%x\n", crypto.FromECDSA(key))
	fmt.Fprintf(w, "public key: %s\n", hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)))
	return nil
}
