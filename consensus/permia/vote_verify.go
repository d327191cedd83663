// Copyright 2024 The go-equa Authors

package permia

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/permia/go-permia/common"
)

// Secp256k1Verifier checks a vote's 65-byte r||s||v signature by
// recovering the signer's public key and comparing its derived address to
// the vote's claimed validator.
type Secp256k1Verifier struct{}

func (Secp256k1Verifier) Verify(v Vote) error {
	if len(v.Signature) != 65 {
		return ErrInvalidVoteSig
	}
	msg := v.SigningMessage()

	// recoverable signature format expected by ecdsa.RecoverCompact is
	// [recovery byte || r || s]; our wire format is r||s||v, so rotate it.
	compact := make([]byte, 65)
	compact[0] = v.Signature[64] + 27
	copy(compact[1:], v.Signature[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, msg.Bytes())
	if err != nil {
		return ErrInvalidVoteSig
	}

	addr := publicKeyToAddress(pub)
	if addr != v.Validator {
		return ErrInvalidVoteSig
	}
	return nil
}

// publicKeyToAddress derives a 20-byte address from an uncompressed
// secp256k1 public key the same way the teacher's chain derives account
// addresses: Keccak256 of the 64-byte (x||y) point, last 20 bytes.
func publicKeyToAddress(pub *secp256k1.PublicKey) common.Address {
	uncompressed := pub.SerializeUncompressed() // 0x04 || x || y
	h := keccak256(uncompressed[1:])
	return common.BytesToAddress(h.Bytes())
}
