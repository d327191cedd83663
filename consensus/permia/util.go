// Copyright 2024 The go-equa Authors

package permia

import (
	"golang.org/x/crypto/sha3"

	"github.com/permia/go-permia/common"
)

// keccak256 is a small shared helper for the one-shot digests this package
// needs outside of SealHash/SigningMessage (which inline their own
// hasher.Write sequences).
func keccak256(data []byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return common.BytesToHash(d.Sum(nil))
}
