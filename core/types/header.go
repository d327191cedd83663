// Copyright 2024 The go-equa Authors

// Package types holds the header and mining-template value objects the
// consensus/permia package operates on.
package types

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/permia/go-permia/common"
)

// BlockNonce is the 8-byte big-endian nonce attached to a sealed header.
type BlockNonce [8]byte

func EncodeNonce(n uint64) BlockNonce {
	var bn BlockNonce
	binary.BigEndian.PutUint64(bn[:], n)
	return bn
}

func (n BlockNonce) Uint64() uint64 { return binary.BigEndian.Uint64(n[:]) }

// Header is the subset of block-header fields the consensus core reads or
// writes. Fields outside this set (transaction bodies, bloom filters,
// base fee, withdrawals root, and so on) belong to the execution layer and
// are intentionally absent here.
type Header struct {
	ParentHash  common.Hash
	Beneficiary common.Address
	StateRoot   common.Hash
	TxRoot      common.Hash
	ReceiptRoot common.Hash
	Difficulty  *uint256.Int
	Number      uint64
	GasLimit    uint64
	GasUsed     uint64
	Timestamp   uint64
	ExtraData   []byte
	MixDigest   common.Hash
	Nonce       BlockNonce
}

// SealHash returns the Keccak256 digest of every header field except the
// mix digest and nonce — the value the proof-of-work search is performed
// against. Fields are concatenated in a fixed order; this is an internal
// PoW preimage, not the header's canonical wire encoding.
func (h *Header) SealHash() common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write(h.ParentHash.Bytes())
	d.Write(h.Beneficiary.Bytes())
	d.Write(h.StateRoot.Bytes())
	d.Write(h.TxRoot.Bytes())
	d.Write(h.ReceiptRoot.Bytes())

	var diff [32]byte
	if h.Difficulty != nil {
		diff = h.Difficulty.Bytes32()
	}
	d.Write(diff[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Number)
	d.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], h.GasLimit)
	d.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], h.GasUsed)
	d.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], h.Timestamp)
	d.Write(buf[:])
	d.Write(h.ExtraData)

	return common.BytesToHash(d.Sum(nil))
}

// Epoch returns the DAG epoch this header's height belongs to.
func (h *Header) Epoch(epochLength uint64) uint64 {
	return h.Number / epochLength
}

// BlockTemplate is the minimal candidate-block description a miner needs to
// begin a proof-of-work search: a not-yet-sealed Header plus the difficulty
// target it must satisfy.
type BlockTemplate struct {
	Header *Header
	Target *uint256.Int
}

// HashResult is the outcome of one successful PermiaHash evaluation.
type HashResult struct {
	Hash      common.Hash
	MixDigest common.Hash
	Nonce     uint64
}
