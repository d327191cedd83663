// Copyright 2024 The go-equa Authors

// Package permia implements the PermiaHash proof-of-work function, the
// parent-relative difficulty controller, header validation, the miner
// worker and block-production controller, and the validator-set/vote/
// finality layer that together form the consensus core of a Permia node.
package permia

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
)

// Rounds is the number of DAG-access-and-mix rounds PermiaHash performs.
const Rounds = 64

// DAGElementSize is the size, in bytes, of a single generated DAG element.
const DAGElementSize = 64

// DAGElements is the number of addressable elements in the conceptual 4 GiB
// DAG (4 GiB / 64 bytes).
const DAGElements = (4 * 1024 * 1024 * 1024) / DAGElementSize

// mixIndexMultiplier is the odd constant the reference implementation
// scrambles the DAG index with; kept as a named constant rather than an
// inline magic number since a different value would silently produce an
// incompatible hash function.
const mixIndexMultiplier = 31337

// EpochSeed derives the DAG seed for the epoch a given block height falls
// in. Seeds are stable for EpochLength consecutive blocks.
func EpochSeed(blockNumber, epochLength uint64) [32]byte {
	epoch := blockNumber / epochLength
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], epoch)

	h := blake3.New()
	h.Write([]byte("permia_epoch_"))
	h.Write(buf[:])
	var seed [32]byte
	copy(seed[:], h.Sum(nil))
	return seed
}

// dagElement generates the DAG element at index, deterministically, from
// the epoch seed. A real 4 GiB DAG would memoize this; the formula itself
// must match byte-for-byte regardless of whether a cache sits in front.
func dagElement(epochSeed *[32]byte, index uint64) [DAGElementSize]byte {
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], index)

	sh1 := sha3.New256()
	sh1.Write(epochSeed[:])
	sh1.Write(idxBuf[:])
	hash1 := sh1.Sum(nil)

	binary.LittleEndian.PutUint64(idxBuf[:], index^0xFFFFFFFFFFFFFFFF)
	sh2 := sha3.New256()
	sh2.Write(hash1)
	sh2.Write(idxBuf[:])
	hash2 := sh2.Sum(nil)

	var el [DAGElementSize]byte
	copy(el[:32], hash1)
	copy(el[32:], hash2)
	return el
}

// Hash computes PermiaHash over sealHash and nonce for the epoch containing
// blockNumber, returning both the final hash and the mix digest used to
// pin that result during verification.
func Hash(sealHash common.Hash, nonce uint64, blockNumber, epochLength uint64) types.HashResult {
	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], nonce)

	seedHasher := blake3.New()
	seedHasher.Write(sealHash.Bytes())
	seedHasher.Write(nonceBuf[:])
	seedSum := seedHasher.Sum(nil)
	var seed [32]byte
	copy(seed[:], seedSum)

	epochSeed := EpochSeed(blockNumber, epochLength)

	var mix [DAGElementSize]byte
	copy(mix[:32], seed[:])
	copy(mix[32:], seed[:])

	for i := uint64(0); i < Rounds; i++ {
		seedByte := uint64(seed[i%32])
		index := (seedByte * (i + 1) * mixIndexMultiplier) % DAGElements

		el := dagElement(&epochSeed, index)
		for j := 0; j < DAGElementSize; j++ {
			mix[j] ^= el[j]
		}

		mh1 := blake3.New()
		mh1.Write(mix[:])
		r1 := mh1.Sum(nil)
		copy(mix[:32], r1)

		mh2 := blake3.New()
		mh2.Write(r1)
		mh2.Write([]byte{byte(i)})
		r2 := mh2.Sum(nil)
		copy(mix[32:], r2)
	}

	final := blake3.New()
	final.Write(mix[:])
	finalSum := final.Sum(nil)

	return types.HashResult{
		Hash:      common.BytesToHash(finalSum),
		MixDigest: common.BytesToHash(mix[:32]),
		Nonce:     nonce,
	}
}

// HashCached is equivalent to Hash but sources DAG elements from cache
// rather than recomputing them, for use on the hot verification/mining
// path. It produces byte-identical results to Hash for the same cache's
// epoch.
func HashCached(cache *DAGCache, sealHash common.Hash, nonce uint64) types.HashResult {
	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], nonce)

	seedHasher := blake3.New()
	seedHasher.Write(sealHash.Bytes())
	seedHasher.Write(nonceBuf[:])
	seedSum := seedHasher.Sum(nil)
	var seed [32]byte
	copy(seed[:], seedSum)

	var mix [DAGElementSize]byte
	copy(mix[:32], seed[:])
	copy(mix[32:], seed[:])

	for i := uint64(0); i < Rounds; i++ {
		seedByte := uint64(seed[i%32])
		index := (seedByte * (i + 1) * mixIndexMultiplier) % DAGElements

		el := cache.Element(index)
		for j := 0; j < DAGElementSize; j++ {
			mix[j] ^= el[j]
		}

		mh1 := blake3.New()
		mh1.Write(mix[:])
		r1 := mh1.Sum(nil)
		copy(mix[:32], r1)

		mh2 := blake3.New()
		mh2.Write(r1)
		mh2.Write([]byte{byte(i)})
		r2 := mh2.Sum(nil)
		copy(mix[32:], r2)
	}

	final := blake3.New()
	final.Write(mix[:])
	finalSum := final.Sum(nil)

	return types.HashResult{
		Hash:      common.BytesToHash(finalSum),
		MixDigest: common.BytesToHash(mix[:32]),
		Nonce:     nonce,
	}
}

// DifficultyToTarget converts a difficulty value to the maximum hash value
// (inclusive) that satisfies it: target = 2^256-1 / difficulty, or the
// maximum u256 when difficulty is zero.
func DifficultyToTarget(difficulty *uint256.Int) *uint256.Int {
	if difficulty.IsZero() {
		return new(uint256.Int).Not(new(uint256.Int))
	}
	max := new(uint256.Int).Not(new(uint256.Int))
	return new(uint256.Int).Div(max, difficulty)
}

// TargetToDifficulty is the inverse of DifficultyToTarget.
func TargetToDifficulty(target *uint256.Int) *uint256.Int {
	if target.IsZero() {
		return new(uint256.Int).Not(new(uint256.Int))
	}
	max := new(uint256.Int).Not(new(uint256.Int))
	return new(uint256.Int).Div(max, target)
}

// HashToUint256 interprets a Hash as a big-endian unsigned 256-bit integer.
func HashToUint256(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h.Bytes())
}
