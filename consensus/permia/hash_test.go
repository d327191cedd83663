// Copyright 2024 The go-equa Authors

package permia

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/permia/go-permia/common"
)

func TestHashDeterministic(t *testing.T) {
	sealHash := common.BytesToHash([]byte{1, 2, 3})
	a := Hash(sealHash, 12345, 1, 30_000)
	b := Hash(sealHash, 12345, 1, 30_000)

	require.Equal(t, a.Hash, b.Hash)
	require.Equal(t, a.MixDigest, b.MixDigest)
	require.NotEqual(t, common.Hash{}, a.Hash)
	require.NotEqual(t, common.Hash{}, a.MixDigest)
}

func TestHashVariesWithNonce(t *testing.T) {
	sealHash := common.BytesToHash([]byte{7})
	a := Hash(sealHash, 1, 1, 30_000)
	b := Hash(sealHash, 2, 1, 30_000)
	require.NotEqual(t, a.Hash, b.Hash)
}

func TestHashVariesWithEpoch(t *testing.T) {
	sealHash := common.BytesToHash([]byte{9})
	a := Hash(sealHash, 42, 0, 30_000)
	b := Hash(sealHash, 42, 30_000, 30_000)
	require.NotEqual(t, a.Hash, b.Hash, "different epochs must produce different DAG seeds")
}

func TestHashCachedMatchesUncached(t *testing.T) {
	sealHash := common.BytesToHash([]byte{3, 3, 3})
	blockNumber := uint64(5)
	epochLength := uint64(30_000)

	uncached := Hash(sealHash, 99, blockNumber, epochLength)

	seed := EpochSeed(blockNumber, epochLength)
	cache := NewDAGCache(seed)
	cached := HashCached(cache, sealHash, 99)

	require.Equal(t, uncached.Hash, cached.Hash)
	require.Equal(t, uncached.MixDigest, cached.MixDigest)
}

func TestDifficultyTargetRoundTrip(t *testing.T) {
	difficulty := uint256.NewInt(1_000_000)
	target := DifficultyToTarget(difficulty)
	back := TargetToDifficulty(target)

	diff := new(uint256.Int).Sub(back, difficulty)
	if back.Lt(difficulty) {
		diff = new(uint256.Int).Sub(difficulty, back)
	}
	require.True(t, diff.Lt(uint256.NewInt(1000)), "round trip should be approximately equal")
}

func TestDifficultyToTargetZero(t *testing.T) {
	target := DifficultyToTarget(uint256.NewInt(0))
	max := new(uint256.Int).Not(new(uint256.Int))
	require.Equal(t, max, target)
}
