// Copyright 2024 The go-equa Authors

package permia

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/permia/go-permia/common"
)

func repeatHash(b byte) common.Hash {
	var h common.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestFinalityDepthRule(t *testing.T) {
	set := testValidatorSet(t, 100)
	tracker := NewFinalityTracker(NoopVerifier{})

	blocks := []common.Hash{repeatHash(0), repeatHash(1), repeatHash(2), repeatHash(3)}
	for _, b := range blocks {
		tracker.AddBlock(b)
	}

	depth, ok := tracker.Depth(blocks[0])
	require.True(t, ok)
	require.Equal(t, uint64(3), depth)

	require.True(t, tracker.IsFinal(blocks[0], set))
	require.False(t, tracker.IsFinal(blocks[3], set))
}

func TestFinalityBFTRule(t *testing.T) {
	set := testValidatorSet(t, 100)
	tracker := NewFinalityTracker(NoopVerifier{})

	blockHash := repeatHash(1)
	tracker.AddBlock(blockHash)

	require.False(t, tracker.IsFinal(blockHash, set))

	for i := 0; i < 67; i++ {
		_, err := tracker.Votes().AddVote(unsignedVote(blockHash, 100, addrN(byte(i))), set)
		require.NoError(t, err)
	}

	status := tracker.Status(blockHash, set)
	require.Equal(t, FinalityBFT, status.Kind)
	require.Equal(t, 67, status.Votes)
}

func TestLatestFinalizedPrefersBFTOverDepth(t *testing.T) {
	set := testValidatorSet(t, 100)
	tracker := NewFinalityTracker(NoopVerifier{})

	older := repeatHash(5)
	newer := repeatHash(6)
	tracker.AddBlock(older)
	tracker.AddBlock(newer)
	tracker.AddBlock(repeatHash(7))
	tracker.AddBlock(repeatHash(8)) // older now at depth 3, is depth-final

	for i := 0; i < 67; i++ {
		_, err := tracker.Votes().AddVote(unsignedVote(newer, 100, addrN(byte(i))), set)
		require.NoError(t, err)
	}

	latest, ok := tracker.LatestFinalized()
	require.True(t, ok)
	require.Equal(t, newer, latest)
}
