// Copyright 2024 The go-equa Authors

package permia

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
	"github.com/permia/go-permia/params"
)

func sealedTestHeader(t *testing.T, number uint64, difficulty uint64, timestamp uint64, parentHash common.Hash, epochLength uint64) *types.Header {
	t.Helper()
	h := &types.Header{
		ParentHash: parentHash,
		Difficulty: uint256.NewInt(difficulty),
		Number:     number,
		GasLimit:   30_000_000,
		Timestamp:  timestamp,
	}
	sealHash := h.SealHash()
	target := DifficultyToTarget(h.Difficulty)

	var nonce uint64
	for {
		result := Hash(sealHash, nonce, number, epochLength)
		if HashToUint256(result.Hash).Cmp(target) <= 0 {
			h.Nonce = types.EncodeNonce(nonce)
			h.MixDigest = result.MixDigest
			return h
		}
		nonce++
	}
}

func TestVerifyStandaloneAcceptsValidPoW(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	h := sealedTestHeader(t, 1, 4, 1000, common.Hash{}, cfg.EpochLength)
	require.NoError(t, v.VerifyStandalone(h))
}

func TestVerifyStandaloneRejectsTamperedNonce(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	h := sealedTestHeader(t, 1, 4, 1000, common.Hash{}, cfg.EpochLength)
	h.Nonce = types.EncodeNonce(h.Nonce.Uint64() + 1)

	require.ErrorIs(t, v.VerifyStandalone(h), ErrInvalidPoW)
}

func TestVerifyStandaloneRejectsOversizedExtraData(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	h := sealedTestHeader(t, 1, 4, 1000, common.Hash{}, cfg.EpochLength)
	h.ExtraData = make([]byte, cfg.MaxExtraData+1)

	require.ErrorIs(t, v.VerifyStandalone(h), ErrExtraDataTooLong)
}

func TestVerifyStandaloneRejectsZeroDifficulty(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	h := &types.Header{Difficulty: uint256.NewInt(0), Number: 1}
	require.ErrorIs(t, v.VerifyStandalone(h), ErrZeroDifficulty)
}

func TestVerifyParentRelativeChecksLinkage(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	parent := testParentHeader(cfg.MinDifficulty, 1000)
	parentHash := common.BytesToHash([]byte{0xAB})

	child := sealedTestHeader(t, 2, cfg.MinDifficulty, 1400, parentHash, cfg.EpochLength)

	require.NoError(t, v.VerifyParentRelative(child, parent, parentHash))

	wrongParentHash := common.BytesToHash([]byte{0xCD})
	require.ErrorIs(t, v.VerifyParentRelative(child, parent, wrongParentHash), ErrParentHashMismatch)
}

func TestVerifyParentRelativeRejectsBadNumber(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	parent := testParentHeader(cfg.MinDifficulty, 1000)
	parentHash := common.BytesToHash([]byte{1})
	child := sealedTestHeader(t, 3, cfg.MinDifficulty, 1400, parentHash, cfg.EpochLength)

	require.ErrorIs(t, v.VerifyParentRelative(child, parent, parentHash), ErrInvalidNumber)
}

func TestVerifyParentRelativeRejectsStaleTimestamp(t *testing.T) {
	cfg := params.DevnetConfig()
	diff := NewDifficultyCalculator(400, cfg.MinDifficulty)
	v := NewValidator(cfg, diff)

	parent := testParentHeader(cfg.MinDifficulty, 1000)
	parentHash := common.BytesToHash([]byte{1})
	child := sealedTestHeader(t, 2, cfg.MinDifficulty, 999, parentHash, cfg.EpochLength)

	require.ErrorIs(t, v.VerifyParentRelative(child, parent, parentHash), ErrTimestampTooOld)
}
