// Copyright 2024 The go-equa Authors

package permia

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
)

func easyTemplate() *types.BlockTemplate {
	h := &types.Header{
		ParentHash: common.Hash{},
		Difficulty: uint256.NewInt(2), // target = max/2, first few nonces should hit
		Number:     1,
		GasLimit:   30_000_000,
		Timestamp:  1000,
	}
	return &types.BlockTemplate{Header: h, Target: DifficultyToTarget(h.Difficulty)}
}

func TestMinerFindsSolution(t *testing.T) {
	m := NewMiner(MinerConfig{Threads: 2, BatchSize: 100}, 30_000, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := m.Mine(ctx, easyTemplate())
	require.NoError(t, err)
	require.NotNil(t, result)

	target := DifficultyToTarget(easyTemplate().Header.Difficulty)
	require.True(t, HashToUint256(result.Hash).Cmp(target) <= 0)
}

func TestMinerRespectsCancellation(t *testing.T) {
	hardHeader := &types.Header{
		Difficulty: uint256.NewInt(1), // target=max, but we cancel before it could matter
		Number:     1,
		GasLimit:   30_000_000,
		Timestamp:  1000,
	}
	// Use an unreachable target to force the worker to keep looping.
	impossibleTarget := uint256.NewInt(0)
	tmpl := &types.BlockTemplate{Header: hardHeader, Target: impossibleTarget}

	m := NewMiner(MinerConfig{Threads: 1, BatchSize: 10}, 30_000, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := m.Mine(ctx, tmpl)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestMinerNoSolutionWithinBudget(t *testing.T) {
	hardHeader := &types.Header{
		Difficulty: uint256.NewInt(1),
		Number:     1,
		GasLimit:   30_000_000,
		Timestamp:  1000,
	}
	impossibleTarget := uint256.NewInt(0)
	tmpl := &types.BlockTemplate{Header: hardHeader, Target: impossibleTarget}

	m := NewMiner(MinerConfig{Threads: 1, BatchSize: 10, MaxDuration: 20 * time.Millisecond}, 30_000, nil)

	_, err := m.Mine(context.Background(), tmpl)
	require.ErrorIs(t, err, ErrNoSolution)
}

func TestMinerHashCountIncreases(t *testing.T) {
	m := NewMiner(MinerConfig{Threads: 1, BatchSize: 50}, 30_000, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.Mine(ctx, easyTemplate())
	require.NoError(t, err)
	require.Greater(t, m.HashCount(), uint64(0))
}
