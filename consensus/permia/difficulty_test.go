// Copyright 2024 The go-equa Authors

package permia

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/permia/go-permia/core/types"
)

func testParentHeader(difficulty uint64, timestamp uint64) *types.Header {
	return &types.Header{
		Difficulty: uint256.NewInt(difficulty),
		Number:     1,
		GasLimit:   30_000_000,
		Timestamp:  timestamp,
	}
}

func TestDifficultyIncreasesOnFastBlock(t *testing.T) {
	calc := NewDifficultyCalculator(400, 1<<20)
	parent := testParentHeader(1_000_000, 1000)

	newDiff := calc.Calculate(parent, 1200) // 200ms, faster than 400ms target

	require.True(t, newDiff.Gt(parent.Difficulty))
}

func TestDifficultyDecreasesOnSlowBlock(t *testing.T) {
	calc := NewDifficultyCalculator(400, 1<<20)
	parent := testParentHeader(10_000_000, 1000)

	newDiff := calc.Calculate(parent, 3000) // 2000ms, slower than 400ms target

	require.True(t, newDiff.Lt(parent.Difficulty))
}

func TestDifficultySameTimestampIncreasesByTenPercent(t *testing.T) {
	calc := NewDifficultyCalculator(400, 1<<20)
	parent := testParentHeader(1_000_000, 1000)

	newDiff := calc.Calculate(parent, 1000)

	expected := uint256.NewInt(1_100_000)
	require.Equal(t, expected, newDiff)
}

func TestDifficultyClampedToMaxAdjustment(t *testing.T) {
	calc := NewDifficultyCalculator(400, 1<<20)
	parent := testParentHeader(10_000_000, 1000)

	// Ten seconds later: far slower than target, adjustment should clamp
	// to -25% rather than scale linearly with the huge delay.
	newDiff := calc.Calculate(parent, 11000)

	expected := uint256.NewInt(7_500_000)
	require.Equal(t, expected, newDiff)
}

func TestDifficultyFloorsAtMinimum(t *testing.T) {
	calc := NewDifficultyCalculator(400, 1<<20)
	parent := testParentHeader(1<<20, 1000)

	newDiff := calc.Calculate(parent, 11000)

	require.Equal(t, calc.MinDifficulty(), newDiff)
}

func TestWithinTolerance(t *testing.T) {
	expected := uint256.NewInt(1_000_000)
	require.True(t, WithinTolerance(expected, uint256.NewInt(1_040_000)))
	require.True(t, WithinTolerance(expected, uint256.NewInt(960_000)))
	require.False(t, WithinTolerance(expected, uint256.NewInt(1_100_000)))
}
