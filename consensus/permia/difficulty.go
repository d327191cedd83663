// Copyright 2024 The go-equa Authors

package permia

import (
	"github.com/holiman/uint256"

	"github.com/permia/go-permia/core/types"
)

// fixedPointScale is the denominator the difficulty multiplier is
// expressed against. Using an integer scale rather than floating point
// keeps header verification reproducible bit-for-bit across platforms, per
// the no-floating-point-in-verification requirement.
const fixedPointScale = 1_000_000

// baseAdjustmentFixed is 0.1 expressed at fixedPointScale.
const baseAdjustmentFixed = fixedPointScale / 10

// maxAdjustmentFixed is the ±25% clamp expressed at fixedPointScale.
const maxAdjustmentFixed = fixedPointScale / 4

// DifficultyCalculator computes the next block's difficulty from its
// parent header and a target block time, using integer fixed-point
// arithmetic throughout.
type DifficultyCalculator struct {
	targetMS      int64
	minDifficulty *uint256.Int
}

// NewDifficultyCalculator builds a calculator for the given target block
// interval (milliseconds) and difficulty floor.
func NewDifficultyCalculator(targetMS int64, minDifficulty uint64) *DifficultyCalculator {
	return &DifficultyCalculator{
		targetMS:      targetMS,
		minDifficulty: uint256.NewInt(minDifficulty),
	}
}

// MinDifficulty returns the configured difficulty floor.
func (c *DifficultyCalculator) MinDifficulty() *uint256.Int {
	return new(uint256.Int).Set(c.minDifficulty)
}

// Calculate returns the difficulty the next header should carry, given its
// parent and its own timestamp.
func (c *DifficultyCalculator) Calculate(parent *types.Header, timestamp uint64) *uint256.Int {
	var timeDiff int64
	if timestamp > parent.Timestamp {
		timeDiff = int64(timestamp - parent.Timestamp)
	}

	if timeDiff == 0 {
		return c.applyAdjustment(parent.Difficulty, baseAdjustmentFixed)
	}

	// adjustmentFixed = (target - actual) / target * 0.1, at fixedPointScale.
	adjustmentFixed := (c.targetMS - timeDiff) * baseAdjustmentFixed / c.targetMS

	if adjustmentFixed > maxAdjustmentFixed {
		adjustmentFixed = maxAdjustmentFixed
	} else if adjustmentFixed < -maxAdjustmentFixed {
		adjustmentFixed = -maxAdjustmentFixed
	}

	return c.applyAdjustment(parent.Difficulty, adjustmentFixed)
}

// applyAdjustment multiplies difficulty by (1 + adjustmentFixed/scale),
// flooring at the configured minimum.
func (c *DifficultyCalculator) applyAdjustment(difficulty *uint256.Int, adjustmentFixed int64) *uint256.Int {
	multiplierFixed := fixedPointScale + adjustmentFixed
	if multiplierFixed < 0 {
		multiplierFixed = 0
	}

	scaled := new(uint256.Int).Mul(difficulty, uint256.NewInt(uint64(multiplierFixed)))
	newDifficulty := new(uint256.Int).Div(scaled, uint256.NewInt(fixedPointScale))

	if newDifficulty.Lt(c.minDifficulty) {
		return new(uint256.Int).Set(c.minDifficulty)
	}
	return newDifficulty
}

// WithinTolerance reports whether candidate is within the ±5% band around
// expected, the tolerance header validation allows for clock-driven
// discrepancy between independently computed difficulties.
func WithinTolerance(expected, candidate *uint256.Int) bool {
	if expected.IsZero() {
		return candidate.IsZero()
	}
	// band = expected * 5 / 100
	band := new(uint256.Int).Div(new(uint256.Int).Mul(expected, uint256.NewInt(5)), uint256.NewInt(100))
	lower := new(uint256.Int)
	if expected.Cmp(band) > 0 {
		lower.Sub(expected, band)
	}
	upper := new(uint256.Int).Add(expected, band)
	return candidate.Cmp(lower) >= 0 && candidate.Cmp(upper) <= 0
}
