// Copyright 2024 The go-equa Authors

package params

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/permia/go-permia/common"
)

// Allocation is a single pre-allocated balance in the genesis document,
// optionally subject to linear vesting.
type Allocation struct {
	Address       common.Address `json:"address"`
	Balance       *big.Int       `json:"balance"`
	VestingBlocks uint64         `json:"vestingBlocks,omitempty"`
	Description   string         `json:"description,omitempty"`
}

// Genesis is the JSON document a network is bootstrapped from: chain id,
// initial difficulty, gas limit, timestamp, extra data, and the
// pre-allocation list.
type Genesis struct {
	ChainID           uint64       `json:"chainId"`
	InitialDifficulty uint64       `json:"initialDifficulty"`
	GasLimit          uint64       `json:"gasLimit"`
	Timestamp         uint64       `json:"timestamp"`
	ExtraData         []byte       `json:"extraData"`
	Allocations       []Allocation `json:"allocations"`
}

// LoadGenesis decodes a genesis document from disk.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("params: reading genesis file: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("params: decoding genesis file: %w", err)
	}
	if len(g.ExtraData) > MaxExtraDataSize {
		return nil, fmt.Errorf("params: genesis extra data exceeds %d bytes", MaxExtraDataSize)
	}
	if g.GasLimit > MaxGasLimit {
		return nil, fmt.Errorf("params: genesis gas limit exceeds max %d", MaxGasLimit)
	}
	return &g, nil
}

// MinStake is the minimum stake (10,000 * 10^18) a validator must hold to
// be eligible for the active set.
func MinStake() *big.Int {
	base := big.NewInt(MinStakeWeiDecimal)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return base.Mul(base, scale)
}
