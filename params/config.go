// Copyright 2024 The go-equa Authors

// Package params collects the network-wide constants and the genesis
// document shape the consensus/permia engine is configured from.
package params

import "time"

// Chain IDs for the three Permia networks.
const (
	MainnetChainID = 42069
	TestnetChainID = 42070
	DevnetChainID  = 42071
)

// Consensus-wide constants, shared by every network.
const (
	// TargetBlockInterval is the block-time the difficulty controller aims
	// to hold.
	TargetBlockInterval = 400 * time.Millisecond

	// EpochLength is the number of blocks a PermiaHash DAG seed is valid
	// for before it is recomputed.
	EpochLength = 30_000

	// MaxGasLimit bounds the gas limit a header may declare.
	MaxGasLimit = 60_000_000

	// MaxExtraDataSize bounds the header's ExtraData field.
	MaxExtraDataSize = 32

	// MinDifficultyMainnet is the difficulty floor the controller will not
	// adjust below on mainnet/testnet.
	MinDifficultyMainnet = 1 << 20

	// MinDifficultyDevnet is the lower floor used on devnet, where fast
	// iteration matters more than PoW cost.
	MinDifficultyDevnet = 1 << 10

	// ValidatorSetSize is the maximum number of validators kept active by
	// weight ranking.
	ValidatorSetSize = 100

	// MinStakeWeiDecimal is the minimum stake, in whole tokens, required
	// for a validator to be eligible for the active set.
	MinStakeWeiDecimal = 10_000 // multiplied by 10^18 at use sites, see params.MinStake
)

// PermiaConfig carries every tunable the consensus/permia engine needs,
// derived from a chain's genesis document.
type PermiaConfig struct {
	ChainID         uint64
	TargetInterval  time.Duration
	EpochLength     uint64
	MaxGasLimit     uint64
	MaxExtraData    int
	MinDifficulty   uint64
	ValidatorSetCap int
}

// MainnetConfig, TestnetConfig, and DevnetConfig are the three standard
// network configurations.
func MainnetConfig() PermiaConfig {
	return PermiaConfig{
		ChainID:         MainnetChainID,
		TargetInterval:  TargetBlockInterval,
		EpochLength:     EpochLength,
		MaxGasLimit:     MaxGasLimit,
		MaxExtraData:    MaxExtraDataSize,
		MinDifficulty:   MinDifficultyMainnet,
		ValidatorSetCap: ValidatorSetSize,
	}
}

func TestnetConfig() PermiaConfig {
	c := MainnetConfig()
	c.ChainID = TestnetChainID
	return c
}

func DevnetConfig() PermiaConfig {
	c := MainnetConfig()
	c.ChainID = DevnetChainID
	c.MinDifficulty = MinDifficultyDevnet
	return c
}

// ConfigForChainID resolves one of the three standard configs, or ok=false
// for an unrecognized chain id.
func ConfigForChainID(id uint64) (cfg PermiaConfig, ok bool) {
	switch id {
	case MainnetChainID:
		return MainnetConfig(), true
	case TestnetChainID:
		return TestnetConfig(), true
	case DevnetChainID:
		return DevnetConfig(), true
	default:
		return PermiaConfig{}, false
	}
}
