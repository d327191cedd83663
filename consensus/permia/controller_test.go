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

func TestControllerMinesAndSealsBlock(t *testing.T) {
	miner := NewMiner(MinerConfig{Threads: 1, BatchSize: 50}, 30_000, nil)
	diff := NewDifficultyCalculator(400, 2) // low floor so the template's own difficulty (also low) is easy
	ctrl := NewController(miner, DifficultyConfig{Diff: diff, EpochLength: 30_000, GasLimit: 30_000_000})

	parent := &types.Header{Difficulty: uint256.NewInt(2), Number: 0, Timestamp: 0, GasLimit: 30_000_000}

	require.Equal(t, StateIdle, ctrl.State())

	jobID, err := ctrl.StartMining(context.Background(), TemplateInput{
		ParentHash:  common.BytesToHash([]byte{1}),
		Parent:      parent,
		Beneficiary: common.Address{},
	}, true)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	select {
	case sealed := <-ctrl.Sealed():
		require.Equal(t, jobID, sealed.JobID)
		require.Equal(t, uint64(1), sealed.Header.Number)
		require.Equal(t, StateSealed, ctrl.State())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sealed block")
	}

	ctrl.AcknowledgeSealed()
	require.Equal(t, StateIdle, ctrl.State())
}

func TestControllerRejectsConcurrentJobs(t *testing.T) {
	miner := NewMiner(MinerConfig{Threads: 1, BatchSize: 10}, 30_000, nil)
	diff := NewDifficultyCalculator(400, 1<<20)
	ctrl := NewController(miner, DifficultyConfig{Diff: diff, EpochLength: 30_000, GasLimit: 30_000_000})

	parent := &types.Header{Difficulty: uint256.NewInt(1), Number: 0, Timestamp: 0, GasLimit: 30_000_000}

	_, err := ctrl.StartMining(context.Background(), TemplateInput{Parent: parent}, true)
	require.NoError(t, err)

	_, err = ctrl.StartMining(context.Background(), TemplateInput{Parent: parent}, true)
	require.ErrorIs(t, err, ErrAlreadyMining)

	ctrl.Cancel()
}
