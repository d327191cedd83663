// Copyright 2024 The go-equa Authors

package permia

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
	"github.com/permia/go-permia/log"
)

// State is one of the block-production controller's lifecycle states.
type State int

const (
	StateIdle State = iota
	StateTemplating
	StateMining
	StateSealed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTemplating:
		return "templating"
	case StateMining:
		return "mining"
	case StateSealed:
		return "sealed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrAlreadyMining is returned by StartMining when a job is already active.
var ErrAlreadyMining = errors.New("permia: a mining job is already active")

// TemplateInput carries the fields an external payload builder supplies for
// a new candidate block; everything else (difficulty, number, timestamp) is
// computed by the controller from the parent header.
type TemplateInput struct {
	ParentHash  common.Hash
	Parent      *types.Header
	Beneficiary common.Address
	StateRoot   common.Hash
	TxRoot      common.Hash
	ReceiptRoot common.Hash
	GasUsed     uint64
	ExtraData   []byte
}

// SealedBlock is a successfully mined header plus the mining stats that
// produced it.
type SealedBlock struct {
	Header *types.Header
	JobID  string
	Stats  MiningResult
}

// Controller drives the Idle -> Templating -> Mining -> Sealed -> Idle
// state machine described for block production, where a cancelled job
// leaves it in Cancelled until the next StartMining: at most one mining
// job is active at a time, and empty-block mining keeps the chain live
// when no transactions are pending.
type Controller struct {
	cfg   DifficultyConfig
	miner *Miner

	mu     sync.Mutex
	state  State
	jobID  string
	cancel context.CancelFunc

	sealed chan SealedBlock
}

// DifficultyConfig bundles what the controller needs to size a new
// template's difficulty and epoch.
type DifficultyConfig struct {
	Diff        *DifficultyCalculator
	EpochLength uint64
	GasLimit    uint64
}

// NewController builds a controller around a miner and difficulty config.
func NewController(miner *Miner, cfg DifficultyConfig) *Controller {
	return &Controller{
		cfg:    cfg,
		miner:  miner,
		state:  StateIdle,
		sealed: make(chan SealedBlock, 1),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sealed returns the channel sealed blocks are published on.
func (c *Controller) Sealed() <-chan SealedBlock { return c.sealed }

// StartMining begins templating and then mining a new block on top of
// input.Parent. It returns ErrAlreadyMining if a job is already active;
// callers must Cancel first to replace it (e.g. on a new chain tip).
func (c *Controller) StartMining(ctx context.Context, input TemplateInput, mineEmptyBlocks bool) (string, error) {
	c.mu.Lock()
	if c.state == StateTemplating || c.state == StateMining {
		c.mu.Unlock()
		return "", ErrAlreadyMining
	}
	c.state = StateTemplating
	jobID := uuid.NewString()
	c.jobID = jobID
	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	header, target, err := c.buildTemplate(input)
	if err != nil {
		c.toIdle()
		return "", err
	}

	c.mu.Lock()
	c.state = StateMining
	c.mu.Unlock()

	go c.runMining(jobCtx, jobID, header, target)

	return jobID, nil
}

// AcknowledgeSealed returns the controller to Idle after a caller has
// consumed a SealedBlock, making it ready to template the next one.
func (c *Controller) AcknowledgeSealed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSealed {
		c.state = StateIdle
		c.jobID = ""
		c.cancel = nil
	}
}

// Cancel stops the active job, if any, and puts the controller in
// StateCancelled, from which StartMining may begin a new job.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.state = StateCancelled
	c.mu.Unlock()
	c.miner.Cancel()
}

func (c *Controller) toIdle() {
	c.mu.Lock()
	c.state = StateIdle
	c.jobID = ""
	c.cancel = nil
	c.mu.Unlock()
}

func (c *Controller) buildTemplate(input TemplateInput) (*types.Header, *uint256.Int, error) {
	now := uint64(time.Now().UnixMilli())
	difficulty := c.cfg.Diff.Calculate(input.Parent, now)

	header := &types.Header{
		ParentHash:  input.ParentHash,
		Beneficiary: input.Beneficiary,
		StateRoot:   input.StateRoot,
		TxRoot:      input.TxRoot,
		ReceiptRoot: input.ReceiptRoot,
		Difficulty:  difficulty,
		Number:      input.Parent.Number + 1,
		GasLimit:    c.cfg.GasLimit,
		GasUsed:     input.GasUsed,
		Timestamp:   now,
		ExtraData:   input.ExtraData,
	}
	target := DifficultyToTarget(difficulty)
	return header, target, nil
}

func (c *Controller) runMining(ctx context.Context, jobID string, header *types.Header, target *uint256.Int) {
	tmpl := &types.BlockTemplate{Header: header, Target: target}
	result, err := c.miner.Mine(ctx, tmpl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobID != jobID {
		return // superseded by a newer job
	}

	if err != nil {
		if errors.Is(err, ErrCancelled) {
			log.Debug("mining job cancelled", "job", jobID, "block", header.Number)
			c.state = StateCancelled
			return
		}
		log.Warn("mining job failed", "job", jobID, "block", header.Number, "err", err)
		c.state = StateIdle
		return
	}

	header.Nonce = types.EncodeNonce(result.Nonce)
	header.MixDigest = result.MixDigest
	c.state = StateSealed

	select {
	case c.sealed <- SealedBlock{Header: header, JobID: jobID, Stats: *result}:
	default:
		log.Warn("sealed block dropped, channel full", "job", jobID, "block", header.Number)
	}
}
