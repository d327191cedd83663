// Copyright 2024 The go-equa Authors

package permia

import (
	"errors"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
	"github.com/permia/go-permia/params"
)

// Named sentinel errors for every rejection reason, matching the teacher's
// consensus error idiom of package-level errors.New values rather than an
// error-code type.
var (
	ErrExtraDataTooLong    = errors.New("permia: extra data exceeds maximum size")
	ErrGasLimitExceeded    = errors.New("permia: gas limit exceeds maximum")
	ErrGasUsedExceedsLimit = errors.New("permia: gas used exceeds gas limit")
	ErrZeroDifficulty      = errors.New("permia: difficulty must be non-zero")
	ErrInvalidPoW          = errors.New("permia: invalid proof of work")
	ErrParentHashMismatch  = errors.New("permia: parent hash mismatch")
	ErrInvalidNumber       = errors.New("permia: block number is not parent+1")
	ErrTimestampTooOld     = errors.New("permia: timestamp before parent")
	ErrGasLimitDelta       = errors.New("permia: gas limit changed by too much from parent")
	ErrDifficultyOutOfBand = errors.New("permia: difficulty outside tolerance band of expected value")
)

// maxGasLimitDeltaDivisor bounds how much the gas limit may move between
// consecutive blocks: at most parent/maxGasLimitDeltaDivisor per block,
// mirroring the go-ethereum-style 1/1024 elasticity rule.
const maxGasLimitDeltaDivisor = 1024

// Validator performs the stateless and parent-relative checks a candidate
// header must pass before it is accepted.
type Validator struct {
	cfg  params.PermiaConfig
	diff *DifficultyCalculator
}

func NewValidator(cfg params.PermiaConfig, diff *DifficultyCalculator) *Validator {
	return &Validator{cfg: cfg, diff: diff}
}

// VerifyStandalone checks everything derivable from the header alone: size
// bounds, gas sanity, non-zero difficulty, and the proof of work itself.
func (v *Validator) VerifyStandalone(h *types.Header) error {
	if len(h.ExtraData) > v.cfg.MaxExtraData {
		return ErrExtraDataTooLong
	}
	if h.GasLimit > v.cfg.MaxGasLimit {
		return ErrGasLimitExceeded
	}
	if h.GasUsed > h.GasLimit {
		return ErrGasUsedExceedsLimit
	}
	if h.Difficulty == nil || h.Difficulty.IsZero() {
		return ErrZeroDifficulty
	}
	return v.VerifyPoW(h)
}

// VerifyPoW recomputes PermiaHash over the header's seal hash and nonce,
// and checks both the mix digest pin and the difficulty target.
func (v *Validator) VerifyPoW(h *types.Header) error {
	sealHash := h.SealHash()
	result := Hash(sealHash, h.Nonce.Uint64(), h.Number, v.cfg.EpochLength)

	if result.MixDigest != h.MixDigest {
		return ErrInvalidPoW
	}

	target := DifficultyToTarget(h.Difficulty)
	if HashToUint256(result.Hash).Cmp(target) > 0 {
		return ErrInvalidPoW
	}
	return nil
}

// VerifyParentRelative checks everything that depends on the parent
// header: hash linkage, height, timestamp monotonicity, gas-limit delta,
// and the expected difficulty band. parentHash is the parent's own block
// identity hash, as tracked by the caller's chain index.
func (v *Validator) VerifyParentRelative(h, parent *types.Header, parentHash common.Hash) error {
	if h.ParentHash != parentHash {
		return ErrParentHashMismatch
	}
	if parent.Number+1 != h.Number {
		return ErrInvalidNumber
	}
	if h.Timestamp < parent.Timestamp {
		return ErrTimestampTooOld
	}

	var delta uint64
	if h.GasLimit > parent.GasLimit {
		delta = h.GasLimit - parent.GasLimit
	} else {
		delta = parent.GasLimit - h.GasLimit
	}
	if delta > parent.GasLimit/maxGasLimitDeltaDivisor {
		return ErrGasLimitDelta
	}

	expected := v.diff.Calculate(parent, h.Timestamp)
	if !WithinTolerance(expected, h.Difficulty) {
		return ErrDifficultyOutOfBand
	}

	return nil
}

// Verify runs both the standalone and parent-relative checks.
func (v *Validator) Verify(h, parent *types.Header, parentHash common.Hash) error {
	if err := v.VerifyStandalone(h); err != nil {
		return err
	}
	return v.VerifyParentRelative(h, parent, parentHash)
}
