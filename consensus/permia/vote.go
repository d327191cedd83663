// Copyright 2024 The go-equa Authors

package permia

import (
	"encoding/binary"
	"errors"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/permia/go-permia/common"
)

// votePrefix is prepended to the signed message, domain-separating votes
// from any other signature this validator key might produce.
const votePrefix = "PERMIA_VOTE:"

var (
	ErrNotValidator   = errors.New("permia: signer is not an active validator")
	ErrDuplicateVote  = errors.New("permia: validator already voted for this block")
	ErrInvalidVoteSig = errors.New("permia: vote signature verification failed")
)

// Vote is a single validator's attestation to a block.
type Vote struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Validator   common.Address
	Signature   []byte // 65-byte r||s||v, or empty for an unsigned test vote
}

// SigningMessage is the Keccak256 digest a Vote's signature is computed
// over: "PERMIA_VOTE:" || block hash || block number (big-endian).
func (v Vote) SigningMessage() common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(votePrefix))
	d.Write(v.BlockHash.Bytes())
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v.BlockNumber)
	d.Write(buf[:])
	return common.BytesToHash(d.Sum(nil))
}

// Verifier checks that a vote's signature was produced by its claimed
// validator address over its signing message.
type Verifier interface {
	Verify(v Vote) error
}

// NoopVerifier accepts every vote without checking the signature. It
// exists for tests and for networks running without the secp256k1
// verifier wired in; production configurations should use
// Secp256k1Verifier.
type NoopVerifier struct{}

func (NoopVerifier) Verify(Vote) error { return nil }

// AddResult is the outcome of submitting a vote to a VoteAggregator.
type AddResult int

const (
	// AddResultAccepted means the vote was recorded but did not cross the
	// finality threshold.
	AddResultAccepted AddResult = iota
	// AddResultFinalized means this vote was the one that first crossed
	// the finality threshold for its block.
	AddResultFinalized
)

// VoteAggregator tallies per-block votes and detects the moment a block
// first crosses its validator set's finality threshold.
type VoteAggregator struct {
	mu        sync.Mutex
	verifier  Verifier
	votes     map[common.Hash]map[common.Address]Vote
	finalized map[common.Hash]struct{}
}

// NewVoteAggregator builds an aggregator that checks signatures with v.
func NewVoteAggregator(v Verifier) *VoteAggregator {
	if v == nil {
		v = NoopVerifier{}
	}
	return &VoteAggregator{
		verifier:  v,
		votes:     make(map[common.Hash]map[common.Address]Vote),
		finalized: make(map[common.Hash]struct{}),
	}
}

// AddVote records vote against set, rejecting non-validators, bad
// signatures, and duplicates. It returns AddResultFinalized exactly once
// per block: the call whose vote count first reaches the validator set's
// finality threshold.
func (a *VoteAggregator) AddVote(vote Vote, set *ValidatorSet) (AddResult, error) {
	if !set.IsValidator(vote.Validator) {
		return 0, ErrNotValidator
	}
	if err := a.verifier.Verify(vote); err != nil {
		return 0, ErrInvalidVoteSig
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blockVotes, ok := a.votes[vote.BlockHash]
	if !ok {
		blockVotes = make(map[common.Address]Vote)
		a.votes[vote.BlockHash] = blockVotes
	}
	if _, dup := blockVotes[vote.Validator]; dup {
		return 0, ErrDuplicateVote
	}
	blockVotes[vote.Validator] = vote

	threshold := set.FinalityThreshold()
	if len(blockVotes) >= threshold {
		if _, already := a.finalized[vote.BlockHash]; !already {
			a.finalized[vote.BlockHash] = struct{}{}
			return AddResultFinalized, nil
		}
	}
	return AddResultAccepted, nil
}

// VoteCount returns the number of distinct validators who have voted for
// blockHash.
func (a *VoteAggregator) VoteCount(blockHash common.Hash) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.votes[blockHash])
}

// IsFinalized reports whether blockHash has crossed its finality
// threshold.
func (a *VoteAggregator) IsFinalized(blockHash common.Hash) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.finalized[blockHash]
	return ok
}

// GetVotes returns every vote recorded for blockHash.
func (a *VoteAggregator) GetVotes(blockHash common.Hash) []Vote {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Vote, 0, len(a.votes[blockHash]))
	for _, v := range a.votes[blockHash] {
		out = append(out, v)
	}
	return out
}

// GetVoters returns the addresses that have voted for blockHash.
func (a *VoteAggregator) GetVoters(blockHash common.Hash) []common.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]common.Address, 0, len(a.votes[blockHash]))
	for addr := range a.votes[blockHash] {
		out = append(out, addr)
	}
	return out
}

// PruneBefore discards vote sets for every block whose every recorded vote
// is older than blockNumber, freeing memory for blocks that can no longer
// matter.
func (a *VoteAggregator) PruneBefore(blockNumber uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for hash, votes := range a.votes {
		keep := false
		for _, v := range votes {
			if v.BlockNumber >= blockNumber {
				keep = true
				break
			}
		}
		if !keep {
			delete(a.votes, hash)
		}
	}
}
