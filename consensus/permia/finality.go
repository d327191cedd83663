// Copyright 2024 The go-equa Authors

package permia

import (
	"sync"

	"github.com/permia/go-permia/common"
)

// ImplicitFinalityDepth is the number of confirmations a block needs to be
// considered final even without a BFT quorum of votes.
const ImplicitFinalityDepth = 3

// defaultMaxChainLength bounds the sliding window of tracked block hashes.
const defaultMaxChainLength = 1000

// FinalityKind distinguishes how a block reached finality, or that it has
// not yet.
type FinalityKind int

const (
	FinalityPending FinalityKind = iota
	FinalityBFT
	FinalityDepth
)

// FinalityStatus is the finality state of one block.
type FinalityStatus struct {
	Kind      FinalityKind
	Votes     int // meaningful for Pending and FinalityBFT
	Threshold int // meaningful for Pending
	Depth     uint64 // meaningful for FinalityDepth
}

// IsFinal reports whether this status represents a final block, by either
// rule.
func (s FinalityStatus) IsFinal() bool {
	return s.Kind == FinalityBFT || s.Kind == FinalityDepth
}

// FinalityTracker maintains a bounded, most-recent-first window of block
// hashes, their depths, and a BFT vote aggregator, applying the dual
// finality rule: a block is final once it has either a BFT quorum of votes
// or ImplicitFinalityDepth confirmations, whichever comes first.
type FinalityTracker struct {
	mu             sync.Mutex
	votes          *VoteAggregator
	depths         map[common.Hash]uint64
	chain          []common.Hash
	maxChainLength int
}

// NewFinalityTracker builds a tracker around the given vote verifier.
func NewFinalityTracker(verifier Verifier) *FinalityTracker {
	return &FinalityTracker{
		votes:          NewVoteAggregator(verifier),
		depths:         make(map[common.Hash]uint64),
		maxChainLength: defaultMaxChainLength,
	}
}

// AddBlock records a new chain-tip block hash, recomputing every tracked
// block's depth and pruning entries beyond the configured window.
func (t *FinalityTracker) AddBlock(hash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chain = append([]common.Hash{hash}, t.chain...)
	for i, h := range t.chain {
		t.depths[h] = uint64(i)
	}

	if len(t.chain) > t.maxChainLength {
		removed := t.chain[t.maxChainLength:]
		t.chain = t.chain[:t.maxChainLength]
		for _, h := range removed {
			delete(t.depths, h)
		}
	}
}

// Depth returns the number of confirmations on top of hash, if tracked.
func (t *FinalityTracker) Depth(hash common.Hash) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.depths[hash]
	return d, ok
}

// Votes returns the underlying vote aggregator, for callers that need to
// submit or inspect votes directly.
func (t *FinalityTracker) Votes() *VoteAggregator { return t.votes }

// Status reports hash's current finality state: BFT-final takes priority
// over depth-final, and depth-final over pending.
func (t *FinalityTracker) Status(hash common.Hash, set *ValidatorSet) FinalityStatus {
	if t.votes.IsFinalized(hash) {
		return FinalityStatus{Kind: FinalityBFT, Votes: t.votes.VoteCount(hash)}
	}
	if depth, ok := t.Depth(hash); ok && depth >= ImplicitFinalityDepth {
		return FinalityStatus{Kind: FinalityDepth, Depth: depth}
	}
	return FinalityStatus{
		Kind:      FinalityPending,
		Votes:     t.votes.VoteCount(hash),
		Threshold: set.FinalityThreshold(),
	}
}

// IsFinal is shorthand for Status(hash, set).IsFinal().
func (t *FinalityTracker) IsFinal(hash common.Hash, set *ValidatorSet) bool {
	return t.Status(hash, set).IsFinal()
}

// LatestFinalized returns the most recent finalized block hash, checking
// BFT finality across the whole window before falling back to depth
// finality, matching the priority order of Status.
func (t *FinalityTracker) LatestFinalized() (common.Hash, bool) {
	t.mu.Lock()
	chain := append([]common.Hash(nil), t.chain...)
	depths := make(map[common.Hash]uint64, len(t.depths))
	for k, v := range t.depths {
		depths[k] = v
	}
	t.mu.Unlock()

	for _, h := range chain {
		if t.votes.IsFinalized(h) {
			return h, true
		}
	}
	for _, h := range chain {
		if d, ok := depths[h]; ok && d >= ImplicitFinalityDepth {
			return h, true
		}
	}
	return common.Hash{}, false
}

// Prune advisedly discards tracking data for blocks older than keepDepth
// confirmations, and prunes the vote aggregator to match.
func (t *FinalityTracker) Prune(keepDepth uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint64(len(t.chain)) <= keepDepth+1 {
		return
	}
	cutoff := int(keepDepth) + 1
	removed := t.chain[cutoff:]
	t.chain = t.chain[:cutoff]
	for _, h := range removed {
		delete(t.depths, h)
	}

	if len(t.chain) == 0 {
		return
	}
	oldest := t.chain[len(t.chain)-1]
	if blockNum, ok := t.depths[oldest]; ok {
		var pruneBefore uint64
		if blockNum > 10 {
			pruneBefore = blockNum - 10
		}
		t.votes.PruneBefore(pruneBefore)
	}
}
