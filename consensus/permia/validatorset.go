// Copyright 2024 The go-equa Authors

package permia

import (
	"math/big"
	"sort"
	"sync"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/params"
)

// serviceScoreWeightWei is the per-point service score contribution to a
// validator's weight (1e18, i.e. one unit of the native asset per point).
var serviceScoreWeightWei = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ValidatorInfo is a single member of the active set: its stake, service
// score, and the derived selection weight.
type ValidatorInfo struct {
	Address      common.Address
	Stake        *big.Int
	ServiceScore uint64
	Weight       *big.Int
	Active       bool
}

// NewValidatorInfo computes weight = stake + service_score * 1e18,
// saturating at 2^256-1 rather than growing past the u256 range.
func NewValidatorInfo(address common.Address, stake *big.Int, serviceScore uint64) ValidatorInfo {
	serviceWeight := new(big.Int).Mul(new(big.Int).SetUint64(serviceScore), serviceScoreWeightWei)
	weight := new(big.Int).Add(stake, serviceWeight)
	maxWeight := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if weight.Cmp(maxWeight) > 0 {
		weight = maxWeight
	}
	return ValidatorInfo{
		Address:      address,
		Stake:        stake,
		ServiceScore: serviceScore,
		Weight:       weight,
		Active:       true,
	}
}

// MeetsMinimumStake reports whether this validator's stake is at least the
// network minimum.
func (v ValidatorInfo) MeetsMinimumStake() bool {
	return v.Stake.Cmp(params.MinStake()) >= 0
}

// ValidatorSet is the active, weight-ranked set of validators for one
// epoch: at most params.ValidatorSetSize members, reordered on every
// upsert/remove.
type ValidatorSet struct {
	mu             sync.RWMutex
	validators     map[common.Address]ValidatorInfo
	ordered        []common.Address
	epoch          uint64
	activeFromBlock uint64
	cap            int
}

// NewValidatorSet creates an empty set for the given epoch.
func NewValidatorSet(epoch, activeFromBlock uint64) *ValidatorSet {
	return &ValidatorSet{
		validators:      make(map[common.Address]ValidatorInfo),
		epoch:           epoch,
		activeFromBlock: activeFromBlock,
		cap:             params.ValidatorSetSize,
	}
}

// NewValidatorSetFrom builds a set from a list of validators, ranking and
// truncating immediately.
func NewValidatorSetFrom(vs []ValidatorInfo, epoch, activeFromBlock uint64) *ValidatorSet {
	set := NewValidatorSet(epoch, activeFromBlock)
	for _, v := range vs {
		set.validators[v.Address] = v
	}
	set.reorder()
	return set
}

// Upsert adds or replaces a validator and re-ranks the set.
func (s *ValidatorSet) Upsert(v ValidatorInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[v.Address] = v
	s.reorder()
}

// Remove drops a validator, if present, and re-ranks the set.
func (s *ValidatorSet) Remove(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.validators, addr)
	s.reorder()
}

// reorder must be called with s.mu held. It drops validators that no
// longer meet the minimum stake, sorts the remainder by weight descending
// (ties broken by address, for determinism across nodes), then keeps only
// the top cap entries as "active".
func (s *ValidatorSet) reorder() {
	all := make([]ValidatorInfo, 0, len(s.validators))
	for _, v := range s.validators {
		if !v.MeetsMinimumStake() {
			continue
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		c := all[i].Weight.Cmp(all[j].Weight)
		if c != 0 {
			return c > 0
		}
		return string(all[i].Address.Bytes()) < string(all[j].Address.Bytes())
	})
	if len(all) > s.cap {
		all = all[:s.cap]
	}
	ordered := make([]common.Address, len(all))
	for i, v := range all {
		ordered[i] = v.Address
	}
	s.ordered = ordered
}

// IsValidator reports whether addr is in the current active set.
func (s *ValidatorSet) IsValidator(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.ordered {
		if a == addr {
			return true
		}
	}
	return false
}

// Get returns the validator info for addr, if it is currently active.
func (s *ValidatorSet) Get(addr common.Address) (ValidatorInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.ordered {
		if a == addr {
			return s.validators[addr], true
		}
	}
	return ValidatorInfo{}, false
}

// ActiveValidators returns the current active set, ranked by weight.
func (s *ValidatorSet) ActiveValidators() []ValidatorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ValidatorInfo, 0, len(s.ordered))
	for _, a := range s.ordered {
		out = append(out, s.validators[a])
	}
	return out
}

// Len returns the number of active validators.
func (s *ValidatorSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}

// FinalityThreshold returns floor(2*len/3)+1, the number of votes required
// to finalize a block under this validator set.
func (s *ValidatorSet) FinalityThreshold() int {
	n := s.Len()
	return (n*2)/3 + 1
}

// TotalStake sums the stake of every active validator.
func (s *ValidatorSet) TotalStake() *big.Int {
	total := big.NewInt(0)
	for _, v := range s.ActiveValidators() {
		total.Add(total, v.Stake)
	}
	return total
}

// Epoch and ActiveFromBlock report this set's effective range.
func (s *ValidatorSet) Epoch() uint64           { return s.epoch }
func (s *ValidatorSet) ActiveFromBlock() uint64 { return s.activeFromBlock }

// Update describes an epoch transition: a new epoch/from-block pair plus
// validators to add or remove relative to the current set.
type Update struct {
	Epoch     uint64
	FromBlock uint64
	Additions []ValidatorInfo
	Removals  []common.Address
}

// Apply mutates set in place to reflect u.
func (u Update) Apply(set *ValidatorSet) {
	set.mu.Lock()
	set.epoch = u.Epoch
	set.activeFromBlock = u.FromBlock
	set.mu.Unlock()

	for _, v := range u.Additions {
		set.Upsert(v)
	}
	for _, a := range u.Removals {
		set.Remove(a)
	}
}
