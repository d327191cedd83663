// Copyright 2024 The go-equa Authors

package permia

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
	"github.com/permia/go-permia/log"
)

// ErrNoSolution is returned when a worker exhausts its nonce range or time
// budget without finding a hash under target.
var ErrNoSolution = errors.New("permia: no solution found in range")

// ErrCancelled is returned when mining is stopped externally before a
// solution is found.
var ErrCancelled = errors.New("permia: mining cancelled")

// MinerConfig tunes a single mining attempt.
type MinerConfig struct {
	// Threads is the number of parallel workers searching disjoint nonce
	// offsets. Zero resolves to runtime.NumCPU().
	Threads int
	// BatchSize is how many nonces a worker tries between cancellation
	// checks.
	BatchSize uint64
	// MaxDuration bounds how long a single mining attempt may run before
	// giving up with ErrNoSolution. Zero means unbounded.
	MaxDuration time.Duration
}

// DefaultBatchSize matches the reference worker's batch size.
const DefaultBatchSize = 10_000

// MiningResult is the outcome of a successful mining attempt.
type MiningResult struct {
	types.HashResult
	HashesComputed uint64
	Duration       time.Duration
}

// Hashrate returns hashes/second for this result.
func (r MiningResult) Hashrate() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.HashesComputed) / r.Duration.Seconds()
}

// Miner searches for a nonce whose PermiaHash satisfies a block template's
// target, using one or more parallel workers and a single winner-takes-all
// result slot.
type Miner struct {
	cfg          MinerConfig
	epochLength  uint64
	cancelled    atomic.Bool
	totalHashes  atomic.Uint64
	startingSeed func() uint64
}

// NewMiner builds a Miner for the given configuration. startingSeed, if
// non-nil, supplies each worker's initial nonce (tests pass a deterministic
// one); nil selects a random starting point per worker.
func NewMiner(cfg MinerConfig, epochLength uint64, startingSeed func() uint64) *Miner {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Miner{cfg: cfg, epochLength: epochLength, startingSeed: startingSeed}
}

// Cancel stops every in-flight Mine call as soon as its current batch ends.
func (m *Miner) Cancel() { m.cancelled.Store(true) }

// Reset clears cancellation and the hash counter ahead of a new attempt.
func (m *Miner) Reset() {
	m.cancelled.Store(false)
	m.totalHashes.Store(0)
}

// HashCount returns the number of hashes computed across all workers since
// the last Reset.
func (m *Miner) HashCount() uint64 { return m.totalHashes.Load() }

// Mine searches for a nonce solving template, splitting the search across
// cfg.Threads workers with disjoint starting offsets. The first worker to
// find a qualifying hash wins; the others are cancelled. Mine returns
// ErrCancelled if ctx is done or Cancel was called, and ErrNoSolution if
// every worker exhausts its budget first.
func (m *Miner) Mine(ctx context.Context, tmpl *types.BlockTemplate) (*MiningResult, error) {
	m.Reset()
	threads := m.cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	sealHash := tmpl.Header.SealHash()
	blockNumber := tmpl.Header.Number

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	type winner struct {
		result *MiningResult
	}
	winCh := make(chan winner, threads)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		offset := uint64(w)
		g.Go(func() error {
			var nonce uint64
			if m.startingSeed != nil {
				nonce = m.startingSeed() + offset
			} else {
				nonce = rand.Uint64()
			}
			res, err := m.searchWorker(gctx, sealHash, blockNumber, tmpl.Target, nonce)
			if err != nil {
				if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			select {
			case winCh <- winner{result: res}:
				cancel()
			default:
			}
			return nil
		})
	}

	waitErr := g.Wait()
	close(winCh)

	for w := range winCh {
		w.result.Duration = time.Since(start)
		w.result.HashesComputed = m.totalHashes.Load()
		log.Debug("mining solution found", "nonce", w.result.Nonce, "hashrate", w.result.Hashrate())
		return w.result, nil
	}

	if waitErr != nil {
		return nil, waitErr
	}
	if m.cancelled.Load() || ctx.Err() != nil {
		return nil, ErrCancelled
	}
	return nil, ErrNoSolution
}

// searchWorker tries successive batches of nonces starting at nonce,
// wrapping on uint64 overflow, until it finds a qualifying hash, the
// context is cancelled, or the time budget is exhausted.
func (m *Miner) searchWorker(ctx context.Context, sealHash common.Hash, blockNumber uint64, target *uint256.Int, nonce uint64) (*MiningResult, error) {
	deadline := time.Time{}
	if m.cfg.MaxDuration > 0 {
		deadline = time.Now().Add(m.cfg.MaxDuration)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}
		if m.cancelled.Load() {
			return nil, ErrCancelled
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrNoSolution
		}

		for i := uint64(0); i < m.cfg.BatchSize; i++ {
			result := Hash(sealHash, nonce, blockNumber, m.epochLength)
			m.totalHashes.Add(1)

			if HashToUint256(result.Hash).Cmp(target) <= 0 {
				return &MiningResult{HashResult: result}, nil
			}
			nonce++ // wraps on overflow per uint64 semantics
		}
	}
}
