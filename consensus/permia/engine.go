// Copyright 2024 The go-equa Authors

package permia

import (
	"context"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/core/types"
)

// ChainReader is the minimal read-only view this package needs onto an
// external chain index: header lookup by hash or height. Implementing it
// is the caller's responsibility; this package never stores headers
// itself.
type ChainReader interface {
	HeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// EngineSubmitter accepts a sealed header for inclusion, the boundary
// between this consensus core and whatever execution-layer submission
// protocol (e.g. an Engine API client) a node uses.
type EngineSubmitter interface {
	SubmitSealedHeader(ctx context.Context, h *types.Header) error
}

// PayloadBuilder supplies the transaction-derived fields (state root,
// transactions root, receipts root, gas used) a new template needs. This
// package never assembles transactions into a block itself.
type PayloadBuilder interface {
	BuildPayload(ctx context.Context, parent *types.Header) (stateRoot, txRoot, receiptRoot common.Hash, gasUsed uint64, err error)
}
