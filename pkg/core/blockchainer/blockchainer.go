// Package blockchainer describes the external collaborator this ingestion
// core depends on: a header index plus a block-status oracle. The actual
// chain store, its reorg logic, and its persistence format are all out of
// scope (spec.md §1) — this interface is the whole of that boundary.
package blockchainer

import (
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// HeaderIndex is the opaque header DAG and block-status oracle the
// ingestion core consults and extends. Implementations own their own
// locking; callers here never assume any particular one.
type HeaderIndex interface {
	// GetHeaderView looks up a HeaderView by hash, consulting the store
	// first when storeFirst is true (a hint, not a correctness requirement).
	GetHeaderView(hash util.Hash, storeFirst bool) (*block.View, bool)

	// GetBlockStatus returns the current status set for hash (zero value
	// is BlockStatus(0), i.e. Unknown).
	GetBlockStatus(hash util.Hash) BlockStatus

	// InsertBlockStatus records (OR-merges) a status for hash.
	InsertBlockStatus(hash util.Hash, status BlockStatus)

	// InsertValidHeader commits a HEADER_VALID header into the index and
	// updates the reporting peer's best-known header view as a side effect.
	InsertValidHeader(peer PeerIndex, header *block.Header) error

	// ActiveChainTip returns the current best-known header view.
	ActiveChainTip() *block.View

	// EpochLength returns the current epoch length, used for the
	// CompactBlockPipeline staleness gate (spec.md §4.3 Gate 2).
	EpochLength() uint64

	// IsInitialBlockDownload reports whether the local chain is still far
	// enough behind the network tip that IBD peer-management rules apply.
	IsInitialBlockDownload() bool
}

// PeerIndex identifies a connected peer. The network layer owns the
// concrete numbering scheme; this core only ever compares/keys by it.
type PeerIndex uint64
