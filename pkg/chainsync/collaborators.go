package chainsync

import (
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// ChainProcessor accepts a fully reconstructed or directly-received block
// for body-level validation and (on success) persistence/reorg handling.
// Its internals are entirely out of scope (spec.md §1); BlockPipeline only
// ever calls it and reacts to the returned error.
type ChainProcessor interface {
	ProcessBlock(b *block.Block) error
}

// ReconstructOutcome is the tagged result of attempting to rebuild a full
// block from a CompactBlock plus whatever transactions/uncles a
// ShortIDSource can supply (spec.md §4.3 Step 8).
type ReconstructOutcome int

const (
	// ReconstructBlock means every short id and uncle resolved and the
	// reconstructed block's transactions root matches the header.
	ReconstructBlock ReconstructOutcome = iota
	// ReconstructMissing means some short ids or uncles could not be
	// resolved locally; a GetBlockTransactions follow-up is required.
	ReconstructMissing
	// ReconstructCollided means every short id resolved (nothing missing)
	// but the reconstructed transactions root disagrees with the header.
	ReconstructCollided
	// ReconstructError means reconstruction failed for a reason other than
	// missing data or a short-id collision (e.g. a malformed compact block).
	ReconstructError
)

// ReconstructResult is what Reconstructor.Reconstruct returns.
type ReconstructResult struct {
	Outcome ReconstructOutcome
	// Block is populated only when Outcome == ReconstructBlock.
	Block *block.Block
	// MissingTransactions/MissingUncles are populated only when
	// Outcome == ReconstructMissing: the indexes the follow-up request
	// must ask for.
	MissingTransactions []uint32
	MissingUncles       []uint32
	// Err carries detail when Outcome == ReconstructError.
	Err error
}

// Reconstructor rebuilds a full Block from a CompactBlock using whatever
// local transaction/uncle sources are available (spec.md §4.3 Step 8).
type Reconstructor interface {
	Reconstruct(cb *block.CompactBlock, source ShortIDSource) ReconstructResult
}

// ShortIDSource resolves a compact block's short ids against locally known
// transactions (typically the mempool); it is the "fresh transactions"
// collaborator named in spec.md §6.
type ShortIDSource interface {
	// LookupByShortID returns the raw transaction bytes for shortID, if
	// this node already has it (e.g. in its mempool).
	LookupByShortID(shortID block.ShortID) ([]byte, bool)
}

// OutboundMessage is a single message this core asks the network layer to
// deliver, identified by a stable Type tag for metrics/logging.
type OutboundMessage struct {
	Peer blockchainer.PeerIndex
	Type string
	// GetHeadersLocator/GetBlockTransactionsHash carry just enough payload
	// for the GetHeaders and GetBlockTransactions follow-ups; GetBlockProposal
	// is sent with no payload. A real network layer would serialize these
	// into its own wire message structs.
	GetHeadersLocator          []util.Hash
	GetBlockTransactionsHash   util.Hash
	GetBlockTransactionsIdxs   []uint32
	GetBlockTransactionsUncles []uint32
}

// MessageSender delivers OutboundMessage values to the network layer.
// Pipelines send through Shared.send, which logs a failed send and turns it
// into a Network-kind Status. CompactBlockPipeline returns that status for
// failed GetHeaders and GetBlockTransactions sends; a failed GetBlockProposal
// send and HeadersPipeline's continuation GetHeaders are only logged.
type MessageSender interface {
	Send(msg OutboundMessage) error
}

// Disconnector severs a peer connection, used once PeerRegistry.Misbehavior
// reports the peer has crossed the disconnect threshold.
type Disconnector interface {
	Disconnect(peer blockchainer.PeerIndex, reason string)
}
