package chainsync

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// PendingPeerGap records what a specific peer still owes this node before
// its compact block can be reconstructed: the short-id indexes whose
// transactions are missing, and the uncle indexes still missing.
type PendingPeerGap struct {
	MissingTransactions []uint32
	MissingUncles       []uint32
}

// pendingEntry is one block hash's reconstruction-in-progress state: the
// compact block itself plus one gap record per peer that announced it.
type pendingEntry struct {
	compact *block.CompactBlock
	gaps    map[blockchainer.PeerIndex]*PendingPeerGap
}

// PendingCompactCache holds compact blocks awaiting GetBlockTransactions
// follow-up data, keyed by block hash. Its write lock is held only inside
// single calls: CompactBlockPipeline's Gate 6 check reads under the read
// lock, reconstruction runs unlocked, and CheckAndInsert repeats the
// pending-for-peer check and performs the Step 10 insertion under one write
// lock, so that decision and the map mutation are atomic with respect to a
// second peer announcing the same block concurrently.
type PendingCompactCache struct {
	mu      sync.RWMutex
	entries map[util.Hash]*pendingEntry
}

// NewPendingCompactCache returns an empty cache.
func NewPendingCompactCache() *PendingCompactCache {
	return &PendingCompactCache{entries: make(map[util.Hash]*pendingEntry)}
}

// Contains reports whether hash already has a pending entry, and if so
// whether peer specifically already has a gap recorded for it (spec.md
// §4.3 Gate 6: CompactBlockIsAlreadyPending is peer-scoped).
func (c *PendingCompactCache) Contains(hash util.Hash, peer blockchainer.PeerIndex) (exists bool, forPeer bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[hash]
	if !ok {
		return false, false
	}
	_, hasPeer := entry.gaps[peer]
	return true, hasPeer
}

// Insert records cb as pending reconstruction, with peer owing the given
// gap. If hash is already pending (from a different peer), cb's own copy
// is discarded and peer's gap is merged into the existing entry.
func (c *PendingCompactCache) Insert(peer blockchainer.PeerIndex, cb *block.CompactBlock, gap *PendingPeerGap) {
	hash := cb.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		entry = &pendingEntry{
			compact: cb,
			gaps:    make(map[blockchainer.PeerIndex]*PendingPeerGap),
		}
		c.entries[hash] = entry
	}
	entry.gaps[peer] = gap
}

// Gap returns the recorded gap for (hash, peer), if any.
func (c *PendingCompactCache) Gap(hash util.Hash, peer blockchainer.PeerIndex) (*PendingPeerGap, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	gap, ok := entry.gaps[peer]
	return gap, ok
}

// CompactBlock returns the cached compact block for hash, if pending.
func (c *PendingCompactCache) CompactBlock(hash util.Hash) (*block.CompactBlock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	return entry.compact, true
}

// Remove drops the entire pending entry for hash, e.g. once the block is
// fully reconstructed (successfully or as a permanent failure) and handed
// off or discarded.
func (c *PendingCompactCache) Remove(hash util.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hash)
}

// RemovePeer drops peer's gap from hash's pending entry, removing the
// whole entry if peer was the last one waiting on it.
func (c *PendingCompactCache) RemovePeer(hash util.Hash, peer blockchainer.PeerIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[hash]
	if !ok {
		return
	}
	delete(entry.gaps, peer)
	if len(entry.gaps) == 0 {
		delete(c.entries, hash)
	}
}

// Len returns the number of distinct block hashes currently pending.
func (c *PendingCompactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// pendingParentResolver satisfies ParentResolver by checking c for hash
// before falling back to chain, so a compact block still awaiting
// GetBlockTransactions follow-up can itself serve as a parent for a sibling
// compact block chained onto it (spec.md §4.3 Gate 7). The derived View's
// total difficulty is best-effort: it walks one parent deep through chain
// and otherwise treats the unknown prefix as zero, since a pending entry's
// only consumer is HeaderAcceptor's own-parent-exists check, never a
// best-chain comparison.
type pendingParentResolver struct {
	pending *PendingCompactCache
	chain   blockchainer.HeaderIndex
}

func (r pendingParentResolver) GetHeaderView(hash util.Hash, storeFirst bool) (*block.View, bool) {
	if cb, ok := r.pending.CompactBlock(hash); ok {
		var parentTD *uint256.Int
		if parent, ok := r.chain.GetHeaderView(cb.Header.ParentHash, storeFirst); ok {
			parentTD = parent.TotalDifficulty
		}
		return block.NewView(cb.Header, parentTD), true
	}
	return r.chain.GetHeaderView(hash, storeFirst)
}

// CheckAndInsert atomically performs the Gate 6 pending-for-peer check and,
// when absent, the Step 10 insertion, so a second peer's announcement of
// the same block cannot interleave between the check and the insert
// (spec.md §5's Gate6-Step10 span). It reports whether an entry for
// (hash, peer) already existed before this call.
func (c *PendingCompactCache) CheckAndInsert(peer blockchainer.PeerIndex, cb *block.CompactBlock, gap *PendingPeerGap) (alreadyPending bool) {
	hash := cb.Hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		c.entries[hash] = &pendingEntry{
			compact: cb,
			gaps:    map[blockchainer.PeerIndex]*PendingPeerGap{peer: gap},
		}
		return false
	}
	if _, hasPeer := entry.gaps[peer]; hasPeer {
		return true
	}
	entry.gaps[peer] = gap
	return false
}
