// Package fakechain provides an in-memory blockchainer.HeaderIndex test
// double, grounded on the teacher's FakeChain pattern: a minimal struct
// backing the interface with maps and overridable function fields, with no
// real validation behind it.
package fakechain

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// FakeChain implements blockchainer.HeaderIndex but provides no real
// validation: InsertValidHeader accepts any genesis header or any header
// whose parent it already holds, and status transitions are tracked but
// never checked for legality. It exists purely to let chainsync pipelines be tested
// without a real chain store.
type FakeChain struct {
	mu sync.RWMutex

	headers   map[util.Hash]*block.View
	statuses  map[util.Hash]blockchainer.BlockStatus
	tip       *block.View
	epochLen  uint64
	ibd       bool
	bestKnown map[blockchainer.PeerIndex]*block.View

	// InsertValidHeaderF, when set, overrides InsertValidHeader's default
	// parent-known-or-genesis behavior, letting tests inject failures.
	InsertValidHeaderF func(peer blockchainer.PeerIndex, header *block.Header) error
}

// New returns an empty FakeChain with no headers and IsInitialBlockDownload
// true, matching a freshly started node.
func New() *FakeChain {
	return &FakeChain{
		headers:   make(map[util.Hash]*block.View),
		statuses:  make(map[util.Hash]blockchainer.BlockStatus),
		epochLen:  2000,
		ibd:       true,
		bestKnown: make(map[blockchainer.PeerIndex]*block.View),
	}
}

// AddGenesis seeds the chain with h as its genesis header and active tip.
func (f *FakeChain) AddGenesis(h *block.Header) *block.View {
	view := block.NewView(h, nil)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers[h.Hash()] = view
	f.statuses[h.Hash()] = blockchainer.StatusHeaderValid.Union(blockchainer.StatusBlockStored).Union(blockchainer.StatusBlockValid)
	f.tip = view
	return view
}

// GetHeaderView implements blockchainer.HeaderIndex. storeFirst is ignored:
// FakeChain has no separate store/index split.
func (f *FakeChain) GetHeaderView(hash util.Hash, storeFirst bool) (*block.View, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.headers[hash]
	return v, ok
}

// GetBlockStatus implements blockchainer.HeaderIndex.
func (f *FakeChain) GetBlockStatus(hash util.Hash) blockchainer.BlockStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.statuses[hash]
}

// InsertBlockStatus implements blockchainer.HeaderIndex, OR-merging status
// into whatever is already recorded for hash.
func (f *FakeChain) InsertBlockStatus(hash util.Hash, status blockchainer.BlockStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[hash] = f.statuses[hash].Union(status)
}

// InsertValidHeader implements blockchainer.HeaderIndex: it records header
// as HEADER_VALID, derives its View from the parent's total difficulty,
// updates the active tip if header now has more total work, and updates
// peer's best-known view.
func (f *FakeChain) InsertValidHeader(peer blockchainer.PeerIndex, header *block.Header) error {
	if f.InsertValidHeaderF != nil {
		return f.InsertValidHeaderF(peer, header)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var parentTD *uint256.Int
	if parent, ok := f.headers[header.ParentHash]; ok {
		parentTD = parent.TotalDifficulty
	} else if !header.IsGenesis() {
		return errors.New("fakechain: unknown parent")
	}

	view := block.NewView(header, parentTD)
	hash := header.Hash()
	f.headers[hash] = view
	f.statuses[hash] = f.statuses[hash].Union(blockchainer.StatusHeaderValid)

	if f.tip == nil || view.TotalDifficulty.Cmp(f.tip.TotalDifficulty) > 0 {
		f.tip = view
	}
	f.bestKnown[peer] = view
	return nil
}

// ActiveChainTip implements blockchainer.HeaderIndex.
func (f *FakeChain) ActiveChainTip() *block.View {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tip
}

// EpochLength implements blockchainer.HeaderIndex.
func (f *FakeChain) EpochLength() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epochLen
}

// SetEpochLength overrides the epoch length used by EpochLength.
func (f *FakeChain) SetEpochLength(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epochLen = n
}

// IsInitialBlockDownload implements blockchainer.HeaderIndex.
func (f *FakeChain) IsInitialBlockDownload() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ibd
}

// SetInitialBlockDownload overrides the value IsInitialBlockDownload returns.
func (f *FakeChain) SetInitialBlockDownload(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ibd = v
}

var _ blockchainer.HeaderIndex = (*FakeChain)(nil)
