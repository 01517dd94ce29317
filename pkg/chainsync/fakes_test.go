package chainsync

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// fakeVerifier is a HeaderVerifier test double whose response is driven by
// an overridable function, defaulting to always-valid.
type fakeVerifier struct {
	verifyF func(header *block.Header, parent *block.View, resolver MedianTimeResolver, now uint64) *HeaderErr
}

func (v *fakeVerifier) Verify(header *block.Header, parent *block.View, resolver MedianTimeResolver, now uint64) *HeaderErr {
	if v.verifyF != nil {
		return v.verifyF(header, parent, resolver, now)
	}
	if now > 0 && header.Timestamp > now+900_000 {
		return &HeaderErr{Kind: HeaderErrTimestampTooNew, Msg: "too new"}
	}
	return nil
}

// fakeSender records every OutboundMessage handed to it.
type fakeSender struct {
	mu       sync.Mutex
	sent     []OutboundMessage
	sendErrF func(OutboundMessage) error
}

func (s *fakeSender) Send(msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErrF != nil {
		if err := s.sendErrF(msg); err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) messages() []OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboundMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

// fakeDisconnector records disconnect calls.
type fakeDisconnector struct {
	mu        sync.Mutex
	disconnected []blockchainer.PeerIndex
}

func (d *fakeDisconnector) Disconnect(peer blockchainer.PeerIndex, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnected = append(d.disconnected, peer)
}

// fakeProcessor is a ChainProcessor test double.
type fakeProcessor struct {
	processF func(*block.Block) error
}

func (p *fakeProcessor) ProcessBlock(b *block.Block) error {
	if p.processF != nil {
		return p.processF(b)
	}
	return nil
}

// fakeReconstructor is a Reconstructor test double returning a fixed result.
type fakeReconstructor struct {
	result ReconstructResult
}

func (r *fakeReconstructor) Reconstruct(cb *block.CompactBlock, source ShortIDSource) ReconstructResult {
	return r.result
}

// fakeShortIDSource never resolves anything.
type fakeShortIDSource struct{}

func (fakeShortIDSource) LookupByShortID(id block.ShortID) ([]byte, bool) { return nil, false }

var errBoom = errors.New("boom")

func testLogger() *zap.Logger {
	return zaptest.NewLogger(nil)
}

func newTestShared(cfg config.Consensus) (*Shared, *fakeChainStub, *fakeSender, *fakeDisconnector, *fakeProcessor) {
	chain := newFakeChainStub()
	sender := &fakeSender{}
	disc := &fakeDisconnector{}
	proc := &fakeProcessor{}

	shared := NewShared(cfg, zap.NewNop(), NewNopMetrics())
	shared.Chain = chain
	shared.Verifier = &fakeVerifier{}
	shared.Sender = sender
	shared.Disc = disc
	shared.Proc = proc
	return shared, chain, sender, disc, proc
}

// fakeChainStub is a minimal blockchainer.HeaderIndex good enough for
// pipeline unit tests: callers populate headers/statuses/tip directly.
type fakeChainStub struct {
	mu        sync.RWMutex
	headers   map[util.Hash]*block.View
	statuses  map[util.Hash]blockchainer.BlockStatus
	tip       *block.View
	epochLen  uint64
	ibd       bool
	insertErr error
}

func newFakeChainStub() *fakeChainStub {
	return &fakeChainStub{
		headers:  make(map[util.Hash]*block.View),
		statuses: make(map[util.Hash]blockchainer.BlockStatus),
		epochLen: 1800,
	}
}

func (f *fakeChainStub) GetHeaderView(hash util.Hash, storeFirst bool) (*block.View, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.headers[hash]
	return v, ok
}

func (f *fakeChainStub) GetBlockStatus(hash util.Hash) blockchainer.BlockStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.statuses[hash]
}

func (f *fakeChainStub) InsertBlockStatus(hash util.Hash, status blockchainer.BlockStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[hash] = f.statuses[hash].Union(status)
}

func (f *fakeChainStub) InsertValidHeader(peer blockchainer.PeerIndex, header *block.Header) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	view := block.NewView(header, nil)
	if parent, ok := f.headers[header.ParentHash]; ok {
		view = block.NewView(header, parent.TotalDifficulty)
	}
	hash := header.Hash()
	f.headers[hash] = view
	f.statuses[hash] = f.statuses[hash].Union(blockchainer.StatusHeaderValid)
	return nil
}

func (f *fakeChainStub) ActiveChainTip() *block.View {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tip
}

func (f *fakeChainStub) EpochLength() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epochLen
}

func (f *fakeChainStub) IsInitialBlockDownload() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ibd
}

func (f *fakeChainStub) putHeader(h *block.Header, status blockchainer.BlockStatus) *block.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	view := block.NewView(h, nil)
	f.headers[h.Hash()] = view
	f.statuses[h.Hash()] = status
	return view
}

var _ blockchainer.HeaderIndex = (*fakeChainStub)(nil)
