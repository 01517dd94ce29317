package chainsync

import (
	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

const msgTypeHeaders = "Headers"

// HeadersPipeline implements the batch header-validation state machine a
// Headers message drives (spec.md §4.2). It always returns Status::Ok:
// violations accumulate misbehavior score for PeerRegistry to act on, they
// never fail this pipeline's own return value.
type HeadersPipeline struct {
	shared   *Shared
	acceptor *HeaderAcceptor
}

// NewHeadersPipeline builds a HeadersPipeline against shared.
func NewHeadersPipeline(shared *Shared) *HeadersPipeline {
	return &HeadersPipeline{shared: shared, acceptor: NewHeaderAcceptor(shared)}
}

// Process runs the pipeline for one Headers message of headers reported by
// peer, returning the resulting Status.
func (p *HeadersPipeline) Process(peer blockchainer.PeerIndex, headers []*block.Header, nowMillis uint64) Status {
	s := p.shared
	status := p.process(peer, headers, nowMillis)
	s.Metrics.observeProcessed(msgTypeHeaders, status)
	return status
}

func (p *HeadersPipeline) process(peer blockchainer.PeerIndex, headers []*block.Header, nowMillis uint64) Status {
	s := p.shared

	// Empty: "peer is synced." Cancel any outstanding headers-sync timer
	// once this node is past IBD.
	if len(headers) == 0 {
		if !s.Chain.IsInitialBlockDownload() {
			s.Peers.StopHeadersSync(peer)
		}
		return OK()
	}

	if len(headers) > s.Consensus.MaxHeadersLen {
		s.penalize(peer, misbehaviorDeltaMinor, "oversize-headers")
		return OK()
	}

	// Continuity: every adjacent pair must chain directly. On failure, no
	// headers from this batch are admitted.
	for i := 1; i < len(headers); i++ {
		if headers[i].ParentHash != headers[i-1].Hash() {
			s.penalize(peer, misbehaviorDeltaMinor, "discontinuous-headers")
			return OK()
		}
	}

	// Head acceptance, then tail acceptance: each subsequent header chains
	// onto the one before it in the batch, which HeaderAcceptor already
	// committed HEADER_VALID (or not) via the shared HeaderIndex, so the
	// same Accept call serves both roles. A non-OK result stops the batch
	// right there: Accept already scored any misbehavior it found, and
	// nothing past that header can be trusted as a continuation point.
	var lastAccepted *block.Header
	for _, h := range headers {
		if status := p.acceptor.Accept(peer, h, nowMillis); !status.IsOK() {
			return OK()
		}
		lastAccepted = h
	}

	if lastAccepted != nil {
		if view, ok := s.Chain.GetHeaderView(lastAccepted.Hash(), false); ok {
			s.Peers.MaySetBestKnown(peer, view)
		}
	}

	// Continuation: a full batch implies the peer likely has more.
	if len(headers) == s.Consensus.MaxHeadersLen && lastAccepted != nil {
		s.send(OutboundMessage{
			Peer:              peer,
			Type:              "GetHeaders",
			GetHeadersLocator: []util.Hash{lastAccepted.Hash()},
		})
		s.Peers.StartHeadersSync(peer)
		return OK()
	}

	// IBD outbound pruning: the only disconnect this pipeline issues
	// itself. A short, non-continuing batch from an outbound, unprotected,
	// non-whitelisted peer during IBD means that peer has nothing more to
	// offer right now.
	if s.Chain.IsInitialBlockDownload() && len(headers) < s.Consensus.MaxHeadersLen {
		if state, ok := s.Peers.Get(peer); ok && state.Flags.IsOutbound && !state.Flags.IsProtect && !state.Flags.IsWhitelist {
			s.Log.Debug("disconnecting useless outbound peer in IBD", zap.Uint64("peer", uint64(peer)))
			if s.Disc != nil {
				s.Disc.Disconnect(peer, "useless outbound peer in IBD")
			}
		}
	}

	return OK()
}
