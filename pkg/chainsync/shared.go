package chainsync

import (
	"github.com/hashicorp/golang-lru"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
	"github.com/ruizhaoz1/ckb/pkg/util"
)

// statusCacheSize bounds the recent-status LRU: large enough to cover a
// few minutes of relay churn at mainnet-ish block rates without growing
// unbounded under a misbehaving peer replaying old hashes.
const statusCacheSize = 4096

// Shared is the ingestion core's wired-together context: the opaque chain
// collaborator, the three in-memory stores, protocol limits, and the
// ambient logging/metrics/messaging collaborators every pipeline needs.
// One Shared is built per running node and handed by reference to every
// Acceptor/Pipeline constructor (spec.md §5).
type Shared struct {
	Chain    blockchainer.HeaderIndex
	Peers    *PeerRegistry
	Inflight *InflightTracker
	Pending  *PendingCompactCache

	Consensus config.Consensus

	Verifier HeaderVerifier
	Sender   MessageSender
	Disc     Disconnector
	Proc     ChainProcessor

	Log     *zap.Logger
	Metrics *Metrics

	statusCache *lru.Cache
}

// NewShared wires the stores from cfg and returns a ready-to-use Shared.
// Callers still need to set Chain, Verifier, Sender, Disc, and Proc — the
// external collaborators this package never constructs itself.
func NewShared(cfg config.Consensus, log *zap.Logger, metrics *Metrics) *Shared {
	cache, _ := lru.New(statusCacheSize)
	return &Shared{
		Peers:       NewPeerRegistry(cfg.MisbehaviorThreshold),
		Inflight:    NewInflightTracker(cfg.MaxInflight, cfg.PerPeerInflight),
		Pending:     NewPendingCompactCache(),
		Consensus:   cfg,
		Log:         log,
		Metrics:     metrics,
		statusCache: cache,
	}
}

// blockStatus returns hash's BlockStatus, consulting the in-memory LRU
// before round-tripping to the chain oracle. This only shortcuts repeat
// lookups of a hash already seen by this process; it is never the system
// of record.
func (s *Shared) blockStatus(hash util.Hash) blockchainer.BlockStatus {
	if s.statusCache != nil {
		if cached, ok := s.statusCache.Get(hash); ok {
			return cached.(blockchainer.BlockStatus)
		}
	}
	status := s.Chain.GetBlockStatus(hash)
	if s.statusCache != nil {
		s.statusCache.Add(hash, status)
	}
	return status
}

// setBlockStatus commits status to the chain oracle and refreshes the
// local cache so the next blockStatus call doesn't race a stale read.
func (s *Shared) setBlockStatus(hash util.Hash, status blockchainer.BlockStatus) {
	s.Chain.InsertBlockStatus(hash, status)
	if s.statusCache != nil {
		s.statusCache.Add(hash, s.Chain.GetBlockStatus(hash))
	}
}

// requestID mints a correlation id for one outbound follow-up message's log
// lines, in the teacher's uuid-per-request tracing idiom.
func requestID() string {
	return uuid.NewString()
}

// penalize adds delta to peer's misbehavior score and, if the registry
// reports the threshold was crossed, disconnects it and records the reason
// in metrics. It is a no-op if peer is not registered (e.g. it already
// disconnected).
func (s *Shared) penalize(peer peerIndex, delta uint32, reason string) {
	if s.Peers.Misbehavior(peer, delta) {
		s.Metrics.observeMisbehavior(reason)
		if s.Disc != nil {
			s.Disc.Disconnect(peer, reason)
		}
	}
}

// send delivers msg via s.Sender, logging and returning a Network status
// on failure, or Ok on success. It also records the send in metrics. Every
// call is tagged with a fresh request id so the follow-up can be traced
// through the logs independently of the request that triggered it.
func (s *Shared) send(msg OutboundMessage) Status {
	if s.Sender == nil {
		return OK()
	}
	reqID := requestID()
	if err := s.Sender.Send(msg); err != nil {
		s.Log.Warn("failed to send follow-up message",
			zap.String("request_id", reqID),
			zap.String("type", msg.Type),
			zap.Uint64("peer", uint64(msg.Peer)),
			zap.Error(err))
		return WithContext(CodeNetwork, "send %s to peer %d: %v", msg.Type, msg.Peer, err)
	}
	s.Log.Debug("sent follow-up message",
		zap.String("request_id", reqID),
		zap.String("type", msg.Type),
		zap.Uint64("peer", uint64(msg.Peer)))
	s.Metrics.observeSent(msg.Type)
	return OK()
}
