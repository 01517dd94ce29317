package block

import "github.com/ruizhaoz1/ckb/pkg/util"

// ShortID is a 6-byte prefix-encoded transaction fingerprint. Collisions
// between unrelated transactions are expected and handled by the
// reconstruction pipeline, not prevented here.
type ShortID [6]byte

// PrefilledTransaction is a transaction included in full inside a
// CompactBlock message, tagged with its position in the block's body.
type PrefilledTransaction struct {
	Index uint32
	Tx    []byte
}

// ProposalShortID is a CKB-style proposal reference: the short id of a
// transaction a miner intends to commit in a later block.
type ProposalShortID ShortID

// CompactBlock is a block announcement carrying only a header, short ids
// for transactions the sender believes the receiver already has, any
// transactions prefilled in full, and the proposals/uncles lists.
type CompactBlock struct {
	Header               *Header
	Nonce                uint64
	ShortIDs             []ShortID
	PrefilledTransactions []PrefilledTransaction
	Proposals            []ProposalShortID
	Uncles               []Uncle
}

// Hash returns the compact block's header hash.
func (c *CompactBlock) Hash() util.Hash {
	return c.Header.Hash()
}

// ShortIDIndexes returns the indexes (within the full transaction list,
// after accounting for prefilled slots) that correspond to c.ShortIDs, in
// order. The ingestion core uses this to request "all short-id indexes"
// when reconstruction reports a collision.
func (c *CompactBlock) ShortIDIndexes() []uint32 {
	prefilled := make(map[uint32]bool, len(c.PrefilledTransactions))
	for _, p := range c.PrefilledTransactions {
		prefilled[p.Index] = true
	}
	indexes := make([]uint32, 0, len(c.ShortIDs))
	var idx uint32
	for i := 0; i < len(c.ShortIDs)+len(c.PrefilledTransactions); i++ {
		if prefilled[uint32(i)] {
			continue
		}
		indexes = append(indexes, uint32(i))
		idx++
		if int(idx) == len(c.ShortIDs) {
			break
		}
	}
	return indexes
}
