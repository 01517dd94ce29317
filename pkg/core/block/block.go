package block

import "github.com/ruizhaoz1/ckb/pkg/util"

// Uncle is a stale-block reference a block may include for reward-sharing;
// the ingestion core treats its contents as opaque beyond counting/indexing.
type Uncle struct {
	Header *Header
}

// Block is a full block: header plus the bodies the header's two Merkle
// roots commit to. Transaction bodies are carried as opaque payloads —
// script verification is an external collaborator's concern (spec.md §1).
type Block struct {
	Header       *Header
	Transactions [][]byte
	Proposals    []ProposalShortID
	Uncles       []Uncle
}

// Hash returns the block's header hash.
func (b *Block) Hash() util.Hash {
	return b.Header.Hash()
}

// Number returns the block's height.
func (b *Block) Number() uint64 {
	return b.Header.Number
}
