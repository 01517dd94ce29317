package config

import "fmt"

// Consensus carries the protocol limits the ingestion core enforces. Field
// names mirror spec.md §3/§5's constant names.
type Consensus struct {
	// MaxUncles is the maximum number of uncles a block/compact-block may carry.
	MaxUncles uint32 `yaml:"MaxUncles"`
	// MaxBlockProposals is the maximum number of proposal short ids per block.
	MaxBlockProposals uint64 `yaml:"MaxBlockProposals"`
	// MedianTimeBlockCount is the size of the ancestor-timestamp window used
	// for median-time-past verification.
	MedianTimeBlockCount uint32 `yaml:"MedianTimeBlockCount"`
	// MaxHeadersLen bounds a single Headers message (spec.md MAX_HEADERS_LEN).
	MaxHeadersLen int `yaml:"MaxHeadersLen"`
	// AllowedFutureBlockTimeMillis bounds how far into the future a header's
	// timestamp may sit before it is classified too-new.
	AllowedFutureBlockTimeMillis uint64 `yaml:"AllowedFutureBlockTimeMillis"`
	// MaxInflight is the global inflight-request cap.
	MaxInflight int `yaml:"MaxInflight"`
	// PerPeerInflight is the per-peer inflight-request cap.
	PerPeerInflight int `yaml:"PerPeerInflight"`
	// MisbehaviorThreshold is the saturating score at which a peer must be
	// disconnected before its next message is processed.
	MisbehaviorThreshold uint32 `yaml:"MisbehaviorThreshold"`
}

// DefaultConsensus returns the limits spec.md's scenarios are written against.
func DefaultConsensus() Consensus {
	return Consensus{
		MaxUncles:                    2,
		MaxBlockProposals:            1500,
		MedianTimeBlockCount:         11,
		MaxHeadersLen:                2000,
		AllowedFutureBlockTimeMillis: 15 * 60 * 1000,
		MaxInflight:                  128,
		PerPeerInflight:              16,
		MisbehaviorThreshold:         100,
	}
}

// Validate returns an error if c's limits are nonsensical.
func (c Consensus) Validate() error {
	if c.MaxHeadersLen <= 0 {
		return fmt.Errorf("config: MaxHeadersLen must be positive, got %d", c.MaxHeadersLen)
	}
	if c.PerPeerInflight <= 0 || c.MaxInflight <= 0 {
		return fmt.Errorf("config: inflight caps must be positive")
	}
	if c.PerPeerInflight > c.MaxInflight {
		return fmt.Errorf("config: PerPeerInflight (%d) exceeds MaxInflight (%d)", c.PerPeerInflight, c.MaxInflight)
	}
	if c.MisbehaviorThreshold == 0 {
		return fmt.Errorf("config: MisbehaviorThreshold must be positive")
	}
	return nil
}
