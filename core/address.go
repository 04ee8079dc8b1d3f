package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
)

// AddressSet ordered set of account addresses, insertion order preserved
type AddressSet struct {
	index map[common.PublicKey]struct{}
	list  []common.PublicKey
}

// NewAddressSet new address set
func NewAddressSet(addresses ...common.PublicKey) *AddressSet {
	s := &AddressSet{index: make(map[common.PublicKey]struct{})}
	s.Add(addresses...)
	return s
}

// Add append addresses, duplicates ignored
func (s *AddressSet) Add(addresses ...common.PublicKey) {
	for _, a := range addresses {
		if _, ok := s.index[a]; ok {
			continue
		}
		s.index[a] = struct{}{}
		s.list = append(s.list, a)
	}
}

// Contains membership check
func (s *AddressSet) Contains(address common.PublicKey) bool {
	_, ok := s.index[address]
	return ok
}

// Len set size
func (s *AddressSet) Len() int {
	return len(s.list)
}

// Addresses addresses in insertion order; the returned slice is a copy
func (s *AddressSet) Addresses() []common.PublicKey {
	out := make([]common.PublicKey, len(s.list))
	copy(out, s.list)
	return out
}

// Union new set with all members of both sets
func (s *AddressSet) Union(other *AddressSet) *AddressSet {
	u := NewAddressSet(s.list...)
	if other != nil {
		u.Add(other.list...)
	}
	return u
}

// RequiredAddressSet every account a pending transaction references,
// partitioned by stability to decide lookup-table granularity
type RequiredAddressSet struct {
	// stable across all transactions
	Global *AddressSet
	// stable per integrated lending protocol
	PerProtocol *AddressSet
	// rebuilt every transaction
	PerCall *AddressSet
}

// All deduplicated union of the three partitions
func (r *RequiredAddressSet) All() []common.PublicKey {
	return r.Global.Union(r.PerProtocol).Union(r.PerCall).Addresses()
}

// Tabled the partitions worth publishing to a lookup table; per-call
// addresses vary every transaction and are not amortizable
func (r *RequiredAddressSet) Tabled() []common.PublicKey {
	return r.Global.Union(r.PerProtocol).Addresses()
}

// AddressSetContext inputs to the required address set enumeration
type AddressSetContext struct {
	Market     *Market
	Searcher   common.PublicKey
	Relayer    common.PublicKey
	RelayerFeeReceiver common.PublicKey
	// express-relay program wrapping the liquidation
	RelayProgram common.PublicKey
	// lending protocol program permissioned by the relay
	Protocol common.PublicKey
	// mints moved by the candidate transaction, per-call token
	// expectation accounts are derived from these
	SellMints []common.PublicKey
	BuyMints  []common.PublicKey
}

// IAddressSetBuilder required address set builder
type IAddressSetBuilder interface {
	Build(ctx context.Context, setCtx *AddressSetContext) (*RequiredAddressSet, error)
}
