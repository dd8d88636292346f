// Package filter holds the query criteria for order and vault listings.
//
// A nil slice or pointer means "do not filter on this dimension". An empty,
// non-nil slice means "filter to nothing". Clone keeps that distinction.
package filter

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Orders narrows an order listing.
type Orders struct {
	Owners    []common.Address `json:"owners,omitempty"`
	Active    *bool            `json:"active,omitempty"`
	OrderHash *common.Hash     `json:"orderHash,omitempty"`
	Tokens    []common.Address `json:"tokens,omitempty"`
	ChainIDs  []uint32         `json:"chainIds,omitempty"`
}

// Clone returns a copy sharing no slices or pointers with o.
func (o Orders) Clone() Orders {
	return Orders{
		Owners:    slices.Clone(o.Owners),
		Active:    clonePtr(o.Active),
		OrderHash: clonePtr(o.OrderHash),
		Tokens:    slices.Clone(o.Tokens),
		ChainIDs:  slices.Clone(o.ChainIDs),
	}
}

// IsEmpty reports whether no dimension is filtered.
func (o Orders) IsEmpty() bool {
	return o.Owners == nil && o.Active == nil && o.OrderHash == nil && o.Tokens == nil && o.ChainIDs == nil
}

// Vaults narrows a vault listing.
type Vaults struct {
	Owners          []common.Address `json:"owners,omitempty"`
	HideZeroBalance *bool            `json:"hideZeroBalance,omitempty"`
	Tokens          []common.Address `json:"tokens,omitempty"`
	ChainIDs        []uint32         `json:"chainIds,omitempty"`
}

// Clone returns a copy sharing no slices or pointers with v.
func (v Vaults) Clone() Vaults {
	return Vaults{
		Owners:          slices.Clone(v.Owners),
		HideZeroBalance: clonePtr(v.HideZeroBalance),
		Tokens:          slices.Clone(v.Tokens),
		ChainIDs:        slices.Clone(v.ChainIDs),
	}
}

// IsEmpty reports whether no dimension is filtered.
func (v Vaults) IsEmpty() bool {
	return v.Owners == nil && v.HideZeroBalance == nil && v.Tokens == nil && v.ChainIDs == nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
