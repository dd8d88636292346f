package filter

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// OrdersBuilder edits a private copy of an Orders value. Nothing passed in or
// returned is shared with the builder's state.
type OrdersBuilder struct {
	criteria Orders
}

// NewOrdersBuilder starts from a copy of current.
func NewOrdersBuilder(current Orders) *OrdersBuilder {
	return &OrdersBuilder{criteria: current.Clone()}
}

// SetOwners replaces the owner list. nil clears the dimension.
func (b *OrdersBuilder) SetOwners(owners []common.Address) *OrdersBuilder {
	b.criteria.Owners = slices.Clone(owners)
	return b
}

func (b *OrdersBuilder) SetActive(active *bool) *OrdersBuilder {
	b.criteria.Active = clonePtr(active)
	return b
}

func (b *OrdersBuilder) SetOrderHash(hash *common.Hash) *OrdersBuilder {
	b.criteria.OrderHash = clonePtr(hash)
	return b
}

func (b *OrdersBuilder) SetTokens(tokens []common.Address) *OrdersBuilder {
	b.criteria.Tokens = slices.Clone(tokens)
	return b
}

func (b *OrdersBuilder) SetChainIDs(chainIDs []uint32) *OrdersBuilder {
	b.criteria.ChainIDs = slices.Clone(chainIDs)
	return b
}

// Build returns a fresh copy of the edited criteria.
func (b *OrdersBuilder) Build() Orders {
	return b.criteria.Clone()
}

// VaultsBuilder edits a private copy of a Vaults value.
type VaultsBuilder struct {
	criteria Vaults
}

// NewVaultsBuilder starts from a copy of current.
func NewVaultsBuilder(current Vaults) *VaultsBuilder {
	return &VaultsBuilder{criteria: current.Clone()}
}

func (b *VaultsBuilder) SetOwners(owners []common.Address) *VaultsBuilder {
	b.criteria.Owners = slices.Clone(owners)
	return b
}

func (b *VaultsBuilder) SetHideZeroBalance(hide *bool) *VaultsBuilder {
	b.criteria.HideZeroBalance = clonePtr(hide)
	return b
}

func (b *VaultsBuilder) SetTokens(tokens []common.Address) *VaultsBuilder {
	b.criteria.Tokens = slices.Clone(tokens)
	return b
}

func (b *VaultsBuilder) SetChainIDs(chainIDs []uint32) *VaultsBuilder {
	b.criteria.ChainIDs = slices.Clone(chainIDs)
	return b
}

// Build returns a fresh copy of the edited criteria.
func (b *VaultsBuilder) Build() Vaults {
	return b.criteria.Clone()
}
