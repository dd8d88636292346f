package filter_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/illmade-knight/go-querycache/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	usdc  = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
)

func boolPtr(b bool) *bool { return &b }

func TestOrdersBuilder_Independence(t *testing.T) {
	// Arrange
	original := filter.Orders{Owners: []common.Address{alice}, Active: boolPtr(true)}

	// Act
	b := filter.NewOrdersBuilder(original)
	b.SetOwners([]common.Address{alice, bob}).SetActive(boolPtr(false))
	built := b.Build()

	// Assert
	assert.Equal(t, []common.Address{alice}, original.Owners, "The builder must not touch its input")
	assert.True(t, *original.Active)
	assert.Equal(t, []common.Address{alice, bob}, built.Owners)
	assert.False(t, *built.Active)

	t.Run("Mutating the built value does not leak back", func(t *testing.T) {
		built.Owners[0] = bob
		*built.Active = true

		again := b.Build()
		assert.Equal(t, alice, again.Owners[0])
		assert.False(t, *again.Active)
	})

	t.Run("Mutating a setter argument does not leak in", func(t *testing.T) {
		tokens := []common.Address{usdc}
		b.SetTokens(tokens)
		tokens[0] = alice

		assert.Equal(t, []common.Address{usdc}, b.Build().Tokens)
	})

	t.Run("Mutating the input after construction does not leak in", func(t *testing.T) {
		in := filter.Orders{ChainIDs: []uint32{1}}
		ob := filter.NewOrdersBuilder(in)
		in.ChainIDs[0] = 137

		assert.Equal(t, []uint32{1}, ob.Build().ChainIDs)
	})
}

func TestOrders_NilVersusEmpty(t *testing.T) {
	// Arrange
	criteria := filter.NewOrdersBuilder(filter.Orders{}).
		SetOwners([]common.Address{}).
		Build()

	// Assert
	require.NotNil(t, criteria.Owners, "An empty owner list filters to nothing and must survive cloning")
	assert.Empty(t, criteria.Owners)
	assert.Nil(t, criteria.Tokens)
	assert.False(t, criteria.IsEmpty())

	cleared := filter.NewOrdersBuilder(criteria).SetOwners(nil).Build()
	assert.Nil(t, cleared.Owners)
	assert.True(t, cleared.IsEmpty())
}

func TestOrders_CloneOrderHash(t *testing.T) {
	h := common.HexToHash("0x01")
	o := filter.Orders{OrderHash: &h}

	c := o.Clone()
	c.OrderHash[0] = 0xff

	assert.Equal(t, common.HexToHash("0x01"), *o.OrderHash)
}

func TestVaultsBuilder(t *testing.T) {
	original := filter.Vaults{ChainIDs: []uint32{1, 42161}}

	built := filter.NewVaultsBuilder(original).
		SetHideZeroBalance(boolPtr(true)).
		SetOwners([]common.Address{alice}).
		SetTokens([]common.Address{}).
		SetChainIDs(append(original.ChainIDs, 8453)).
		Build()

	assert.Nil(t, original.HideZeroBalance)
	assert.Equal(t, []uint32{1, 42161}, original.ChainIDs)
	assert.Equal(t, []uint32{1, 42161, 8453}, built.ChainIDs)
	assert.True(t, *built.HideZeroBalance)
	require.NotNil(t, built.Tokens)
	assert.Empty(t, built.Tokens)
	assert.True(t, filter.Vaults{}.IsEmpty())
}

func TestOrdersBuilder_LaterSettersDoNotRewriteBuilt(t *testing.T) {
	b := filter.NewOrdersBuilder(filter.Orders{})

	built := b.SetOwners([]common.Address{alice}).Build()
	b.SetOwners([]common.Address{bob})

	assert.Equal(t, []common.Address{alice}, built.Owners)
	assert.Equal(t, []common.Address{bob}, b.Build().Owners)
}
