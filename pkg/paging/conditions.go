package paging

import (
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/illmade-knight/go-querycache/pkg/filter"
)

// Condition is an extra WHERE clause with its named parameters.
type Condition struct {
	SQL    string
	Params []bigquery.QueryParameter
}

type conditionBuilder struct {
	clauses []string
	params  []bigquery.QueryParameter
}

func (b *conditionBuilder) add(clause string, params ...bigquery.QueryParameter) {
	b.clauses = append(b.clauses, clause)
	b.params = append(b.params, params...)
}

// addressIn handles the nil / empty / populated cases of an address list.
func (b *conditionBuilder) addressIn(column, param string, addrs []common.Address) {
	switch {
	case addrs == nil:
	case len(addrs) == 0:
		b.add("FALSE")
	default:
		b.add(column+" IN UNNEST(@"+param+")", bigquery.QueryParameter{Name: param, Value: hexAddresses(addrs)})
	}
}

func (b *conditionBuilder) chainIn(chainIDs []uint32) {
	switch {
	case chainIDs == nil:
	case len(chainIDs) == 0:
		b.add("FALSE")
	default:
		ids := make([]int64, len(chainIDs))
		for i, id := range chainIDs {
			ids[i] = int64(id)
		}
		b.add("chain_id IN UNNEST(@chain_ids)", bigquery.QueryParameter{Name: "chain_ids", Value: ids})
	}
}

func (b *conditionBuilder) build() Condition {
	if len(b.clauses) == 0 {
		return Condition{}
	}
	return Condition{SQL: strings.Join(b.clauses, " AND "), Params: b.params}
}

// Addresses are compared in lower-case hex, the form the indexer tables use.
func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = strings.ToLower(a.Hex())
	}
	return out
}

// OrdersCondition translates order criteria into a WHERE clause over the
// owner, active, order_hash, tokens and chain_id columns.
func OrdersCondition(f filter.Orders) Condition {
	var b conditionBuilder
	b.addressIn("owner", "owners", f.Owners)
	if f.Active != nil {
		b.add("active = @active", bigquery.QueryParameter{Name: "active", Value: *f.Active})
	}
	if f.OrderHash != nil {
		b.add("order_hash = @order_hash", bigquery.QueryParameter{Name: "order_hash", Value: f.OrderHash.Hex()})
	}
	switch {
	case f.Tokens == nil:
	case len(f.Tokens) == 0:
		b.add("FALSE")
	default:
		b.add("EXISTS (SELECT 1 FROM UNNEST(tokens) AS t WHERE t IN UNNEST(@tokens))",
			bigquery.QueryParameter{Name: "tokens", Value: hexAddresses(f.Tokens)})
	}
	b.chainIn(f.ChainIDs)
	return b.build()
}

// VaultsCondition translates vault criteria into a WHERE clause over the
// owner, balance, token and chain_id columns.
func VaultsCondition(f filter.Vaults) Condition {
	var b conditionBuilder
	b.addressIn("owner", "owners", f.Owners)
	if f.HideZeroBalance != nil && *f.HideZeroBalance {
		b.add("balance != '0'")
	}
	b.addressIn("token", "tokens", f.Tokens)
	b.chainIn(f.ChainIDs)
	return b.build()
}
