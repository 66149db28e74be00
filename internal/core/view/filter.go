// Package view derives filtered views of the mirrored collections. Every
// function here is pure: inputs are never modified and results are always
// freshly allocated.
package view

import (
	"strings"

	"github.com/charleschow/ns-market/internal/core/market"
)

// LabelResolver turns an item identifier into its display label.
// Satisfied by *identity.Resolver.
type LabelResolver interface {
	ResolveLabel(identifier string) string
}

// Filter keeps the items for which any of fields(item) contains term,
// ignoring case. An empty term keeps everything.
func Filter[T any](items []T, term string, fields func(T) []string) []T {
	needle := strings.ToLower(term)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if needle == "" || anyContains(fields(it), needle) {
			out = append(out, it)
		}
	}
	return out
}

func anyContains(fields []string, needle string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func Listings(items []market.Listing, term string, labels LabelResolver) []market.Listing {
	return Filter(items, term, func(l market.Listing) []string {
		return []string{labels.ResolveLabel(l.Item), l.Item, l.SellerName}
	})
}

func BuyOrders(items []market.BuyOrder, term string, labels LabelResolver) []market.BuyOrder {
	return Filter(items, term, func(o market.BuyOrder) []string {
		return []string{labels.ResolveLabel(o.Item), o.Item, o.BuyerName}
	})
}

func Pickups(items []market.Pickup, term string, labels LabelResolver) []market.Pickup {
	return Filter(items, term, func(p market.Pickup) []string {
		return []string{labels.ResolveLabel(p.Item), p.Item, p.SellerName}
	})
}

// HistoryQuery narrows the history view. Both fields are optional.
type HistoryQuery struct {
	Type   market.HistoryType `json:"type,omitempty"`
	Search string             `json:"search,omitempty"`
}

// IsZero reports whether the query filters nothing.
func (q HistoryQuery) IsZero() bool { return q.Type == "" && q.Search == "" }

// History restricts by exact entry type first, then by text over the item
// label, identifier, buyer and seller names.
func History(items []market.HistoryEntry, q HistoryQuery, labels LabelResolver) []market.HistoryEntry {
	typed := items
	if q.Type != "" {
		typed = make([]market.HistoryEntry, 0, len(items))
		for _, e := range items {
			if e.Type == q.Type {
				typed = append(typed, e)
			}
		}
	}
	return Filter(typed, q.Search, func(e market.HistoryEntry) []string {
		return []string{labels.ResolveLabel(e.Item), e.Item, e.BuyerName, e.SellerName}
	})
}
