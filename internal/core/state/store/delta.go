package store

import "github.com/charleschow/ns-market/internal/core/market"

// RefreshDelta is a partial refresh pushed by the host. A nil field means
// the host did not send that collection and it must be left alone; a
// pointer to an empty slice clears it.
type RefreshDelta struct {
	Listings  *[]market.Listing
	BuyOrders *[]market.BuyOrder
	Pickups   *[]market.Pickup
}

// Empty reports whether the delta carries no collections.
func (d RefreshDelta) Empty() bool {
	return d.Listings == nil && d.BuyOrders == nil && d.Pickups == nil
}

// Apply replaces each collection present in d and returns the ones it
// touched, in display order.
func (s *CollectionStore) Apply(d RefreshDelta) []Collection {
	var changed []Collection
	if d.Listings != nil {
		s.ReplaceListings(*d.Listings)
		changed = append(changed, Listings)
	}
	if d.BuyOrders != nil {
		s.ReplaceBuyOrders(*d.BuyOrders)
		changed = append(changed, BuyOrders)
	}
	if d.Pickups != nil {
		s.ReplacePickups(*d.Pickups)
		changed = append(changed, Pickups)
	}
	return changed
}
