package store

import (
	"github.com/charleschow/ns-market/internal/core/market"
)

// Collection names one of the four host-mirrored collections.
type Collection string

const (
	Listings  Collection = "listings"
	BuyOrders Collection = "buyOrders"
	Pickups   Collection = "pickups"
	History   Collection = "history"
)

// AllCollections in display order.
var AllCollections = []Collection{Listings, BuyOrders, Pickups, History}

// CollectionStore mirrors the host's view of the marketplace for one panel
// session. Every collection is replaced wholesale; nothing is patched or
// sorted locally, and accessors hand out copies.
//
// The store is owned by the session goroutine and is not safe for
// concurrent use.
type CollectionStore struct {
	listings  []market.Listing
	buyOrders []market.BuyOrder
	pickups   []market.Pickup
	history   []market.HistoryEntry
}

// New returns a store with all four collections empty.
func New() *CollectionStore {
	s := &CollectionStore{}
	s.Reset()
	return s
}

func (s *CollectionStore) ReplaceListings(items []market.Listing) {
	s.listings = clone(items)
}

func (s *CollectionStore) ReplaceBuyOrders(items []market.BuyOrder) {
	s.buyOrders = clone(items)
}

func (s *CollectionStore) ReplacePickups(items []market.Pickup) {
	s.pickups = clone(items)
}

// ReplaceHistory installs the result of an explicit history query.
func (s *CollectionStore) ReplaceHistory(items []market.HistoryEntry) {
	s.history = clone(items)
}

// Reset empties every collection (session close).
func (s *CollectionStore) Reset() {
	s.listings = []market.Listing{}
	s.buyOrders = []market.BuyOrder{}
	s.pickups = []market.Pickup{}
	s.history = []market.HistoryEntry{}
}

func (s *CollectionStore) Listings() []market.Listing { return clone(s.listings) }
func (s *CollectionStore) BuyOrders() []market.BuyOrder { return clone(s.buyOrders) }
func (s *CollectionStore) Pickups() []market.Pickup { return clone(s.pickups) }
func (s *CollectionStore) History() []market.HistoryEntry { return clone(s.history) }

func (s *CollectionStore) Listing(id int64) (market.Listing, bool) {
	for _, l := range s.listings {
		if l.ID == id {
			return l, true
		}
	}
	return market.Listing{}, false
}

func (s *CollectionStore) BuyOrder(id int64) (market.BuyOrder, bool) {
	for _, o := range s.buyOrders {
		if o.ID == id {
			return o, true
		}
	}
	return market.BuyOrder{}, false
}

func (s *CollectionStore) Pickup(id int64) (market.Pickup, bool) {
	for _, p := range s.pickups {
		if p.ID == id {
			return p, true
		}
	}
	return market.Pickup{}, false
}

// Count returns the number of records in a collection.
func (s *CollectionStore) Count(c Collection) int {
	switch c {
	case Listings:
		return len(s.listings)
	case BuyOrders:
		return len(s.buyOrders)
	case Pickups:
		return len(s.pickups)
	case History:
		return len(s.history)
	}
	return 0
}

// clone copies items into a fresh non-nil slice so neither the caller nor
// the store can mutate the other's backing array.
func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
