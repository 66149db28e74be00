// Package market holds the records the host pushes to the panel.
// Field names and JSON tags follow the host's wire format.
package market

import "encoding/json"

// Listing is an active sell offer.
type Listing struct {
	ID         int64  `json:"id"`
	Item       string `json:"item"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"` // per unit
	Seller     int    `json:"seller"`
	SellerName string `json:"sellerName"`
}

// Total is the price of the whole stack.
func (l Listing) Total() int64 { return l.Price * int64(l.Quantity) }

// BuyOrder is an active purchase request waiting for a seller.
type BuyOrder struct {
	ID        int64  `json:"id"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"` // per unit
	Buyer     int    `json:"buyer"`
	BuyerName string `json:"buyerName"`
}

func (o BuyOrder) Total() int64 { return o.Price * int64(o.Quantity) }

// Pickup is a completed sale whose proceeds wait for the seller to collect.
type Pickup struct {
	ID                 int64  `json:"id"`
	Item               string `json:"item"`
	Quantity           int    `json:"quantity"`
	Price              int64  `json:"price"`
	TotalPrice         int64  `json:"totalPrice"`
	SellerName         string `json:"sellerName"`
	FulfilledTimestamp int64  `json:"fulfilledTimestamp"` // unix seconds
}

type HistoryType string

const (
	HistoryListing        HistoryType = "listing"
	HistoryPurchase       HistoryType = "purchase"
	HistoryBuyOrder       HistoryType = "buyOrder"
	HistoryFulfill        HistoryType = "fulfill"
	HistoryListingCancel  HistoryType = "listingCancel"
	HistoryBuyOrderCancel HistoryType = "buyOrderCancel"
)

// HistoryTypes lists every entry type in display order.
var HistoryTypes = []HistoryType{
	HistoryListing,
	HistoryPurchase,
	HistoryBuyOrder,
	HistoryFulfill,
	HistoryListingCancel,
	HistoryBuyOrderCancel,
}

// Valid reports whether t is one of the known entry types.
func (t HistoryType) Valid() bool {
	for _, known := range HistoryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HistoryEntry is an immutable record of a past marketplace action.
// Which fields are populated depends on Type.
type HistoryEntry struct {
	Type       HistoryType `json:"type"`
	Item       string      `json:"item"`
	Quantity   int         `json:"quantity"`
	Price      int64       `json:"price,omitempty"`
	TotalPrice int64       `json:"totalPrice,omitempty"`
	BuyerName  string      `json:"buyerName,omitempty"`
	SellerName string      `json:"sellerName,omitempty"`
	Timestamp  int64       `json:"timestamp"` // unix seconds
}

// InventoryItem is one stack in the player's own inventory.
type InventoryItem struct {
	Name     string          `json:"name"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// CatalogItem is an item the marketplace knows about, owned or not.
type CatalogItem struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}
