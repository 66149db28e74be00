package events

import (
	"github.com/charleschow/ns-market/internal/core/market"
)

// OpenEvent bootstraps a panel session.
type OpenEvent struct {
	Listings          []market.Listing       `json:"listings"`
	BuyOrders         []market.BuyOrder      `json:"buyOrders"`
	Pickups           []market.Pickup        `json:"pickups"`
	InventoryItems    []market.InventoryItem `json:"inventoryItems"`
	AllAvailableItems []market.CatalogItem   `json:"allAvailableItems"`
	BlacklistedItems  market.Blacklist       `json:"blacklistedItems"`
	PlayerID          int                    `json:"playerId"`
}

// InventoryEvent replaces the player's inventory.
type InventoryEvent struct {
	InventoryItems []market.InventoryItem `json:"inventoryItems"`
}

// RefreshEvent is a partial refresh: the host only sends the collections
// that changed. A nil field was absent (or null) on the wire.
type RefreshEvent struct {
	Listings  *[]market.Listing  `json:"listings,omitempty"`
	BuyOrders *[]market.BuyOrder `json:"buyOrders,omitempty"`
	Pickups   *[]market.Pickup   `json:"pickups,omitempty"`
}

type PickupsEvent struct {
	Pickups []market.Pickup `json:"pickups"`
}

// HistoryEvent carries the result of the last getHistory query.
type HistoryEvent struct {
	History []market.HistoryEntry `json:"history"`
}

// CloseEvent has no payload; the host just hides the panel.
type CloseEvent struct{}

// NotificationEvent is a transient message for the player.
type NotificationEvent struct {
	Type    string `json:"type"` // "success", "error", "info"
	Message string `json:"message"`
}

// HostStatusEvent signals host bridge connect/disconnect.
type HostStatusEvent struct {
	Connected bool `json:"connected"`
}
