package display

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/core/state/store"
)

const (
	dividerHeavy = "════════════════════════════════════════════════════════════"
	dividerLight = "────────────────────────────────────────────────────────────"
	timeLayout   = "Jan 2 2006 3:04 PM"
)

// LabelResolver maps an item identifier to its display label.
type LabelResolver interface {
	ResolveLabel(identifier string) string
}

// Money renders a price as "$1,234".
func Money(n int64) string {
	return "$" + humanize.Comma(n)
}

// ActorName substitutes "Unknown" for a missing player name.
func ActorName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// Timestamp renders unix seconds as an absolute time plus a relative hint,
// e.g. "Mar 3 2026 4:05 PM (2 hours ago)". Zero renders as "-".
func Timestamp(unix int64, now time.Time) string {
	if unix <= 0 {
		return "-"
	}
	t := time.Unix(unix, 0)
	return fmt.Sprintf("%s (%s)", t.Local().Format(timeLayout), humanize.RelTime(t, now, "ago", "from now"))
}

var historyTitles = map[market.HistoryType]string{
	market.HistoryListing:        "Listing Created",
	market.HistoryPurchase:       "Purchase",
	market.HistoryBuyOrder:       "Buy Order Created",
	market.HistoryFulfill:        "Order Fulfilled",
	market.HistoryListingCancel:  "Listing Cancelled",
	market.HistoryBuyOrderCancel: "Buy Order Cancelled",
}

// HistoryTitle is the heading for an entry type. Unknown types render blank.
func HistoryTitle(t market.HistoryType) string {
	return historyTitles[t]
}

// HistorySentence describes what happened in one history entry.
func HistorySentence(e market.HistoryEntry, labels LabelResolver) string {
	item := labels.ResolveLabel(e.Item)
	switch e.Type {
	case market.HistoryListing:
		return fmt.Sprintf("Listed %dx %s for %s each", e.Quantity, item, Money(e.Price))
	case market.HistoryPurchase:
		return fmt.Sprintf("%s bought %dx %s from %s for %s",
			ActorName(e.BuyerName), e.Quantity, item, ActorName(e.SellerName), Money(e.TotalPrice))
	case market.HistoryBuyOrder:
		return fmt.Sprintf("Created buy order for %dx %s at %s each", e.Quantity, item, Money(e.Price))
	case market.HistoryFulfill:
		return fmt.Sprintf("%s fulfilled %s's order: %dx %s for %s",
			ActorName(e.SellerName), ActorName(e.BuyerName), e.Quantity, item, Money(e.TotalPrice))
	case market.HistoryListingCancel:
		return fmt.Sprintf("Cancelled listing: %dx %s", e.Quantity, item)
	case market.HistoryBuyOrderCancel:
		return fmt.Sprintf("Cancelled buy order: %dx %s", e.Quantity, item)
	}
	return ""
}

var emptyNouns = map[store.Collection]string{
	store.Listings:  "listings",
	store.BuyOrders: "buy orders",
	store.Pickups:   "pickups",
	store.History:   "history",
}

// EmptyState is shown in place of an empty view. searching distinguishes
// "nothing here" from "nothing matches".
func EmptyState(c store.Collection, searching bool) string {
	noun := emptyNouns[c]
	if searching && c != store.History {
		return fmt.Sprintf("No %s match your search", noun)
	}
	return fmt.Sprintf("No %s available", noun)
}
