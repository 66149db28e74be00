package session

import (
	"encoding/json"
	"strings"

	"github.com/charleschow/ns-market/internal/core/view"
	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

// User operations. Each one either emits exactly one command or returns a
// *ValidationError and emits nothing. None of them touch the collections:
// the host's next push is the only thing that does.

func (s *Session) send(name events.CommandName, body any) {
	telemetry.Metrics.CommandsEmitted.Inc()
	telemetry.Debugf("session: emit %s", name)
	s.emit(events.Command{Name: name, Body: body})
}

func (s *Session) reject(field, msg string) error {
	telemetry.Metrics.ValidationErrors.Inc()
	s.lastNotice = Notice{Type: "error", Message: msg}
	s.notify(ChangeNotification)
	return &ValidationError{Field: field, Message: msg}
}

func (s *Session) requireOpen() error {
	if !s.open {
		return s.reject("", msgClosed)
	}
	return nil
}

// SwitchTab activates a tab. The listings and buy orders tabs ask the host
// for fresh data on entry.
func (s *Session) SwitchTab(tab Tab) {
	s.activeTab = tab
	s.notify(ChangeTab)
	if s.open && (tab == TabListings || tab == TabBuyOrders) {
		s.send(events.CmdRequestRefresh, events.EmptyBody{})
	}
}

// AutoRefresh is called by the poller. It requests a refresh only while an
// auto-refreshing tab is active. Reports whether a command was emitted.
func (s *Session) AutoRefresh() bool {
	if !s.open || !s.settings.AutoRefreshes(string(s.activeTab)) {
		return false
	}
	s.send(events.CmdRequestRefresh, events.EmptyBody{})
	return true
}

func (s *Session) RequestRefresh() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.send(events.CmdRequestRefresh, events.EmptyBody{})
	return nil
}

// Close hides the panel locally and tells the host. The local state is
// dropped right away rather than waiting for the host's close push.
func (s *Session) Close() {
	s.send(events.CmdClose, events.EmptyBody{})
	s.reset()
	s.notify(ChangeClosed)
}

// SelectSellItem records the item chosen in the sell form and returns how
// many the player holds. An empty or unknown identifier clears the selection.
func (s *Session) SelectSellItem(identifier string) int {
	item, ok := s.inventoryItem(identifier)
	if !ok {
		s.sellItem = ""
		return 0
	}
	s.sellItem = identifier
	return item.Count
}

// ClampSellQuantity bounds qty to [1, held count]. Values below 1 become 1.
// Nothing held clamps to 0.
func (s *Session) ClampSellQuantity(identifier string, qty int) int {
	item, ok := s.inventoryItem(identifier)
	if !ok || item.Count < 1 {
		return 0
	}
	return min(max(qty, 1), item.Count)
}

// ListItem offers qty of an inventory item at price each.
func (s *Session) ListItem(identifier string, qty int, price int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if identifier == "" || qty == 0 || price == 0 {
		return s.reject("", msgFillAllFields)
	}
	if qty < 1 {
		return s.reject("quantity", msgQuantityMin)
	}
	if price < 1 {
		return s.reject("price", msgPriceMin)
	}
	item, ok := s.inventoryItem(identifier)
	if !ok || item.Count < 1 {
		return s.reject("item", msgNotInInventory)
	}
	qty = s.ClampSellQuantity(identifier, qty)

	metadata := item.Metadata
	if len(metadata) == 0 || string(metadata) == "null" {
		metadata = json.RawMessage(`{}`)
	}

	s.send(events.CmdListItem, events.ListItemBody{
		Item:     identifier,
		Quantity: qty,
		Price:    price,
		Metadata: metadata,
	})
	s.sellItem = ""
	return nil
}

// CreateBuyOrder requests qty of the item whose label the player typed.
// The label is resolved to an identifier here; the host never sees free text.
func (s *Session) CreateBuyOrder(label string, qty int, price int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	label = strings.TrimSpace(label)
	if label == "" || qty == 0 || price == 0 {
		return s.reject("", msgFillAllFields)
	}
	if qty < 1 {
		return s.reject("quantity", msgQuantityMin)
	}
	if price < 1 {
		return s.reject("price", msgPriceMin)
	}

	if !s.resolver.LabelExists(label) {
		// blacklisted items never make it into the label table
		if s.resolver.IsBlacklisted(label) {
			return s.reject("item", msgCannotBeOrdered)
		}
		return s.reject("item", msgItemNotFound)
	}
	identifier, ok := s.resolver.ResolveIdentifierFromLabel(label)
	if !ok || s.resolver.IsBlacklisted(identifier) {
		return s.reject("item", msgCannotBeOrdered)
	}

	s.send(events.CmdCreateBuyOrder, events.CreateBuyOrderBody{
		Item:     identifier,
		Quantity: qty,
		Price:    price,
	})
	return nil
}

// OrderTotal is the cost shown under the buy order form.
func OrderTotal(qty int, price int64) int64 {
	if qty <= 0 || price <= 0 {
		return 0
	}
	return int64(qty) * price
}

// PurchaseItem buys qty units from a listing. qty below 1 means 1; above
// the listed quantity it is clamped.
func (s *Session) PurchaseItem(listingID int64, qty int) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	l, ok := s.store.Listing(listingID)
	if !ok {
		return s.reject("listing", msgListingGone)
	}
	s.send(events.CmdPurchaseItem, events.PurchaseItemBody{
		ListingID: listingID,
		Quantity:  clampQty(qty, l.Quantity),
	})
	return nil
}

func (s *Session) CancelListing(listingID int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	l, ok := s.store.Listing(listingID)
	if !ok {
		return s.reject("listing", msgListingGone)
	}
	if !s.IsOwnListing(l) {
		return s.reject("listing", msgNotYours)
	}
	s.send(events.CmdCancelListing, events.CancelListingBody{ListingID: listingID})
	return nil
}

func (s *Session) CancelBuyOrder(orderID int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	o, ok := s.store.BuyOrder(orderID)
	if !ok {
		return s.reject("order", msgOrderGone)
	}
	if !s.IsOwnBuyOrder(o) {
		return s.reject("order", msgNotYours)
	}
	s.send(events.CmdCancelBuyOrder, events.CancelBuyOrderBody{OrderID: orderID})
	return nil
}

// FulfillBuyOrder sells qty units into another player's buy order.
func (s *Session) FulfillBuyOrder(orderID int64, qty int) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	o, ok := s.store.BuyOrder(orderID)
	if !ok {
		return s.reject("order", msgOrderGone)
	}
	if s.IsOwnBuyOrder(o) {
		return s.reject("order", msgOwnOrder)
	}
	s.send(events.CmdFulfillBuyOrder, events.FulfillBuyOrderBody{
		OrderID:  orderID,
		Quantity: clampQty(qty, o.Quantity),
	})
	return nil
}

func (s *Session) PickupOrder(pickupID int64) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if _, ok := s.store.Pickup(pickupID); !ok {
		return s.reject("pickup", msgPickupGone)
	}
	s.send(events.CmdPickupOrder, events.PickupOrderBody{PickupID: pickupID})
	return nil
}

// ApplyHistoryFilters stores the query and asks the host for matching
// history. The local view applies the same query to whatever comes back.
func (s *Session) ApplyHistoryFilters(q view.HistoryQuery) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Type != "" && !q.Type.Valid() {
		return s.reject("type", msgUnknownType)
	}
	s.historyQuery = q
	s.send(events.CmdGetHistory, events.GetHistoryBody{
		Filters: events.HistoryFilters{Type: string(q.Type), Search: q.Search},
	})
	s.notify(ChangeSearch)
	return nil
}

func clampQty(qty, limit int) int {
	if qty < 1 {
		qty = 1
	}
	if limit > 0 && qty > limit {
		return limit
	}
	return qty
}
