package session

import (
	"fmt"
	"strings"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/identity"
	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/core/state/store"
	"github.com/charleschow/ns-market/internal/core/view"
	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

// Tab is one of the panel's tabs.
type Tab string

const (
	TabListings    Tab = "listings"
	TabBuyOrders   Tab = "buy-orders"
	TabSell        Tab = "sell"
	TabCreateOrder Tab = "create-order"
	TabPickups     Tab = "pickups"
	TabHistory     Tab = "history"
)

// Change tells observers which part of the session moved.
type Change string

const (
	ChangeOpened       Change = "opened"
	ChangeClosed       Change = "closed"
	ChangeInventory    Change = "inventory"
	ChangeListings     Change = "listings"
	ChangeBuyOrders    Change = "buyOrders"
	ChangePickups      Change = "pickups"
	ChangeHistory      Change = "history"
	ChangeTab          Change = "tab"
	ChangeSearch       Change = "search"
	ChangeNotification Change = "notification"
)

var collectionChange = map[store.Collection]Change{
	store.Listings:  ChangeListings,
	store.BuyOrders: ChangeBuyOrders,
	store.Pickups:   ChangePickups,
	store.History:   ChangeHistory,
}

// Emitter receives the commands a session produces. It must not block.
type Emitter func(events.Command)

// Notice is a transient message for the player, either pushed by the host
// or raised by a rejected operation.
type Notice struct {
	Type    string
	Message string
}

// Session is the state of one open panel: the collections the host pushed,
// the identity tables built from them, and the player's view settings.
//
// A Session is not safe for concurrent use. PanelContext serializes access.
type Session struct {
	settings config.PanelSettings
	extra    market.Blacklist

	store     *store.CollectionStore
	resolver  *identity.Resolver
	inventory []market.InventoryItem

	playerID int
	open     bool

	activeTab    Tab
	search       map[store.Collection]string
	historyQuery view.HistoryQuery
	sellItem     string
	lastNotice   Notice

	emit   Emitter
	notify func(Change)
}

// New returns a closed, empty session. emit may be nil, in which case
// commands are dropped.
func New(settings config.PanelSettings, emit Emitter) *Session {
	if emit == nil {
		emit = func(events.Command) {}
	}
	s := &Session{
		settings: settings,
		extra:    market.NewBlacklist(settings.Blacklist...),
		emit:     emit,
		notify:   func(Change) {},
	}
	s.reset()
	return s
}

// OnChange installs the hook called after every state change.
func (s *Session) OnChange(fn func(Change)) {
	if fn == nil {
		fn = func(Change) {}
	}
	s.notify = fn
}

func (s *Session) reset() {
	s.store = store.New()
	s.resolver = identity.NewResolver()
	s.resolver.SetSuggestionLimit(s.settings.SuggestionLimit)
	s.inventory = nil
	s.playerID = 0
	s.open = false
	s.activeTab = TabListings
	s.search = make(map[store.Collection]string, len(store.AllCollections))
	s.historyQuery = view.HistoryQuery{}
	s.sellItem = ""
}

// Handle applies one host push. Unknown actions are logged and ignored.
func (s *Session) Handle(evt events.Event) error {
	switch evt.Type {
	case events.EventOpen:
		p, ok := evt.Payload.(events.OpenEvent)
		if !ok {
			return payloadError(evt)
		}
		s.handleOpen(p)

	case events.EventInventoryItems:
		p, ok := evt.Payload.(events.InventoryEvent)
		if !ok {
			return payloadError(evt)
		}
		s.setInventory(p.InventoryItems)
		s.notify(ChangeInventory)

	case events.EventRefresh:
		p, ok := evt.Payload.(events.RefreshEvent)
		if !ok {
			return payloadError(evt)
		}
		changed := s.store.Apply(store.RefreshDelta{
			Listings:  p.Listings,
			BuyOrders: p.BuyOrders,
			Pickups:   p.Pickups,
		})
		for _, c := range changed {
			s.notify(collectionChange[c])
		}

	case events.EventPickups:
		p, ok := evt.Payload.(events.PickupsEvent)
		if !ok {
			return payloadError(evt)
		}
		s.store.ReplacePickups(p.Pickups)
		s.notify(ChangePickups)

	case events.EventHistory:
		p, ok := evt.Payload.(events.HistoryEvent)
		if !ok {
			return payloadError(evt)
		}
		s.store.ReplaceHistory(p.History)
		s.notify(ChangeHistory)

	case events.EventClose:
		s.reset()
		s.notify(ChangeClosed)

	case events.EventNotification:
		p, ok := evt.Payload.(events.NotificationEvent)
		if !ok {
			return payloadError(evt)
		}
		s.lastNotice = Notice{Type: p.Type, Message: p.Message}
		s.notify(ChangeNotification)

	default:
		telemetry.Metrics.UnknownActions.Inc()
		telemetry.Warnf("session: ignoring unknown action %q", evt.Type)
		return nil
	}

	telemetry.Metrics.EventsApplied.Inc()
	return nil
}

func payloadError(evt events.Event) error {
	return fmt.Errorf("session: %s: unexpected payload %T", evt.Type, evt.Payload)
}

func (s *Session) handleOpen(p events.OpenEvent) {
	s.reset()

	s.store.ReplaceListings(p.Listings)
	s.store.ReplaceBuyOrders(p.BuyOrders)
	s.store.ReplacePickups(p.Pickups)

	s.setInventory(p.InventoryItems)
	s.resolver.RebuildLabelToIdentifiers(p.AllAvailableItems, p.BlacklistedItems.Merge(s.extra))

	s.playerID = p.PlayerID
	s.open = true

	telemetry.Infof("session: opened player=%d listings=%d buy_orders=%d pickups=%d inventory=%d catalog=%d",
		s.playerID, len(p.Listings), len(p.BuyOrders), len(p.Pickups), len(p.InventoryItems), len(p.AllAvailableItems))
	s.notify(ChangeOpened)
}

// setInventory replaces the inventory and the identifier→label table. The
// sell selection survives when the item is still held.
func (s *Session) setInventory(items []market.InventoryItem) {
	s.inventory = append([]market.InventoryItem(nil), items...)
	s.resolver.RebuildIdentifierToLabel(s.inventory)
	if s.sellItem != "" {
		if _, ok := s.inventoryItem(s.sellItem); !ok {
			s.sellItem = ""
		}
	}
}

func (s *Session) inventoryItem(name string) (market.InventoryItem, bool) {
	for _, it := range s.inventory {
		if it.Name == name {
			return it, true
		}
	}
	return market.InventoryItem{}, false
}

// --- read accessors ---

func (s *Session) IsOpen() bool                     { return s.open }
func (s *Session) PlayerID() int                    { return s.playerID }
func (s *Session) ActiveTab() Tab                   { return s.activeTab }
func (s *Session) Resolver() *identity.Resolver     { return s.resolver }
func (s *Session) Store() *store.CollectionStore    { return s.store }
func (s *Session) HistoryQuery() view.HistoryQuery  { return s.historyQuery }
func (s *Session) LastNotice() Notice               { return s.lastNotice }
func (s *Session) SellItem() string                 { return s.sellItem }
func (s *Session) Search(c store.Collection) string { return s.search[c] }

// Inventory returns a copy of the player's items.
func (s *Session) Inventory() []market.InventoryItem {
	return append([]market.InventoryItem(nil), s.inventory...)
}

// ResolveLabel is a shortcut for Resolver().ResolveLabel.
func (s *Session) ResolveLabel(identifier string) string {
	return s.resolver.ResolveLabel(identifier)
}

// Suggest returns label suggestions for the buy order item field.
func (s *Session) Suggest(text string) []string {
	return s.resolver.Suggest(text)
}

// IsOwnListing reports whether the listing was posted by this player.
func (s *Session) IsOwnListing(l market.Listing) bool {
	return s.playerID != 0 && l.Seller == s.playerID
}

// IsOwnBuyOrder reports whether the buy order was placed by this player.
func (s *Session) IsOwnBuyOrder(o market.BuyOrder) bool {
	return s.playerID != 0 && o.Buyer == s.playerID
}

// --- views ---

// SetSearch records the search term for a collection's view. History is
// searched through ApplyHistoryFilters instead.
func (s *Session) SetSearch(c store.Collection, term string) {
	if c == store.History {
		s.historyQuery.Search = strings.TrimSpace(term)
	} else {
		s.search[c] = term
	}
	s.notify(ChangeSearch)
}

func (s *Session) ListingsView() []market.Listing {
	return view.Listings(s.store.Listings(), s.search[store.Listings], s.resolver)
}

func (s *Session) BuyOrdersView() []market.BuyOrder {
	return view.BuyOrders(s.store.BuyOrders(), s.search[store.BuyOrders], s.resolver)
}

func (s *Session) PickupsView() []market.Pickup {
	return view.Pickups(s.store.Pickups(), s.search[store.Pickups], s.resolver)
}

func (s *Session) HistoryView() []market.HistoryEntry {
	return view.History(s.store.History(), s.historyQuery, s.resolver)
}
