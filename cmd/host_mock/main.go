// host_mock simulates the game host locally. It serves the panel push
// socket and the command callbacks over an in-memory market, so the panel
// can be driven end to end without a game server.
//
// Usage:
//
//	go run ./cmd/host_mock
//
// Then run the panel against it:
//
//	HOST_WS_URL=ws://localhost:9300/ws
//	HOST_BASE_URL=http://localhost:9300
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/fanout"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const (
	playerID   = 1
	playerName = "You"
)

var npcs = []struct {
	id   int
	name string
}{
	{2, "Alice"},
	{3, "Bob"},
	{4, ""}, // hidden name, panel shows Unknown
}

var catalog = []market.CatalogItem{
	{Name: "bread", Label: "Bread"},
	{Name: "water", Label: "Water"},
	{Name: "bandage", Label: "Bandage"},
	{Name: "weapon_pistol", Label: "Pistol"},
	{Name: "ammo_9", Label: "Ammo"},
	{Name: "ammo_45", Label: "Ammo"},
	{Name: "lockpick", Label: "Lockpick"},
	{Name: "money_bag", Label: "Money Bag"},
}

var blacklist = []string{"money_bag"}

// mockMarket is the host's source of truth.
type mockMarket struct {
	mu        sync.Mutex
	nextID    int64
	listings  []market.Listing
	orders    []market.BuyOrder
	pickups   []market.Pickup
	history   []market.HistoryEntry
	inventory map[string]int
}

func newMockMarket() *mockMarket {
	m := &mockMarket{
		nextID: 100,
		inventory: map[string]int{
			"bread":    5,
			"water":    12,
			"bandage":  3,
			"lockpick": 1,
		},
	}
	m.listings = []market.Listing{
		{ID: m.id(), Item: "weapon_pistol", Quantity: 1, Price: 2500, Seller: 2, SellerName: "Alice"},
		{ID: m.id(), Item: "ammo_9", Quantity: 50, Price: 12, Seller: 3, SellerName: "Bob"},
		{ID: m.id(), Item: "bread", Quantity: 4, Price: 8, Seller: 4},
	}
	m.orders = []market.BuyOrder{
		{ID: m.id(), Item: "water", Quantity: 10, Price: 5, Buyer: 2, BuyerName: "Alice"},
		{ID: m.id(), Item: "bandage", Quantity: 2, Price: 40, Buyer: 3, BuyerName: "Bob"},
	}
	return m
}

func (m *mockMarket) id() int64 {
	m.nextID++
	return m.nextID
}

func label(item string) string {
	for _, c := range catalog {
		if c.Name == item {
			return c.Label
		}
	}
	return item
}

func (m *mockMarket) inventoryItems() []market.InventoryItem {
	var out []market.InventoryItem
	for _, c := range catalog {
		if n := m.inventory[c.Name]; n > 0 {
			out = append(out, market.InventoryItem{Name: c.Name, Label: c.Label, Count: n})
		}
	}
	return out
}

func (m *mockMarket) record(e market.HistoryEntry) {
	e.Timestamp = time.Now().Unix()
	m.history = append([]market.HistoryEntry{e}, m.history...)
}

func (m *mockMarket) openEvent() events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	bl := market.NewBlacklist(blacklist...)
	return events.New(events.EventOpen, events.OpenEvent{
		Listings:          append([]market.Listing(nil), m.listings...),
		BuyOrders:         append([]market.BuyOrder(nil), m.orders...),
		Pickups:           append([]market.Pickup(nil), m.pickups...),
		InventoryItems:    m.inventoryItems(),
		AllAvailableItems: catalog,
		BlacklistedItems:  bl,
		PlayerID:          playerID,
	})
}

func (m *mockMarket) refreshEvent(listings, orders, pickups bool) events.Event {
	var p events.RefreshEvent
	if listings {
		l := append([]market.Listing{}, m.listings...)
		p.Listings = &l
	}
	if orders {
		o := append([]market.BuyOrder{}, m.orders...)
		p.BuyOrders = &o
	}
	if pickups {
		pk := append([]market.Pickup{}, m.pickups...)
		p.Pickups = &pk
	}
	return events.New(events.EventRefresh, p)
}

func notify(kind, msg string) events.Event {
	return events.New(events.EventNotification, events.NotificationEvent{Type: kind, Message: msg})
}

// handle applies one panel command and returns the pushes it causes.
func (m *mockMarket) handle(name events.CommandName, body []byte) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch name {
	case events.CmdRequestRefresh:
		return []events.Event{m.refreshEvent(true, true, true)}, nil

	case events.CmdClose:
		return []events.Event{events.New(events.EventClose, events.CloseEvent{})}, nil

	case events.CmdListItem:
		var b events.ListItemBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		if m.inventory[b.Item] < b.Quantity {
			return []events.Event{notify("error", "You don't have enough of that item")}, nil
		}
		m.inventory[b.Item] -= b.Quantity
		m.listings = append(m.listings, market.Listing{
			ID: m.id(), Item: b.Item, Quantity: b.Quantity, Price: b.Price, Seller: playerID, SellerName: playerName,
		})
		m.record(market.HistoryEntry{Type: market.HistoryListing, Item: b.Item, Quantity: b.Quantity, Price: b.Price, SellerName: playerName})
		return []events.Event{
			m.refreshEvent(true, false, false),
			events.New(events.EventInventoryItems, events.InventoryEvent{InventoryItems: m.inventoryItems()}),
			notify("success", fmt.Sprintf("Listed %dx %s", b.Quantity, label(b.Item))),
		}, nil

	case events.CmdCreateBuyOrder:
		var b events.CreateBuyOrderBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		if market.NewBlacklist(blacklist...).Contains(b.Item) {
			return []events.Event{notify("error", "This item cannot be ordered")}, nil
		}
		m.orders = append(m.orders, market.BuyOrder{
			ID: m.id(), Item: b.Item, Quantity: b.Quantity, Price: b.Price, Buyer: playerID, BuyerName: playerName,
		})
		m.record(market.HistoryEntry{Type: market.HistoryBuyOrder, Item: b.Item, Quantity: b.Quantity, Price: b.Price, BuyerName: playerName})
		return []events.Event{
			m.refreshEvent(false, true, false),
			notify("success", fmt.Sprintf("Buy order created for %dx %s", b.Quantity, label(b.Item))),
		}, nil

	case events.CmdPurchaseItem:
		var b events.PurchaseItemBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		i := m.listingIndex(b.ListingID)
		if i < 0 {
			return []events.Event{notify("error", "Listing no longer available")}, nil
		}
		l := &m.listings[i]
		qty := min(b.Quantity, l.Quantity)
		l.Quantity -= qty
		m.inventory[l.Item] += qty
		m.record(market.HistoryEntry{Type: market.HistoryPurchase, Item: l.Item, Quantity: qty, Price: l.Price,
			TotalPrice: l.Price * int64(qty), BuyerName: playerName, SellerName: l.SellerName})
		msg := fmt.Sprintf("Bought %dx %s", qty, label(l.Item))
		if l.Quantity == 0 {
			m.listings = append(m.listings[:i], m.listings[i+1:]...)
		}
		return []events.Event{
			m.refreshEvent(true, false, false),
			events.New(events.EventInventoryItems, events.InventoryEvent{InventoryItems: m.inventoryItems()}),
			notify("success", msg),
		}, nil

	case events.CmdCancelListing:
		var b events.CancelListingBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		i := m.listingIndex(b.ListingID)
		if i < 0 || m.listings[i].Seller != playerID {
			return []events.Event{notify("error", "Cannot cancel that listing")}, nil
		}
		l := m.listings[i]
		m.listings = append(m.listings[:i], m.listings[i+1:]...)
		m.inventory[l.Item] += l.Quantity
		m.record(market.HistoryEntry{Type: market.HistoryListingCancel, Item: l.Item, Quantity: l.Quantity, SellerName: playerName})
		return []events.Event{
			m.refreshEvent(true, false, false),
			events.New(events.EventInventoryItems, events.InventoryEvent{InventoryItems: m.inventoryItems()}),
		}, nil

	case events.CmdCancelBuyOrder:
		var b events.CancelBuyOrderBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		i := m.orderIndex(b.OrderID)
		if i < 0 || m.orders[i].Buyer != playerID {
			return []events.Event{notify("error", "Cannot cancel that buy order")}, nil
		}
		o := m.orders[i]
		m.orders = append(m.orders[:i], m.orders[i+1:]...)
		m.record(market.HistoryEntry{Type: market.HistoryBuyOrderCancel, Item: o.Item, Quantity: o.Quantity, BuyerName: playerName})
		return []events.Event{m.refreshEvent(false, true, false)}, nil

	case events.CmdFulfillBuyOrder:
		var b events.FulfillBuyOrderBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		i := m.orderIndex(b.OrderID)
		if i < 0 || m.orders[i].Buyer == playerID {
			return []events.Event{notify("error", "Cannot fulfill that buy order")}, nil
		}
		o := &m.orders[i]
		qty := min(b.Quantity, o.Quantity)
		if m.inventory[o.Item] < qty {
			return []events.Event{notify("error", "You don't have enough of that item")}, nil
		}
		m.inventory[o.Item] -= qty
		o.Quantity -= qty
		m.record(market.HistoryEntry{Type: market.HistoryFulfill, Item: o.Item, Quantity: qty, Price: o.Price,
			TotalPrice: o.Price * int64(qty), BuyerName: o.BuyerName, SellerName: playerName})
		msg := fmt.Sprintf("Fulfilled %dx %s", qty, label(o.Item))
		if o.Quantity == 0 {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
		}
		return []events.Event{
			m.refreshEvent(false, true, false),
			events.New(events.EventInventoryItems, events.InventoryEvent{InventoryItems: m.inventoryItems()}),
			notify("success", msg),
		}, nil

	case events.CmdPickupOrder:
		var b events.PickupOrderBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		for i, p := range m.pickups {
			if p.ID != b.PickupID {
				continue
			}
			m.pickups = append(m.pickups[:i], m.pickups[i+1:]...)
			m.inventory[p.Item] += p.Quantity
			return []events.Event{
				events.New(events.EventPickups, events.PickupsEvent{Pickups: append([]market.Pickup{}, m.pickups...)}),
				events.New(events.EventInventoryItems, events.InventoryEvent{InventoryItems: m.inventoryItems()}),
				notify("success", fmt.Sprintf("Picked up %dx %s", p.Quantity, label(p.Item))),
			}, nil
		}
		return []events.Event{notify("error", "Pickup not found")}, nil

	case events.CmdGetHistory:
		var b events.GetHistoryBody
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		return []events.Event{events.New(events.EventHistory, events.HistoryEvent{History: m.queryHistory(b.Filters)})}, nil
	}

	return nil, fmt.Errorf("unknown command %q", name)
}

func (m *mockMarket) listingIndex(id int64) int {
	for i, l := range m.listings {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (m *mockMarket) orderIndex(id int64) int {
	for i, o := range m.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (m *mockMarket) queryHistory(f events.HistoryFilters) []market.HistoryEntry {
	search := strings.ToLower(f.Search)
	out := []market.HistoryEntry{}
	for _, e := range m.history {
		if f.Type != "" && string(e.Type) != f.Type {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(label(e.Item)), search) &&
			!strings.Contains(strings.ToLower(e.BuyerName), search) &&
			!strings.Contains(strings.ToLower(e.SellerName), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// tick lets NPCs trade: new listings appear and the player's buy orders
// sometimes get fulfilled into pickups.
func (m *mockMarket) tick() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pushes []events.Event

	if rand.Float64() < 0.3 {
		npc := npcs[rand.Intn(len(npcs))]
		item := catalog[rand.Intn(len(catalog)-1)] // never the blacklisted money bag
		m.listings = append(m.listings, market.Listing{
			ID: m.id(), Item: item.Name, Quantity: 1 + rand.Intn(5), Price: int64(5 + rand.Intn(200)),
			Seller: npc.id, SellerName: npc.name,
		})
		pushes = append(pushes, m.refreshEvent(true, false, false))
	}

	for i := 0; i < len(m.orders); i++ {
		o := &m.orders[i]
		if o.Buyer != playerID || rand.Float64() >= 0.1 {
			continue
		}
		npc := npcs[rand.Intn(len(npcs))]
		m.pickups = append(m.pickups, market.Pickup{
			ID: m.id(), Item: o.Item, Quantity: o.Quantity, Price: o.Price, TotalPrice: o.Price * int64(o.Quantity),
			SellerName: npc.name, FulfilledTimestamp: time.Now().Unix(),
		})
		m.record(market.HistoryEntry{Type: market.HistoryFulfill, Item: o.Item, Quantity: o.Quantity, Price: o.Price,
			TotalPrice: o.Price * int64(o.Quantity), BuyerName: playerName, SellerName: npc.name})
		m.orders = append(m.orders[:i], m.orders[i+1:]...)
		i--
		pushes = append(pushes,
			m.refreshEvent(false, true, true),
			notify("info", "One of your buy orders was fulfilled"),
		)
	}

	return pushes
}

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	mk := newMockMarket()
	srv := fanout.NewServer()
	srv.Welcome = func() []events.Event { return []events.Event{mk.openEvent()} }

	mux := srv.Handler()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		name := events.CommandName(strings.TrimPrefix(r.URL.Path, "/"))
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		pushes, err := mk.handle(name, body)
		if err != nil {
			telemetry.Warnf("host_mock: %s: %v", name, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		telemetry.Infof("host_mock: %s %s -> %d pushes", name, body, len(pushes))
		for _, evt := range pushes {
			srv.Broadcast(evt)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"ok"`))
	})

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for _, evt := range mk.tick() {
				srv.Broadcast(evt)
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.MockHostPort)
	fmt.Fprintf(os.Stderr, "Host mock listening on %s\n", addr)
	fmt.Fprintf(os.Stderr, "  Push:     ws://localhost%s/ws\n", addr)
	fmt.Fprintf(os.Stderr, "  Commands: http://localhost%s/{command}\n", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
