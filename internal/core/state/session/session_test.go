package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/core/state/store"
	"github.com/charleschow/ns-market/internal/core/view"
	"github.com/charleschow/ns-market/internal/events"
)

type recorder struct {
	cmds []events.Command
}

func (r *recorder) emit(c events.Command) { r.cmds = append(r.cmds, c) }

func (r *recorder) last(t *testing.T) events.Command {
	t.Helper()
	if len(r.cmds) == 0 {
		t.Fatal("no command emitted")
	}
	return r.cmds[len(r.cmds)-1]
}

const me = 7

func openPayload() events.OpenEvent {
	return events.OpenEvent{
		Listings: []market.Listing{
			{ID: 1, Item: "bread", Quantity: 4, Price: 10, Seller: me, SellerName: "Me"},
			{ID: 2, Item: "weapon_pistol", Quantity: 1, Price: 500, Seller: 9, SellerName: "Alice"},
		},
		BuyOrders: []market.BuyOrder{
			{ID: 10, Item: "water", Quantity: 3, Price: 2, Buyer: me, BuyerName: "Me"},
			{ID: 11, Item: "bread", Quantity: 5, Price: 8, Buyer: 9, BuyerName: "Alice"},
		},
		Pickups: []market.Pickup{
			{ID: 20, Item: "water", Quantity: 2, Price: 2, TotalPrice: 4, SellerName: "Bob"},
		},
		InventoryItems: []market.InventoryItem{
			{Name: "bread", Label: "Bread", Count: 3, Metadata: json.RawMessage(`{"quality":90}`)},
			{Name: "water", Label: "Water", Count: 10},
		},
		AllAvailableItems: []market.CatalogItem{
			{Name: "bread", Label: "Bread"},
			{Name: "water", Label: "Water"},
			{Name: "weapon_pistol", Label: "Pistol"},
			{Name: "ammo_9", Label: "Ammo"},
			{Name: "ammo_45", Label: "Ammo"},
		},
		PlayerID: me,
	}
}

func openSession(t *testing.T, mutate func(*events.OpenEvent)) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(config.DefaultPanelSettings(), rec.emit)
	p := openPayload()
	if mutate != nil {
		mutate(&p)
	}
	if err := s.Handle(events.New(events.EventOpen, p)); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, rec
}

func wantValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("errors.Is(err, ErrInvalidInput) = false")
	}
	if ve.Message != msg {
		t.Errorf("message = %q, want %q", ve.Message, msg)
	}
}

func TestHandleOpen(t *testing.T) {
	s, _ := openSession(t, nil)

	if !s.IsOpen() || s.PlayerID() != me {
		t.Fatalf("open=%v player=%d", s.IsOpen(), s.PlayerID())
	}
	if s.Store().Count(store.Listings) != 2 || s.Store().Count(store.BuyOrders) != 2 || s.Store().Count(store.Pickups) != 1 {
		t.Errorf("collections not loaded")
	}
	if s.Store().Count(store.History) != 0 {
		t.Errorf("history should start empty")
	}
	if got := s.ResolveLabel("bread"); got != "Bread" {
		t.Errorf("ResolveLabel(bread) = %q", got)
	}
	if got := s.ResolveLabel("weapon_pistol"); got != "Weapon Pistol" {
		t.Errorf("ResolveLabel(weapon_pistol) = %q, want fallback", got)
	}
}

func TestHandleOpen_ClearsPreviousHistory(t *testing.T) {
	s, _ := openSession(t, nil)
	_ = s.Handle(events.New(events.EventHistory, events.HistoryEvent{
		History: []market.HistoryEntry{{Type: market.HistoryPurchase, Item: "bread"}},
	}))
	if s.Store().Count(store.History) != 1 {
		t.Fatal("history not stored")
	}
	_ = s.Handle(events.New(events.EventOpen, openPayload()))
	if s.Store().Count(store.History) != 0 {
		t.Errorf("history survived reopen")
	}
}

func TestHandleRefresh_OnlyBuyOrders(t *testing.T) {
	s, _ := openSession(t, nil)
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	orders := []market.BuyOrder{{ID: 99, Item: "bread", Quantity: 1, Price: 1, Buyer: 3}}
	if err := s.Handle(events.New(events.EventRefresh, events.RefreshEvent{BuyOrders: &orders})); err != nil {
		t.Fatal(err)
	}

	if got := s.Store().BuyOrders(); len(got) != 1 || got[0].ID != 99 {
		t.Errorf("buy orders = %+v", got)
	}
	if s.Store().Count(store.Listings) != 2 || s.Store().Count(store.Pickups) != 1 {
		t.Errorf("listings/pickups changed by a buyOrders-only refresh")
	}
	if len(changes) != 1 || changes[0] != ChangeBuyOrders {
		t.Errorf("changes = %v", changes)
	}
}

func TestHandleRefresh_EmptyArrayClears(t *testing.T) {
	s, _ := openSession(t, nil)
	empty := []market.Listing{}
	_ = s.Handle(events.New(events.EventRefresh, events.RefreshEvent{Listings: &empty}))
	if s.Store().Count(store.Listings) != 0 {
		t.Errorf("explicit empty listings should clear")
	}
}

func TestHandleInventory_KeepsSelectionWhenStillHeld(t *testing.T) {
	s, _ := openSession(t, nil)
	s.SelectSellItem("bread")

	_ = s.Handle(events.New(events.EventInventoryItems, events.InventoryEvent{
		InventoryItems: []market.InventoryItem{{Name: "bread", Label: "Fresh Bread", Count: 1}},
	}))
	if s.SellItem() != "bread" {
		t.Errorf("selection dropped")
	}
	if got := s.ResolveLabel("bread"); got != "Fresh Bread" {
		t.Errorf("label = %q", got)
	}

	_ = s.Handle(events.New(events.EventInventoryItems, events.InventoryEvent{}))
	if s.SellItem() != "" {
		t.Errorf("selection kept for an item no longer held")
	}
	if got := s.ResolveLabel("bread"); got != "Bread" {
		t.Errorf("label after empty inventory = %q, want fallback", got)
	}
}

func TestHandleClose(t *testing.T) {
	s, rec := openSession(t, nil)
	_ = s.Handle(events.New(events.EventClose, events.CloseEvent{}))
	if s.IsOpen() || s.Store().Count(store.Listings) != 0 {
		t.Errorf("close did not reset")
	}
	if len(rec.cmds) != 0 {
		t.Errorf("host close must not echo a command")
	}
}

func TestHandleNotification(t *testing.T) {
	s, _ := openSession(t, nil)
	_ = s.Handle(events.New(events.EventNotification, events.NotificationEvent{Type: "success", Message: "Sold"}))
	if n := s.LastNotice(); n.Type != "success" || n.Message != "Sold" {
		t.Errorf("notice = %+v", n)
	}
}

func TestHandle_UnknownActionIgnored(t *testing.T) {
	s, _ := openSession(t, nil)
	if err := s.Handle(events.New(events.EventType("dance"), nil)); err != nil {
		t.Errorf("unknown action returned %v", err)
	}
}

func TestHandle_WrongPayload(t *testing.T) {
	s, _ := openSession(t, nil)
	if err := s.Handle(events.New(events.EventPickups, "nope")); err == nil {
		t.Error("expected payload error")
	}
}

func TestListItem(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		qty     int
		price   int64
		wantErr string
		wantQty int
	}{
		{"ok", "bread", 2, 15, "", 2},
		{"clamped to count", "bread", 5, 15, "", 3},
		{"missing item", "", 1, 1, msgFillAllFields, 0},
		{"zero quantity", "bread", 0, 1, msgFillAllFields, 0},
		{"zero price", "bread", 1, 0, msgFillAllFields, 0},
		{"negative quantity", "bread", -2, 1, msgQuantityMin, 0},
		{"negative price", "bread", 1, -5, msgPriceMin, 0},
		{"not held", "gold_bar", 1, 1, msgNotInInventory, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := openSession(t, nil)
			err := s.ListItem(tt.item, tt.qty, tt.price)
			if tt.wantErr != "" {
				wantValidation(t, err, tt.wantErr)
				if len(rec.cmds) != 0 {
					t.Errorf("command emitted on validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ListItem: %v", err)
			}
			cmd := rec.last(t)
			body := cmd.Body.(events.ListItemBody)
			if cmd.Name != events.CmdListItem || body.Item != tt.item || body.Quantity != tt.wantQty || body.Price != tt.price {
				t.Errorf("cmd = %+v", cmd)
			}
			if string(body.Metadata) != `{"quality":90}` {
				t.Errorf("metadata = %s", body.Metadata)
			}
		})
	}
}

func TestListItem_NothingHeld(t *testing.T) {
	for _, count := range []int{0, -1} {
		s, rec := openSession(t, func(p *events.OpenEvent) {
			p.InventoryItems = append(p.InventoryItems, market.InventoryItem{Name: "lockpick", Label: "Lockpick", Count: count})
		})
		wantValidation(t, s.ListItem("lockpick", 5, 10), msgNotInInventory)
		if len(rec.cmds) != 0 {
			t.Errorf("count %d: listItem emitted %+v", count, rec.cmds)
		}
		if got := s.ClampSellQuantity("lockpick", 5); got != 0 {
			t.Errorf("count %d: ClampSellQuantity = %d, want 0", count, got)
		}
	}
}

func TestListItem_MissingMetadataIsEmptyObject(t *testing.T) {
	s, rec := openSession(t, nil)
	if err := s.ListItem("water", 1, 1); err != nil {
		t.Fatal(err)
	}
	body := rec.last(t).Body.(events.ListItemBody)
	if string(body.Metadata) != `{}` {
		t.Errorf("metadata = %s", body.Metadata)
	}
}

func TestListItem_DoesNotMutateStore(t *testing.T) {
	s, _ := openSession(t, nil)
	before := s.Store().Count(store.Listings)
	_ = s.ListItem("bread", 1, 1)
	if s.Store().Count(store.Listings) != before {
		t.Errorf("listing added optimistically")
	}
}

func TestCreateBuyOrder(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		blacklist market.Blacklist
		wantErr   string
		wantItem  string
	}{
		{"label resolves", "pistol", market.Blacklist{}, "", "weapon_pistol"},
		{"padded label", "  Water ", market.Blacklist{}, "", "water"},
		{"duplicate label first wins", "ammo", market.Blacklist{}, "", "ammo_9"},
		{"partial label", "pis", market.Blacklist{}, "", "weapon_pistol"},
		{"blacklisted identifier", "pistol", market.NewBlacklist("WEAPON_PISTOL"), msgItemNotFound, ""},
		{"blacklisted label typed", "weapon_pistol", market.NewBlacklist("weapon_pistol"), msgCannotBeOrdered, ""},
		{"unknown", "xyzzy", market.Blacklist{}, msgItemNotFound, ""},
		{"blank", "   ", market.Blacklist{}, msgFillAllFields, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := openSession(t, func(p *events.OpenEvent) { p.BlacklistedItems = tt.blacklist })
			err := s.CreateBuyOrder(tt.label, 2, 50)
			if tt.wantErr != "" {
				wantValidation(t, err, tt.wantErr)
				if len(rec.cmds) != 0 {
					t.Errorf("command emitted: %+v", rec.cmds)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBuyOrder: %v", err)
			}
			body := rec.last(t).Body.(events.CreateBuyOrderBody)
			if body.Item != tt.wantItem || body.Quantity != 2 || body.Price != 50 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestCreateBuyOrder_SettingsBlacklistMerged(t *testing.T) {
	rec := &recorder{}
	settings := config.DefaultPanelSettings()
	settings.Blacklist = []string{"Pistol"}
	s := New(settings, rec.emit)
	_ = s.Handle(events.New(events.EventOpen, openPayload()))

	err := s.CreateBuyOrder("pistol", 1, 1)
	wantValidation(t, err, msgCannotBeOrdered)
}

func TestPurchaseItem(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		qty     int
		wantQty int
		wantErr string
	}{
		{"default one", 1, 0, 1, ""},
		{"within", 1, 3, 3, ""},
		{"clamped", 1, 9, 4, ""},
		{"gone", 404, 1, 0, msgListingGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := openSession(t, nil)
			err := s.PurchaseItem(tt.id, tt.qty)
			if tt.wantErr != "" {
				wantValidation(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			body := rec.last(t).Body.(events.PurchaseItemBody)
			if body.ListingID != tt.id || body.Quantity != tt.wantQty {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestOwnershipRules(t *testing.T) {
	tests := []struct {
		name    string
		op      func(*Session) error
		wantCmd events.CommandName
		wantErr string
	}{
		{"cancel own listing", func(s *Session) error { return s.CancelListing(1) }, events.CmdCancelListing, ""},
		{"cancel other listing", func(s *Session) error { return s.CancelListing(2) }, "", msgNotYours},
		{"cancel own order", func(s *Session) error { return s.CancelBuyOrder(10) }, events.CmdCancelBuyOrder, ""},
		{"cancel other order", func(s *Session) error { return s.CancelBuyOrder(11) }, "", msgNotYours},
		{"fulfil other order", func(s *Session) error { return s.FulfillBuyOrder(11, 2) }, events.CmdFulfillBuyOrder, ""},
		{"fulfil own order", func(s *Session) error { return s.FulfillBuyOrder(10, 1) }, "", msgOwnOrder},
		{"fulfil missing", func(s *Session) error { return s.FulfillBuyOrder(99, 1) }, "", msgOrderGone},
		{"pickup", func(s *Session) error { return s.PickupOrder(20) }, events.CmdPickupOrder, ""},
		{"pickup missing", func(s *Session) error { return s.PickupOrder(21) }, "", msgPickupGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := openSession(t, nil)
			err := tt.op(s)
			if tt.wantErr != "" {
				wantValidation(t, err, tt.wantErr)
				if len(rec.cmds) != 0 {
					t.Errorf("command emitted")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := rec.last(t).Name; got != tt.wantCmd {
				t.Errorf("command = %s, want %s", got, tt.wantCmd)
			}
		})
	}
}

func TestFulfillBuyOrder_Clamped(t *testing.T) {
	s, rec := openSession(t, nil)
	if err := s.FulfillBuyOrder(11, 50); err != nil {
		t.Fatal(err)
	}
	if body := rec.last(t).Body.(events.FulfillBuyOrderBody); body.Quantity != 5 || body.OrderID != 11 {
		t.Errorf("body = %+v", body)
	}
}

func TestSwitchTabAndAutoRefresh(t *testing.T) {
	s, rec := openSession(t, nil)

	s.SwitchTab(TabHistory)
	if len(rec.cmds) != 0 {
		t.Fatalf("history tab requested refresh")
	}
	if s.AutoRefresh() {
		t.Errorf("auto refresh on history tab")
	}

	s.SwitchTab(TabBuyOrders)
	if len(rec.cmds) != 1 || rec.cmds[0].Name != events.CmdRequestRefresh {
		t.Fatalf("cmds = %+v", rec.cmds)
	}
	if !s.AutoRefresh() || len(rec.cmds) != 2 {
		t.Errorf("auto refresh on buy orders tab did not emit")
	}

	s.Close()
	if s.AutoRefresh() {
		t.Errorf("auto refresh while closed")
	}
}

func TestClose_EmitsAndResets(t *testing.T) {
	s, rec := openSession(t, nil)
	s.Close()
	if rec.last(t).Name != events.CmdClose {
		t.Errorf("close not emitted")
	}
	if s.IsOpen() || s.Store().Count(store.BuyOrders) != 0 {
		t.Errorf("state not reset")
	}
	err := s.PurchaseItem(1, 1)
	wantValidation(t, err, msgClosed)
}

func TestSellHelpers(t *testing.T) {
	s, _ := openSession(t, nil)
	if got := s.SelectSellItem("bread"); got != 3 {
		t.Errorf("available = %d", got)
	}
	if got := s.SelectSellItem(""); got != 0 || s.SellItem() != "" {
		t.Errorf("empty selection = %d %q", got, s.SellItem())
	}
	tests := []struct {
		qty, want int
	}{
		{5, 3}, {2, 2}, {0, 1}, {-4, 1},
	}
	for _, tt := range tests {
		if got := s.ClampSellQuantity("bread", tt.qty); got != tt.want {
			t.Errorf("ClampSellQuantity(bread, %d) = %d, want %d", tt.qty, got, tt.want)
		}
	}
	if got := s.ClampSellQuantity("gold_bar", 2); got != 0 {
		t.Errorf("ClampSellQuantity(not held) = %d, want 0", got)
	}
}

func TestOrderTotal(t *testing.T) {
	if got := OrderTotal(3, 250); got != 750 {
		t.Errorf("OrderTotal = %d", got)
	}
	if got := OrderTotal(0, 250); got != 0 {
		t.Errorf("OrderTotal(0) = %d", got)
	}
}

func TestApplyHistoryFilters(t *testing.T) {
	s, rec := openSession(t, nil)
	err := s.ApplyHistoryFilters(view.HistoryQuery{Type: market.HistoryPurchase, Search: "  alice "})
	if err != nil {
		t.Fatal(err)
	}
	body := rec.last(t).Body.(events.GetHistoryBody)
	if body.Filters.Type != "purchase" || body.Filters.Search != "alice" {
		t.Errorf("filters = %+v", body.Filters)
	}

	_ = s.Handle(events.New(events.EventHistory, events.HistoryEvent{History: []market.HistoryEntry{
		{Type: market.HistoryPurchase, Item: "bread", BuyerName: "Alice", SellerName: "Bob"},
		{Type: market.HistoryListing, Item: "bread", SellerName: "Alice"},
		{Type: market.HistoryPurchase, Item: "water", BuyerName: "Carl", SellerName: "Dan"},
	}}))
	got := s.HistoryView()
	if len(got) != 1 || got[0].BuyerName != "Alice" {
		t.Errorf("history view = %+v", got)
	}

	err = s.ApplyHistoryFilters(view.HistoryQuery{Type: "refund"})
	wantValidation(t, err, msgUnknownType)
}

func TestSearchViews(t *testing.T) {
	s, _ := openSession(t, nil)
	s.SetSearch(store.Listings, "alice")
	if got := s.ListingsView(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("listings view = %+v", got)
	}

	s.SetSearch(store.BuyOrders, "WAT")
	if got := s.BuyOrdersView(); len(got) != 1 || got[0].ID != 10 {
		t.Errorf("buy orders view = %+v", got)
	}

	// a refresh re-renders with the active search
	orders := []market.BuyOrder{
		{ID: 30, Item: "water", Buyer: 1},
		{ID: 31, Item: "bread", Buyer: 1},
	}
	_ = s.Handle(events.New(events.EventRefresh, events.RefreshEvent{BuyOrders: &orders}))
	if got := s.BuyOrdersView(); len(got) != 1 || got[0].ID != 30 {
		t.Errorf("buy orders view after refresh = %+v", got)
	}
}

func TestRejectRaisesErrorNotice(t *testing.T) {
	s, _ := openSession(t, nil)
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })
	_ = s.ListItem("", 0, 0)
	if n := s.LastNotice(); n.Type != "error" || n.Message != msgFillAllFields {
		t.Errorf("notice = %+v", n)
	}
	if len(changes) != 1 || changes[0] != ChangeNotification {
		t.Errorf("changes = %v", changes)
	}
}
