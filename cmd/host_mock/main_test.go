package main

import (
	"encoding/json"
	"testing"

	"github.com/charleschow/ns-market/internal/events"
)

func mustBody(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestMockMarket_PurchaseClampsAndRemoves(t *testing.T) {
	m := newMockMarket()
	listing := m.listings[0] // one pistol

	pushes, err := m.handle(events.CmdPurchaseItem, mustBody(t, events.PurchaseItemBody{ListingID: listing.ID, Quantity: 3}))
	if err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 3 {
		t.Fatalf("pushes = %d, want 3", len(pushes))
	}
	if m.listingIndex(listing.ID) != -1 {
		t.Error("sold-out listing still present")
	}
	if m.inventory["weapon_pistol"] != 1 {
		t.Errorf("pistols = %d, want 1", m.inventory["weapon_pistol"])
	}
	if len(m.history) != 1 || m.history[0].Quantity != 1 {
		t.Errorf("history = %+v", m.history)
	}
}

func TestMockMarket_ListItemNeedsStock(t *testing.T) {
	m := newMockMarket()

	pushes, err := m.handle(events.CmdListItem, mustBody(t, events.ListItemBody{Item: "bandage", Quantity: 10, Price: 5}))
	if err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 1 || pushes[0].Type != events.EventNotification {
		t.Fatalf("pushes = %+v", pushes)
	}
	if m.inventory["bandage"] != 3 {
		t.Error("inventory changed on rejected listing")
	}
}

func TestMockMarket_CancelOnlyOwn(t *testing.T) {
	m := newMockMarket()
	foreign := m.orders[0].ID

	if _, err := m.handle(events.CmdCancelBuyOrder, mustBody(t, events.CancelBuyOrderBody{OrderID: foreign})); err != nil {
		t.Fatal(err)
	}
	if m.orderIndex(foreign) == -1 {
		t.Error("cancelled someone else's order")
	}
}

func TestMockMarket_HistoryFilter(t *testing.T) {
	m := newMockMarket()
	m.handle(events.CmdCreateBuyOrder, mustBody(t, events.CreateBuyOrderBody{Item: "bread", Quantity: 1, Price: 2}))
	m.handle(events.CmdListItem, mustBody(t, events.ListItemBody{Item: "water", Quantity: 1, Price: 2}))

	got := m.queryHistory(events.HistoryFilters{Type: "listing"})
	if len(got) != 1 || got[0].Item != "water" {
		t.Errorf("listing history = %+v", got)
	}
	got = m.queryHistory(events.HistoryFilters{Search: "BREAD"})
	if len(got) != 1 || got[0].Item != "bread" {
		t.Errorf("search history = %+v", got)
	}
}

func TestMockMarket_UnknownCommand(t *testing.T) {
	if _, err := newMockMarket().handle("bogus", []byte(`{}`)); err == nil {
		t.Error("expected error")
	}
}
