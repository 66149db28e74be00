package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/core/state/store"
)

// Renderer formats session views as console text.
type Renderer struct {
	w   io.Writer
	now func() time.Time
}

func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, now: time.Now}
}

func header(b *strings.Builder, title string, count int) {
	fmt.Fprintf(b, "\n[%s  %d]\n%s\n", strings.ToUpper(title), count, dividerHeavy)
}

func (r *Renderer) Listings(s *session.Session) {
	rows := s.ListingsView()
	var b strings.Builder
	header(&b, "listings", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(&b, "  %s\n", EmptyState(store.Listings, s.Search(store.Listings) != ""))
	}
	for _, l := range rows {
		actions := "[buy]"
		if s.IsOwnListing(l) {
			actions += " [cancel]"
		}
		fmt.Fprintf(&b, "  #%-5d %-24s x%-5d Seller: %-16s %s each  Total: %s  %s\n",
			l.ID, s.ResolveLabel(l.Item), l.Quantity, ActorName(l.SellerName), Money(l.Price), Money(l.Total()), actions)
	}
	r.flush(&b)
}

func (r *Renderer) BuyOrders(s *session.Session) {
	rows := s.BuyOrdersView()
	var b strings.Builder
	header(&b, "buy orders", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(&b, "  %s\n", EmptyState(store.BuyOrders, s.Search(store.BuyOrders) != ""))
	}
	for _, o := range rows {
		action := "[fulfill]"
		if s.IsOwnBuyOrder(o) {
			action = "[cancel]"
		}
		fmt.Fprintf(&b, "  #%-5d %-24s x%-5d Buyer: %-17s %s each  Total: %s  %s\n",
			o.ID, s.ResolveLabel(o.Item), o.Quantity, ActorName(o.BuyerName), Money(o.Price), Money(o.Total()), action)
	}
	r.flush(&b)
}

func (r *Renderer) Pickups(s *session.Session) {
	rows := s.PickupsView()
	now := r.now()
	var b strings.Builder
	header(&b, "pickups", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(&b, "  %s\n", EmptyState(store.Pickups, s.Search(store.Pickups) != ""))
	}
	for _, p := range rows {
		fmt.Fprintf(&b, "  #%-5d %-24s x%-5d Seller: %-16s %s each  Total: %s  Fulfilled: %s  [pick up]\n",
			p.ID, s.ResolveLabel(p.Item), p.Quantity, ActorName(p.SellerName), Money(p.Price), Money(p.TotalPrice),
			Timestamp(p.FulfilledTimestamp, now))
	}
	r.flush(&b)
}

func (r *Renderer) History(s *session.Session) {
	rows := s.HistoryView()
	now := r.now()
	var b strings.Builder
	header(&b, "history", len(rows))
	if len(rows) == 0 {
		fmt.Fprintf(&b, "  %s\n", EmptyState(store.History, false))
	}
	for _, e := range rows {
		fmt.Fprintf(&b, "  %-20s %s\n  %-20s %s\n", HistoryTitle(e.Type), HistorySentence(e, s.Resolver()),
			"", Timestamp(e.Timestamp, now))
	}
	r.flush(&b)
}

// Inventory renders the sell form's item list, "Bread (3x)".
func (r *Renderer) Inventory(s *session.Session) {
	items := s.Inventory()
	var b strings.Builder
	header(&b, "inventory", len(items))
	for _, it := range items {
		label := it.Label
		if label == "" {
			label = it.Name
		}
		marker := " "
		if it.Name == s.SellItem() {
			marker = ">"
		}
		fmt.Fprintf(&b, "  %s %s (%dx)\n", marker, label, it.Count)
	}
	r.flush(&b)
}

func (r *Renderer) Notice(n session.Notice) {
	fmt.Fprintf(r.w, "[%s] %s\n", strings.ToUpper(n.Type), n.Message)
}

func (r *Renderer) flush(b *strings.Builder) {
	fmt.Fprintf(b, "%s\n", dividerLight)
	fmt.Fprint(r.w, b.String())
}
