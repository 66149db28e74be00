package display

import (
	"fmt"
	"io"
	"os"

	"github.com/charleschow/ns-market/internal/core/state/session"
)

// Observer implements session.PanelObserver by printing the sections that
// changed. It runs on the panel's goroutine.
type Observer struct {
	r *Renderer
}

// NewObserver prints to w, or stderr when w is nil.
func NewObserver(w io.Writer) *Observer {
	if w == nil {
		w = os.Stderr
	}
	return &Observer{r: NewRenderer(w)}
}

func (o *Observer) OnPanelEvent(s *session.Session, change session.Change) {
	switch change {
	case session.ChangeOpened:
		o.r.Listings(s)
		o.r.BuyOrders(s)
		o.r.Pickups(s)
		o.r.Inventory(s)
	case session.ChangeClosed:
		fmt.Fprintln(o.r.w, "[CLOSED] marketplace hidden")
	case session.ChangeInventory:
		o.r.Inventory(s)
	case session.ChangeListings:
		// listings only redraw while visible
		if s.ActiveTab() == session.TabListings {
			o.r.Listings(s)
		}
	case session.ChangeBuyOrders:
		o.r.BuyOrders(s)
	case session.ChangePickups:
		o.r.Pickups(s)
	case session.ChangeHistory:
		o.r.History(s)
	case session.ChangeTab, session.ChangeSearch:
		o.renderTab(s)
	case session.ChangeNotification:
		o.r.Notice(s.LastNotice())
	}
}

func (o *Observer) renderTab(s *session.Session) {
	switch s.ActiveTab() {
	case session.TabListings:
		o.r.Listings(s)
	case session.TabBuyOrders:
		o.r.BuyOrders(s)
	case session.TabPickups:
		o.r.Pickups(s)
	case session.TabHistory:
		o.r.History(s)
	case session.TabSell:
		o.r.Inventory(s)
	}
}
