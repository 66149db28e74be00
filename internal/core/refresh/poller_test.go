package refresh

import (
	"sync"
	"testing"
	"time"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/events"
)

// inlinePanel runs closures on the caller's goroutine under a lock.
type inlinePanel struct {
	mu sync.Mutex
	s  *session.Session
}

func (p *inlinePanel) Send(fn func(*session.Session)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.s)
	return true
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) emit(events.Command) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestPoller_OnlyOnAutoRefreshTabs(t *testing.T) {
	cmds := &counter{}
	s := session.New(config.DefaultPanelSettings(), cmds.emit)
	_ = s.Handle(events.New(events.EventOpen, events.OpenEvent{
		Listings: []market.Listing{{ID: 1, Item: "bread", Quantity: 1, Price: 1}},
		PlayerID: 1,
	}))
	panel := &inlinePanel{s: s}

	p := NewPoller(panel, time.Hour)
	p.tick()
	if got := cmds.value(); got != 1 {
		t.Fatalf("listings tab: commands = %d, want 1", got)
	}

	panel.Send(func(s *session.Session) { s.SwitchTab(session.TabHistory) })
	p.tick()
	if got := cmds.value(); got != 1 {
		t.Errorf("history tab: commands = %d, want 1", got)
	}

	panel.Send(func(s *session.Session) { s.Close() })
	before := cmds.value()
	p.tick()
	if got := cmds.value(); got != before {
		t.Errorf("closed panel requested refresh")
	}
}

func TestPoller_TicksUntilStopped(t *testing.T) {
	cmds := &counter{}
	s := session.New(config.DefaultPanelSettings(), cmds.emit)
	_ = s.Handle(events.New(events.EventOpen, events.OpenEvent{PlayerID: 1}))

	p := NewPoller(&inlinePanel{s: s}, 5*time.Millisecond)
	p.Start()
	deadline := time.Now().Add(time.Second)
	for cmds.value() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	if cmds.value() < 2 {
		t.Fatalf("commands = %d, want at least 2", cmds.value())
	}
	after := cmds.value()
	time.Sleep(20 * time.Millisecond)
	if cmds.value() != after {
		t.Errorf("poller kept ticking after Stop")
	}
}
