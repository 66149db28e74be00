package refresh

import (
	"sync"
	"time"

	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const DefaultInterval = 5 * time.Second

// Panel is the part of PanelContext the poller needs.
type Panel interface {
	Send(fn func(*session.Session)) bool
}

// Poller asks the panel to request a refresh every interval. Whether a
// request actually goes out is decided on the panel's goroutine: only an
// open panel showing an auto-refreshing tab emits one.
type Poller struct {
	panel    Panel
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewPoller(panel Panel, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		panel:    panel,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start() {
	go p.loop()
	telemetry.Infof("refresh: started interval=%s", p.interval)
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Poller) tick() {
	p.panel.Send(func(s *session.Session) {
		if s.AutoRefresh() {
			telemetry.Debugf("refresh: requested for tab=%s", s.ActiveTab())
		}
	})
}
