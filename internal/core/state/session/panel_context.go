package session

import (
	"context"
	"sync"
	"time"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const inboxSize = 256

// PanelObserver receives notifications when the session changes.
// Implementations run on the panel's goroutine, so they may read s directly
// but must not retain it.
type PanelObserver interface {
	OnPanelEvent(s *Session, change Change)
}

// PanelContext is the single owner of a Session.
//
// All reads and writes are serialized through an inbox channel drained by
// one goroutine, so Session needs no locks. Host pushes, the refresh poller
// and user input all go through Send or Do.
type PanelContext struct {
	session   *Session
	observers []PanelObserver

	inbox chan func()
	quit  chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func NewPanelContext(settings config.PanelSettings, emit Emitter) *PanelContext {
	pc := &PanelContext{
		inbox: make(chan func(), inboxSize),
		quit:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
	pc.session = New(settings, emit)
	pc.session.OnChange(pc.notify)
	go pc.run()
	return pc
}

// run executes queued closures one at a time. After Close it drains what
// is already queued and exits.
func (pc *PanelContext) run() {
	defer close(pc.stop)
	for {
		select {
		case fn := <-pc.inbox:
			fn()
		case <-pc.quit:
			for {
				select {
				case fn := <-pc.inbox:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Send enqueues fn to run on the panel's goroutine.
// Non-blocking: when the inbox is full the closure is dropped, counted and
// logged, and Send returns false.
func (pc *PanelContext) Send(fn func(*Session)) bool {
	select {
	case <-pc.quit:
		return false
	default:
	}
	select {
	case pc.inbox <- func() { fn(pc.session) }:
		return true
	default:
		telemetry.Metrics.InboxOverflows.Inc()
		telemetry.Warnf("panel: inbox full (cap=%d), dropping update", cap(pc.inbox))
		return false
	}
}

// Do runs fn on the panel's goroutine and waits for it to finish.
func (pc *PanelContext) Do(ctx context.Context, fn func(*Session)) error {
	done := make(chan struct{})
	ok := pc.Send(func(s *Session) {
		defer close(done)
		fn(s)
	})
	if !ok {
		select {
		case <-pc.quit:
			return ErrClosed
		default:
			return ErrBusy
		}
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-pc.stop:
		// the closure may have been queued after the final drain
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// HandleEvent is an events.Handler that applies a host push on the panel's
// goroutine.
func (pc *PanelContext) HandleEvent(evt events.Event) error {
	pc.Send(func(s *Session) {
		start := time.Now()
		if err := s.Handle(evt); err != nil {
			telemetry.Warnf("panel: %v", err)
			return
		}
		telemetry.Metrics.ApplyLatency.Record(time.Since(start))
	})
	return nil
}

// Subscribe registers HandleEvent for every inbound host action.
func (pc *PanelContext) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(events.InboundActions, pc.HandleEvent)
}

// AddObserver registers an observer. Must be called before the panel starts
// receiving events.
func (pc *PanelContext) AddObserver(o PanelObserver) {
	pc.observers = append(pc.observers, o)
}

// notify runs on the panel's goroutine.
func (pc *PanelContext) notify(change Change) {
	for _, o := range pc.observers {
		o.OnPanelEvent(pc.session, change)
	}
}

// Close stops accepting work, drains the inbox and waits for the goroutine.
func (pc *PanelContext) Close() {
	pc.once.Do(func() { close(pc.quit) })
	<-pc.stop
}
