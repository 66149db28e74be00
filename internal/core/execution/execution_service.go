package execution

import (
	"context"
	"sync"
	"time"

	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const defaultTimeout = 5 * time.Second

// Service subscribes to command events and forwards them to the host.
//
// Sending is async: the HTTP call runs on a short-lived goroutine so it
// never blocks the panel's event loop. Commands are fire-and-forget. A
// failed send is logged and counted, never retried and never reported back
// to the session; the host's next push is the only feedback.
type Service struct {
	sender  CommandSender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewService(bus *events.Bus, sender CommandSender, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Service{
		sender:  sender,
		timeout: timeout,
	}

	bus.Subscribe(events.EventCommand, s.onCommand)

	return s
}

// Emit publishes cmd on the bus. It is the session's Emitter.
func Emit(bus *events.Bus) func(events.Command) {
	return func(cmd events.Command) {
		bus.Publish(events.New(events.EventCommand, cmd))
	}
}

// onCommand runs on the publisher's goroutine via the synchronous bus.
func (s *Service) onCommand(evt events.Event) error {
	cmd, ok := evt.Payload.(events.Command)
	if !ok {
		return nil
	}
	s.wg.Add(1)
	go s.send(cmd)
	return nil
}

func (s *Service) send(cmd events.Command) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.sender.Send(ctx, cmd)
	elapsed := time.Since(start)
	telemetry.Metrics.SendLatency.Record(elapsed)

	if err != nil {
		telemetry.Metrics.CommandErrors.Inc()
		telemetry.Errorf("execution: %s failed after %s: %v", cmd.Name, elapsed, err)
		return
	}
	telemetry.Metrics.CommandsSent.Inc()
	telemetry.Debugf("execution: %s sent latency=%s", cmd.Name, elapsed)
}

// Wait blocks until every in-flight send has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
