package process

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charleschow/ns-market/internal/adapters/outbound/nui_http"
	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/display"
	"github.com/charleschow/ns-market/internal/core/execution"
	"github.com/charleschow/ns-market/internal/core/refresh"
	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/fanout"
	"github.com/charleschow/ns-market/internal/journal"
	"github.com/charleschow/ns-market/internal/telemetry"
)

// Options lets callers swap the terminal for something else.
type Options struct {
	In  io.Reader // player input, default stdin
	Out io.Writer // panel output, default stderr
}

// Run boots the panel controller. It wires the shared infrastructure
// (host push client, command client, execution service, refresh poller,
// journal) around one PanelContext and blocks until SIGINT/SIGTERM.
func Run(opts Options) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting %s panel", cfg.ResourceName)

	settings, err := config.LoadPanelSettings(cfg.PanelConfigPath)
	if err != nil {
		telemetry.Errorf("Failed to load panel settings: %v", err)
		os.Exit(1)
	}

	bus := events.NewBus()

	// ── Commands → host ────────────────────────────────────────
	hostClient := nui_http.NewClient(cfg.HostBaseURL, cfg.CommandRatePerSec, cfg.CommandTimeout)
	execSvc := execution.NewService(bus, hostClient, cfg.CommandTimeout)

	// ── Panel ──────────────────────────────────────────────────
	panel := session.NewPanelContext(settings, execution.Emit(bus))
	panel.AddObserver(display.NewObserver(opts.Out))
	panel.Subscribe(bus)

	bus.Subscribe(events.EventHostStatus, func(evt events.Event) error {
		st, ok := evt.Payload.(events.HostStatusEvent)
		if !ok {
			return nil
		}
		if st.Connected {
			telemetry.Infof("[Host] push feed LIVE (%s)", cfg.HostWSURL)
		} else {
			telemetry.Warnf("[Host] push feed DOWN, panel shows last known state")
		}
		return nil
	})

	// ── Journal ────────────────────────────────────────────────
	var recorder fanout.Recorder
	var journalStore *journal.Store
	if cfg.JournalEnabled {
		journalStore, err = journal.Open(cfg.JournalPath)
		if err != nil {
			telemetry.Warnf("Journal disabled: %v", err)
		} else {
			recorder = journalStore
		}
	}

	// ── Host push feed ─────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pushClient := fanout.NewClient(cfg.HostWSURL, bus, recorder)
	go pushClient.ConnectWithRetry(ctx)

	poller := refresh.NewPoller(panel, cfg.RefreshInterval)
	poller.Start()

	go NewConsole(panel, opts.Out).Run(ctx, opts.In)

	telemetry.Infof("Waiting for the host to open the panel (%s), type help for commands", cfg.HostWSURL)

	// ── Shutdown ───────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down panel...")
	cancel()
	poller.Stop()
	panel.Close()
	execSvc.Wait()
	if journalStore != nil {
		journalStore.Close()
	}

	telemetry.Infof("Shutdown complete  frames=%d  parse_errors=%d  applied=%d  commands=%d  sent=%d  errors=%d  rejected=%d  overflows=%d",
		telemetry.Metrics.FramesReceived.Value(),
		telemetry.Metrics.FrameParseErrors.Value(),
		telemetry.Metrics.EventsApplied.Value(),
		telemetry.Metrics.CommandsEmitted.Value(),
		telemetry.Metrics.CommandsSent.Value(),
		telemetry.Metrics.CommandErrors.Value(),
		telemetry.Metrics.ValidationErrors.Value(),
		telemetry.Metrics.InboxOverflows.Value(),
	)
	telemetry.Infof("Latency  apply_p50=%s apply_p99=%s  send_p50=%s send_p99=%s",
		telemetry.Metrics.ApplyLatency.P50(), telemetry.Metrics.ApplyLatency.P99(),
		telemetry.Metrics.SendLatency.P50(), telemetry.Metrics.SendLatency.P99())
}
