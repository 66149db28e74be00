// inspect_journal prints host frames captured by the inbound journal, and can
// replay them through a fresh panel session to reproduce what the player saw.
//
// Usage:
//
//	go run ./cmd/inspect_journal [-action refresh] [-contains pistol] [-n 20] [-pretty]
//	go run ./cmd/inspect_journal -replay
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/charleschow/ns-market/internal/config"
	"github.com/charleschow/ns-market/internal/core/display"
	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/fanout"
	"github.com/charleschow/ns-market/internal/journal"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.JournalPath, "path to journal database")
	action := flag.String("action", "", "only frames with this action")
	contains := flag.String("contains", "", "substring to search for in the raw frame")
	n := flag.Int("n", 10, "most recent N frames (0 = all)")
	pretty := flag.Bool("pretty", false, "pretty-print JSON")
	replay := flag.Bool("replay", false, "apply frames to a fresh session and render it")
	flag.Parse()

	store, err := journal.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	entries, err := store.Query(context.Background(), journal.Filter{Action: *action, Contains: *contains, Limit: *n})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("(no frames found)")
		return
	}

	if *replay {
		replayEntries(entries)
		return
	}

	for _, e := range entries {
		raw := string(e.Raw)
		if *pretty {
			var buf bytes.Buffer
			if err := json.Indent(&buf, e.Raw, "", "  "); err == nil {
				raw = buf.String()
			}
		}
		fmt.Printf("--- id=%d action=%s received=%s bytes=%d ---\n%s\n\n",
			e.ID, e.Action, e.Received.Format("2006-01-02 15:04:05.000"), len(e.Raw), raw)
	}
	fmt.Printf("(%d frames)\n", len(entries))
}

// replayEntries runs frames through a session on this goroutine. A replay
// that starts mid-session shows nothing until the first open frame.
func replayEntries(entries []journal.Entry) {
	s := session.New(config.DefaultPanelSettings(), nil)
	obs := display.NewObserver(os.Stdout)
	s.OnChange(func(c session.Change) { obs.OnPanelEvent(s, c) })

	applied := 0
	for _, e := range entries {
		evt, err := fanout.UnmarshalEvent(e.Raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "id=%d: %v\n", e.ID, err)
			continue
		}
		fmt.Printf("=== id=%d %s ===\n", e.ID, e.Action)
		if err := s.Handle(evt); err != nil {
			fmt.Fprintf(os.Stderr, "id=%d: %v\n", e.ID, err)
			continue
		}
		applied++
	}
	fmt.Printf("(replayed %d of %d frames, open=%v)\n", applied, len(entries), s.IsOpen())
}
