package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charleschow/ns-market/internal/core/market"
	"github.com/charleschow/ns-market/internal/core/state/session"
	"github.com/charleschow/ns-market/internal/core/state/store"
	"github.com/charleschow/ns-market/internal/core/view"
	"github.com/charleschow/ns-market/internal/telemetry"
)

// op runs on the panel goroutine and returns text to print, if any.
type op func(s *session.Session) (string, error)

type consoleCommand struct {
	usage   string
	minArgs int
	parse   func(args []string) (op, error)
}

var errUsage = errors.New("usage")

// atoi mirrors a form field: anything non-numeric reads as 0, which the
// session rejects as a missing field.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id %q: %w", s, errUsage)
	}
	return id, nil
}

func optQty(args []string, i int) int {
	if len(args) > i {
		return atoi(args[i])
	}
	return 1
}

func idOp(args []string, fn func(s *session.Session, id int64) error) (op, error) {
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return func(s *session.Session) (string, error) { return "", fn(s, id) }, nil
}

var tabCollections = map[string]store.Collection{
	"listings":   store.Listings,
	"buy-orders": store.BuyOrders,
	"pickups":    store.Pickups,
}

var consoleCommands = map[string]consoleCommand{
	"tab": {"tab <listings|buy-orders|sell|create-order|pickups|history>", 1, func(a []string) (op, error) {
		return func(s *session.Session) (string, error) {
			s.SwitchTab(session.Tab(a[0]))
			return "", nil
		}, nil
	}},
	"search": {"search <listings|buy-orders|pickups> [term...]", 1, func(a []string) (op, error) {
		c, ok := tabCollections[a[0]]
		if !ok {
			return nil, fmt.Errorf("unknown collection %q: %w", a[0], errUsage)
		}
		term := strings.Join(a[1:], " ")
		return func(s *session.Session) (string, error) {
			s.SetSearch(c, term)
			return "", nil
		}, nil
	}},
	"refresh": {"refresh", 0, func([]string) (op, error) {
		return func(s *session.Session) (string, error) { return "", s.RequestRefresh() }, nil
	}},
	"close": {"close", 0, func([]string) (op, error) {
		return func(s *session.Session) (string, error) {
			s.Close()
			return "", nil
		}, nil
	}},
	"select": {"select <item>", 1, func(a []string) (op, error) {
		return func(s *session.Session) (string, error) {
			return fmt.Sprintf("available: %d", s.SelectSellItem(a[0])), nil
		}, nil
	}},
	"sell": {"sell <item> <quantity> <price>", 3, func(a []string) (op, error) {
		return func(s *session.Session) (string, error) {
			return "", s.ListItem(a[0], atoi(a[1]), int64(atoi(a[2])))
		}, nil
	}},
	"order": {"order <quantity> <price> <item label...>", 3, func(a []string) (op, error) {
		label := strings.Join(a[2:], " ")
		return func(s *session.Session) (string, error) {
			return "", s.CreateBuyOrder(label, atoi(a[0]), int64(atoi(a[1])))
		}, nil
	}},
	"total": {"total <quantity> <price>", 2, func(a []string) (op, error) {
		return func(*session.Session) (string, error) {
			return fmt.Sprintf("total: %d", session.OrderTotal(atoi(a[0]), int64(atoi(a[1])))), nil
		}, nil
	}},
	"suggest": {"suggest <text...>", 1, func(a []string) (op, error) {
		text := strings.Join(a, " ")
		return func(s *session.Session) (string, error) {
			return strings.Join(s.Suggest(text), "\n"), nil
		}, nil
	}},
	"buy": {"buy <listing id> [quantity]", 1, func(a []string) (op, error) {
		qty := optQty(a, 1)
		return idOp(a, func(s *session.Session, id int64) error { return s.PurchaseItem(id, qty) })
	}},
	"cancel-listing": {"cancel-listing <listing id>", 1, func(a []string) (op, error) {
		return idOp(a, (*session.Session).CancelListing)
	}},
	"cancel-order": {"cancel-order <order id>", 1, func(a []string) (op, error) {
		return idOp(a, (*session.Session).CancelBuyOrder)
	}},
	"fulfill": {"fulfill <order id> [quantity]", 1, func(a []string) (op, error) {
		qty := optQty(a, 1)
		return idOp(a, func(s *session.Session, id int64) error { return s.FulfillBuyOrder(id, qty) })
	}},
	"pickup": {"pickup <pickup id>", 1, func(a []string) (op, error) {
		return idOp(a, (*session.Session).PickupOrder)
	}},
	"history": {"history <all|type> [search...]", 1, func(a []string) (op, error) {
		var q view.HistoryQuery
		if a[0] != "all" {
			q.Type = market.HistoryType(a[0])
		}
		q.Search = strings.Join(a[1:], " ")
		return func(s *session.Session) (string, error) { return "", s.ApplyHistoryFilters(q) }, nil
	}},
}

func parseLine(line string) (op, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if fields[0] == "help" {
		return func(*session.Session) (string, error) { return helpText(), nil }, nil
	}
	cmd, ok := consoleCommands[fields[0]]
	if !ok {
		return nil, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.minArgs {
		return nil, fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	fn, err := cmd.parse(args)
	if err != nil {
		return nil, fmt.Errorf("%v (%s)", err, cmd.usage)
	}
	return fn, nil
}

func helpText() string {
	lines := make([]string, 0, len(consoleCommands))
	for _, c := range consoleCommands {
		lines = append(lines, "  "+c.usage)
	}
	sort.Strings(lines)
	return "commands:\n" + strings.Join(lines, "\n")
}

// Console reads player input line by line and runs it against the panel.
type Console struct {
	panel *session.PanelContext
	out   io.Writer
}

func NewConsole(panel *session.PanelContext, out io.Writer) *Console {
	return &Console{panel: panel, out: out}
}

// Run blocks until in is exhausted or ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		c.exec(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		telemetry.Warnf("console: read: %v", err)
	}
}

func (c *Console) exec(ctx context.Context, line string) {
	fn, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	if fn == nil {
		return
	}

	type result struct {
		out string
		err error
	}
	// buffered so a closure that runs after ctx is cancelled never blocks
	resCh := make(chan result, 1)
	if err := c.panel.Do(ctx, func(s *session.Session) {
		out, err := fn(s)
		resCh <- result{out, err}
	}); err != nil {
		fmt.Fprintf(c.out, "panel unavailable: %v\n", err)
		return
	}
	res := <-resCh
	out, opErr := res.out, res.err
	// validation failures already reach the player as an error notice
	if opErr != nil && !errors.Is(opErr, session.ErrInvalidInput) {
		fmt.Fprintln(c.out, opErr)
	}
	if out != "" {
		fmt.Fprintln(c.out, out)
	}
}
