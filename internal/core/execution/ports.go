package execution

import (
	"context"

	"github.com/charleschow/ns-market/internal/events"
)

// CommandSender delivers a command to the host. The response, if any, is
// not interpreted. Satisfied by *nui_http.Client.
type CommandSender interface {
	Send(ctx context.Context, cmd events.Command) error
}
