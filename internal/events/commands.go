package events

import "encoding/json"

// CommandName is the host endpoint a command is delivered to.
type CommandName string

const (
	CmdRequestRefresh  CommandName = "requestRefresh"
	CmdClose           CommandName = "close"
	CmdListItem        CommandName = "listItem"
	CmdCreateBuyOrder  CommandName = "createBuyOrder"
	CmdPurchaseItem    CommandName = "purchaseItem"
	CmdCancelListing   CommandName = "cancelListing"
	CmdCancelBuyOrder  CommandName = "cancelBuyOrder"
	CmdFulfillBuyOrder CommandName = "fulfillBuyOrder"
	CmdPickupOrder     CommandName = "pickupOrder"
	CmdGetHistory      CommandName = "getHistory"
)

// Command is a fire-and-forget intent for the host. The panel never waits
// for, or correlates, a response.
type Command struct {
	Name CommandName
	Body any
}

// JSON encodes the command body. A nil body encodes as {}.
func (c Command) JSON() ([]byte, error) {
	if c.Body == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Body)
}

type EmptyBody struct{}

type ListItemBody struct {
	Item     string          `json:"item"`
	Quantity int             `json:"quantity"`
	Price    int64           `json:"price"`
	Metadata json.RawMessage `json:"metadata"`
}

type CreateBuyOrderBody struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type PurchaseItemBody struct {
	ListingID int64 `json:"listingId"`
	Quantity  int   `json:"quantity"`
}

type CancelListingBody struct {
	ListingID int64 `json:"listingId"`
}

type CancelBuyOrderBody struct {
	OrderID int64 `json:"orderId"`
}

type FulfillBuyOrderBody struct {
	OrderID  int64 `json:"orderId"`
	Quantity int   `json:"quantity"`
}

type PickupOrderBody struct {
	PickupID int64 `json:"pickupId"`
}

type HistoryFilters struct {
	Type   string `json:"type,omitempty"`
	Search string `json:"search,omitempty"`
}

type GetHistoryBody struct {
	Filters HistoryFilters `json:"filters"`
}
