package tools

import (
	"context"
	"fmt"

	billdesk "github.com/bec-bridge/billdesk-voice"
	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/bytedance/sonic"
)

// Args is the union of tool argument payloads; each tool uses at most one
// field.
type Args struct {
	FeeName string `json:"fee_name"`
	Method  string `json:"method"`
}

// Dispatcher maps a completed tool call onto the session state machine and
// returns the spoken reply for the model.
type Dispatcher struct {
	session *billdesk.Session
	logger  shared.LoggerAdapter
}

func NewDispatcher(session *billdesk.Session, logger shared.LoggerAdapter) (*Dispatcher, error) {
	if session == nil {
		return nil, shared.ErrNoSession
	}
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &Dispatcher{session: session, logger: logger}, nil
}

// Dispatch runs the named tool with its raw JSON arguments. A notification
// delivery failure propagates out; an unknown name wraps ErrUnknownTool.
func (d *Dispatcher) Dispatch(ctx context.Context, name, rawArgs string) (string, error) {
	var args Args
	if rawArgs != "" {
		if err := sonic.UnmarshalString(rawArgs, &args); err != nil {
			return "", fmt.Errorf("parsing arguments for %s: %w", name, err)
		}
	}
	switch name {
	case "get_pending_fees":
		return d.session.ListPending(ctx)
	case "get_fee_details":
		return d.session.DescribeFee(ctx, args.FeeName)
	case "get_paid_fees":
		return d.session.ListPaid(ctx)
	case "select_fee":
		return d.session.SelectFee(ctx, args.FeeName)
	case "deselect_fee":
		return d.session.DeselectFee(ctx, args.FeeName)
	case "select_all_fees":
		return d.session.SelectAllPending(ctx)
	case "select_payment_method":
		return d.session.SelectPaymentMethod(ctx, args.Method)
	case "connect_wallet":
		return d.session.ConnectWallet(ctx)
	case "initiate_payment":
		return d.session.InitiatePayment(ctx)
	case "get_total_selected":
		return d.session.TotalSelected(ctx)
	}
	return "", fmt.Errorf("%w: %s", shared.ErrUnknownTool, name)
}
