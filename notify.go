package billdesk

import (
	"context"

	"github.com/bytedance/sonic"
)

// Action names a UI-relevant state change forwarded to the frontend.
type Action string

const (
	ActionSelectFee           Action = "SELECT_FEE"
	ActionDeselectFee         Action = "DESELECT_FEE"
	ActionSelectPaymentMethod Action = "SELECT_PAYMENT_METHOD"
	ActionConnectWallet       Action = "CONNECT_WALLET"
	ActionInitiatePayment     Action = "INITIATE_PAYMENT"
)

// Payload carries the action-specific fields of a notification.
type Payload interface {
	Json() map[string]any
}

type SelectFeePayload struct {
	FeeId string
}

func (p *SelectFeePayload) Json() map[string]any {
	return map[string]any{"feeId": p.FeeId}
}

type DeselectFeePayload struct {
	FeeId string
}

func (p *DeselectFeePayload) Json() map[string]any {
	return map[string]any{"feeId": p.FeeId}
}

type SelectPaymentMethodPayload struct {
	Method PaymentMethod
}

func (p *SelectPaymentMethodPayload) Json() map[string]any {
	return map[string]any{"method": string(p.Method)}
}

type ConnectWalletPayload struct{}

func (p *ConnectWalletPayload) Json() map[string]any {
	return map[string]any{}
}

type InitiatePaymentPayload struct {
	FeeIds []string
	Method PaymentMethod
}

func (p *InitiatePaymentPayload) Json() map[string]any {
	return map[string]any{
		"feeIds": p.FeeIds,
		"method": string(p.Method),
	}
}

// Notification is the outbound envelope written to the UI channel.
type Notification struct {
	Action  Action
	Payload Payload
}

func (n *Notification) MarshalJSON() ([]byte, error) {
	payload := map[string]any{}
	if n.Payload != nil {
		payload = n.Payload.Json()
	}
	return sonic.Marshal(map[string]any{
		"type":    "VOICE_ACTION",
		"action":  string(n.Action),
		"payload": payload,
	})
}

// Notifier delivers notifications to the frontend. Publish must not return
// until delivery is confirmed or has failed; implementations are expected to
// preserve publish order within a session.
type Notifier interface {
	Publish(ctx context.Context, n *Notification) error
}
