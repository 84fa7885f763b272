package billdesk

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		note        *Notification
		wantAction  string
		wantPayload map[string]any
	}{
		{
			name:        "select fee",
			note:        &Notification{Action: ActionSelectFee, Payload: &SelectFeePayload{FeeId: "hostel"}},
			wantAction:  "SELECT_FEE",
			wantPayload: map[string]any{"feeId": "hostel"},
		},
		{
			name:        "deselect fee",
			note:        &Notification{Action: ActionDeselectFee, Payload: &DeselectFeePayload{FeeId: "tuition"}},
			wantAction:  "DESELECT_FEE",
			wantPayload: map[string]any{"feeId": "tuition"},
		},
		{
			name:        "payment method",
			note:        &Notification{Action: ActionSelectPaymentMethod, Payload: &SelectPaymentMethodPayload{Method: MethodUPI}},
			wantAction:  "SELECT_PAYMENT_METHOD",
			wantPayload: map[string]any{"method": "upi"},
		},
		{
			name:        "connect wallet",
			note:        &Notification{Action: ActionConnectWallet, Payload: &ConnectWalletPayload{}},
			wantAction:  "CONNECT_WALLET",
			wantPayload: map[string]any{},
		},
		{
			name: "initiate payment",
			note: &Notification{Action: ActionInitiatePayment, Payload: &InitiatePaymentPayload{
				FeeIds: []string{"hostel", "tuition"}, Method: MethodNetbanking,
			}},
			wantAction: "INITIATE_PAYMENT",
			wantPayload: map[string]any{
				"feeIds": []any{"hostel", "tuition"},
				"method": "netbanking",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := sonic.Marshal(tt.note)
			require.NoError(t, err)

			var raw map[string]any
			require.NoError(t, sonic.Unmarshal(data, &raw))
			assert.Equal(t, "VOICE_ACTION", raw["type"])
			assert.Equal(t, tt.wantAction, raw["action"])
			assert.Equal(t, tt.wantPayload, raw["payload"])
		})
	}
}
