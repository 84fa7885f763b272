package tools

import (
	"context"
	"errors"
	"testing"

	billdesk "github.com/bec-bridge/billdesk-voice"
	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordNotifier struct {
	notes []*billdesk.Notification
	fail  error
}

func (n *recordNotifier) Publish(_ context.Context, note *billdesk.Notification) error {
	if n.fail != nil {
		return n.fail
	}
	n.notes = append(n.notes, note)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordNotifier) {
	t.Helper()
	notifier := &recordNotifier{}
	session, err := billdesk.NewSession(billdesk.DefaultCatalogue(), notifier, shared.NewNopLogger())
	require.NoError(t, err)
	dispatcher, err := NewDispatcher(session, shared.NewNopLogger())
	require.NoError(t, err)
	return dispatcher, notifier
}

func TestNewDispatcher(t *testing.T) {
	notifier := &recordNotifier{}
	session, err := billdesk.NewSession(billdesk.DefaultCatalogue(), notifier, shared.NewNopLogger())
	require.NoError(t, err)

	_, err = NewDispatcher(nil, shared.NewNopLogger())
	assert.ErrorIs(t, err, shared.ErrNoSession)

	_, err = NewDispatcher(session, nil)
	assert.ErrorIs(t, err, shared.ErrNoLogger)
}

func TestDispatchTools(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		args     string
		want     string
		wantNote billdesk.Action
	}{
		{
			name: "get pending fees",
			tool: "get_pending_fees",
			want: "4 pending fees",
		},
		{
			name: "get fee details",
			tool: "get_fee_details",
			args: `{"fee_name": "hostel"}`,
			want: "Hostel Fee",
		},
		{
			name: "get paid fees",
			tool: "get_paid_fees",
			want: "haven't paid any fees",
		},
		{
			name:     "select fee",
			tool:     "select_fee",
			args:     `{"fee_name": "tuition"}`,
			want:     "Tuition Fee",
			wantNote: billdesk.ActionSelectFee,
		},
		{
			name:     "select payment method",
			tool:     "select_payment_method",
			args:     `{"method": "upi"}`,
			want:     "UPI",
			wantNote: billdesk.ActionSelectPaymentMethod,
		},
		{
			name: "get total selected",
			tool: "get_total_selected",
			want: "haven't selected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, notifier := newTestDispatcher(t)
			reply, err := dispatcher.Dispatch(context.Background(), tt.tool, tt.args)
			require.NoError(t, err)
			assert.Contains(t, reply, tt.want)
			if tt.wantNote != "" {
				require.NotEmpty(t, notifier.notes)
				assert.Equal(t, tt.wantNote, notifier.notes[len(notifier.notes)-1].Action)
			} else {
				assert.Empty(t, notifier.notes)
			}
		})
	}
}

func TestDispatchSelectThenDeselect(t *testing.T) {
	dispatcher, notifier := newTestDispatcher(t)
	ctx := context.Background()

	_, err := dispatcher.Dispatch(ctx, "select_fee", `{"fee_name": "hostel"}`)
	require.NoError(t, err)
	reply, err := dispatcher.Dispatch(ctx, "deselect_fee", `{"fee_name": "hostel"}`)
	require.NoError(t, err)
	assert.Contains(t, reply, "deselected the Hostel Fee")
	require.Len(t, notifier.notes, 2)
	assert.Equal(t, billdesk.ActionDeselectFee, notifier.notes[1].Action)
}

func TestDispatchUnknownTool(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	_, err := dispatcher.Dispatch(context.Background(), "transfer_funds", "")
	assert.ErrorIs(t, err, shared.ErrUnknownTool)
}

func TestDispatchBadArguments(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)
	_, err := dispatcher.Dispatch(context.Background(), "select_fee", `{"fee_name": `)
	assert.Error(t, err)
}

func TestDispatchDeliveryFailure(t *testing.T) {
	dispatcher, notifier := newTestDispatcher(t)
	notifier.fail = errors.New("bridge down")
	_, err := dispatcher.Dispatch(context.Background(), "select_fee", `{"fee_name": "tuition"}`)
	assert.ErrorContains(t, err, "bridge down")
}

func TestDefSchemas(t *testing.T) {
	defs := Defs()
	require.Len(t, defs, 10)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"get_pending_fees", "get_fee_details", "get_paid_fees",
		"select_fee", "deselect_fee", "select_all_fees",
		"select_payment_method", "connect_wallet", "initiate_payment",
		"get_total_selected",
	}, names)

	schemas := Schemas()
	require.Len(t, schemas, 10)
	for i, schema := range schemas {
		assert.Equal(t, "function", schema["type"])
		assert.Equal(t, defs[i].Name, schema["name"])
		params, ok := schema["parameters"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "object", params["type"])
	}

	withParam := defs[1].Schema()
	params := withParam["parameters"].(map[string]any)
	assert.Equal(t, []string{"fee_name"}, params["required"])
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, "fee_name")
}
