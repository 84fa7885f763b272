package billdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	notes []*Notification
	fail  error
}

func (s *stubNotifier) Publish(ctx context.Context, n *Notification) error {
	if s.fail != nil {
		return s.fail
	}
	s.notes = append(s.notes, n)
	return nil
}

func (s *stubNotifier) actions() []Action {
	out := make([]Action, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Action)
	}
	return out
}

func newTestSession(t *testing.T) (*Session, *stubNotifier) {
	t.Helper()
	notifier := &stubNotifier{}
	session, err := NewSession(DefaultCatalogue(), notifier, shared.NewNopLogger())
	require.NoError(t, err)
	return session, notifier
}

func TestNewSessionValidation(t *testing.T) {
	catalogue := DefaultCatalogue()
	logger := shared.NewNopLogger()

	_, err := NewSession(nil, &stubNotifier{}, logger)
	assert.ErrorIs(t, err, shared.ErrNoCatalogue)
	_, err = NewSession(catalogue, nil, logger)
	assert.ErrorIs(t, err, shared.ErrNoNotifier)
	_, err = NewSession(catalogue, &stubNotifier{}, nil)
	assert.ErrorIs(t, err, shared.ErrNoLogger)

	s, err := NewSession(catalogue, &stubNotifier{}, logger)
	require.NoError(t, err)
	assert.Equal(t, MethodCrypto, s.Method())
	assert.False(t, s.WalletConnected())
	assert.Empty(t, s.Selected())
}

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		input string
		want  PaymentMethod
		ok    bool
	}{
		{input: "crypto", want: MethodCrypto, ok: true},
		{input: "Ethereum", want: MethodCrypto, ok: true},
		{input: "METAMASK", want: MethodCrypto, ok: true},
		{input: "eth", want: MethodCrypto, ok: true},
		{input: "upi", want: MethodUPI, ok: true},
		{input: "bank", want: MethodNetbanking, ok: true},
		{input: "Net Banking", want: MethodNetbanking, ok: true},
		{input: "netbanking", want: MethodNetbanking, ok: true},
		{input: " cash ", want: MethodCash, ok: true},
		{input: "cheque", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizePaymentMethod(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestListPending(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.ListPending(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "4 pending fees")
	assert.Contains(t, reply, "₹140,000")
	assert.Empty(t, notifier.notes)
}

func TestListPendingAllPaid(t *testing.T) {
	catalogue, err := NewCatalogue([]FeeRecord{
		{Id: "a", Name: "A Fee", Total: 10, Status: FeeStatusPaid, Breakdown: []ChargeLine{{Category: "x", Amount: 10}}},
	})
	require.NoError(t, err)
	session, err := NewSession(catalogue, &stubNotifier{}, shared.NewNopLogger())
	require.NoError(t, err)

	reply, err := session.ListPending(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "no pending fees")
}

func TestDescribeFeeContainsTotalAndBreakdown(t *testing.T) {
	session, _ := newTestSession(t)
	for _, fee := range DefaultCatalogue().Pending() {
		reply, err := session.DescribeFee(context.Background(), fee.Name)
		require.NoError(t, err)
		assert.Contains(t, reply, Rupees(fee.Total))
		assert.Contains(t, reply, fee.DueDate)
		for _, b := range fee.Breakdown {
			assert.Contains(t, reply, b.Category)
			assert.Contains(t, reply, Rupees(b.Amount))
		}
	}
}

func TestDescribeFeeNotFound(t *testing.T) {
	session, _ := newTestSession(t)
	reply, err := session.DescribeFee(context.Background(), "parking")
	require.NoError(t, err)
	assert.Contains(t, reply, "parking")
	assert.Contains(t, reply, "Tuition, Development, Hostel, and Examination")
}

func TestListPaidNonePaid(t *testing.T) {
	session, _ := newTestSession(t)
	reply, err := session.ListPaid(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "haven't paid any fees yet")
}

func TestSelectFeeIdempotent(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "tuition")
	require.NoError(t, err)
	_, err = session.SelectFee(ctx, "tuition")
	require.NoError(t, err)

	assert.Equal(t, []string{"tuition"}, session.Selected())
	// Re-selecting still notifies: delivery is at-least-once.
	assert.Equal(t, []Action{ActionSelectFee, ActionSelectFee}, notifier.actions())
}

func TestSelectFeeNotFound(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.SelectFee(context.Background(), "gym")
	require.NoError(t, err)
	assert.Contains(t, reply, "couldn't find")
	assert.Empty(t, notifier.notes)
	assert.Empty(t, session.Selected())
}

func TestDeselectFee(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "tuition")
	require.NoError(t, err)
	_, err = session.SelectFee(ctx, "hostel")
	require.NoError(t, err)

	reply, err := session.DeselectFee(ctx, "tuition")
	require.NoError(t, err)
	assert.Contains(t, reply, "deselected the Tuition Fee")
	assert.Equal(t, []string{"hostel"}, session.Selected())
	assert.Equal(t, ActionDeselectFee, notifier.notes[len(notifier.notes)-1].Action)
}

func TestDeselectFeeNotFoundEmitsNothing(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.DeselectFee(context.Background(), "gym")
	require.NoError(t, err)
	assert.Contains(t, reply, "couldn't find")
	assert.Empty(t, notifier.notes)
}

func TestSelectAllPendingThenTotalSelected(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	reply, err := session.SelectAllPending(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "all 4 pending fees")
	assert.Contains(t, reply, "₹140,000")

	// One SELECT_FEE per pending fee, in catalogue order.
	require.Len(t, notifier.notes, 4)
	wantIds := []string{"tuition", "development", "hostel", "examination"}
	for i, n := range notifier.notes {
		require.Equal(t, ActionSelectFee, n.Action)
		payload, ok := n.Payload.(*SelectFeePayload)
		require.True(t, ok)
		assert.Equal(t, wantIds[i], payload.FeeId)
	}

	total, err := session.TotalSelected(ctx)
	require.NoError(t, err)
	assert.Contains(t, total, "₹140,000")
}

func TestSelectAllPendingReplacesSelection(t *testing.T) {
	session, _ := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "hostel")
	require.NoError(t, err)
	_, err = session.SelectAllPending(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"tuition", "development", "hostel", "examination"}, session.Selected())
}

func TestTotalSelectedEmpty(t *testing.T) {
	session, _ := newTestSession(t)
	reply, err := session.TotalSelected(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "haven't selected any fees")
}

func TestSelectPaymentMethodSynonymsEquivalent(t *testing.T) {
	ctx := context.Background()
	for _, input := range []string{"bank", "Net Banking"} {
		session, notifier := newTestSession(t)
		reply, err := session.SelectPaymentMethod(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, MethodNetbanking, session.Method())
		assert.Contains(t, reply, "Net Banking")
		require.Len(t, notifier.notes, 1)
		payload := notifier.notes[0].Payload.(*SelectPaymentMethodPayload)
		assert.Equal(t, MethodNetbanking, payload.Method)
	}
}

func TestSelectPaymentMethodInvalidLeavesStateUnchanged(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.SelectPaymentMethod(context.Background(), "cheque")
	require.NoError(t, err)
	assert.Contains(t, reply, "Crypto, UPI, Net Banking, and Cash")
	assert.Equal(t, MethodCrypto, session.Method())
	assert.Empty(t, notifier.notes)
}

func TestSelectPaymentMethodCryptoAsksAboutWallet(t *testing.T) {
	session, _ := newTestSession(t)
	reply, err := session.SelectPaymentMethod(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Contains(t, reply, "connect your wallet")
}

func TestConnectWalletEmptySelection(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.ConnectWallet(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "select at least one fee")
	assert.Empty(t, notifier.notes)
}

func TestConnectWalletEmptySelectionKeepsMethod(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectPaymentMethod(ctx, "upi")
	require.NoError(t, err)
	notifier.notes = nil

	reply, err := session.ConnectWallet(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "select at least one fee")
	// The precondition rejects the call before anything else happens.
	assert.Equal(t, MethodUPI, session.Method())
	assert.Empty(t, notifier.notes)
}

func TestConnectWalletForcesCrypto(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "tuition")
	require.NoError(t, err)
	_, err = session.SelectPaymentMethod(ctx, "upi")
	require.NoError(t, err)

	reply, err := session.ConnectWallet(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "wallet connection popup")
	assert.Equal(t, MethodCrypto, session.Method())

	// Method switch is announced before the wallet popup opens.
	actions := notifier.actions()
	require.Len(t, actions, 4)
	assert.Equal(t, ActionSelectPaymentMethod, actions[2])
	assert.Equal(t, ActionConnectWallet, actions[3])
	payload := notifier.notes[2].Payload.(*SelectPaymentMethodPayload)
	assert.Equal(t, MethodCrypto, payload.Method)
}

func TestInitiatePaymentEmptySelection(t *testing.T) {
	session, notifier := newTestSession(t)
	reply, err := session.InitiatePayment(context.Background())
	require.NoError(t, err)
	assert.Contains(t, reply, "select at least one fee")
	assert.Empty(t, notifier.notes)
}

func TestInitiatePaymentCryptoWithoutWalletFallsBackToConnect(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "tuition")
	require.NoError(t, err)
	notifier.notes = nil

	reply, err := session.InitiatePayment(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "connect your wallet first")
	// Same side effects as a direct ConnectWallet call.
	assert.Equal(t, []Action{ActionConnectWallet}, notifier.actions())
}

func TestInitiatePaymentCryptoWithWallet(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "tuition")
	require.NoError(t, err)
	session.SetWalletConnected(true)
	notifier.notes = nil

	reply, err := session.InitiatePayment(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "Sepolia ETH")
	assert.Contains(t, reply, "₹75,000")
	require.Len(t, notifier.notes, 1)
	payload := notifier.notes[0].Payload.(*InitiatePaymentPayload)
	assert.Equal(t, []string{"tuition"}, payload.FeeIds)
	assert.Equal(t, MethodCrypto, payload.Method)
}

func TestEndToEndHostelUPI(t *testing.T) {
	session, notifier := newTestSession(t)
	ctx := context.Background()

	_, err := session.SelectFee(ctx, "Hostel")
	require.NoError(t, err)
	_, err = session.SelectPaymentMethod(ctx, "upi")
	require.NoError(t, err)
	reply, err := session.InitiatePayment(ctx)
	require.NoError(t, err)

	assert.Contains(t, reply, "45,000")
	assert.Contains(t, reply, "UPI")

	require.Equal(t, []Action{ActionSelectFee, ActionSelectPaymentMethod, ActionInitiatePayment}, notifier.actions())
	assert.Equal(t, "hostel", notifier.notes[0].Payload.(*SelectFeePayload).FeeId)
	assert.Equal(t, MethodUPI, notifier.notes[1].Payload.(*SelectPaymentMethodPayload).Method)
	initiate := notifier.notes[2].Payload.(*InitiatePaymentPayload)
	assert.Equal(t, []string{"hostel"}, initiate.FeeIds)
	assert.Equal(t, MethodUPI, initiate.Method)
}

func TestDeliveryFailureSurfacesAndStateStaysCommitted(t *testing.T) {
	session, notifier := newTestSession(t)
	notifier.fail = errors.New("channel down")

	reply, err := session.SelectFee(context.Background(), "tuition")
	require.Error(t, err)
	assert.ErrorContains(t, err, "channel down")
	assert.Empty(t, reply)
	// State commits before delivery; the failure does not roll it back.
	assert.Equal(t, []string{"tuition"}, session.Selected())
}

func TestSetWalletConnected(t *testing.T) {
	session, notifier := newTestSession(t)
	session.SetWalletConnected(true)
	assert.True(t, session.WalletConnected())
	session.SetWalletConnected(false)
	assert.False(t, session.WalletConnected())
	// Inbound signal, never notified outward.
	assert.Empty(t, notifier.notes)
}
