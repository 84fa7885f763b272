package billdesk

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bec-bridge/billdesk-voice/shared"
	"go.uber.org/zap"
)

// PaymentMethod is one of the four canonical payment methods.
type PaymentMethod string

const (
	MethodCrypto     PaymentMethod = "crypto"
	MethodUPI        PaymentMethod = "upi"
	MethodNetbanking PaymentMethod = "netbanking"
	MethodCash       PaymentMethod = "cash"
)

// Free-text synonyms onto canonical methods. Keys are matched after
// lowercasing and stripping spaces, so "Net Banking" lands on "netbanking".
var paymentMethodSynonyms = map[string]PaymentMethod{
	"crypto":         MethodCrypto,
	"cryptocurrency": MethodCrypto,
	"eth":            MethodCrypto,
	"ethereum":       MethodCrypto,
	"metamask":       MethodCrypto,
	"upi":            MethodUPI,
	"netbanking":     MethodNetbanking,
	"bank":           MethodNetbanking,
	"cash":           MethodCash,
}

var paymentMethodLabels = map[PaymentMethod]string{
	MethodCrypto:     "Cryptocurrency (Sepolia ETH)",
	MethodUPI:        "UPI",
	MethodNetbanking: "Net Banking",
	MethodCash:       "Cash",
}

// NormalizePaymentMethod resolves free text onto a canonical method.
func NormalizePaymentMethod(text string) (PaymentMethod, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "")
	m, ok := paymentMethodSynonyms[key]
	return m, ok
}

// Session is the per-conversation state machine: the fees selected for
// payment (insertion order preserved), the chosen payment method, and the
// wallet-connection flag. Operations mutate state first and then publish the
// matching notification; a delivery failure is returned to the caller with
// the mutation retained.
type Session struct {
	catalogue *Catalogue
	notifier  Notifier
	logger    shared.LoggerAdapter

	mu              sync.Mutex
	selected        []string
	method          PaymentMethod
	walletConnected bool
}

func NewSession(catalogue *Catalogue, notifier Notifier, logger shared.LoggerAdapter) (*Session, error) {
	if catalogue == nil {
		return nil, shared.ErrNoCatalogue
	}
	if notifier == nil {
		return nil, shared.ErrNoNotifier
	}
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &Session{
		catalogue: catalogue,
		notifier:  notifier,
		logger:    logger,
		method:    MethodCrypto,
	}, nil
}

// Selected returns a copy of the selected fee ids in selection order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

func (s *Session) Method() PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

func (s *Session) WalletConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletConnected
}

// SetWalletConnected records the out-of-band wallet handshake result. It is
// an inbound signal from the UI, so no notification is published.
func (s *Session) SetWalletConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletConnected = connected
	s.logger.Info("wallet connection status updated", zap.Bool("connected", connected))
}

func (s *Session) publish(ctx context.Context, action Action, payload Payload) error {
	if err := s.notifier.Publish(ctx, &Notification{Action: action, Payload: payload}); err != nil {
		return fmt.Errorf("publishing %s notification: %w", action, err)
	}
	return nil
}

// ListPending reports the pending fees and their aggregate total.
func (s *Session) ListPending(ctx context.Context) (string, error) {
	pending := s.catalogue.Pending()
	if len(pending) == 0 {
		return "Great news! You have no pending fees. All your fees have been paid.", nil
	}
	parts := make([]string, 0, len(pending))
	for _, f := range pending {
		parts = append(parts, fmt.Sprintf("%s of %s", f.Name, Rupees(f.Total)))
	}
	return fmt.Sprintf(
		"You have %d pending fees: %s. The total pending amount is %s.",
		len(pending), strings.Join(parts, ", "), Rupees(sumTotals(pending)),
	), nil
}

// DescribeFee resolves a fee by free text and reports its total, due date and
// breakdown.
func (s *Session) DescribeFee(ctx context.Context, feeName string) (string, error) {
	fee, ok := s.catalogue.Find(feeName)
	if !ok {
		return s.notFoundWithNames(feeName), nil
	}
	parts := make([]string, 0, len(fee.Breakdown))
	for _, b := range fee.Breakdown {
		parts = append(parts, fmt.Sprintf("%s: %s", b.Category, Rupees(b.Amount)))
	}
	return fmt.Sprintf(
		"The %s is %s, due on %s. The breakdown is: %s.",
		fee.Name, Rupees(fee.Total), fee.DueDate, strings.Join(parts, ", "),
	), nil
}

// ListPaid reports the already-paid fees.
func (s *Session) ListPaid(ctx context.Context) (string, error) {
	paid := s.catalogue.Paid()
	if len(paid) == 0 {
		return "You haven't paid any fees yet. Would you like to pay any pending fees?", nil
	}
	names := make([]string, 0, len(paid))
	for _, f := range paid {
		names = append(names, f.Name)
	}
	return fmt.Sprintf(
		"You have paid %d fees: %s. The total paid amount is %s.",
		len(paid), strings.Join(names, ", "), Rupees(sumTotals(paid)),
	), nil
}

// SelectFee adds a fee to the selection. Re-selecting is a state no-op, but
// the SELECT_FEE notification is still published (at-least-once, the UI
// checkbox handler is idempotent).
func (s *Session) SelectFee(ctx context.Context, feeName string) (string, error) {
	fee, ok := s.catalogue.Find(feeName)
	if !ok {
		return s.notFoundWithNames(feeName), nil
	}
	s.mu.Lock()
	if !slices.Contains(s.selected, fee.Id) {
		s.selected = append(s.selected, fee.Id)
	}
	s.mu.Unlock()
	if err := s.publish(ctx, ActionSelectFee, &SelectFeePayload{FeeId: fee.Id}); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"I've selected the %s for payment. The amount is %s. Would you like to select any other fees or proceed to payment?",
		fee.Name, Rupees(fee.Total),
	), nil
}

// DeselectFee removes a fee from the selection.
func (s *Session) DeselectFee(ctx context.Context, feeName string) (string, error) {
	fee, ok := s.catalogue.Find(feeName)
	if !ok {
		return fmt.Sprintf("I couldn't find a fee called '%s'.", feeName), nil
	}
	s.mu.Lock()
	if i := slices.Index(s.selected, fee.Id); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
	}
	s.mu.Unlock()
	if err := s.publish(ctx, ActionDeselectFee, &DeselectFeePayload{FeeId: fee.Id}); err != nil {
		return "", err
	}
	return fmt.Sprintf("I've deselected the %s.", fee.Name), nil
}

// SelectAllPending replaces the selection with every pending fee, publishing
// one SELECT_FEE per fee in catalogue order.
func (s *Session) SelectAllPending(ctx context.Context) (string, error) {
	pending := s.catalogue.Pending()
	ids := make([]string, 0, len(pending))
	for _, f := range pending {
		ids = append(ids, f.Id)
	}
	s.mu.Lock()
	s.selected = ids
	s.mu.Unlock()
	for _, id := range ids {
		if err := s.publish(ctx, ActionSelectFee, &SelectFeePayload{FeeId: id}); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf(
		"I've selected all %d pending fees. The total amount is %s. How would you like to pay? You can choose Crypto, UPI, Net Banking, or Cash.",
		len(pending), Rupees(sumTotals(pending)),
	), nil
}

// SelectPaymentMethod normalizes the requested method and switches to it.
// Text that fails to normalize leaves the state unchanged.
func (s *Session) SelectPaymentMethod(ctx context.Context, methodText string) (string, error) {
	method, ok := NormalizePaymentMethod(methodText)
	if !ok {
		return "I support these payment methods: Crypto, UPI, Net Banking, and Cash. Which one would you prefer?", nil
	}
	s.mu.Lock()
	s.method = method
	s.mu.Unlock()
	if err := s.publish(ctx, ActionSelectPaymentMethod, &SelectPaymentMethodPayload{Method: method}); err != nil {
		return "", err
	}
	followUp := "Ready to proceed when you are."
	if method == MethodCrypto {
		followUp = "Would you like me to connect your wallet?"
	}
	return fmt.Sprintf("I've switched to %s. %s", paymentMethodLabels[method], followUp), nil
}

// ConnectWallet opens the wallet-connection flow in the UI. It forces the
// method to crypto first if needed.
func (s *Session) ConnectWallet(ctx context.Context) (string, error) {
	s.mu.Lock()
	if len(s.selected) == 0 {
		s.mu.Unlock()
		return "Please select at least one fee to pay before connecting your wallet.", nil
	}
	needSwitch := s.method != MethodCrypto
	if needSwitch {
		s.method = MethodCrypto
	}
	s.mu.Unlock()
	if needSwitch {
		if err := s.publish(ctx, ActionSelectPaymentMethod, &SelectPaymentMethodPayload{Method: MethodCrypto}); err != nil {
			return "", err
		}
	}
	if err := s.publish(ctx, ActionConnectWallet, &ConnectWalletPayload{}); err != nil {
		return "", err
	}
	return "I've opened the wallet connection popup. Please connect your MetaMask or other wallet. You can also scan the QR code with a mobile wallet. Let me know once you're connected.", nil
}

// InitiatePayment starts the payment for the selected fees. With crypto and
// no connected wallet it falls back to the wallet-connection flow instead.
func (s *Session) InitiatePayment(ctx context.Context) (string, error) {
	s.mu.Lock()
	ids := slices.Clone(s.selected)
	method := s.method
	connected := s.walletConnected
	s.mu.Unlock()
	if len(ids) == 0 {
		return "Please select at least one fee to pay first.", nil
	}
	if method == MethodCrypto && !connected {
		if _, err := s.ConnectWallet(ctx); err != nil {
			return "", err
		}
		return "Please connect your wallet first. I've opened the connection popup for you.", nil
	}
	if err := s.publish(ctx, ActionInitiatePayment, &InitiatePaymentPayload{FeeIds: ids, Method: method}); err != nil {
		return "", err
	}
	total := 0
	for _, id := range ids {
		if fee, ok := s.catalogue.Get(id); ok {
			total += fee.Total
		}
	}
	if method == MethodCrypto {
		return fmt.Sprintf(
			"I'm initiating the payment of %s using Sepolia ETH. Please confirm the transaction in your wallet when the popup appears.",
			Rupees(total),
		), nil
	}
	return fmt.Sprintf(
		"I'm initiating the payment of %s using %s. Please follow the instructions on screen.",
		Rupees(total), paymentMethodLabels[method],
	), nil
}

// TotalSelected reports the selected fees and their aggregate total.
func (s *Session) TotalSelected(ctx context.Context) (string, error) {
	s.mu.Lock()
	ids := slices.Clone(s.selected)
	s.mu.Unlock()
	if len(ids) == 0 {
		return "You haven't selected any fees yet. Would you like me to help you select some fees to pay?", nil
	}
	names := make([]string, 0, len(ids))
	total := 0
	for _, id := range ids {
		if fee, ok := s.catalogue.Get(id); ok {
			names = append(names, fee.Name)
			total += fee.Total
		}
	}
	return fmt.Sprintf(
		"You have selected %d fees: %s. The total amount is %s.",
		len(names), strings.Join(names, ", "), Rupees(total),
	), nil
}

func (s *Session) notFoundWithNames(feeName string) string {
	return fmt.Sprintf(
		"I couldn't find a fee called '%s'. Available fees are: %s.",
		feeName, s.catalogue.NameList(),
	)
}
