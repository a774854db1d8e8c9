package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/notify"
)

// PaymentService charges a tab or one of its splits.
//
// A payment is recorded as PROCESSING before the processor is called, so
// a second request for the same target is rejected while the first is in
// flight. The processor outcome is written in a second transaction; a
// full payment closes the tab there.
type PaymentService struct {
	Tabs      TabStore
	Payments  PaymentStore
	Processor PaymentProcessor
	Events    EventPublisher
}

func NewPaymentService(tabs TabStore, payments PaymentStore, processor PaymentProcessor, events EventPublisher) *PaymentService {
	if tabs == nil || payments == nil || processor == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	return &PaymentService{Tabs: tabs, Payments: payments, Processor: processor, Events: events}
}

// PayRequest is the input of Pay.
type PayRequest struct {
	TabID           uint64  `json:"tabId"`
	TabSplitID      *uint64 `json:"tabSplitId"`
	PaymentMethodID string  `json:"paymentMethodId"`
}

// Pay charges the split total when a split is given, otherwise the tab
// total. A declined charge leaves the payment FAILED and returns
// ErrPaymentDeclined along with the payment.
func (s *PaymentService) Pay(ctx context.Context, userID uint64, req PayRequest) (*model.Payment, error) {
	v := validator{}
	v.check(req.TabID > 0, "tabId", "is required")
	v.check(req.PaymentMethodID != "", "paymentMethodId", "is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	p, err := s.Payments.Begin(ctx, userID, req.TabID, req.TabSplitID, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	closeTab := p.TabSplitID == nil
	if p.Amount <= 0 {
		if _, cerr := s.Payments.Complete(ctx, p, model.PaymentFailed, "", false); cerr != nil {
			log.Printf("payments: mark empty payment %d failed: %v", p.ID, cerr)
		}
		return nil, invalid("amount", "nothing to pay")
	}

	desc := fmt.Sprintf("BarTab tab %d", p.TabID)
	if !closeTab {
		desc = fmt.Sprintf("BarTab tab %d split %d", p.TabID, *p.TabSplitID)
	}
	txnID, chargeErr := s.Processor.Charge(ctx, ChargeRequest{
		PaymentID:       p.ID,
		Amount:          p.Amount,
		PaymentMethodID: p.PaymentMethodID,
		Description:     desc,
	})
	if chargeErr != nil {
		// the request context may already be gone; record the failure anyway
		if _, err := s.Payments.Complete(context.WithoutCancel(ctx), p, model.PaymentFailed, txnID, false); err != nil {
			return nil, err
		}
		return p, fmt.Errorf("%w: %v", ErrPaymentDeclined, chargeErr)
	}

	if _, err := s.Payments.Complete(context.WithoutCancel(ctx), p, model.PaymentSucceeded, txnID, closeTab); err != nil {
		return nil, err
	}
	if closeTab && s.Events != nil {
		s.Events.Enqueue(notify.NewEvent(notify.EventPaid, p.TabID, Paid{TabID: p.TabID, Status: model.TabClosed}))
	}
	return p, nil
}

// List returns the payments of an owned tab.
func (s *PaymentService) List(ctx context.Context, tabID, userID uint64) ([]model.Payment, error) {
	if _, err := s.Tabs.GetForUser(ctx, tabID, userID); err != nil {
		return nil, err
	}
	return s.Payments.ListForTab(ctx, tabID)
}

// SimulatedProcessor approves every charge with a positive amount and a
// payment method id not starting with "pm_card_declined".
type SimulatedProcessor struct{}

var errCardDeclined = errors.New("card declined")

func (SimulatedProcessor) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Amount <= 0 || strings.HasPrefix(req.PaymentMethodID, "pm_card_declined") {
		return "", errCardDeclined
	}
	return "pi_" + uuid.NewString(), nil
}

var _ PaymentProcessor = SimulatedProcessor{}
