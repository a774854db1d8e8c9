package model

import (
	"time"

	"github.com/iliyamo/bartab/internal/billing"
)

// Payment statuses.
const (
	PaymentProcessing = "PROCESSING"
	PaymentSucceeded  = "SUCCEEDED"
	PaymentFailed     = "FAILED"
)

// TabSplit is one payable share of a tab. Total is Amount + Tip. Paid is
// derived from the existence of a SUCCEEDED payment referencing the split.
type TabSplit struct {
	ID        uint64        `json:"id"`                  // tab_splits.id
	TabID     uint64        `json:"tabId"`               // tab_splits.tab_id
	UserID    *uint64       `json:"userId,omitempty"`    // tab_splits.user_id (nullable)
	GuestName *string       `json:"guestName,omitempty"` // tab_splits.guest_name (nullable)
	Amount    billing.Cents `json:"amount"`              // tab_splits.amount_cents
	Tip       billing.Cents `json:"tip"`                 // tab_splits.tip_cents
	Total     billing.Cents `json:"total"`               // tab_splits.total_cents
	Paid      bool          `json:"paid"`
	CreatedAt time.Time     `json:"createdAt"` // tab_splits.created_at
}

// Payment records a charge against a tab or one of its splits.
//
// Fields:
//
//	TabSplitID      – nil when the whole tab is paid.
//	PaymentMethodID – client-side payment method reference.
//	ProcessorTxnID  – transaction id returned by the processor.
//	Status          – PROCESSING, then SUCCEEDED or FAILED.
type Payment struct {
	ID              uint64        `json:"id"`                   // payments.id
	TabID           uint64        `json:"tabId"`                // payments.tab_id
	TabSplitID      *uint64       `json:"tabSplitId,omitempty"` // payments.tab_split_id (nullable)
	UserID          uint64        `json:"userId"`               // payments.user_id
	Amount          billing.Cents `json:"amount"`               // payments.amount_cents
	PaymentMethodID string        `json:"paymentMethodId"`      // payments.payment_method_id
	ProcessorTxnID  string        `json:"processorTxnId"`       // payments.processor_txn_id
	Status          string        `json:"status"`               // payments.status
	CreatedAt       time.Time     `json:"createdAt"`            // payments.created_at
	UpdatedAt       time.Time     `json:"updatedAt"`            // payments.updated_at
}
