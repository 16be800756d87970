/**
 * @description
 * Service fee model, discount resolver and fee calculator for the traslados
 * workflow. The resolver and calculator are pure functions so the payable
 * total is deterministic for a given plan/code input.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceFee statuses. A fee is created as pending (or directly paid when
// exempt) and is immutable once it reaches a terminal status.
const (
	FeeStatusPending   = "pending"
	FeeStatusPaid      = "paid"
	FeeStatusExpired   = "expired"
	FeeStatusCancelled = "cancelled"
)

// Discount types.
const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

// Discount reasons granted by membership plan.
const (
	DiscountReasonPremiumPlan = "premium_plan"
	DiscountReasonProPlan     = "pro_plan"
)

// Plan-tier percentage discounts on the traslados service fee.
const (
	premiumPlanDiscountPercent = 25
	proPlanDiscountPercent     = 50
)

// ServiceFee maps to the `traslados_service_fees` table.
type ServiceFee struct {
	ID              uuid.UUID  `json:"id"`
	RequestID       int64      `json:"request_id"`
	PayerUserID     int64      `json:"payer_user_id"`
	PayerRole       string     `json:"payer_role"`
	BaseAmountCents int64      `json:"base_amount_cents"`
	DiscountCents   int64      `json:"discount_cents"`
	TotalCents      int64      `json:"total_cents"`
	DiscountReason  *string    `json:"discount_reason,omitempty"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	PaymentIntentID *string    `json:"payment_intent_id,omitempty"`
	FailureReason   *string    `json:"failure_reason,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Exempt reports whether the fee settled without a payable amount.
func (f *ServiceFee) Exempt() bool {
	return f.TotalCents == 0 && f.Status == FeeStatusPaid && f.PaymentIntentID == nil
}

// PromoCode is a redeemable discount code from the `codes` table.
type PromoCode struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int64  `json:"discount_value"`
}

// Discount describes the single discount applied to a fee. A zero-value
// discount (Value 0, Reason nil) means no discount applies.
type Discount struct {
	Type   string  `json:"type"`
	Value  int64   `json:"value"`
	Reason *string `json:"reason,omitempty"`
}

// ResolveDiscount maps a payer's membership plan and an optionally applied
// promo code to a discount descriptor. A valid code takes precedence over
// the plan tier.
func ResolveDiscount(plan string, code *PromoCode) Discount {
	if code != nil && code.DiscountValue > 0 {
		reason := "promo:" + code.Code
		return Discount{Type: code.DiscountType, Value: code.DiscountValue, Reason: &reason}
	}

	switch plan {
	case "premium":
		reason := DiscountReasonPremiumPlan
		return Discount{Type: DiscountTypePercent, Value: premiumPlanDiscountPercent, Reason: &reason}
	case "pro":
		reason := DiscountReasonProPlan
		return Discount{Type: DiscountTypePercent, Value: proPlanDiscountPercent, Reason: &reason}
	}

	return Discount{Type: DiscountTypeFixed, Value: 0}
}

// FeeBreakdown is the deterministic output of ComputeFee.
type FeeBreakdown struct {
	BaseAmountCents int64   `json:"base_amount_cents"`
	DiscountCents   int64   `json:"discount_cents"`
	TotalCents      int64   `json:"total_cents"`
	DiscountReason  *string `json:"discount_reason,omitempty"`
}

// Exempt reports whether the computed total is zero, which settles the fee
// without contacting the payment gateway.
func (b FeeBreakdown) Exempt() bool {
	return b.TotalCents == 0
}

// ComputeFee combines the base fee with a discount. The discount is clamped
// to the base amount so the total never goes negative.
func ComputeFee(baseAmountCents int64, d Discount) FeeBreakdown {
	if baseAmountCents < 0 {
		baseAmountCents = 0
	}

	var discountCents int64
	switch d.Type {
	case DiscountTypePercent:
		// Round half up in integer math.
		discountCents = (baseAmountCents*d.Value + 50) / 100
	case DiscountTypeFixed:
		discountCents = d.Value
	}
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > baseAmountCents {
		discountCents = baseAmountCents
	}

	return FeeBreakdown{
		BaseAmountCents: baseAmountCents,
		DiscountCents:   discountCents,
		TotalCents:      baseAmountCents - discountCents,
		DiscountReason:  d.Reason,
	}
}

// FeeLedger is a request's fee listing plus, for party callers, a preview
// of what they would pay today.
type FeeLedger struct {
	Fees       []ServiceFee  `json:"fees"`
	FeePreview *FeeBreakdown `json:"fee_preview,omitempty"`
}

// FeeSession is the result of a create-session call: either an exempt,
// already-settled fee, or a pending fee plus the client-side credentials
// needed to complete payment.
type FeeSession struct {
	Fee          ServiceFee `json:"fee"`
	Exempt       bool       `json:"exempt"`
	ClientSecret string     `json:"client_secret,omitempty"`
}
