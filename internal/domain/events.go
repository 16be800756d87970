/**
 * @description
 * Event payloads published to the message broker on workflow transitions.
 */
package domain

import "time"

// Routing keys on the lovetofly.events topic exchange.
const (
	EventAgreementConfirmed = "traslados.agreement.confirmed"
	EventFeePaid            = "traslados.fee.paid"
	EventFeeExpired         = "traslados.fee.expired"
	EventFeeCancelled       = "traslados.fee.cancelled"
)

// AgreementConfirmedEvent is published once both parties have confirmed.
type AgreementConfirmedEvent struct {
	RequestID   int64     `json:"request_id"`
	OwnerUserID int64     `json:"owner_user_id"`
	PilotUserID *int64    `json:"pilot_user_id,omitempty"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// FeeEvent is published whenever a service fee reaches a terminal status.
type FeeEvent struct {
	FeeID           string    `json:"fee_id"`
	RequestID       int64     `json:"request_id"`
	PayerUserID     int64     `json:"payer_user_id"`
	PayerRole       string    `json:"payer_role"`
	TotalCents      int64     `json:"total_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	Exempt          bool      `json:"exempt"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
