/**
 * @description
 * Party messaging models. Message content is sanitized before it is ever
 * persisted; the stored row never contains a raw contact pattern the
 * redactor can detect.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message maps to the `traslados_messages` table. Rows are append-only.
type Message struct {
	ID            uuid.UUID `json:"id"`
	RequestID     int64     `json:"request_id"`
	SenderUserID  int64     `json:"sender_user_id"`
	SenderRole    string    `json:"sender_role"`
	Content       string    `json:"content"`
	HasRedactions bool      `json:"has_redactions"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageThread is the party-facing view of a request's conversation,
// including the fee ledger and a preview of what the caller would pay.
type MessageThread struct {
	Request    *TransferRequest `json:"request"`
	Role       string           `json:"role"`
	Messages   []Message        `json:"messages"`
	Fees       []ServiceFee     `json:"fees"`
	FeePreview *FeeBreakdown    `json:"fee_preview,omitempty"`
}
