/**
 * @description
 * Data access layer for the traslados service. All state transitions are
 * expressed as conditional UPDATEs so that concurrent callers (handlers,
 * webhook, reconciler) cannot double-apply a transition or revert a
 * terminal status.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovetofly/traslados-service/internal/domain"
)

var (
	ErrRequestNotFound = errors.New("transfer request not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrFeeNotFound     = errors.New("service fee not found")
	ErrCodeNotFound    = errors.New("promo code not found")
)

const feeColumns = `id, request_id, payer_user_id, payer_role, base_amount_cents,
	discount_cents, total_cents, discount_reason, currency, status,
	payment_intent_id, failure_reason, expires_at, paid_at, created_at, updated_at`

const requestColumns = `id, user_id, assigned_to, aircraft_model, aircraft_prefix,
	origin_city, destination_city, status, agreement_owner_confirmed_at,
	agreement_pilot_confirmed_at, agreement_confirmed_at, created_at, updated_at`

// Repository handles database operations for the traslados workflow.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

type feeRow interface {
	Scan(dest ...any) error
}

func scanFee(row feeRow) (*domain.ServiceFee, error) {
	var fee domain.ServiceFee
	err := row.Scan(
		&fee.ID,
		&fee.RequestID,
		&fee.PayerUserID,
		&fee.PayerRole,
		&fee.BaseAmountCents,
		&fee.DiscountCents,
		&fee.TotalCents,
		&fee.DiscountReason,
		&fee.Currency,
		&fee.Status,
		&fee.PaymentIntentID,
		&fee.FailureReason,
		&fee.ExpiresAt,
		&fee.PaidAt,
		&fee.CreatedAt,
		&fee.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func scanRequest(row feeRow) (*domain.TransferRequest, error) {
	var req domain.TransferRequest
	err := row.Scan(
		&req.ID,
		&req.OwnerUserID,
		&req.PilotUserID,
		&req.AircraftModel,
		&req.AircraftPrefix,
		&req.OriginCity,
		&req.DestinationCity,
		&req.Status,
		&req.OwnerConfirmedAt,
		&req.PilotConfirmedAt,
		&req.ConfirmedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetTransferRequest fetches a transfer request by id.
func (r *Repository) GetTransferRequest(ctx context.Context, requestID int64) (*domain.TransferRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM traslados_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// CreateTransferRequest inserts a new request with status 'new' and an
// empty agreement.
func (r *Repository) CreateTransferRequest(ctx context.Context, ownerUserID int64, p domain.CreateRequestParams) (*domain.TransferRequest, error) {
	query := `
		INSERT INTO traslados_requests
			(user_id, aircraft_model, aircraft_prefix, origin_city, destination_city, status)
		VALUES ($1, $2, $3, $4, $5, 'new')
		RETURNING ` + requestColumns
	return scanRequest(r.db.QueryRow(ctx, query,
		ownerUserID, p.AircraftModel, p.AircraftPrefix, p.OriginCity, p.DestinationCity))
}

// UpdateRequestStatus applies a staff/system status transition. Terminal
// states are never overwritten; the updated row is returned when the
// transition applied, nil otherwise.
func (r *Repository) UpdateRequestStatus(ctx context.Context, requestID int64, status string) (*domain.TransferRequest, error) {
	query := `
		UPDATE traslados_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('completed', 'cancelled')
		RETURNING ` + requestColumns
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID, status))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// ConfirmPartyAgreement records one party's confirmation. The per-party
// column is written only while NULL, and the composite confirmed_at is set
// in a second conditional statement only once both party columns are
// non-NULL. Both statements are no-ops on replay, which makes the call
// idempotent and safe under near-simultaneous confirmations. The return
// value reports whether this call's composite statement applied; with two
// parties confirming concurrently, exactly one caller sees true.
func (r *Repository) ConfirmPartyAgreement(ctx context.Context, requestID int64, role string) (bool, error) {
	var column string
	switch role {
	case domain.RoleOwner:
		column = "agreement_owner_confirmed_at"
	case domain.RolePilot:
		column = "agreement_pilot_confirmed_at"
	default:
		return false, fmt.Errorf("role %q cannot confirm an agreement", role)
	}

	partyUpdate := fmt.Sprintf(`
		UPDATE traslados_requests
		SET %s = NOW(), updated_at = NOW()
		WHERE id = $1 AND %s IS NULL`, column, column)
	if _, err := r.db.Exec(ctx, partyUpdate, requestID); err != nil {
		return false, err
	}

	compositeUpdate := `
		UPDATE traslados_requests
		SET agreement_confirmed_at = LEAST(agreement_owner_confirmed_at, agreement_pilot_confirmed_at),
		    updated_at = NOW()
		WHERE id = $1
		  AND agreement_owner_confirmed_at IS NOT NULL
		  AND agreement_pilot_confirmed_at IS NOT NULL
		  AND agreement_confirmed_at IS NULL`
	tag, err := r.db.Exec(ctx, compositeUpdate, requestID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetUserProfile fetches the membership plan and role for a user. A user
// without a plan defaults to 'free'.
func (r *Repository) GetUserProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	query := `SELECT id, LOWER(COALESCE(plan, 'free')), LOWER(COALESCE(role, 'user')) FROM users WHERE id = $1`
	var profile domain.UserProfile
	if err := r.db.QueryRow(ctx, query, userID).Scan(&profile.ID, &profile.Plan, &profile.Role); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindActivePromoCode looks up a currently valid promo code.
func (r *Repository) FindActivePromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `
		SELECT code, discount_type, discount_value
		FROM codes
		WHERE code = UPPER($1)
		  AND code_type = 'promo'
		  AND is_active = TRUE
		  AND (valid_from IS NULL OR valid_from <= NOW())
		  AND (valid_until IS NULL OR valid_until >= NOW())
		  AND (max_uses IS NULL OR used_count < max_uses)`
	var promo domain.PromoCode
	if err := r.db.QueryRow(ctx, query, code).Scan(&promo.Code, &promo.DiscountType, &promo.DiscountValue); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// InsertFee persists a new service fee row. The insert is guarded by a
// NOT EXISTS check on a live pending fee for the same (request, payer), so
// concurrent session creates cannot mint two payable sessions; the loser
// gets (nil, nil) and must reload the winner's row.
func (r *Repository) InsertFee(ctx context.Context, fee *domain.ServiceFee) (*domain.ServiceFee, error) {
	query := `
		INSERT INTO traslados_service_fees
			(id, request_id, payer_user_id, payer_role, base_amount_cents, discount_cents,
			 total_cents, discount_reason, currency, status, payment_intent_id, expires_at, paid_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		WHERE NOT EXISTS (
			SELECT 1 FROM traslados_service_fees
			WHERE request_id = $2 AND payer_user_id = $3 AND status = 'pending'
		)
		RETURNING ` + feeColumns
	inserted, err := scanFee(r.db.QueryRow(ctx, query,
		fee.ID,
		fee.RequestID,
		fee.PayerUserID,
		fee.PayerRole,
		fee.BaseAmountCents,
		fee.DiscountCents,
		fee.TotalCents,
		fee.DiscountReason,
		fee.Currency,
		fee.Status,
		fee.PaymentIntentID,
		fee.ExpiresAt,
		fee.PaidAt,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inserted, nil
}

// FindPendingFee returns the payer's current pending fee for a request, if any.
func (r *Repository) FindPendingFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM traslados_service_fees
		WHERE request_id = $1 AND payer_user_id = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`
	fee, err := scanFee(r.db.QueryRow(ctx, query, requestID, payerUserID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFeeNotFound
		}
		return nil, err
	}
	return fee, nil
}

// FindPaidFee returns the payer's settled fee for a request, if any.
func (r *Repository) FindPaidFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM traslados_service_fees
		WHERE request_id = $1 AND payer_user_id = $2 AND status = 'paid'
		ORDER BY created_at DESC
		LIMIT 1`
	fee, err := scanFee(r.db.QueryRow(ctx, query, requestID, payerUserID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFeeNotFound
		}
		return nil, err
	}
	return fee, nil
}

// FindFeeByPaymentIntentID resolves a fee by its external payment reference.
func (r *Repository) FindFeeByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.ServiceFee, error) {
	query := `SELECT ` + feeColumns + ` FROM traslados_service_fees WHERE payment_intent_id = $1`
	fee, err := scanFee(r.db.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFeeNotFound
		}
		return nil, err
	}
	return fee, nil
}

// ListFeesForRequest returns all fees recorded against a request.
func (r *Repository) ListFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM traslados_service_fees
		WHERE request_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.ServiceFee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, *fee)
	}
	return fees, rows.Err()
}

// MarkFeePaid applies the pending→paid transition for the fee holding the
// given payment reference. The status guard ensures that out of the webhook,
// the client confirm path and the reconciler, exactly one caller observes
// the transition; replays and races return (nil, nil).
func (r *Repository) MarkFeePaid(ctx context.Context, paymentIntentID string, paidAt time.Time) (*domain.ServiceFee, error) {
	query := `
		UPDATE traslados_service_fees
		SET status = 'paid',
		    paid_at = $2,
		    failure_reason = NULL,
		    updated_at = NOW()
		WHERE payment_intent_id = $1
		  AND status = 'pending'
		RETURNING ` + feeColumns
	fee, err := scanFee(r.db.QueryRow(ctx, query, paymentIntentID, paidAt))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return fee, nil
}

// MarkFeeExpired applies the pending→expired transition. Returns the updated
// row when the transition applied, nil when the fee was no longer pending.
func (r *Repository) MarkFeeExpired(ctx context.Context, feeID uuid.UUID) (*domain.ServiceFee, error) {
	query := `
		UPDATE traslados_service_fees
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + feeColumns
	fee, err := scanFee(r.db.QueryRow(ctx, query, feeID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return fee, nil
}

// RecordFeeFailure stores the gateway-reported failure reason on a still
// pending fee. The fee remains pending so the reconciler can converge it.
func (r *Repository) RecordFeeFailure(ctx context.Context, paymentIntentID, reason string) error {
	query := `
		UPDATE traslados_service_fees
		SET failure_reason = $2, updated_at = NOW()
		WHERE payment_intent_id = $1 AND status = 'pending'`
	_, err := r.db.Exec(ctx, query, paymentIntentID, reason)
	return err
}

// CancelPendingFeesForRequest transitions every pending fee of a request to
// cancelled, returning the affected rows.
func (r *Repository) CancelPendingFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error) {
	query := `
		UPDATE traslados_service_fees
		SET status = 'cancelled', updated_at = NOW()
		WHERE request_id = $1 AND status = 'pending'
		RETURNING ` + feeColumns
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.ServiceFee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, *fee)
	}
	return fees, rows.Err()
}

// ListPendingFeesOlderThan returns pending fees created before the cutoff,
// oldest first, for the reconciliation pass.
func (r *Repository) ListPendingFeesOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM traslados_service_fees
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fees []domain.ServiceFee
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		fees = append(fees, *fee)
	}
	return fees, rows.Err()
}

// InsertMessage persists an already-sanitized message row.
func (r *Repository) InsertMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	query := `
		INSERT INTO traslados_messages (id, request_id, sender_user_id, sender_role, message, has_redactions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, request_id, sender_user_id, sender_role, message, has_redactions, created_at`
	var out domain.Message
	err := r.db.QueryRow(ctx, query,
		msg.ID, msg.RequestID, msg.SenderUserID, msg.SenderRole, msg.Content, msg.HasRedactions,
	).Scan(&out.ID, &out.RequestID, &out.SenderUserID, &out.SenderRole, &out.Content, &out.HasRedactions, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns a request's conversation, oldest first.
func (r *Repository) ListMessages(ctx context.Context, requestID int64) ([]domain.Message, error) {
	query := `
		SELECT id, request_id, sender_user_id, sender_role, message, has_redactions, created_at
		FROM traslados_messages
		WHERE request_id = $1
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.RequestID, &msg.SenderUserID, &msg.SenderRole,
			&msg.Content, &msg.HasRedactions, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
