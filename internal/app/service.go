/**
 * @description
 * Core business logic for the traslados workflow: bilateral agreement
 * confirmation, fee session management and party messaging. Handlers stay
 * thin; every state transition funnels through the repository's conditional
 * updates so concurrent paths (client confirm, webhook, reconciler) agree.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovetofly/traslados-service/internal/domain"
	"github.com/lovetofly/traslados-service/internal/store"
	"github.com/lovetofly/traslados-service/pkg/stripeclient"
)

// Repository defines the database operations the service needs.
type Repository interface {
	GetTransferRequest(ctx context.Context, requestID int64) (*domain.TransferRequest, error)
	CreateTransferRequest(ctx context.Context, ownerUserID int64, p domain.CreateRequestParams) (*domain.TransferRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID int64, status string) (*domain.TransferRequest, error)
	ConfirmPartyAgreement(ctx context.Context, requestID int64, role string) (bool, error)
	GetUserProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)
	FindActivePromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
	InsertFee(ctx context.Context, fee *domain.ServiceFee) (*domain.ServiceFee, error)
	FindPendingFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error)
	FindPaidFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error)
	FindFeeByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.ServiceFee, error)
	ListFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error)
	MarkFeePaid(ctx context.Context, paymentIntentID string, paidAt time.Time) (*domain.ServiceFee, error)
	MarkFeeExpired(ctx context.Context, feeID uuid.UUID) (*domain.ServiceFee, error)
	RecordFeeFailure(ctx context.Context, paymentIntentID, reason string) error
	CancelPendingFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error)
	ListPendingFeesOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceFee, error)
	InsertMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	ListMessages(ctx context.Context, requestID int64) ([]domain.Message, error)
}

// PaymentGateway defines the external card-payment operations.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, p stripeclient.CreateIntentParams) (*stripeclient.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripeclient.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*stripeclient.PaymentIntent, error)
}

// EventPublisher defines the interface for publishing workflow events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// PayerPolicy decides which role the caller pays as on a request. The
// original product lets either party settle the fee as themselves; deploys
// that bill a single side can inject a stricter policy.
type PayerPolicy func(req *domain.TransferRequest, callerUserID int64) (string, error)

// DefaultPayerPolicy: the caller pays as whichever party they are.
func DefaultPayerPolicy(req *domain.TransferRequest, callerUserID int64) (string, error) {
	role := req.PartyRole(callerUserID)
	if role == "" {
		return "", ErrNotAParty
	}
	return role, nil
}

// FeeConfig carries the fee schedule and reconciliation tuning.
type FeeConfig struct {
	BaseAmountCents int64
	Currency        string
	SessionTTL      time.Duration
	ReconcileMinAge time.Duration
	ReconcileLimit  int
}

// Service provides the business logic for the traslados workflow.
type Service struct {
	repo        Repository
	gateway     PaymentGateway
	publisher   EventPublisher
	redactor    *Redactor
	limiter     MessageRateLimiter
	payerPolicy PayerPolicy
	cfg         FeeConfig
}

// NewService creates the workflow service. The rate limiter is optional and
// the payer policy defaults to DefaultPayerPolicy.
func NewService(repo Repository, gateway PaymentGateway, publisher EventPublisher, cfg FeeConfig) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "brl"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.ReconcileMinAge <= 0 {
		cfg.ReconcileMinAge = 2 * time.Minute
	}
	if cfg.ReconcileLimit <= 0 {
		cfg.ReconcileLimit = 100
	}

	return &Service{
		repo:        repo,
		gateway:     gateway,
		publisher:   publisher,
		redactor:    NewRedactor(),
		payerPolicy: DefaultPayerPolicy,
		cfg:         cfg,
	}
}

// SetMessageRateLimiter installs an optional distributed rate limiter.
func (s *Service) SetMessageRateLimiter(l MessageRateLimiter) { s.limiter = l }

// SetPayerPolicy overrides the payer-role assignment policy.
func (s *Service) SetPayerPolicy(p PayerPolicy) {
	if p != nil {
		s.payerPolicy = p
	}
}

// CreateRequest opens a new transfer request for the caller with an empty
// agreement.
func (s *Service) CreateRequest(ctx context.Context, callerUserID int64, p domain.CreateRequestParams) (*domain.TransferRequest, error) {
	if strings.TrimSpace(p.AircraftModel) == "" || strings.TrimSpace(p.AircraftPrefix) == "" ||
		strings.TrimSpace(p.OriginCity) == "" || strings.TrimSpace(p.DestinationCity) == "" {
		return nil, ErrMissingFields
	}
	return s.repo.CreateTransferRequest(ctx, callerUserID, p)
}

// GetAgreement returns the derived agreement state for a party.
func (s *Service) GetAgreement(ctx context.Context, requestID, callerUserID int64) (*domain.AgreementState, error) {
	req, err := s.repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PartyRole(callerUserID) == "" {
		return nil, ErrNotAParty
	}
	state := domain.AgreementStateOf(req)
	return &state, nil
}

// ConfirmAgreement records the caller's confirmation on the request.
// Confirming twice for the same role is a no-op returning the current
// state. Once both sides are confirmed this is the sole gate that unlocks
// fee creation.
func (s *Service) ConfirmAgreement(ctx context.Context, requestID, callerUserID int64) (*domain.AgreementState, error) {
	req, err := s.repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	role := req.PartyRole(callerUserID)
	if role == "" {
		return nil, ErrNotAParty
	}
	if domain.TerminalRequestStatus(req.Status) {
		return nil, ErrRequestClosed
	}

	// The store reports whether this call's statement set the composite
	// confirmed_at; with two near-simultaneous confirmations only one
	// caller sees true, so the event publishes exactly once.
	confirmed, err := s.repo.ConfirmPartyAgreement(ctx, requestID, role)
	if err != nil {
		return nil, err
	}

	req, err = s.repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if confirmed && req.ConfirmedAt != nil {
		s.publishEvent(ctx, domain.EventAgreementConfirmed, domain.AgreementConfirmedEvent{
			RequestID:   req.ID,
			OwnerUserID: req.OwnerUserID,
			PilotUserID: req.PilotUserID,
			ConfirmedAt: *req.ConfirmedAt,
			Timestamp:   time.Now().UTC(),
		})
	}

	state := domain.AgreementStateOf(req)
	return &state, nil
}

// CreateFeeSession creates or reuses the payable session for the caller.
// An existing pending session is returned as-is; a zero total settles the
// fee immediately as exempt without contacting the gateway.
func (s *Service) CreateFeeSession(ctx context.Context, requestID, callerUserID int64, promoCode string) (*domain.FeeSession, error) {
	req, err := s.repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == domain.RequestStatusCancelled {
		return nil, ErrRequestClosed
	}

	payerRole, err := s.payerPolicy(req, callerUserID)
	if err != nil {
		return nil, err
	}
	if req.ConfirmedAt == nil {
		return nil, ErrAgreementNotConfirmed
	}

	if paid, err := s.repo.FindPaidFee(ctx, requestID, callerUserID); err == nil {
		return &domain.FeeSession{Fee: *paid, Exempt: paid.Exempt()}, nil
	} else if !errors.Is(err, store.ErrFeeNotFound) {
		return nil, err
	}

	if session, err := s.reusePendingSession(ctx, requestID, callerUserID); err != nil {
		return nil, err
	} else if session != nil {
		return session, nil
	}

	breakdown, err := s.quoteFee(ctx, callerUserID, promoCode)
	if err != nil {
		return nil, err
	}

	if breakdown.Exempt() {
		now := time.Now().UTC()
		fee, err := s.repo.InsertFee(ctx, &domain.ServiceFee{
			ID:              uuid.New(),
			RequestID:       requestID,
			PayerUserID:     callerUserID,
			PayerRole:       payerRole,
			BaseAmountCents: breakdown.BaseAmountCents,
			DiscountCents:   breakdown.DiscountCents,
			TotalCents:      0,
			DiscountReason:  breakdown.DiscountReason,
			Currency:        s.cfg.Currency,
			Status:          domain.FeeStatusPaid,
			PaidAt:          &now,
		})
		if err != nil {
			return nil, err
		}
		if fee == nil {
			return s.sessionAfterLostInsert(ctx, requestID, callerUserID)
		}
		feeTransitionsTotal.WithLabelValues(domain.FeeStatusPaid, "exempt").Inc()
		s.publishFeeEvent(ctx, domain.EventFeePaid, fee)
		return &domain.FeeSession{Fee: *fee, Exempt: true}, nil
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, stripeclient.CreateIntentParams{
		AmountCents: breakdown.TotalCents,
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("Taxa de serviço Traslados TR-%d", requestID),
		Metadata: map[string]string{
			"request_id":    fmt.Sprintf("%d", requestID),
			"payer_role":    payerRole,
			"payer_user_id": fmt.Sprintf("%d", callerUserID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	expiresAt := time.Now().UTC().Add(s.cfg.SessionTTL)
	fee, err := s.repo.InsertFee(ctx, &domain.ServiceFee{
		ID:              uuid.New(),
		RequestID:       requestID,
		PayerUserID:     callerUserID,
		PayerRole:       payerRole,
		BaseAmountCents: breakdown.BaseAmountCents,
		DiscountCents:   breakdown.DiscountCents,
		TotalCents:      breakdown.TotalCents,
		DiscountReason:  breakdown.DiscountReason,
		Currency:        s.cfg.Currency,
		Status:          domain.FeeStatusPending,
		PaymentIntentID: &intent.ID,
		ExpiresAt:       &expiresAt,
	})
	if err != nil {
		return nil, err
	}
	if fee == nil {
		// A concurrent call inserted a pending fee between our check and
		// the guarded insert. Void the intent we just minted and return
		// the winner's session.
		if _, cErr := s.gateway.CancelPaymentIntent(ctx, intent.ID); cErr != nil {
			log.Printf("level=warn component=service flow=create msg=\"failed to void losing intent\" payment_intent_id=%s err=%v", intent.ID, cErr)
		}
		return s.sessionAfterLostInsert(ctx, requestID, callerUserID)
	}

	return &domain.FeeSession{Fee: *fee, ClientSecret: intent.ClientSecret}, nil
}

// sessionAfterLostInsert reloads the session minted by the concurrent call
// that won the guarded insert.
func (s *Service) sessionAfterLostInsert(ctx context.Context, requestID, callerUserID int64) (*domain.FeeSession, error) {
	if paid, err := s.repo.FindPaidFee(ctx, requestID, callerUserID); err == nil {
		return &domain.FeeSession{Fee: *paid, Exempt: paid.Exempt()}, nil
	} else if !errors.Is(err, store.ErrFeeNotFound) {
		return nil, err
	}

	session, err := s.reusePendingSession(ctx, requestID, callerUserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrFeeNotPending
	}
	return session, nil
}

// reusePendingSession returns the caller's live pending session, converging
// it first when the gateway already settled or when the TTL elapsed.
// Returns (nil, nil) when a fresh session should be minted.
func (s *Service) reusePendingSession(ctx context.Context, requestID, callerUserID int64) (*domain.FeeSession, error) {
	pending, err := s.repo.FindPendingFee(ctx, requestID, callerUserID)
	if err != nil {
		if errors.Is(err, store.ErrFeeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if pending.ExpiresAt != nil && time.Now().UTC().After(*pending.ExpiresAt) {
		if expired, err := s.repo.MarkFeeExpired(ctx, pending.ID); err != nil {
			return nil, err
		} else if expired != nil {
			feeTransitionsTotal.WithLabelValues(domain.FeeStatusExpired, "create").Inc()
			s.publishFeeEvent(ctx, domain.EventFeeExpired, expired)
		}
		return nil, nil
	}

	if pending.PaymentIntentID == nil {
		return nil, nil
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, *pending.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if intent.Succeeded() {
		// The webhook never arrived; converge here.
		if paid, err := s.applyPaidTransition(ctx, *pending.PaymentIntentID, "create"); err != nil {
			return nil, err
		} else if paid != nil {
			return &domain.FeeSession{Fee: *paid}, nil
		}
		return &domain.FeeSession{Fee: *pending}, nil
	}

	return &domain.FeeSession{Fee: *pending, ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) quoteFee(ctx context.Context, payerUserID int64, promoCode string) (domain.FeeBreakdown, error) {
	profile, err := s.repo.GetUserProfile(ctx, payerUserID)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}

	var promo *domain.PromoCode
	if code := strings.TrimSpace(promoCode); code != "" {
		promo, err = s.repo.FindActivePromoCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrCodeNotFound) {
				return domain.FeeBreakdown{}, ErrInvalidPromoCode
			}
			return domain.FeeBreakdown{}, err
		}
	}

	discount := domain.ResolveDiscount(profile.Plan, promo)
	return domain.ComputeFee(s.cfg.BaseAmountCents, discount), nil
}

// QuoteFee exposes the deterministic fee preview for a payer without
// creating a session.
func (s *Service) QuoteFee(ctx context.Context, payerUserID int64, promoCode string) (*domain.FeeBreakdown, error) {
	breakdown, err := s.quoteFee(ctx, payerUserID, promoCode)
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// ConfirmFeePayment handles the client-side "I paid" callback. The claim is
// advisory only: the fee is looked up by reference, the gateway is
// re-queried, and only a gateway-verified success applies the pending→paid
// transition.
func (s *Service) ConfirmFeePayment(ctx context.Context, requestID, callerUserID int64, paymentIntentID string) (*domain.ServiceFee, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, ErrReferenceMismatch
	}

	fee, err := s.repo.FindFeeByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, store.ErrFeeNotFound) {
			return nil, ErrReferenceMismatch
		}
		return nil, err
	}
	if fee.RequestID != requestID || fee.PayerUserID != callerUserID {
		return nil, ErrReferenceMismatch
	}

	switch fee.Status {
	case domain.FeeStatusPaid:
		return fee, nil
	case domain.FeeStatusPending:
		// fall through to gateway verification
	default:
		return nil, ErrFeeNotPending
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !intent.Succeeded() {
		return nil, ErrPaymentNotCompleted
	}

	if paid, err := s.applyPaidTransition(ctx, paymentIntentID, "confirm"); err != nil {
		return nil, err
	} else if paid != nil {
		return paid, nil
	}

	// Lost the race to the webhook or reconciler; read the settled row.
	fee, err = s.repo.FindFeeByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if fee.Status != domain.FeeStatusPaid {
		return nil, ErrFeeNotPending
	}
	return fee, nil
}

// ApplyGatewaySuccess is the webhook path: the gateway itself asserts the
// payment succeeded, so the transition applies without a re-query. Unknown
// references are ignored so unrelated intents don't fail delivery.
func (s *Service) ApplyGatewaySuccess(ctx context.Context, paymentIntentID string) error {
	if _, err := s.repo.FindFeeByPaymentIntentID(ctx, paymentIntentID); err != nil {
		if errors.Is(err, store.ErrFeeNotFound) {
			log.Printf("level=info component=service flow=webhook msg=\"no fee for payment reference\" payment_intent_id=%s", paymentIntentID)
			return nil
		}
		return err
	}

	_, err := s.applyPaidTransition(ctx, paymentIntentID, "webhook")
	return err
}

// RecordGatewayFailure stores a gateway-reported failure reason. The fee
// stays pending; the reconciler expires it once the TTL lapses.
func (s *Service) RecordGatewayFailure(ctx context.Context, paymentIntentID, reason string) error {
	return s.repo.RecordFeeFailure(ctx, paymentIntentID, reason)
}

func (s *Service) applyPaidTransition(ctx context.Context, paymentIntentID, source string) (*domain.ServiceFee, error) {
	paid, err := s.repo.MarkFeePaid(ctx, paymentIntentID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if paid == nil {
		// Another path already applied (or reverted nothing): no side effects.
		return nil, nil
	}

	feeTransitionsTotal.WithLabelValues(domain.FeeStatusPaid, source).Inc()
	s.publishFeeEvent(ctx, domain.EventFeePaid, paid)
	return paid, nil
}

// ListFees returns the request's fee ledger for a party or staff caller.
// Party callers also get a preview of what they would pay today.
func (s *Service) ListFees(ctx context.Context, requestID, callerUserID int64) (*domain.FeeLedger, error) {
	_, role, err := s.resolveParticipant(ctx, requestID, callerUserID)
	if err != nil {
		return nil, err
	}

	fees, err := s.repo.ListFeesForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	ledger := &domain.FeeLedger{Fees: fees}
	if role != domain.RoleAdmin {
		if preview, err := s.quoteFee(ctx, callerUserID, ""); err == nil {
			ledger.FeePreview = &preview
		}
	}
	return ledger, nil
}

// TransitionRequestStatus applies a staff/system lifecycle transition. A
// transition to cancelled proactively cancels pending fees instead of
// leaving them to expire.
func (s *Service) TransitionRequestStatus(ctx context.Context, requestID int64, status string) (*domain.TransferRequest, error) {
	if !domain.ValidRequestStatus(status) {
		return nil, ErrInvalidStatus
	}

	req, err := s.repo.UpdateRequestStatus(ctx, requestID, status)
	if err != nil {
		return nil, err
	}
	if req == nil {
		// Either unknown or already terminal.
		existing, err := s.repo.GetTransferRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: request %d is %s", ErrRequestClosed, requestID, existing.Status)
	}

	if status == domain.RequestStatusCancelled {
		cancelled, err := s.repo.CancelPendingFeesForRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		for i := range cancelled {
			fee := cancelled[i]
			feeTransitionsTotal.WithLabelValues(domain.FeeStatusCancelled, "cancel").Inc()
			s.publishFeeEvent(ctx, domain.EventFeeCancelled, &fee)
			if fee.PaymentIntentID != nil {
				if _, err := s.gateway.CancelPaymentIntent(ctx, *fee.PaymentIntentID); err != nil {
					log.Printf("level=warn component=service flow=cancel msg=\"failed to void intent at gateway\" payment_intent_id=%s err=%v", *fee.PaymentIntentID, err)
				}
			}
		}
	}

	return req, nil
}

// PostMessage sanitizes and persists a party message. The raw text is never
// written once a contact pattern is detected; only the redacted content is
// stored.
func (s *Service) PostMessage(ctx context.Context, requestID, callerUserID int64, rawContent string) (*domain.Message, error) {
	raw := strings.TrimSpace(rawContent)
	if raw == "" {
		return nil, ErrEmptyMessage
	}

	_, role, err := s.resolveParticipant(ctx, requestID, callerUserID)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, callerUserID)
		if err != nil {
			// Fail open: a limiter outage must not block party messaging.
			log.Printf("level=warn component=service flow=messages msg=\"rate limiter unavailable\" err=%v", err)
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	content, hasRedactions := s.redactor.Sanitize(raw)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	return s.repo.InsertMessage(ctx, &domain.Message{
		ID:            uuid.New(),
		RequestID:     requestID,
		SenderUserID:  callerUserID,
		SenderRole:    role,
		Content:       content,
		HasRedactions: hasRedactions,
	})
}

// GetThread returns the conversation, fee ledger and the caller's fee
// preview for a request.
func (s *Service) GetThread(ctx context.Context, requestID, callerUserID int64) (*domain.MessageThread, error) {
	req, role, err := s.resolveParticipant(ctx, requestID, callerUserID)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, requestID)
	if err != nil {
		return nil, err
	}
	fees, err := s.repo.ListFeesForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	thread := &domain.MessageThread{
		Request:  req,
		Role:     role,
		Messages: messages,
		Fees:     fees,
	}

	if role != domain.RoleAdmin {
		if preview, err := s.quoteFee(ctx, callerUserID, ""); err == nil {
			thread.FeePreview = &preview
		}
	}

	return thread, nil
}

// resolveParticipant loads the request and decides the caller's role on it.
// Staff see every thread; anyone else must be a party.
func (s *Service) resolveParticipant(ctx context.Context, requestID, callerUserID int64) (*domain.TransferRequest, string, error) {
	req, err := s.repo.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, "", err
	}

	if role := req.PartyRole(callerUserID); role != "" {
		return req, role, nil
	}

	profile, err := s.repo.GetUserProfile(ctx, callerUserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrNotAParty
		}
		return nil, "", err
	}
	if profile.IsStaff() {
		return req, domain.RoleAdmin, nil
	}

	return nil, "", ErrNotAParty
}

func (s *Service) publishFeeEvent(ctx context.Context, routingKey string, fee *domain.ServiceFee) {
	if s.publisher == nil {
		return
	}

	payload := domain.FeeEvent{
		FeeID:           fee.ID.String(),
		RequestID:       fee.RequestID,
		PayerUserID:     fee.PayerUserID,
		PayerRole:       fee.PayerRole,
		TotalCents:      fee.TotalCents,
		Currency:        fee.Currency,
		Status:          fee.Status,
		Exempt:          fee.Exempt(),
		PaymentIntentID: fee.PaymentIntentID,
		Timestamp:       time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Printf("level=warn component=service msg=\"failed to publish fee event\" routing_key=%s fee_id=%s err=%v", routingKey, fee.ID, err)
	}
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"failed to publish event\" routing_key=%s err=%v", routingKey, err)
	}
}
