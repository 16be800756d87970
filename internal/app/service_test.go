package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lovetofly/traslados-service/internal/domain"
	"github.com/lovetofly/traslados-service/internal/store"
	"github.com/lovetofly/traslados-service/pkg/stripeclient"
)

// memRepo is an in-memory Repository stub that mirrors the conditional
// transition semantics of the SQL layer.
type memRepo struct {
	requests map[int64]*domain.TransferRequest
	users    map[int64]*domain.UserProfile
	codes    map[string]*domain.PromoCode
	fees     map[uuid.UUID]*domain.ServiceFee
	messages []domain.Message

	nextRequestID int64
	clock         time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests:      make(map[int64]*domain.TransferRequest),
		users:         make(map[int64]*domain.UserProfile),
		codes:         make(map[string]*domain.PromoCode),
		fees:          make(map[uuid.UUID]*domain.ServiceFee),
		nextRequestID: 1,
		clock:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memRepo) GetTransferRequest(ctx context.Context, requestID int64) (*domain.TransferRequest, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRepo) CreateTransferRequest(ctx context.Context, ownerUserID int64, p domain.CreateRequestParams) (*domain.TransferRequest, error) {
	req := &domain.TransferRequest{
		ID:              m.nextRequestID,
		OwnerUserID:     ownerUserID,
		AircraftModel:   p.AircraftModel,
		AircraftPrefix:  p.AircraftPrefix,
		OriginCity:      p.OriginCity,
		DestinationCity: p.DestinationCity,
		Status:          domain.RequestStatusNew,
		CreatedAt:       m.tick(),
	}
	m.nextRequestID++
	m.requests[req.ID] = req
	cp := *req
	return &cp, nil
}

func (m *memRepo) UpdateRequestStatus(ctx context.Context, requestID int64, status string) (*domain.TransferRequest, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	if domain.TerminalRequestStatus(req.Status) {
		return nil, nil
	}
	req.Status = status
	cp := *req
	return &cp, nil
}

func (m *memRepo) ConfirmPartyAgreement(ctx context.Context, requestID int64, role string) (bool, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return false, store.ErrRequestNotFound
	}

	now := m.tick()
	switch role {
	case domain.RoleOwner:
		if req.OwnerConfirmedAt == nil {
			req.OwnerConfirmedAt = &now
		}
	case domain.RolePilot:
		if req.PilotConfirmedAt == nil {
			req.PilotConfirmedAt = &now
		}
	}

	if req.OwnerConfirmedAt != nil && req.PilotConfirmedAt != nil && req.ConfirmedAt == nil {
		earliest := *req.OwnerConfirmedAt
		if req.PilotConfirmedAt.Before(earliest) {
			earliest = *req.PilotConfirmedAt
		}
		req.ConfirmedAt = &earliest
		return true, nil
	}
	return false, nil
}

func (m *memRepo) GetUserProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) FindActivePromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	c, ok := m.codes[code]
	if !ok {
		return nil, store.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) InsertFee(ctx context.Context, fee *domain.ServiceFee) (*domain.ServiceFee, error) {
	for _, f := range m.fees {
		if f.RequestID == fee.RequestID && f.PayerUserID == fee.PayerUserID && f.Status == domain.FeeStatusPending {
			return nil, nil
		}
	}
	cp := *fee
	cp.CreatedAt = m.tick()
	m.fees[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) FindPendingFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error) {
	return m.findFee(requestID, payerUserID, domain.FeeStatusPending)
}

func (m *memRepo) FindPaidFee(ctx context.Context, requestID, payerUserID int64) (*domain.ServiceFee, error) {
	return m.findFee(requestID, payerUserID, domain.FeeStatusPaid)
}

func (m *memRepo) findFee(requestID, payerUserID int64, status string) (*domain.ServiceFee, error) {
	for _, f := range m.fees {
		if f.RequestID == requestID && f.PayerUserID == payerUserID && f.Status == status {
			cp := *f
			return &cp, nil
		}
	}
	return nil, store.ErrFeeNotFound
}

func (m *memRepo) FindFeeByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.ServiceFee, error) {
	for _, f := range m.fees {
		if f.PaymentIntentID != nil && *f.PaymentIntentID == paymentIntentID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, store.ErrFeeNotFound
}

func (m *memRepo) ListFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error) {
	var out []domain.ServiceFee
	for _, f := range m.fees {
		if f.RequestID == requestID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *memRepo) MarkFeePaid(ctx context.Context, paymentIntentID string, paidAt time.Time) (*domain.ServiceFee, error) {
	for _, f := range m.fees {
		if f.PaymentIntentID != nil && *f.PaymentIntentID == paymentIntentID {
			if f.Status != domain.FeeStatusPending {
				return nil, nil
			}
			f.Status = domain.FeeStatusPaid
			f.PaidAt = &paidAt
			f.FailureReason = nil
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) MarkFeeExpired(ctx context.Context, feeID uuid.UUID) (*domain.ServiceFee, error) {
	f, ok := m.fees[feeID]
	if !ok || f.Status != domain.FeeStatusPending {
		return nil, nil
	}
	f.Status = domain.FeeStatusExpired
	cp := *f
	return &cp, nil
}

func (m *memRepo) RecordFeeFailure(ctx context.Context, paymentIntentID, reason string) error {
	for _, f := range m.fees {
		if f.PaymentIntentID != nil && *f.PaymentIntentID == paymentIntentID && f.Status == domain.FeeStatusPending {
			f.FailureReason = &reason
		}
	}
	return nil
}

func (m *memRepo) CancelPendingFeesForRequest(ctx context.Context, requestID int64) ([]domain.ServiceFee, error) {
	var out []domain.ServiceFee
	for _, f := range m.fees {
		if f.RequestID == requestID && f.Status == domain.FeeStatusPending {
			f.Status = domain.FeeStatusCancelled
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *memRepo) ListPendingFeesOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceFee, error) {
	var out []domain.ServiceFee
	for _, f := range m.fees {
		if f.Status == domain.FeeStatusPending && f.CreatedAt.Before(cutoff) {
			out = append(out, *f)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) InsertMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	cp := *msg
	cp.CreatedAt = m.tick()
	m.messages = append(m.messages, cp)
	out := cp
	return &out, nil
}

func (m *memRepo) ListMessages(ctx context.Context, requestID int64) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.RequestID == requestID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// gatewayStub fakes the payment gateway with controllable intent statuses.
type gatewayStub struct {
	intents     map[string]*stripeclient.PaymentIntent
	createCalls int
	cancelCalls int
	getErr      error
	onCreate    func()
}

func newGatewayStub() *gatewayStub {
	return &gatewayStub{intents: make(map[string]*stripeclient.PaymentIntent)}
}

func (g *gatewayStub) CreatePaymentIntent(ctx context.Context, p stripeclient.CreateIntentParams) (*stripeclient.PaymentIntent, error) {
	g.createCalls++
	id := fmt.Sprintf("pi_test_%d", g.createCalls)
	intent := &stripeclient.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       stripeclient.IntentStatusRequiresPayment,
		Amount:       p.AmountCents,
		Currency:     p.Currency,
	}
	g.intents[id] = intent
	if g.onCreate != nil {
		g.onCreate()
	}
	return intent, nil
}

func (g *gatewayStub) GetPaymentIntent(ctx context.Context, intentID string) (*stripeclient.PaymentIntent, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &stripeclient.ErrorResponse{StatusCode: 404}
	}
	cp := *intent
	return &cp, nil
}

func (g *gatewayStub) CancelPaymentIntent(ctx context.Context, intentID string) (*stripeclient.PaymentIntent, error) {
	g.cancelCalls++
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &stripeclient.ErrorResponse{StatusCode: 404}
	}
	intent.Status = stripeclient.IntentStatusCanceled
	cp := *intent
	return &cp, nil
}

func (g *gatewayStub) succeed(intentID string) {
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = stripeclient.IntentStatusSucceeded
	}
}

// publisherStub records published routing keys.
type publisherStub struct {
	published []string
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.published = append(p.published, routingKey)
	return nil
}

func (p *publisherStub) count(routingKey string) int {
	n := 0
	for _, k := range p.published {
		if k == routingKey {
			n++
		}
	}
	return n
}

type limiterStub struct {
	allowed bool
	err     error
}

func (l *limiterStub) Allow(ctx context.Context, senderUserID int64) (bool, error) {
	return l.allowed, l.err
}

const (
	ownerID = int64(10)
	pilotID = int64(20)
	adminID = int64(40)
)

func newTestService(t *testing.T) (*Service, *memRepo, *gatewayStub, *publisherStub) {
	t.Helper()

	repo := newMemRepo()
	pilot := pilotID
	repo.requests[1] = &domain.TransferRequest{
		ID:              1,
		OwnerUserID:     ownerID,
		PilotUserID:     &pilot,
		AircraftModel:   "Cessna 172",
		AircraftPrefix:  "PR-ABC",
		OriginCity:      "Jundiaí",
		DestinationCity: "Goiânia",
		Status:          domain.RequestStatusInReview,
	}
	repo.users[ownerID] = &domain.UserProfile{ID: ownerID, Plan: "free"}
	repo.users[pilotID] = &domain.UserProfile{ID: pilotID, Plan: "pro"}
	repo.users[adminID] = &domain.UserProfile{ID: adminID, Plan: "free", Role: "admin"}

	gateway := newGatewayStub()
	publisher := &publisherStub{}
	svc := NewService(repo, gateway, publisher, FeeConfig{BaseAmountCents: 50000, Currency: "brl"})
	return svc, repo, gateway, publisher
}

func confirmBothParties(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.ConfirmAgreement(ctx, 1, ownerID); err != nil {
		t.Fatalf("owner confirm failed: %v", err)
	}
	if _, err := svc.ConfirmAgreement(ctx, 1, pilotID); err != nil {
		t.Fatalf("pilot confirm failed: %v", err)
	}
}

func TestConfirmAgreement_SinglePartyDoesNotConfirm(t *testing.T) {
	svc, _, _, publisher := newTestService(t)

	state, err := svc.ConfirmAgreement(context.Background(), 1, ownerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Confirmed {
		t.Fatal("agreement should not be confirmed with one signature")
	}
	if publisher.count(domain.EventAgreementConfirmed) != 0 {
		t.Fatal("confirmed event must not fire before both parties sign")
	}
}

func TestConfirmAgreement_BothPartiesConfirm(t *testing.T) {
	svc, repo, _, publisher := newTestService(t)

	confirmBothParties(t, svc)

	req := repo.requests[1]
	if req.ConfirmedAt == nil {
		t.Fatal("expected composite confirmed_at to be set")
	}
	if !req.ConfirmedAt.Equal(*req.OwnerConfirmedAt) {
		t.Fatal("composite confirmed_at should be the earlier party timestamp")
	}
	if publisher.count(domain.EventAgreementConfirmed) != 1 {
		t.Fatalf("expected exactly one confirmed event, got %d", publisher.count(domain.EventAgreementConfirmed))
	}
}

func TestConfirmAgreement_Idempotent(t *testing.T) {
	svc, repo, _, publisher := newTestService(t)

	confirmBothParties(t, svc)
	first := *repo.requests[1].ConfirmedAt

	state, err := svc.ConfirmAgreement(context.Background(), 1, ownerID)
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if !state.Confirmed {
		t.Fatal("agreement must stay confirmed")
	}
	if !repo.requests[1].ConfirmedAt.Equal(first) {
		t.Fatal("repeat confirm must not move the confirmation timestamp")
	}
	if publisher.count(domain.EventAgreementConfirmed) != 1 {
		t.Fatal("repeat confirm must not publish a second event")
	}
}

func TestConfirmAgreement_ConcurrentCompletionPublishesOnce(t *testing.T) {
	svc, repo, _, publisher := newTestService(t)

	// The other party completed the ratchet between this caller's read and
	// its write; the store reports no fresh composite transition, so no
	// second event may fire.
	now := repo.tick()
	repo.requests[1].OwnerConfirmedAt = &now
	repo.requests[1].PilotConfirmedAt = &now
	repo.requests[1].ConfirmedAt = &now

	state, err := svc.ConfirmAgreement(context.Background(), 1, ownerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Confirmed {
		t.Fatal("agreement must report confirmed")
	}
	if publisher.count(domain.EventAgreementConfirmed) != 0 {
		t.Fatal("a caller whose statement did not set the composite must not publish")
	}
}

func TestConfirmAgreement_StrangerRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.ConfirmAgreement(context.Background(), 1, 999); !errors.Is(err, ErrNotAParty) {
		t.Fatalf("expected ErrNotAParty, got %v", err)
	}
}

func TestCreateFeeSession_RequiresConfirmedAgreement(t *testing.T) {
	svc, _, gateway, _ := newTestService(t)

	_, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if !errors.Is(err, ErrAgreementNotConfirmed) {
		t.Fatalf("expected ErrAgreementNotConfirmed, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Fatal("no intent may be created before the agreement is confirmed")
	}
}

func TestCreateFeeSession_CreatesPendingSession(t *testing.T) {
	svc, _, gateway, _ := newTestService(t)
	confirmBothParties(t, svc)

	session, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Fee.Status != domain.FeeStatusPending {
		t.Fatalf("expected pending fee, got %s", session.Fee.Status)
	}
	if session.Fee.TotalCents != 50000 {
		t.Fatalf("free plan owner should pay full base, got %d", session.Fee.TotalCents)
	}
	if session.ClientSecret == "" {
		t.Fatal("expected a client secret for the pending session")
	}
	if session.Fee.ExpiresAt == nil {
		t.Fatal("pending session must carry an expiry")
	}
	if gateway.createCalls != 1 {
		t.Fatalf("expected one intent, got %d", gateway.createCalls)
	}
}

func TestCreateFeeSession_ReusesPendingSession(t *testing.T) {
	svc, _, gateway, _ := newTestService(t)
	confirmBothParties(t, svc)

	first, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gateway.createCalls != 1 {
		t.Fatalf("repeat call must not mint a second intent, got %d creates", gateway.createCalls)
	}
	if *first.Fee.PaymentIntentID != *second.Fee.PaymentIntentID {
		t.Fatal("repeat call must return the same payment reference")
	}
	if second.ClientSecret != first.ClientSecret {
		t.Fatal("repeat call must return the same client secret")
	}
}

func TestCreateFeeSession_ConcurrentCreateMintsSingleSession(t *testing.T) {
	svc, repo, gateway, _ := newTestService(t)
	confirmBothParties(t, svc)

	// A concurrent call wins the guarded insert while this one is off
	// creating its gateway intent.
	winnerIntent := stripeIntent("pi_winner", 50000)
	gateway.intents["pi_winner"] = &winnerIntent
	winnerID := "pi_winner"
	expiresAt := time.Now().UTC().Add(25 * time.Minute)
	winner := &domain.ServiceFee{
		ID:              uuid.New(),
		RequestID:       1,
		PayerUserID:     ownerID,
		PayerRole:       domain.RoleOwner,
		BaseAmountCents: 50000,
		TotalCents:      50000,
		Currency:        "brl",
		Status:          domain.FeeStatusPending,
		PaymentIntentID: &winnerID,
		ExpiresAt:       &expiresAt,
		CreatedAt:       time.Now().UTC(),
	}
	gateway.onCreate = func() {
		repo.fees[winner.ID] = winner
	}

	session, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := 0
	for _, f := range repo.fees {
		if f.Status == domain.FeeStatusPending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("expected a single pending fee after the race, got %d", pending)
	}
	if *session.Fee.PaymentIntentID != "pi_winner" {
		t.Fatalf("loser must surface the winner's session, got %s", *session.Fee.PaymentIntentID)
	}
	if gateway.cancelCalls != 1 {
		t.Fatalf("the losing intent must be voided at the gateway, got %d cancels", gateway.cancelCalls)
	}
}

func TestCreateFeeSession_PlanDiscountApplied(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	confirmBothParties(t, svc)

	session, err := svc.CreateFeeSession(context.Background(), 1, pilotID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Fee.TotalCents != 25000 {
		t.Fatalf("pro plan pilot should pay half, got %d", session.Fee.TotalCents)
	}
	if session.Fee.DiscountReason == nil || *session.Fee.DiscountReason != domain.DiscountReasonProPlan {
		t.Fatalf("expected pro_plan reason, got %v", session.Fee.DiscountReason)
	}
}

func TestCreateFeeSession_FullPromoSettlesWithoutGateway(t *testing.T) {
	svc, repo, gateway, publisher := newTestService(t)
	confirmBothParties(t, svc)

	repo.codes["CORTESIA"] = &domain.PromoCode{Code: "CORTESIA", DiscountType: domain.DiscountTypePercent, DiscountValue: 100}

	session, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "CORTESIA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.Exempt {
		t.Fatal("expected an exempt session")
	}
	if session.Fee.Status != domain.FeeStatusPaid {
		t.Fatalf("exempt fee must be settled immediately, got %s", session.Fee.Status)
	}
	if session.Fee.PaymentIntentID != nil {
		t.Fatal("exempt fee must not carry a payment reference")
	}
	if gateway.createCalls != 0 {
		t.Fatal("exempt settlement must not contact the gateway")
	}
	if publisher.count(domain.EventFeePaid) != 1 {
		t.Fatal("expected a paid event for the exempt fee")
	}
}

func TestCreateFeeSession_InvalidPromoCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	confirmBothParties(t, svc)

	if _, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "NAOEXISTE"); !errors.Is(err, ErrInvalidPromoCode) {
		t.Fatalf("expected ErrInvalidPromoCode, got %v", err)
	}
}

func TestCreateFeeSession_CancelledRequestRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	confirmBothParties(t, svc)
	repo.requests[1].Status = domain.RequestStatusCancelled

	if _, err := svc.CreateFeeSession(context.Background(), 1, ownerID, ""); !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed, got %v", err)
	}
}

func TestConfirmFeePayment_VerifiesWithGateway(t *testing.T) {
	svc, _, gateway, publisher := newTestService(t)
	confirmBothParties(t, svc)

	session, err := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intentID := *session.Fee.PaymentIntentID

	// Client claims payment before the gateway saw it succeed.
	if _, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, intentID); !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}

	gateway.succeed(intentID)
	fee, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, intentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee.Status != domain.FeeStatusPaid {
		t.Fatalf("expected paid fee, got %s", fee.Status)
	}
	if fee.PaidAt == nil {
		t.Fatal("paid fee must carry paid_at")
	}
	if publisher.count(domain.EventFeePaid) != 1 {
		t.Fatal("expected one paid event")
	}
}

func TestConfirmFeePayment_Idempotent(t *testing.T) {
	svc, _, gateway, publisher := newTestService(t)
	confirmBothParties(t, svc)

	session, _ := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	intentID := *session.Fee.PaymentIntentID
	gateway.succeed(intentID)

	if _, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, intentID); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	fee, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, intentID)
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if fee.Status != domain.FeeStatusPaid {
		t.Fatalf("expected paid, got %s", fee.Status)
	}
	if publisher.count(domain.EventFeePaid) != 1 {
		t.Fatal("repeat confirm must not publish a second paid event")
	}
}

func TestConfirmFeePayment_ReferenceMismatch(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	confirmBothParties(t, svc)

	session, _ := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	intentID := *session.Fee.PaymentIntentID

	// Pilot cannot settle the owner's session.
	if _, err := svc.ConfirmFeePayment(context.Background(), 1, pilotID, intentID); !errors.Is(err, ErrReferenceMismatch) {
		t.Fatalf("expected ErrReferenceMismatch, got %v", err)
	}
	if _, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, "pi_unknown"); !errors.Is(err, ErrReferenceMismatch) {
		t.Fatalf("expected ErrReferenceMismatch for unknown reference, got %v", err)
	}
}

func TestApplyGatewaySuccess_WebhookSettlesOnce(t *testing.T) {
	svc, repo, gateway, publisher := newTestService(t)
	confirmBothParties(t, svc)

	session, _ := svc.CreateFeeSession(context.Background(), 1, ownerID, "")
	intentID := *session.Fee.PaymentIntentID
	gateway.succeed(intentID)

	if err := svc.ApplyGatewaySuccess(context.Background(), intentID); err != nil {
		t.Fatalf("webhook apply failed: %v", err)
	}
	// Replay and a racing client confirm both observe the settled row.
	if err := svc.ApplyGatewaySuccess(context.Background(), intentID); err != nil {
		t.Fatalf("webhook replay failed: %v", err)
	}
	if _, err := svc.ConfirmFeePayment(context.Background(), 1, ownerID, intentID); err != nil {
		t.Fatalf("racing client confirm failed: %v", err)
	}

	if publisher.count(domain.EventFeePaid) != 1 {
		t.Fatalf("expected one paid event across webhook replay and client confirm, got %d", publisher.count(domain.EventFeePaid))
	}
	if repo.fees[session.Fee.ID].Status != domain.FeeStatusPaid {
		t.Fatal("fee must be paid")
	}
}

func TestApplyGatewaySuccess_UnknownReferenceIgnored(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if err := svc.ApplyGatewaySuccess(context.Background(), "pi_someone_elses"); err != nil {
		t.Fatalf("unknown reference must be acknowledged, got %v", err)
	}
}

func TestTransitionRequestStatus_CancelVoidsPendingFees(t *testing.T) {
	svc, repo, gateway, publisher := newTestService(t)
	confirmBothParties(t, svc)

	session, _ := svc.CreateFeeSession(context.Background(), 1, ownerID, "")

	req, err := svc.TransitionRequestStatus(context.Background(), 1, domain.RequestStatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != domain.RequestStatusCancelled {
		t.Fatalf("expected cancelled, got %s", req.Status)
	}
	if repo.fees[session.Fee.ID].Status != domain.FeeStatusCancelled {
		t.Fatal("pending fee must be cancelled with the request")
	}
	if gateway.cancelCalls != 1 {
		t.Fatalf("expected the intent to be voided at the gateway, got %d cancels", gateway.cancelCalls)
	}
	if publisher.count(domain.EventFeeCancelled) != 1 {
		t.Fatal("expected a cancelled event")
	}
}

func TestTransitionRequestStatus_Validation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	if _, err := svc.TransitionRequestStatus(context.Background(), 1, "voando"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	repo.requests[1].Status = domain.RequestStatusCompleted
	if _, err := svc.TransitionRequestStatus(context.Background(), 1, domain.RequestStatusCancelled); !errors.Is(err, ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed for terminal request, got %v", err)
	}
}

func TestPostMessage_StoresOnlyRedactedContent(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	msg, err := svc.PostMessage(context.Background(), 1, ownerID, "me chama no zap 11 98765-4321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.HasRedactions {
		t.Fatal("expected the redaction flag")
	}
	if strings.Contains(msg.Content, "98765") {
		t.Fatalf("raw phone leaked: %q", msg.Content)
	}

	stored := repo.messages[0]
	if strings.Contains(stored.Content, "98765") {
		t.Fatalf("raw phone persisted: %q", stored.Content)
	}
	if stored.SenderRole != domain.RoleOwner {
		t.Fatalf("expected owner sender role, got %s", stored.SenderRole)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.PostMessage(context.Background(), 1, ownerID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.PostMessage(context.Background(), 1, 999, "oi"); !errors.Is(err, ErrNotAParty) {
		t.Fatalf("expected ErrNotAParty, got %v", err)
	}
}

func TestPostMessage_AdminAllowed(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	msg, err := svc.PostMessage(context.Background(), 1, adminID, "Documentação aprovada.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderRole != domain.RoleAdmin {
		t.Fatalf("expected admin sender role, got %s", msg.SenderRole)
	}
}

func TestPostMessage_RateLimited(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	svc.SetMessageRateLimiter(&limiterStub{allowed: false})

	if _, err := svc.PostMessage(context.Background(), 1, ownerID, "oi"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPostMessage_LimiterOutageFailsOpen(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	svc.SetMessageRateLimiter(&limiterStub{err: errors.New("redis down")})

	if _, err := svc.PostMessage(context.Background(), 1, ownerID, "oi"); err != nil {
		t.Fatalf("limiter outage must not block messaging, got %v", err)
	}
}

func TestGetThread_IncludesFeePreviewForParty(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.PostMessage(context.Background(), 1, ownerID, "bom dia"); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	thread, err := svc.GetThread(context.Background(), 1, pilotID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thread.Role != domain.RolePilot {
		t.Fatalf("expected pilot role, got %s", thread.Role)
	}
	if len(thread.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(thread.Messages))
	}
	if thread.FeePreview == nil {
		t.Fatal("expected a fee preview for a party")
	}
	if thread.FeePreview.TotalCents != 25000 {
		t.Fatalf("pro pilot preview should be 25000, got %d", thread.FeePreview.TotalCents)
	}

	adminThread, err := svc.GetThread(context.Background(), 1, adminID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adminThread.FeePreview != nil {
		t.Fatal("staff view must not carry a fee preview")
	}
}

func TestListFees_IncludesPreviewForParty(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	confirmBothParties(t, svc)

	if _, err := svc.CreateFeeSession(context.Background(), 1, ownerID, ""); err != nil {
		t.Fatalf("session create failed: %v", err)
	}

	ledger, err := svc.ListFees(context.Background(), 1, pilotID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.Fees) != 1 {
		t.Fatalf("expected one fee on the ledger, got %d", len(ledger.Fees))
	}
	if ledger.FeePreview == nil {
		t.Fatal("expected a fee preview for a party caller")
	}
	if ledger.FeePreview.TotalCents != 25000 {
		t.Fatalf("pro pilot preview should be 25000, got %d", ledger.FeePreview.TotalCents)
	}

	adminLedger, err := svc.ListFees(context.Background(), 1, adminID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adminLedger.FeePreview != nil {
		t.Fatal("staff view must not carry a fee preview")
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.CreateRequest(context.Background(), ownerID, domain.CreateRequestParams{}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}

	req, err := svc.CreateRequest(context.Background(), ownerID, domain.CreateRequestParams{
		AircraftModel:   "King Air C90",
		AircraftPrefix:  "PT-XYZ",
		OriginCity:      "Sorocaba",
		DestinationCity: "Cuiabá",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != domain.RequestStatusNew {
		t.Fatalf("expected new status, got %s", req.Status)
	}
	if req.OwnerUserID != ownerID {
		t.Fatalf("expected owner %d, got %d", ownerID, req.OwnerUserID)
	}
}
