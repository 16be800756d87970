package domain

import (
	"testing"
	"time"
)

func TestPartyRole(t *testing.T) {
	pilot := int64(20)
	req := &TransferRequest{ID: 1, OwnerUserID: 10, PilotUserID: &pilot}

	if got := req.PartyRole(10); got != RoleOwner {
		t.Fatalf("expected owner, got %q", got)
	}
	if got := req.PartyRole(20); got != RolePilot {
		t.Fatalf("expected pilot, got %q", got)
	}
	if got := req.PartyRole(99); got != "" {
		t.Fatalf("expected no role for stranger, got %q", got)
	}
}

func TestPartyRole_UnassignedPilot(t *testing.T) {
	req := &TransferRequest{ID: 1, OwnerUserID: 10}

	if got := req.PartyRole(20); got != "" {
		t.Fatalf("expected no role before pilot assignment, got %q", got)
	}
}

func TestAgreementStateOf_ConfirmedOnlyWhenBothSigned(t *testing.T) {
	now := time.Now()
	req := &TransferRequest{ID: 1, OwnerUserID: 10}

	if AgreementStateOf(req).Confirmed {
		t.Fatal("expected unconfirmed with no signatures")
	}

	req.OwnerConfirmedAt = &now
	if AgreementStateOf(req).Confirmed {
		t.Fatal("expected unconfirmed with a single signature")
	}

	req.PilotConfirmedAt = &now
	if !AgreementStateOf(req).Confirmed {
		t.Fatal("expected confirmed once both parties signed")
	}
}

func TestTerminalRequestStatus(t *testing.T) {
	for _, s := range []string{RequestStatusNew, RequestStatusInReview, RequestStatusScheduled} {
		if TerminalRequestStatus(s) {
			t.Fatalf("%q should not be terminal", s)
		}
	}
	for _, s := range []string{RequestStatusCompleted, RequestStatusCancelled} {
		if !TerminalRequestStatus(s) {
			t.Fatalf("%q should be terminal", s)
		}
	}
}
