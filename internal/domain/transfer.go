/**
 * @description
 * Core domain models for the traslados (aircraft transfer) workflow.
 *
 * @notes
 * - Monetary amounts are stored as int64 cents to avoid floating-point
 *   inaccuracies with financial data.
 * - Agreement confirmation timestamps live on the transfer request row and
 *   are append-only: a party column is written at most once, and the
 *   composite confirmed_at is derived from the two party columns.
 */
package domain

import "time"

// TransferRequest lifecycle statuses.
const (
	RequestStatusNew       = "new"
	RequestStatusInReview  = "in_review"
	RequestStatusScheduled = "scheduled"
	RequestStatusCompleted = "completed"
	RequestStatusCancelled = "cancelled"
)

// Party roles on a transfer request.
const (
	RoleOwner = "owner"
	RolePilot = "pilot"
	RoleAdmin = "admin"
)

// ValidRequestStatus reports whether s is a known request status.
func ValidRequestStatus(s string) bool {
	switch s {
	case RequestStatusNew, RequestStatusInReview, RequestStatusScheduled,
		RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// TerminalRequestStatus reports whether s is a terminal request status.
func TerminalRequestStatus(s string) bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// TransferRequest maps to the `traslados_requests` table. The requester is
// the aircraft owner; a pilot is assigned by staff once the deal is matched.
type TransferRequest struct {
	ID               int64      `json:"id"`
	OwnerUserID      int64      `json:"owner_user_id"`
	PilotUserID      *int64     `json:"pilot_user_id,omitempty"`
	AircraftModel    string     `json:"aircraft_model"`
	AircraftPrefix   string     `json:"aircraft_prefix"`
	OriginCity       string     `json:"origin_city"`
	DestinationCity  string     `json:"destination_city"`
	Status           string     `json:"status"`
	OwnerConfirmedAt *time.Time `json:"agreement_owner_confirmed_at,omitempty"`
	PilotConfirmedAt *time.Time `json:"agreement_pilot_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time `json:"agreement_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PartyRole returns the role userID plays on the request, or "" if the user
// is not a party to it.
func (r *TransferRequest) PartyRole(userID int64) string {
	if r.OwnerUserID == userID {
		return RoleOwner
	}
	if r.PilotUserID != nil && *r.PilotUserID == userID {
		return RolePilot
	}
	return ""
}

// AgreementState is the derived view of the bilateral confirmation protocol.
// Confirmed is true iff both per-party timestamps are set; it is a one-way
// ratchet and never reverts.
type AgreementState struct {
	RequestID        int64      `json:"request_id"`
	OwnerConfirmedAt *time.Time `json:"owner_confirmed_at,omitempty"`
	PilotConfirmedAt *time.Time `json:"pilot_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	Confirmed        bool       `json:"confirmed"`
}

// AgreementStateOf derives the agreement state from a transfer request row.
func AgreementStateOf(r *TransferRequest) AgreementState {
	return AgreementState{
		RequestID:        r.ID,
		OwnerConfirmedAt: r.OwnerConfirmedAt,
		PilotConfirmedAt: r.PilotConfirmedAt,
		ConfirmedAt:      r.ConfirmedAt,
		Confirmed:        r.OwnerConfirmedAt != nil && r.PilotConfirmedAt != nil,
	}
}

// UserProfile is the slice of the users table this service needs: the
// membership plan feeds the discount resolver, the role gates admin access.
type UserProfile struct {
	ID   int64  `json:"id"`
	Plan string `json:"plan"`
	Role string `json:"role"`
}

// IsStaff reports whether the profile carries a back-office role.
func (u UserProfile) IsStaff() bool {
	switch u.Role {
	case "admin", "staff", "master":
		return true
	}
	return false
}

// CreateRequestParams carries the fields a requester supplies when opening
// a transfer request.
type CreateRequestParams struct {
	AircraftModel   string `json:"aircraft_model"`
	AircraftPrefix  string `json:"aircraft_prefix"`
	OriginCity      string `json:"origin_city"`
	DestinationCity string `json:"destination_city"`
}
