/**
 * @description
 * Sentinel errors for the traslados workflow. Handlers map these onto the
 * HTTP error taxonomy; gateway failures are wrapped in ErrGatewayUnavailable
 * so a single network hiccup is surfaced as retryable instead of silently
 * failing a fee.
 */
package app

import "errors"

var (
	ErrMissingFields         = errors.New("required request fields are missing")
	ErrNotAParty             = errors.New("caller is not a party to this request")
	ErrAgreementNotConfirmed = errors.New("agreement not confirmed yet")
	ErrRequestClosed         = errors.New("transfer request is closed")
	ErrReferenceMismatch     = errors.New("payment reference does not match the fee on file")
	ErrFeeNotPending         = errors.New("service fee is not pending")
	ErrPaymentNotCompleted   = errors.New("payment not completed at the gateway")
	ErrInvalidPromoCode      = errors.New("invalid or expired promo code")
	ErrEmptyMessage          = errors.New("message content not allowed")
	ErrRateLimited           = errors.New("message rate limit exceeded")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrInvalidStatus         = errors.New("invalid request status")
)
