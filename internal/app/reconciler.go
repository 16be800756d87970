/**
 * @description
 * Reconciliation backstop for pending service fees. Webhooks are the fast
 * path; this pass is the slow path that converges fees whose webhook was
 * lost and expires sessions whose TTL lapsed.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/lovetofly/traslados-service/internal/domain"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Paid    int `json:"paid"`
	Expired int `json:"expired"`
	Errors  int `json:"errors"`
}

// Reconcile scans pending fees older than the configured minimum age and
// converges each one against the gateway: a succeeded intent settles the
// fee, an elapsed TTL expires it, everything else is left for the next
// pass. Per-item errors are logged and counted, never fatal to the pass.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	reconcileRunsTotal.Inc()

	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.ReconcileMinAge)

	pending, err := s.repo.ListPendingFeesOlderThan(ctx, cutoff, s.cfg.ReconcileLimit)
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{Scanned: len(pending)}
	for i := range pending {
		fee := pending[i]
		if err := s.reconcileFee(ctx, &fee, now, &report); err != nil {
			report.Errors++
			reconcileItemErrorsTotal.Inc()
			log.Printf("level=warn component=reconciler msg=\"failed to reconcile fee\" fee_id=%s request_id=%d err=%v", fee.ID, fee.RequestID, err)
		}
	}

	return report, nil
}

func (s *Service) reconcileFee(ctx context.Context, fee *domain.ServiceFee, now time.Time, report *ReconcileReport) error {
	if fee.PaymentIntentID != nil {
		intent, err := s.gateway.GetPaymentIntent(ctx, *fee.PaymentIntentID)
		if err != nil {
			return err
		}
		if intent.Succeeded() {
			paid, err := s.applyPaidTransition(ctx, *fee.PaymentIntentID, "reconcile")
			if err != nil {
				return err
			}
			if paid != nil {
				report.Paid++
			}
			return nil
		}
	}

	if fee.ExpiresAt == nil || now.Before(*fee.ExpiresAt) {
		return nil
	}

	expired, err := s.repo.MarkFeeExpired(ctx, fee.ID)
	if err != nil {
		return err
	}
	if expired == nil {
		// Settled by another path between the scan and now.
		return nil
	}

	report.Expired++
	feeTransitionsTotal.WithLabelValues(domain.FeeStatusExpired, "reconcile").Inc()
	s.publishFeeEvent(ctx, domain.EventFeeExpired, expired)

	if expired.PaymentIntentID != nil {
		if _, err := s.gateway.CancelPaymentIntent(ctx, *expired.PaymentIntentID); err != nil {
			log.Printf("level=warn component=reconciler msg=\"failed to void intent for expired fee\" payment_intent_id=%s err=%v", *expired.PaymentIntentID, err)
		}
	}

	return nil
}
