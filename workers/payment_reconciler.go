// workers/payment_reconciler.go
package workers

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"monad-feedback-system/models"
	"monad-feedback-system/services"
	"monad-feedback-system/workflow"
)

// PaymentReconciler finalizes payments a client abandoned mid-poll: rows
// stuck pending past the grace period get one receipt check per sweep.
// A null receipt leaves the row pending — the transaction may still land.
type PaymentReconciler struct {
	DB          *gorm.DB
	RPC         *services.RPCClient
	GracePeriod time.Duration

	scheduler gocron.Scheduler
}

func NewPaymentReconciler(db *gorm.DB, rpc *services.RPCClient) *PaymentReconciler {
	return &PaymentReconciler{
		DB:          db,
		RPC:         rpc,
		GracePeriod: 2 * time.Minute,
	}
}

// Start schedules a sweep every minute until the context is done.
func (r *PaymentReconciler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	r.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			r.ReconcileOnce(ctx)
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[Reconciler] shutdown error: %v", err)
		}
	}()

	return nil
}

// ReconcileOnce sweeps stale pending payments. Each payment gets a single
// point-in-time check (retry policy of one attempt) — the per-minute
// schedule is the cadence.
func (r *PaymentReconciler) ReconcileOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.GracePeriod)

	var stale []models.Payment
	err := r.DB.Where("status = ? AND created_at <= ?", models.PaymentStatusPending, cutoff).
		Find(&stale).Error
	if err != nil {
		log.Printf("[Reconciler] DB error: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("[Reconciler] checking %d stale pending payment(s)", len(stale))

	for _, payment := range stale {
		flow := workflow.NewConfirmingFlow(payment.WalletAddress, payment.PaymentHash)
		flow.Policy = workflow.RetryPolicy{MaxAttempts: 1, Interval: 0}

		outcome, conf, err := flow.AwaitConfirmation(ctx, r.RPC)
		if err != nil {
			log.Printf("[Reconciler] check failed for %s: %v", payment.PaymentHash, err)
			continue
		}

		switch outcome {
		case workflow.OutcomeConfirmed, workflow.OutcomeFailed:
			status := models.PaymentStatusConfirmed
			if outcome == workflow.OutcomeFailed {
				status = models.PaymentStatusFailed
			}
			_, err := services.UpdatePaymentByHash(r.DB, payment.PaymentHash, services.PaymentUpdate{
				Status:      &status,
				BlockNumber: &conf.BlockNumber,
				GasUsed:     &conf.GasUsed,
			})
			if err != nil {
				log.Printf("[Reconciler] failed to finalize %s: %v", payment.PaymentHash, err)
				continue
			}
			log.Printf("[Reconciler] payment %s finalized as %s (block %d)",
				payment.PaymentHash, status, conf.BlockNumber)
		default:
			// still unmined — leave pending for the next sweep
		}
	}
}
