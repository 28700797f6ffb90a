// workflow/payment_workflow.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"
)

// State is the position of one payment-and-submit flow. The machine is
// single-actor: one wallet drives one flow sequentially, and the database
// remains the final arbiter for the Submitted transition.
type State string

const (
	StateIdle              State = "idle"
	StatePaymentPending    State = "payment_pending"
	StatePaymentConfirming State = "payment_confirming"
	StatePaymentConfirmed  State = "payment_confirmed"
	StatePaymentFailed     State = "payment_failed"
	StatePaymentTimeout    State = "payment_timeout"
	StateSubmissionAllowed State = "submission_allowed"
	StateSubmitted         State = "submitted"
)

// Outcome is the terminal result of waiting on a transaction.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed" // mined and executed successfully
	OutcomeFailed    Outcome = "failed"    // mined but reverted
	OutcomeTimeout   Outcome = "timeout"   // attempts exhausted, tx may still land later
)

var (
	ErrWalletRequired      = errors.New("wallet address is required")
	ErrAlreadyPaid         = errors.New("a confirmed payment already exists")
	ErrInsufficientBalance = errors.New("insufficient balance for payment")
	ErrInvalidTransition   = errors.New("invalid workflow transition")
)

// Confirmation is a decoded receipt. A nil *Confirmation from a Checker
// means "no receipt yet" — not an error.
type Confirmation struct {
	Success     bool
	BlockNumber int64
	GasUsed     int64
}

// Checker is a single point-in-time receipt lookup. Polling cadence and
// timeout belong to the RetryPolicy, never to the Checker.
type Checker interface {
	Check(ctx context.Context, txHash string) (*Confirmation, error)
}

// RetryPolicy is a bounded fixed-interval poll: MaxAttempts checks, Interval
// apart, no backoff. Per-attempt errors are transient and do not consume the
// loop early.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy mirrors the UI contract: 1s cadence, up to 30 attempts.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 30, Interval: time.Second}

// PaymentFlow is one wallet's journey from idle to submitted for a single
// form (or the global feedback slot when FormID is empty).
type PaymentFlow struct {
	WalletAddress string
	FormID        string
	TxHash        string
	Policy        RetryPolicy

	state State
}

func NewPaymentFlow(wallet string) *PaymentFlow {
	return &PaymentFlow{
		WalletAddress: wallet,
		Policy:        DefaultRetryPolicy,
		state:         StateIdle,
	}
}

// NewConfirmingFlow starts a flow at payment_confirming — used when the
// transaction hash already exists (the server picks up where the wallet
// provider left off).
func NewConfirmingFlow(wallet, txHash string) *PaymentFlow {
	return &PaymentFlow{
		WalletAddress: wallet,
		TxHash:        txHash,
		Policy:        DefaultRetryPolicy,
		state:         StatePaymentConfirming,
	}
}

func (f *PaymentFlow) State() State { return f.state }

// BeginPayment gates Idle → PaymentPending: wallet present, no confirmed
// payment on record, and enough balance to cover the required amount.
func (f *PaymentFlow) BeginPayment(hasConfirmedPayment bool, balanceWei, requiredWei *big.Int) error {
	if f.state != StateIdle {
		return fmt.Errorf("%w: begin payment from %s", ErrInvalidTransition, f.state)
	}
	if f.WalletAddress == "" {
		return ErrWalletRequired
	}
	if hasConfirmedPayment {
		return ErrAlreadyPaid
	}
	if balanceWei == nil || requiredWei == nil || balanceWei.Cmp(requiredWei) < 0 {
		return ErrInsufficientBalance
	}
	f.state = StatePaymentPending
	return nil
}

// TransactionSent records the hash returned by the wallet provider and moves
// to PaymentConfirming. The caller records the pending ledger row best-effort
// around this call — the chain, not the row, is the source of truth.
func (f *PaymentFlow) TransactionSent(txHash string) error {
	if f.state != StatePaymentPending {
		return fmt.Errorf("%w: transaction sent from %s", ErrInvalidTransition, f.state)
	}
	f.TxHash = txHash
	f.state = StatePaymentConfirming
	return nil
}

// AwaitConfirmation runs the bounded poll loop against the checker and moves
// the flow to its terminal payment state. Timeout leaves the question open:
// the transaction may still land, so the ledger row stays pending.
func (f *PaymentFlow) AwaitConfirmation(ctx context.Context, checker Checker) (Outcome, *Confirmation, error) {
	if f.state != StatePaymentConfirming {
		return "", nil, fmt.Errorf("%w: await confirmation from %s", ErrInvalidTransition, f.state)
	}

	for attempt := 1; attempt <= f.Policy.MaxAttempts; attempt++ {
		conf, err := checker.Check(ctx, f.TxHash)
		if err != nil {
			// transient — keep the cadence and try again
			log.Printf("[WORKFLOW] confirmation check %d/%d for %s failed: %v",
				attempt, f.Policy.MaxAttempts, f.TxHash, err)
		} else if conf != nil {
			if conf.Success {
				f.state = StatePaymentConfirmed
				return OutcomeConfirmed, conf, nil
			}
			f.state = StatePaymentFailed
			return OutcomeFailed, conf, nil
		}

		if attempt == f.Policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-time.After(f.Policy.Interval):
		}
	}

	f.state = StatePaymentTimeout
	return OutcomeTimeout, nil, nil
}

// AllowSubmission unlocks the one-time submit action after confirmation.
func (f *PaymentFlow) AllowSubmission() error {
	if f.state != StatePaymentConfirmed {
		return fmt.Errorf("%w: allow submission from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateSubmissionAllowed
	return nil
}

// MarkSubmitted is one-way: a flow never leaves Submitted.
func (f *PaymentFlow) MarkSubmitted() error {
	if f.state != StateSubmissionAllowed {
		return fmt.Errorf("%w: mark submitted from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateSubmitted
	return nil
}
