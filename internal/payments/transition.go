// Package payments implements the per-split payment state machine:
// Pending -> Paid -> Approved, with Rejected sending the leg back to the
// start of the cycle. Only the debtor may declare a payment; only the
// expense payer or a group admin may approve or reject it.
package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/tally/internal/models"
)

// Action is a requested payment transition.
type Action string

const (
	// ActionPay declares the split paid. Debtor only.
	ActionPay Action = "pay"

	// ActionApprove confirms a declared payment. Payer or admin only.
	ActionApprove Action = "approve"

	// ActionReject disputes a declared payment and re-opens the leg.
	// Payer or admin only; requires a reason.
	ActionReject Action = "reject"
)

// Actor identifies who is requesting a transition. IsAdmin comes from the
// group-roster collaborator; the state machine only consumes it.
type Actor struct {
	MemberID string
	IsAdmin  bool
}

var (
	// ErrUnauthorizedTransition means the actor may not perform this
	// transition. The payment is left unchanged.
	ErrUnauthorizedTransition = errors.New("actor not allowed to perform this transition")

	// ErrInvalidTransition means the action does not apply to the
	// payment's current status.
	ErrInvalidTransition = errors.New("transition not valid from current status")

	// ErrReasonRequired means a rejection was attempted without a reason.
	ErrReasonRequired = errors.New("rejection requires a reason")

	// ErrUnknownAction is returned for an unrecognized action.
	ErrUnknownAction = errors.New("unknown payment action")
)

// Transition applies action to p in place. payerID is the payer of the
// split's expense; p.MemberID is the debtor. On any error the payment is
// left exactly as it was.
func Transition(p *models.Payment, action Action, actor Actor, payerID, reason string) error {
	switch action {
	case ActionPay:
		return pay(p, actor)
	case ActionApprove:
		return approve(p, actor, payerID)
	case ActionReject:
		return reject(p, actor, payerID, reason)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func pay(p *models.Payment, actor Actor) error {
	// Rejected re-opens the cycle: the debtor may declare again.
	if p.Status != models.PaymentPending && p.Status != models.PaymentRejected {
		return fmt.Errorf("%w: pay from %s", ErrInvalidTransition, p.Status)
	}
	if actor.MemberID != p.MemberID {
		return fmt.Errorf("%w: only the debtor may declare payment", ErrUnauthorizedTransition)
	}

	p.Status = models.PaymentPaid
	p.DeclaredBy = actor.MemberID
	p.ResolvedBy = ""
	p.RejectReason = ""
	p.UpdatedAt = time.Now().Unix()
	return nil
}

func approve(p *models.Payment, actor Actor, payerID string) error {
	if p.Status != models.PaymentPaid {
		return fmt.Errorf("%w: approve from %s", ErrInvalidTransition, p.Status)
	}
	if actor.MemberID != payerID && !actor.IsAdmin {
		return fmt.Errorf("%w: only the payer or an admin may approve", ErrUnauthorizedTransition)
	}

	p.Status = models.PaymentApproved
	p.ResolvedBy = actor.MemberID
	p.UpdatedAt = time.Now().Unix()
	return nil
}

func reject(p *models.Payment, actor Actor, payerID, reason string) error {
	if p.Status != models.PaymentPaid {
		return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, p.Status)
	}
	if actor.MemberID != payerID && !actor.IsAdmin {
		return fmt.Errorf("%w: only the payer or an admin may reject", ErrUnauthorizedTransition)
	}
	if reason == "" {
		return ErrReasonRequired
	}

	p.Status = models.PaymentRejected
	p.ResolvedBy = actor.MemberID
	p.RejectReason = reason
	p.UpdatedAt = time.Now().Unix()
	return nil
}
