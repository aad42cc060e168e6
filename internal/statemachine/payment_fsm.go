package statemachine

import (
	"context"
	"fmt"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/looplab/fsm"
)

// PaymentFSM wraps a payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// POSTED/ROLLBACK_COMPENSATION → rolled_back (terminal)
			{Name: "rollback", Src: []string{models.PaymentStatusPosted, models.PaymentStatusCompensation}, Dst: models.PaymentStatusRolledBack},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Rollback transitions the payment to rolled_back
func (p *PaymentFSM) Rollback(ctx context.Context) error {
	if !p.payment.MayRollback() {
		return fmt.Errorf("payment cannot be rolled back in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "rollback"); err != nil {
		return fmt.Errorf("failed to rollback payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
