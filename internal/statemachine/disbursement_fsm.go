package statemachine

import (
	"context"
	"fmt"

	"github.com/fintlabs/lending-api/internal/models"
	"github.com/looplab/fsm"
)

// DisbursementFSM wraps a disbursement with its state machine
type DisbursementFSM struct {
	disbursement *models.Disbursement
	fsm          *fsm.FSM
}

// NewDisbursementFSM creates a new disbursement state machine
func NewDisbursementFSM(disbursement *models.Disbursement) *DisbursementFSM {
	dfsm := &DisbursementFSM{
		disbursement: disbursement,
	}

	dfsm.fsm = fsm.NewFSM(
		disbursement.Status,
		fsm.Events{
			// pending → completed
			{Name: "complete", Src: []string{models.DisbursementStatusPending}, Dst: models.DisbursementStatusCompleted},

			// pending → failed
			{Name: "fail", Src: []string{models.DisbursementStatusPending}, Dst: models.DisbursementStatusFailed},

			// completed → rolled_back (terminal)
			{Name: "rollback", Src: []string{models.DisbursementStatusCompleted}, Dst: models.DisbursementStatusRolledBack},
		},
		fsm.Callbacks{},
	)

	return dfsm
}

// Complete transitions the disbursement to completed
func (d *DisbursementFSM) Complete(ctx context.Context) error {
	if !d.disbursement.MayComplete() {
		return fmt.Errorf("disbursement cannot be completed in current state: %s", d.disbursement.Status)
	}

	if err := d.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete disbursement: %w", err)
	}

	d.disbursement.Status = d.fsm.Current()
	return nil
}

// Fail transitions the disbursement to failed
func (d *DisbursementFSM) Fail(ctx context.Context) error {
	if err := d.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to mark disbursement failed: %w", err)
	}

	d.disbursement.Status = d.fsm.Current()
	return nil
}

// Rollback transitions the disbursement to rolled_back
func (d *DisbursementFSM) Rollback(ctx context.Context) error {
	if !d.disbursement.MayRollback() {
		return fmt.Errorf("disbursement cannot be rolled back in current state: %s", d.disbursement.Status)
	}

	if err := d.fsm.Event(ctx, "rollback"); err != nil {
		return fmt.Errorf("failed to rollback disbursement: %w", err)
	}

	d.disbursement.Status = d.fsm.Current()
	return nil
}

// Current returns the current state
func (d *DisbursementFSM) Current() string {
	return d.fsm.Current()
}

// Can checks if a transition is possible
func (d *DisbursementFSM) Can(event string) bool {
	return d.fsm.Can(event)
}
