package admin

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rpupo63/portfolio-admin-backend/errs"
)

type DeletionState int

const (
	DeletionClosed DeletionState = iota
	DeletionPending
	DeletionDeleting
)

func (s DeletionState) String() string {
	switch s {
	case DeletionPending:
		return "pending_confirmation"
	case DeletionDeleting:
		return "deleting"
	default:
		return "closed"
	}
}

// DeletionFlow is the two-step guard in front of a row delete. The backend
// is only called from Confirm.
type DeletionFlow struct {
	mu      sync.Mutex
	state   DeletionState
	pending int64

	table     ProjectTable
	refresher Refresher
	listeners []ChangeListener
	notifier  Notifier
	logger    zerolog.Logger
}

func NewDeletionFlow(table ProjectTable, refresher Refresher, notifier Notifier, logger zerolog.Logger, listeners ...ChangeListener) *DeletionFlow {
	return &DeletionFlow{
		table:     table,
		refresher: refresher,
		listeners: listeners,
		notifier:  notifier,
		logger:    logger,
	}
}

// Request marks id as awaiting confirmation, replacing any earlier request.
func (d *DeletionFlow) Request(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DeletionDeleting {
		return errs.NewDeleteInProgressError()
	}
	d.state = DeletionPending
	d.pending = id
	return nil
}

// Cancel closes the confirmation without touching the backend.
func (d *DeletionFlow) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DeletionDeleting {
		return errs.NewDeleteInProgressError()
	}
	d.state = DeletionClosed
	d.pending = 0
	return nil
}

// Confirm deletes the pending id. The flow is closed afterwards whatever
// the outcome.
func (d *DeletionFlow) Confirm(ctx context.Context) (int64, error) {
	d.mu.Lock()
	switch d.state {
	case DeletionClosed:
		d.mu.Unlock()
		return 0, errs.NewNothingPendingError()
	case DeletionDeleting:
		d.mu.Unlock()
		return 0, errs.NewDeleteInProgressError()
	}
	id := d.pending
	d.state = DeletionDeleting
	d.mu.Unlock()

	err := d.table.Delete(ctx, id)

	d.mu.Lock()
	d.state = DeletionClosed
	d.pending = 0
	d.mu.Unlock()

	if err != nil {
		persistErr := errs.NewPersistError("delete", err)
		d.logger.Error().Err(err).Int64("projectID", id).Msg("delete failed")
		d.notifier.Notify(Notification{
			Kind:    NotifyError,
			Op:      "delete",
			Message: "Error deleting project: " + errs.Message(persistErr),
		})
		return id, persistErr
	}

	d.logger.Info().Int64("projectID", id).Msg("project deleted")
	for _, l := range d.listeners {
		l.ProjectsChanged(ctx)
	}
	if d.refresher != nil {
		if err := d.refresher.Refresh(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("list refresh after delete failed")
		}
	}
	d.notifier.Notify(Notification{
		Kind:    NotifySuccess,
		Op:      "delete",
		Message: "Project deleted successfully",
	})
	return id, nil
}

func (d *DeletionFlow) State() DeletionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns the id awaiting confirmation.
func (d *DeletionFlow) Pending() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.state != DeletionClosed
}
