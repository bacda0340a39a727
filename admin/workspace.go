package admin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-admin-backend/models"
)

// Deps are shared by every workspace.
type Deps struct {
	Table     ProjectTable
	Media     MediaResolver
	Buckets   Buckets
	Listeners []ChangeListener
	InboxSize int
}

// Workspace is one admin's editing session: a form, the project list and
// the deletion guard, wired together.
type Workspace struct {
	UserID   string
	Form     *FormController
	List     *ListController
	Deletion *DeletionFlow
	Inbox    *Inbox

	mu       sync.Mutex
	lastSeen time.Time
}

func NewWorkspace(userID string, deps Deps) *Workspace {
	logger := log.With().Str("component", "workspace").Str("userID", userID).Logger()
	inbox := NewInbox(deps.InboxSize, logger)
	list := NewListController(deps.Table, logger)
	form := NewFormController(deps.Table, deps.Media, deps.Buckets, list, inbox, logger, deps.Listeners...)
	deletion := NewDeletionFlow(deps.Table, list, inbox, logger, deps.Listeners...)
	list.connect(form, deletion)

	return &Workspace{
		UserID:   userID,
		Form:     form,
		List:     list,
		Deletion: deletion,
		Inbox:    inbox,
		lastSeen: time.Now(),
	}
}

// EnsureLoaded fetches the list the first time the workspace is opened.
func (w *Workspace) EnsureLoaded(ctx context.Context) error {
	if w.List.Loaded() {
		return nil
	}
	return w.List.Refresh(ctx)
}

// Busy reports whether a submit or delete is in flight.
func (w *Workspace) Busy() bool {
	return w.Form.State() != StateIdle || w.Deletion.State() == DeletionDeleting
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// View is the JSON snapshot of a workspace.
type View struct {
	Draft           DraftView        `json:"draft"`
	Editing         bool             `json:"editing"`
	SubmitState     string           `json:"submit_state"`
	Projects        []models.Project `json:"projects"`
	ListError       string           `json:"list_error,omitempty"`
	DeletionState   string           `json:"deletion_state"`
	PendingDeletion *int64           `json:"pending_deletion,omitempty"`
}

func (w *Workspace) View() View {
	v := View{
		Draft:         w.Form.View(),
		Editing:       w.Form.Editing(),
		SubmitState:   w.Form.State().String(),
		Projects:      w.List.Projects(),
		ListError:     w.List.Err(),
		DeletionState: w.Deletion.State().String(),
	}
	if id, ok := w.Deletion.Pending(); ok {
		v.PendingDeletion = &id
	}
	return v
}

// Registry hands out one workspace per admin user.
type Registry struct {
	mu         sync.Mutex
	deps       Deps
	workspaces map[string]*Workspace
	now        func() time.Time
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:       deps,
		workspaces: make(map[string]*Workspace),
		now:        time.Now,
	}
}

// Get returns the user's workspace, creating it on first use.
func (r *Registry) Get(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[userID]
	if !ok {
		w = NewWorkspace(userID, r.deps)
		r.workspaces[userID] = w
	}
	w.touch(r.now())
	return w
}

// Drop forgets the user's workspace, e.g. on sign out.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, userID)
}

// Sweep drops workspaces idle for longer than ttl, skipping busy ones.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, w := range r.workspaces {
		if w.idleSince().Before(cutoff) && !w.Busy() {
			delete(r.workspaces, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ttl); n > 0 {
				log.Info().Int("dropped", n).Msg("idle admin workspaces dropped")
			}
		}
	}
}
