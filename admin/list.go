package admin

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rpupo63/portfolio-admin-backend/errs"
	"github.com/rpupo63/portfolio-admin-backend/models"
)

// Editor receives edit intents from the list.
type Editor interface {
	Hydrate(record models.Project) error
}

// DeleteRequester receives delete intents from the list.
type DeleteRequester interface {
	Request(id int64) error
}

// ListController holds the admin's snapshot of the projects table.
type ListController struct {
	mu       sync.Mutex
	projects []models.Project
	lastErr  string
	loaded   bool

	table   ProjectTable
	editor  Editor
	deleter DeleteRequester
	logger  zerolog.Logger
}

func NewListController(table ProjectTable, logger zerolog.Logger) *ListController {
	return &ListController{table: table, logger: logger, projects: []models.Project{}}
}

func (l *ListController) connect(editor Editor, deleter DeleteRequester) {
	l.editor = editor
	l.deleter = deleter
}

// Refresh replaces the snapshot with the table's current rows, always read
// from the primary. A failure keeps the old snapshot and records the reason.
func (l *ListController) Refresh(ctx context.Context) error {
	projects, err := l.table.FindAllPrimary(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fetchErr := errs.NewFetchError("projects", err)
		l.lastErr = errs.Message(fetchErr)
		l.logger.Error().Err(err).Msg("failed to fetch projects")
		return fetchErr
	}
	if projects == nil {
		projects = []models.Project{}
	}
	l.projects = projects
	l.lastErr = ""
	l.loaded = true
	return nil
}

// RequestEdit hydrates the form with the record from the snapshot. It
// reports false when the id is not in the snapshot.
func (l *ListController) RequestEdit(id int64) (bool, error) {
	l.mu.Lock()
	var (
		record models.Project
		found  bool
	)
	for _, p := range l.projects {
		if p.ID == id {
			record, found = p.Clone(), true
			break
		}
	}
	l.mu.Unlock()

	if !found {
		return false, nil
	}
	return true, l.editor.Hydrate(record)
}

// RequestDelete opens the confirmation step; nothing is deleted yet.
func (l *ListController) RequestDelete(id int64) error {
	return l.deleter.Request(id)
}

// Projects returns a copy of the snapshot, ordered by id.
func (l *ListController) Projects() []models.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Project, len(l.projects))
	for i, p := range l.projects {
		out[i] = p.Clone()
	}
	return out
}

// Err is the message of the last failed refresh, or "".
func (l *ListController) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *ListController) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}
