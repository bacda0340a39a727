package admin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rpupo63/portfolio-admin-backend/errs"
	"github.com/rpupo63/portfolio-admin-backend/models"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

// ProjectTable is the table side of the remote backend.
type ProjectTable interface {
	FindAllPrimary(ctx context.Context) ([]models.Project, error)
	Add(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id int64) error
}

// MediaResolver uploads pending selections and returns the resulting URLs.
type MediaResolver interface {
	ResolveMedia(ctx context.Context, field string, in storage.MediaInput, existing, bucket string) (string, error)
	ResolveGallery(ctx context.Context, field string, in storage.MediaInput, existing []string, bucket string) ([]string, error)
}

// ChangeListener is told about every successful write.
type ChangeListener interface {
	ProjectsChanged(ctx context.Context)
}

// Refresher reloads the project list after a write.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Buckets struct {
	Images string
	Videos string
}

type SubmitState int

const (
	StateIdle SubmitState = iota
	StateUploading
	StatePersisting
)

func (s SubmitState) String() string {
	switch s {
	case StateUploading:
		return "uploading"
	case StatePersisting:
		return "persisting"
	default:
		return "idle"
	}
}

// Outcome describes a successful submit.
type Outcome struct {
	Op      string         `json:"op"`
	Project models.Project `json:"project"`
}

// FieldPatch sets scalar fields; nil entries are left alone.
type FieldPatch struct {
	Name           *string `json:"name"`
	CompanyName    *string `json:"company_name"`
	PartnerCompany *string `json:"partner_company"`
	Location       *string `json:"location"`
	ProjectType    *string `json:"project_type"`
	Description    *string `json:"description"`
	Behance        *string `json:"behance"`
}

// FormController owns the draft of one admin session and turns it into a
// persisted record.
type FormController struct {
	mu      sync.Mutex
	draft   Draft
	editing bool
	state   SubmitState

	table     ProjectTable
	media     MediaResolver
	buckets   Buckets
	refresher Refresher
	listeners []ChangeListener
	notifier  Notifier
	logger    zerolog.Logger
}

func NewFormController(table ProjectTable, media MediaResolver, buckets Buckets, refresher Refresher, notifier Notifier, logger zerolog.Logger, listeners ...ChangeListener) *FormController {
	return &FormController{
		draft:     newDraft(),
		table:     table,
		media:     media,
		buckets:   buckets,
		refresher: refresher,
		listeners: listeners,
		notifier:  notifier,
		logger:    logger,
	}
}

// mutate runs fn against the draft unless a submit is in flight.
func (f *FormController) mutate(fn func(d *Draft) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return errs.NewSubmitInProgressError()
	}
	return fn(&f.draft)
}

// Hydrate loads an existing record for editing. Hydrating twice with the
// same record yields the same draft.
func (f *FormController) Hydrate(record models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return errs.NewSubmitInProgressError()
	}
	f.draft = hydratedDraft(record)
	f.editing = true
	return nil
}

// Reset discards the draft and leaves edit mode.
func (f *FormController) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return errs.NewSubmitInProgressError()
	}
	f.reset()
	return nil
}

func (f *FormController) reset() {
	f.draft = newDraft()
	f.editing = false
}

func (f *FormController) SetFields(patch FieldPatch) error {
	return f.mutate(func(d *Draft) error {
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		set(&d.Record.Name, patch.Name)
		set(&d.Record.CompanyName, patch.CompanyName)
		set(&d.Record.PartnerCompany, patch.PartnerCompany)
		set(&d.Record.Location, patch.Location)
		set(&d.Record.ProjectType, patch.ProjectType)
		set(&d.Record.Description, patch.Description)
		set(&d.Record.Behance, patch.Behance)
		return nil
	})
}

// AddListItem appends the trimmed value. Blank values are ignored.
func (f *FormController) AddListItem(field ListField, value string) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	value = strings.TrimSpace(value)
	return f.mutate(func(d *Draft) error {
		if value == "" {
			return nil
		}
		list := d.list(field)
		*list = append(*list, value)
		return nil
	})
}

// RemoveListItem removes the element at index. Out of range is a no-op.
func (f *FormController) RemoveListItem(field ListField, index int) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	return f.mutate(func(d *Draft) error {
		list := d.list(field)
		if index < 0 || index >= len(*list) {
			return nil
		}
		out := make([]string, 0, len(*list)-1)
		out = append(out, (*list)[:index]...)
		*list = append(out, (*list)[index+1:]...)
		return nil
	})
}

func (f *FormController) SetMediaMode(field MediaField, mode storage.Mode) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	if !mode.Valid() {
		return errs.NewInvalidFieldError("mode", fmt.Sprintf("expected %q or %q", storage.ModeFile, storage.ModeURL))
	}
	return f.mutate(func(d *Draft) error {
		d.Media[field].Mode = mode
		return nil
	})
}

func (f *FormController) SetMediaURL(field MediaField, text string) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	return f.mutate(func(d *Draft) error {
		d.Media[field].URL = text
		return nil
	})
}

// SelectFiles records file selections. The gallery accumulates drops;
// main image and video keep only the latest file.
func (f *FormController) SelectFiles(field MediaField, files ...storage.File) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	if len(files) == 0 {
		return nil
	}
	return f.mutate(func(d *Draft) error {
		in := d.Media[field]
		if field == FieldSubImages {
			in.Files = append(in.Files, files...)
		} else {
			in.Files = []storage.File{files[len(files)-1]}
		}
		return nil
	})
}

func (f *FormController) ClearFiles(field MediaField) error {
	if !field.Valid() {
		return errs.NewUnknownFieldError(string(field))
	}
	return f.mutate(func(d *Draft) error {
		d.Media[field].Files = nil
		return nil
	})
}

// Submit resolves media, writes the record, refreshes the list and resets
// the form. On failure the draft is left as it was.
func (f *FormController) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return Outcome{}, errs.NewSubmitInProgressError()
	}
	if field, err := f.draft.Record.Validate(); err != nil {
		f.mu.Unlock()
		return Outcome{}, errs.NewValidationError(field)
	}
	draft := f.draft.clone()
	editing := f.editing
	f.state = StateUploading
	f.mu.Unlock()

	op := "add"
	if editing {
		op = "update"
	}
	logger := f.logger.With().Str("op", op).Int64("projectID", draft.Record.ID).Logger()

	record, uploaded, err := f.resolve(ctx, draft)
	if err != nil {
		return Outcome{}, f.fail(op, errs.WithOrphans(err, uploaded))
	}

	f.setState(StatePersisting)
	if editing {
		err = f.table.Update(ctx, &record)
	} else {
		err = f.table.Add(ctx, &record)
	}
	if err != nil {
		return Outcome{}, f.fail(op, errs.WithOrphans(errs.NewPersistError(op, err), uploaded))
	}
	logger.Info().Int64("savedID", record.ID).Msg("project saved")

	for _, l := range f.listeners {
		l.ProjectsChanged(ctx)
	}
	if f.refresher != nil {
		if err := f.refresher.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("list refresh after save failed")
		}
	}

	f.mu.Lock()
	f.reset()
	f.state = StateIdle
	f.mu.Unlock()

	outcome := Outcome{Op: "added", Project: record}
	if editing {
		outcome.Op = "updated"
	}
	f.notifier.Notify(Notification{
		Kind:    NotifySuccess,
		Op:      op,
		Message: fmt.Sprintf("Project %s successfully", outcome.Op),
	})
	return outcome, nil
}

// resolve produces the record to write: the draft with every media field
// replaced by its stored URL. uploaded lists the objects stored so far, also
// on failure, so they can be reported if the submit does not complete.
func (f *FormController) resolve(ctx context.Context, d Draft) (record models.Project, uploaded []string, err error) {
	record = d.Record.Clone()

	mainIn := *d.Media[FieldMainImage]
	mainImage, err := f.media.ResolveMedia(ctx, string(FieldMainImage), mainIn, record.MainImage, f.buckets.Images)
	if err != nil {
		return models.Project{}, uploaded, err
	}
	if selectsFiles(mainIn) {
		uploaded = append(uploaded, mainImage)
	}

	galleryIn := *d.Media[FieldSubImages]
	// Untouched hydrated text keeps the stored gallery as is; re-splitting it
	// would break URLs that contain commas.
	if galleryIn.Mode == storage.ModeURL && galleryIn.URL == joinGallery(record.SubImages) {
		galleryIn.URL = ""
	}
	gallery, err := f.media.ResolveGallery(ctx, string(FieldSubImages), galleryIn, record.SubImages, f.buckets.Images)
	if err != nil {
		return models.Project{}, uploaded, err
	}
	if selectsFiles(galleryIn) && len(gallery) > len(record.SubImages) {
		uploaded = append(uploaded, gallery[len(record.SubImages):]...)
	}

	videoIn := *d.Media[FieldVideo]
	video, err := f.media.ResolveMedia(ctx, string(FieldVideo), videoIn, record.Video, f.buckets.Videos)
	if err != nil {
		return models.Project{}, uploaded, err
	}
	if selectsFiles(videoIn) {
		uploaded = append(uploaded, video)
	}

	record.MainImage = mainImage
	record.SubImages = gallery
	record.Video = video
	record.Normalize()
	return record, uploaded, nil
}

// selectsFiles reports whether resolving in uploads new objects.
func selectsFiles(in storage.MediaInput) bool {
	return in.Mode != storage.ModeURL && len(in.Files) > 0
}

func (f *FormController) fail(op string, err error) error {
	f.setState(StateIdle)
	f.logger.Error().Err(err).Str("op", op).Msg("submit failed")
	f.notifier.Notify(Notification{
		Kind:    NotifyError,
		Op:      op,
		Message: fmt.Sprintf("Error saving project: %s", errs.Message(err)),
	})
	return err
}

func (f *FormController) setState(s SubmitState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *FormController) State() SubmitState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *FormController) Editing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editing
}

// Draft returns a copy of the current draft.
func (f *FormController) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.clone()
}

func (f *FormController) View() DraftView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.view()
}
