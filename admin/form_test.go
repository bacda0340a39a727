package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/rpupo63/portfolio-admin-backend/errs"
	"github.com/rpupo63/portfolio-admin-backend/models"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

func existingProject() models.Project {
	return models.Project{
		ID:           42,
		Name:         "Villa",
		CompanyName:  "Acme",
		MainImage:    "https://cdn.test/project-images/cover.jpg",
		SubImages:    datatypes.JSONSlice[string]{"a", "b"},
		Features:     datatypes.JSONSlice[string]{"pool"},
		Technologies: datatypes.JSONSlice[string]{},
	}
}

func TestSubmit_ValidationRunsBeforeAnyCall(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.Reset())
	require.NoError(t, form.SelectFiles(FieldMainImage, file("cover")))
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("   "), CompanyName: strPtr("Acme")}))

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsValidationError(err))
	assert.Equal(t, "name", err.(*errs.ApiErr).Field)

	assert.Zero(t, fx.store.count())
	fx.table.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	assert.Equal(t, StateIdle, form.State())
}

func TestSubmit_NewRecordInsertsOnce(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form

	fx.table.On("Add", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.ID == 0 && p.Name == "Loft" && len(p.Features) == 2
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Project).ID = 7
	}).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{{ID: 7, Name: "Loft", CompanyName: "Acme"}}, nil).Once()

	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.AddListItem(FieldFeatures, " terrace "))
	require.NoError(t, form.AddListItem(FieldFeatures, "terrace"))
	require.NoError(t, form.AddListItem(FieldFeatures, "   "))

	out, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "added", out.Op)
	assert.Equal(t, int64(7), out.Project.ID)
	assert.Equal(t, []string{"terrace", "terrace"}, []string(out.Project.Features))

	fx.table.AssertNumberOfCalls(t, "Add", 1)
	fx.listener.AssertCalled(t, "ProjectsChanged", mock.Anything)
	assert.Len(t, fx.ws.List.Projects(), 1)
	assert.False(t, form.Editing())
	assert.Empty(t, form.Draft().Record.Name)

	notes := fx.ws.Inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, NotifySuccess, notes[0].Kind)
	assert.Equal(t, "Project added successfully", notes[0].Message)
}

func TestSubmit_EditKeepsID(t *testing.T) {
	fx := newFixture()
	rows := []models.Project{existingProject(), {ID: 43, Name: "Loft", CompanyName: "Acme"}}
	fx.table.On("FindAllPrimary", mock.Anything).Return(rows, nil)
	require.NoError(t, fx.ws.List.Refresh(context.Background()))

	found, err := fx.ws.List.RequestEdit(42)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, fx.ws.Form.SetFields(FieldPatch{Location: strPtr("Lisbon")}))

	fx.table.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.ID == 42 && p.Location == "Lisbon" && p.MainImage == existingProject().MainImage
	})).Return(nil).Once()

	out, err := fx.ws.Form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "updated", out.Op)
	assert.Equal(t, int64(42), out.Project.ID)
	fx.table.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	assert.Len(t, fx.ws.List.Projects(), 2)
}

func TestHydrate_Idempotent(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	p := existingProject()

	require.NoError(t, form.Hydrate(p))
	first := form.View()
	require.NoError(t, form.Hydrate(p))
	assert.Equal(t, first, form.View())

	assert.True(t, form.Editing())
	assert.Equal(t, storage.ModeURL, first.Media[FieldMainImage].Mode)
	assert.Equal(t, "a, b", first.Media[FieldSubImages].URL)
	assert.Equal(t, storage.ModeFile, first.Media[FieldVideo].Mode)

	// Draft is a copy.
	require.NoError(t, form.AddListItem(FieldFeatures, "garden"))
	assert.Equal(t, []string{"pool"}, []string(p.Features))
}

func TestSubmit_GalleryAppendsFiles(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.Hydrate(existingProject()))
	require.NoError(t, form.SetMediaMode(FieldSubImages, storage.ModeFile))
	require.NoError(t, form.SelectFiles(FieldSubImages, file("f1")))
	require.NoError(t, form.SelectFiles(FieldSubImages, file("f2")))

	var saved models.Project
	fx.table.On("Update", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = *args.Get(1).(*models.Project)
	}).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{}, nil)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, saved.SubImages, 4)
	assert.Equal(t, []string{"a", "b"}, []string(saved.SubImages[:2]))
	assert.Regexp(t, `^https://cdn.test/project-images/[0-9a-f-]{36}\.jpg$`, saved.SubImages[2])
	assert.Regexp(t, `^https://cdn.test/project-images/[0-9a-f-]{36}\.jpg$`, saved.SubImages[3])
	assert.Equal(t, 2, fx.store.count())
}

func TestSubmit_GalleryURLTextReplaces(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.Hydrate(existingProject()))
	require.NoError(t, form.SetMediaURL(FieldSubImages, " u1 , ,u2"))

	fx.table.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return assert.ObjectsAreEqual([]string{"u1", "u2"}, []string(p.SubImages))
	})).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{}, nil)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	fx.table.AssertExpectations(t)
	assert.Zero(t, fx.store.count())
}

func TestSubmit_URLModeStoresTypedValue(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.SetMediaMode(FieldMainImage, storage.ModeURL))
	require.NoError(t, form.SetMediaURL(FieldMainImage, "https://example.com/hero.png"))
	// Ignored: the field is in url mode.
	require.NoError(t, form.SelectFiles(FieldMainImage, file("ignored")))

	fx.table.On("Add", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.MainImage == "https://example.com/hero.png"
	})).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{}, nil)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	fx.table.AssertExpectations(t)
	assert.Zero(t, fx.store.count())
}

func TestSubmit_FailedUploadLeavesDraft(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	fx.store.reject["bad"] = true
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.SelectFiles(FieldVideo, storage.File{Name: "clip.mp4", Data: []byte("bad")}))
	before := form.View()

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsUploadError(err))

	fx.table.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	fx.listener.AssertNotCalled(t, "ProjectsChanged", mock.Anything)
	assert.Equal(t, before, form.View())
	assert.Equal(t, StateIdle, form.State())

	notes := fx.ws.Inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyError, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "Error saving project")
}

func TestSubmit_PersistFailureKeepsDraft(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	fx.table.On("Add", mock.Anything, mock.Anything).Return(errors.New("duplicate key value")).Once()

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPersistError(err))
	assert.Equal(t, "Loft", form.Draft().Record.Name)
	fx.table.AssertNotCalled(t, "FindAllPrimary", mock.Anything)
}

func TestSubmit_RejectsOverlapAndMutations(t *testing.T) {
	fx := newFixture()
	fx.store.gate = make(chan struct{})
	fx.store.started = make(chan struct{}, 1)
	form := fx.ws.Form
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.SelectFiles(FieldMainImage, file("cover")))

	fx.table.On("Add", mock.Anything, mock.Anything).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background())
		done <- err
	}()

	select {
	case <-fx.store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("upload never started")
	}
	assert.Equal(t, StateUploading, form.State())

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, errs.ErrSubmitInProgress)
	assert.ErrorIs(t, form.SetFields(FieldPatch{Name: strPtr("Other")}), errs.ErrSubmitInProgress)
	assert.ErrorIs(t, form.Reset(), errs.ErrSubmitInProgress)

	close(fx.store.gate)
	require.NoError(t, <-done)
	fx.table.AssertNumberOfCalls(t, "Add", 1)
	assert.Equal(t, StateIdle, form.State())
}

func TestTextStoredVerbatim(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.SetFields(FieldPatch{
		Name:        strPtr("Villa <Mar> X"),
		Description: strPtr("R&D wing, 2 < 3 floors"),
	}))
	require.NoError(t, form.AddListItem(FieldTechnologies, "  Generic List<T> types "))
	require.NoError(t, form.AddListItem(FieldFeatures, "a<b and c>d"))

	d := form.Draft()
	assert.Equal(t, "Villa <Mar> X", d.Record.Name)
	assert.Equal(t, "R&D wing, 2 < 3 floors", d.Record.Description)
	assert.Equal(t, []string{"Generic List<T> types"}, []string(d.Record.Technologies))
	assert.Equal(t, []string{"a<b and c>d"}, []string(d.Record.Features))
}

func TestSubmit_UntouchedEditWritesSameRecord(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	p := existingProject()
	p.SubImages = datatypes.JSONSlice[string]{"https://res.cdn/w_200,h_100/a.jpg", "b"}
	p.Video = "https://cdn.test/project-videos/clip.mp4"
	require.NoError(t, form.Hydrate(p))

	var saved models.Project
	fx.table.On("Update", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = *args.Get(1).(*models.Project)
	}).Return(nil).Once()
	fx.table.On("FindAllPrimary", mock.Anything).Return([]models.Project{}, nil)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p, saved)
}

func TestSubmit_PersistFailureReportsUploads(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.SelectFiles(FieldMainImage, file("cover")))
	require.NoError(t, form.SelectFiles(FieldSubImages, file("g1"), file("g2")))
	fx.table.On("Add", mock.Anything, mock.Anything).Return(errors.New("permission denied for table projects")).Once()

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPersistError(err))

	orphaned := errs.Orphans(err)
	require.Len(t, orphaned, 3)
	for _, url := range orphaned {
		assert.Regexp(t, `^https://cdn.test/project-images/[0-9a-f-]{36}\.jpg$`, url)
	}
	assert.Equal(t, 3, fx.store.count())
}

func TestSubmit_LaterUploadFailureReportsEarlierUploads(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	fx.store.reject["bad"] = true
	require.NoError(t, form.SetFields(FieldPatch{Name: strPtr("Loft"), CompanyName: strPtr("Acme")}))
	require.NoError(t, form.SelectFiles(FieldMainImage, file("cover")))
	require.NoError(t, form.SelectFiles(FieldVideo, storage.File{Name: "clip.mp4", Data: []byte("bad")}))

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsUploadError(err))

	orphaned := errs.Orphans(err)
	require.Len(t, orphaned, 1)
	assert.Contains(t, orphaned[0], "https://cdn.test/project-images/")
	fx.table.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestListItems(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.AddListItem(FieldTechnologies, "Go"))
	require.NoError(t, form.AddListItem(FieldTechnologies, "SQL"))
	require.NoError(t, form.AddListItem(FieldTechnologies, "Go"))

	require.NoError(t, form.RemoveListItem(FieldTechnologies, 5))
	require.NoError(t, form.RemoveListItem(FieldTechnologies, -1))
	require.NoError(t, form.RemoveListItem(FieldTechnologies, 0))
	assert.Equal(t, []string{"SQL", "Go"}, []string(form.Draft().Record.Technologies))

	err := form.AddListItem(ListField("tags"), "x")
	assert.ErrorIs(t, err, errs.ErrUnknownField)
	assert.ErrorIs(t, form.SetMediaMode(FieldVideo, storage.Mode("ftp")), errs.ErrInvalidField)
}

func TestSelectFiles_MainImageKeepsLatest(t *testing.T) {
	fx := newFixture()
	form := fx.ws.Form
	require.NoError(t, form.SelectFiles(FieldMainImage, file("one")))
	require.NoError(t, form.SelectFiles(FieldMainImage, file("two")))
	v := form.View()
	require.Len(t, v.Media[FieldMainImage].Files, 1)
	assert.Equal(t, "two.jpg", v.Media[FieldMainImage].Files[0].Name)

	require.NoError(t, form.ClearFiles(FieldMainImage))
	assert.Empty(t, form.View().Media[FieldMainImage].Files)
}
