package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rpupo63/portfolio-admin-backend/models"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

type mockTable struct {
	mock.Mock
}

func (m *mockTable) FindAllPrimary(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	projects, _ := args.Get(0).([]models.Project)
	return projects, args.Error(1)
}

func (m *mockTable) Add(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockTable) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockTable) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockListener struct {
	mock.Mock
}

func (m *mockListener) ProjectsChanged(ctx context.Context) {
	m.Called(ctx)
}

// fakeStore is an in-memory bucket. Files named in reject are refused;
// when gate is set every upload waits on it.
type fakeStore struct {
	mu      sync.Mutex
	uploads []string
	reject  map[string]bool
	gate    chan struct{}
	started chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{reject: map[string]bool{}}
}

func (s *fakeStore) Upload(ctx context.Context, bucket, key string, body io.Reader, _ storage.UploadOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	if s.reject[string(data)] {
		return errors.New("storage rejected " + string(data))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, bucket+"/"+key)
	return nil
}

func (s *fakeStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", bucket, key)
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

var testBuckets = Buckets{Images: "project-images", Videos: "project-videos"}

type fixture struct {
	table    *mockTable
	store    *fakeStore
	listener *mockListener
	ws       *Workspace
}

func newFixture() *fixture {
	f := &fixture{
		table:    new(mockTable),
		store:    newFakeStore(),
		listener: new(mockListener),
	}
	f.listener.On("ProjectsChanged", mock.Anything).Maybe()
	f.ws = NewWorkspace("admin-1", Deps{
		Table:     f.table,
		Media:     storage.NewCoordinator(f.store, 3600, 2),
		Buckets:   testBuckets,
		Listeners: []ChangeListener{f.listener},
		InboxSize: 10,
	})
	return f
}

func file(name string) storage.File {
	return storage.File{Name: name + ".jpg", ContentType: "image/jpeg", Data: []byte(name)}
}

func strPtr(s string) *string {
	return &s
}
