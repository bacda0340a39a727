package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/portfolio-admin-backend/errs"
)

var keyPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.png$`)

// memoryStore records uploads; fail rejects files by name.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    map[string]bool
	delay   map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		objects: map[string][]byte{},
		types:   map[string]string{},
		fail:    map[string]bool{},
		delay:   map[string]time.Duration{},
	}
}

func (m *memoryStore) Upload(ctx context.Context, bucket, key string, body io.Reader, opts UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	name := string(data)
	if d := m.delay[name]; d > 0 {
		time.Sleep(d)
	}
	if m.fail[name] {
		return errors.New("bucket rejected " + name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	m.types[bucket+"/"+key] = opts.ContentType
	return nil
}

func (m *memoryStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", bucket, key)
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// contentOf maps a public URL back to the stored bytes.
func (m *memoryStore) contentOf(url string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.objects {
		if "https://cdn.test/"+k == url {
			return string(v)
		}
	}
	return ""
}

func file(name string) File {
	// Content doubles as an identifier in memoryStore.
	return File{Name: name + ".png", ContentType: "image/png", Data: []byte(name)}
}

func TestNewObjectKey(t *testing.T) {
	assert.Regexp(t, keyPattern, NewObjectKey("cover.png"))
	assert.Regexp(t, `^[0-9a-f-]{36}\.gz$`, NewObjectKey("archive.tar.gz"))
	assert.Regexp(t, `^[0-9a-f-]{36}$`, NewObjectKey("README"))
	assert.NotEqual(t, NewObjectKey("a.png"), NewObjectKey("a.png"))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "video/mp4", DetectContentType("video/mp4", png))
	assert.Equal(t, "image/png", DetectContentType("", png))
	assert.Equal(t, "image/png", DetectContentType("application/octet-stream", png))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"u1", "u2"}, SplitList(" u1 , ,u2,"))
	assert.Equal(t, []string{}, SplitList(" , "))
}

func TestResolveMedia(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	c := NewCoordinator(store, 3600, 2)

	t.Run("file mode without selection keeps existing", func(t *testing.T) {
		got, err := c.ResolveMedia(ctx, "main_image", MediaInput{Mode: ModeFile}, "https://old", "project-images")
		require.NoError(t, err)
		assert.Equal(t, "https://old", got)
	})

	t.Run("url mode returns typed value", func(t *testing.T) {
		got, err := c.ResolveMedia(ctx, "video", MediaInput{Mode: ModeURL, URL: "https://vimeo/1"}, "https://old", "project-videos")
		require.NoError(t, err)
		assert.Equal(t, "https://vimeo/1", got)
	})

	t.Run("url mode with empty text keeps existing", func(t *testing.T) {
		got, err := c.ResolveMedia(ctx, "video", MediaInput{Mode: ModeURL, URL: "  "}, "https://old", "project-videos")
		require.NoError(t, err)
		assert.Equal(t, "https://old", got)
	})

	t.Run("file mode uploads", func(t *testing.T) {
		got, err := c.ResolveMedia(ctx, "main_image", MediaInput{Mode: ModeFile, Files: []File{file("cover")}}, "https://old", "project-images")
		require.NoError(t, err)
		assert.Regexp(t, `^https://cdn.test/project-images/[0-9a-f-]{36}\.png$`, got)
		assert.Equal(t, "cover", store.contentOf(got))
	})

	t.Run("rejection is an upload error", func(t *testing.T) {
		store.fail["bad"] = true
		_, err := c.ResolveMedia(ctx, "main_image", MediaInput{Mode: ModeFile, Files: []File{file("bad")}}, "", "project-images")
		require.Error(t, err)
		assert.True(t, errs.IsUploadError(err))
	})
}

func TestResolveGallery_AppendKeepsSelectionOrder(t *testing.T) {
	store := newMemoryStore()
	// First file finishes last.
	store.delay["g1"] = 30 * time.Millisecond
	c := NewCoordinator(store, 3600, 3)

	in := MediaInput{Mode: ModeFile, Files: []File{file("g1"), file("g2"), file("g3")}}
	got, err := c.ResolveGallery(context.Background(), "sub_images", in, []string{"a", "b"}, "project-images")
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, []string{"a", "b"}, got[:2])
	assert.Equal(t, "g1", store.contentOf(got[2]))
	assert.Equal(t, "g2", store.contentOf(got[3]))
	assert.Equal(t, "g3", store.contentOf(got[4]))
}

func TestResolveGallery_ReplaceInURLMode(t *testing.T) {
	c := NewCoordinator(newMemoryStore(), 3600, 1)
	existing := []string{"a", "b"}

	got, err := c.ResolveGallery(context.Background(), "sub_images", MediaInput{Mode: ModeURL, URL: " u1 , ,u2"}, existing, "project-images")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, got)

	got, err = c.ResolveGallery(context.Background(), "sub_images", MediaInput{Mode: ModeURL}, existing, "project-images")
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	got[0] = "changed"
	assert.Equal(t, "a", existing[0])
}

func TestResolveGallery_FailureReportsOrphans(t *testing.T) {
	store := newMemoryStore()
	store.fail["g2"] = true
	store.delay["g2"] = 20 * time.Millisecond
	c := NewCoordinator(store, 3600, 1)

	in := MediaInput{Mode: ModeFile, Files: []File{file("g1"), file("g2"), file("g3")}}
	got, err := c.ResolveGallery(context.Background(), "sub_images", in, []string{"a"}, "project-images")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errs.IsUploadError(err))

	orphans := errs.Orphans(err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "g1", store.contentOf(orphans[0]))
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestS3Store_Upload(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "https://ref.supabase.co/storage/v1/object/public/")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "project-images" &&
			aws.ToString(in.Key) == "k.png" &&
			aws.ToString(in.ContentType) == "image/png" &&
			aws.ToString(in.CacheControl) == "max-age=3600" &&
			aws.ToInt64(in.ContentLength) == 3
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	err := store.Upload(context.Background(), "project-images", "k.png", io.NopCloser(stringsReader("abc")), UploadOptions{ContentType: "image/png", CacheControl: 3600})
	require.NoError(t, err)
	client.AssertExpectations(t)

	assert.Equal(t, "https://ref.supabase.co/storage/v1/object/public/project-images/k.png", store.PublicURL("project-images", "k.png"))
}

func TestS3Store_UploadError(t *testing.T) {
	client := new(mockS3)
	store := newS3Store(client, "https://cdn")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied")).Once()

	err := store.Upload(context.Background(), "b", "k", io.NopCloser(stringsReader("x")), UploadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put b/k")
}

func stringsReader(s string) io.Reader {
	return &onlyReader{data: []byte(s)}
}

// onlyReader hides Seek so Upload has to buffer the body.
type onlyReader struct {
	data []byte
	off  int
}

func (r *onlyReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}
