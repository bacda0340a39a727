package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/portfolio-admin-backend/errs"
)

// Mode selects where a media field's value comes from on submit.
type Mode string

const (
	ModeFile Mode = "file"
	ModeURL  Mode = "url"
)

func (m Mode) Valid() bool {
	return m == ModeFile || m == ModeURL
}

// File is one selected upload, held in memory until submit.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaInput is the pending value of one media field: files in file mode,
// typed text in url mode. The inactive side is ignored.
type MediaInput struct {
	Mode  Mode
	Files []File
	URL   string
}

// Coordinator turns media inputs into stored URLs before a record is written.
type Coordinator struct {
	store        ObjectStore
	cacheControl int
	concurrency  int
	logger       zerolog.Logger
}

func NewCoordinator(store ObjectStore, cacheControl, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		store:        store,
		cacheControl: cacheControl,
		concurrency:  concurrency,
		logger:       log.With().Str("component", "uploadCoordinator").Logger(),
	}
}

// ResolveMedia returns the value a single-valued media field should hold.
// An absent file or empty typed URL keeps existing.
func (c *Coordinator) ResolveMedia(ctx context.Context, field string, in MediaInput, existing, bucket string) (string, error) {
	switch in.Mode {
	case ModeURL:
		if strings.TrimSpace(in.URL) != "" {
			return in.URL, nil
		}
		return existing, nil
	default:
		if len(in.Files) == 0 {
			return existing, nil
		}
		url, err := c.upload(ctx, bucket, in.Files[len(in.Files)-1])
		if err != nil {
			return "", errs.NewUploadError(field, nil, err)
		}
		return url, nil
	}
}

// ResolveGallery returns the new gallery. File mode appends the uploaded
// files to existing in selection order; url mode with text replaces the
// gallery. Either failure aborts the whole batch.
func (c *Coordinator) ResolveGallery(ctx context.Context, field string, in MediaInput, existing []string, bucket string) ([]string, error) {
	if in.Mode == ModeURL {
		if strings.TrimSpace(in.URL) == "" {
			return cloneList(existing), nil
		}
		return SplitList(in.URL), nil
	}
	if len(in.Files) == 0 {
		return cloneList(existing), nil
	}

	urls := make([]string, len(in.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, f := range in.Files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			url, err := c.upload(gctx, bucket, f)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var orphaned []string
		for _, url := range urls {
			if url != "" {
				orphaned = append(orphaned, url)
			}
		}
		if len(orphaned) > 0 {
			c.logger.Warn().Strs("orphaned", orphaned).Msg("gallery batch failed after partial upload")
		}
		return nil, errs.NewUploadError(field, orphaned, err)
	}

	out := make([]string, 0, len(existing)+len(urls))
	out = append(out, existing...)
	return append(out, urls...), nil
}

func (c *Coordinator) upload(ctx context.Context, bucket string, f File) (string, error) {
	key := NewObjectKey(f.Name)
	opts := UploadOptions{
		ContentType:  DetectContentType(f.ContentType, f.Data),
		CacheControl: c.cacheControl,
	}
	if err := c.store.Upload(ctx, bucket, key, bytes.NewReader(f.Data), opts); err != nil {
		c.logger.Error().Err(err).Str("bucket", bucket).Str("file", f.Name).Msg("upload rejected")
		return "", err
	}
	c.logger.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(f.Data)).Msg("object stored")
	return c.store.PublicURL(bucket, key), nil
}

// SplitList splits comma separated text, trimming entries and dropping
// empty ones.
func SplitList(text string) []string {
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
