package admin

import (
	"strings"

	"github.com/rpupo63/portfolio-admin-backend/models"
	"github.com/rpupo63/portfolio-admin-backend/storage"
)

// MediaField names a record field whose value can come from an upload.
type MediaField string

const (
	FieldMainImage MediaField = "main_image"
	FieldSubImages MediaField = "sub_images"
	FieldVideo     MediaField = "video"
)

func (f MediaField) Valid() bool {
	switch f {
	case FieldMainImage, FieldSubImages, FieldVideo:
		return true
	}
	return false
}

// ListField names an ordered bullet list on the record.
type ListField string

const (
	FieldFeatures     ListField = "features"
	FieldTechnologies ListField = "technologies"
)

func (f ListField) Valid() bool {
	return f == FieldFeatures || f == FieldTechnologies
}

// Draft is the in-progress record. Record holds the current values,
// including the existing media URLs in edit mode; Media holds what the
// admin selected or typed for each media field.
type Draft struct {
	Record models.Project
	Media  map[MediaField]*storage.MediaInput
}

func newDraft() Draft {
	d := Draft{Media: make(map[MediaField]*storage.MediaInput, 3)}
	d.Record.Normalize()
	for _, f := range []MediaField{FieldMainImage, FieldSubImages, FieldVideo} {
		d.Media[f] = &storage.MediaInput{Mode: storage.ModeFile}
	}
	return d
}

// hydratedDraft picks url mode for every media field that already has a
// value and pre-fills the typed text with it.
func hydratedDraft(p models.Project) Draft {
	d := newDraft()
	d.Record = p.Clone()
	d.Record.Normalize()

	if d.Record.MainImage != "" {
		d.Media[FieldMainImage] = &storage.MediaInput{Mode: storage.ModeURL, URL: d.Record.MainImage}
	}
	if len(d.Record.SubImages) > 0 {
		d.Media[FieldSubImages] = &storage.MediaInput{Mode: storage.ModeURL, URL: joinGallery(d.Record.SubImages)}
	}
	if d.Record.Video != "" {
		d.Media[FieldVideo] = &storage.MediaInput{Mode: storage.ModeURL, URL: d.Record.Video}
	}
	return d
}

// joinGallery is the url-mode text shown for an existing gallery.
func joinGallery(urls []string) string {
	return strings.Join(urls, ", ")
}

func (d Draft) clone() Draft {
	c := Draft{Record: d.Record.Clone(), Media: make(map[MediaField]*storage.MediaInput, len(d.Media))}
	for f, in := range d.Media {
		cp := *in
		cp.Files = append([]storage.File(nil), in.Files...)
		c.Media[f] = &cp
	}
	return c
}

func (d *Draft) list(field ListField) *[]string {
	switch field {
	case FieldFeatures:
		return (*[]string)(&d.Record.Features)
	case FieldTechnologies:
		return (*[]string)(&d.Record.Technologies)
	}
	return nil
}

// FileInfo describes a pending selection without its content.
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type MediaView struct {
	Mode  storage.Mode `json:"mode"`
	URL   string       `json:"url"`
	Files []FileInfo   `json:"files"`
}

// DraftView is the JSON shape of a draft.
type DraftView struct {
	Project models.Project           `json:"project"`
	Media   map[MediaField]MediaView `json:"media"`
}

func (d Draft) view() DraftView {
	v := DraftView{Project: d.Record.Clone(), Media: make(map[MediaField]MediaView, len(d.Media))}
	for f, in := range d.Media {
		files := make([]FileInfo, 0, len(in.Files))
		for _, file := range in.Files {
			files = append(files, FileInfo{Name: file.Name, ContentType: file.ContentType, Size: len(file.Data)})
		}
		v.Media[f] = MediaView{Mode: in.Mode, URL: in.URL, Files: files}
	}
	return v
}
