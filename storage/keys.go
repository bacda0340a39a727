package storage

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// NewObjectKey returns "<uuid>.<ext>" where ext is the extension of the
// selected file name. Names without an extension get a bare uuid.
func NewObjectKey(filename string) string {
	id := uuid.NewString()
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return id
	}
	return id + "." + ext
}

// DetectContentType prefers the type declared by the client and falls back
// to sniffing the content.
func DetectContentType(declared string, content []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(content).String()
}
