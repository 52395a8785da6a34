// Package filestore resolves document media references to local files.
package filestore

import (
	"io"
	"os"
	"path/filepath"

	"mastothread/internal/domain"
)

// Local resolves references against the literal path first, then under a
// configured attachment directory.
type Local struct {
	attachmentDir string
}

// NewLocal creates a resolver with the given attachment directory. An
// empty directory disables the fallback.
func NewLocal(attachmentDir string) *Local {
	return &Local{attachmentDir: attachmentDir}
}

// Resolve finds the file behind a media reference. It returns a
// domain.MediaError (file not found) when neither candidate exists.
func (l *Local) Resolve(ref string) (domain.MediaFile, error) {
	candidates := []string{ref}
	if l.attachmentDir != "" {
		candidates = append(candidates, filepath.Join(l.attachmentDir, ref))
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return domain.MediaFile{Path: path, Size: info.Size()}, nil
	}
	return domain.MediaFile{}, &domain.MediaError{Path: ref, Reason: domain.MediaFileNotFound}
}

// Open returns the file contents for upload.
func (l *Local) Open(f domain.MediaFile) (io.ReadCloser, error) {
	return os.Open(f.Path)
}
