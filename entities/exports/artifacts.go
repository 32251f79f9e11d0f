package exports

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Artifact is a persisted export: URL is what the caller downloads, Path is
// where the store keeps it.
type Artifact struct {
	Name string
	URL  string
	Path string
}

type ArtifactStore interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (Artifact, error)
	// Sweep removes artifacts last written before cutoff and returns how many.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// isArtifactName reports whether name is something Export writes, including
// an unfinished ".part" upload of one.
func isArtifactName(name string) bool {
	name = strings.TrimSuffix(name, ".part")
	if !strings.HasPrefix(name, ARTIFACT_PREFIX) {
		return false
	}
	switch filepath.Ext(name) {
	case ".pdf", ".xlsx":
		return true
	}
	return false
}
