package exports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const EXPORTS_ROUTE = "/exports/"

// LocalStore keeps artifacts in a directory served by Handler.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("[Exports] invalid directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("[Exports] create directory: %w", err)
	}
	return &LocalStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save streams body into a temporary file and renames it into place once the
// write and close have completed, so Handler never serves a partial file.
func (s *LocalStore) Save(ctx context.Context, name, contentType string, body io.Reader) (Artifact, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return Artifact{}, fmt.Errorf("invalid artifact name %q", name)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".part"

	file, err := os.Create(tmp)
	if err != nil {
		return Artifact{}, err
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(tmp)
		return Artifact{}, err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return Artifact{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Artifact{}, err
	}

	return Artifact{
		Name: name,
		URL:  s.baseURL + EXPORTS_ROUTE + url.PathEscape(name),
		Path: path,
	}, nil
}

// Sweep only looks at export artifacts; anything else in the directory is
// left alone.
func (s *LocalStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Handler serves saved artifacts under EXPORTS_ROUTE without directory listings.
func (s *LocalStore) Handler() http.Handler {
	files := http.StripPrefix(EXPORTS_ROUTE, http.FileServer(http.Dir(s.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, ".part") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
