// Package fetch retrieves resource artifacts from remote URLs or local paths.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

// Fetcher implements ports.Fetcher for http, https and file sources.
type Fetcher struct {
	client *http.Client
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher using http.DefaultClient.
func NewFetcher() *Fetcher {
	return NewFetcherWithClient(http.DefaultClient)
}

// NewFetcherWithClient creates a Fetcher with a custom HTTP client.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch copies source to dest. The content is written to a temporary file next to dest
// and renamed into place, so dest either holds the full artifact or does not exist.
func (f *Fetcher) Fetch(ctx context.Context, source, dest string) error {
	scheme, path := splitSource(source)
	switch scheme {
	case "http", "https", "file":
	default:
		return domain.Tag(domain.ErrUnsupportedSource, "source", source, "scheme", scheme)
	}

	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return domain.Because(domain.ErrFetchFailed, err, "source", source, "destination", dest)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return domain.Because(domain.ErrFetchFailed, err, "source", source, "destination", dest)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if scheme == "file" {
		err = copyFile(path, tmp)
	} else {
		err = f.download(ctx, source, tmp)
	}
	if err != nil {
		return domain.Because(domain.ErrFetchFailed, err, "source", source)
	}

	if err := tmp.Close(); err != nil {
		return domain.Because(domain.ErrFetchFailed, err, "source", source)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return domain.Because(domain.ErrFetchFailed, err, "source", source, "destination", dest)
	}
	committed = true

	return nil
}

func (f *Fetcher) download(ctx context.Context, source string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, http.NoBody)
	if err != nil {
		return zerr.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "stall")

	resp, err := f.client.Do(req)
	if err != nil {
		return zerr.Wrap(err, "request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return zerr.With(zerr.New("unexpected status code"), "status", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return zerr.Wrap(err, "failed to read response body")
	}
	return nil
}

func copyFile(path string, w io.Writer) error {
	in, err := os.Open(path) //nolint:gosec // local source path comes from the resource file
	if err != nil {
		return zerr.Wrap(err, "failed to open source file")
	}
	defer func() {
		_ = in.Close()
	}()

	if _, err := io.Copy(w, in); err != nil {
		return zerr.Wrap(err, "failed to copy source file")
	}
	return nil
}

// splitSource returns the scheme of source and, for local sources, the filesystem path.
// Plain paths report the "file" scheme.
func splitSource(source string) (scheme, path string) {
	if p, ok := strings.CutPrefix(source, "file://"); ok {
		return "file", p
	}
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// A one-letter scheme is a Windows drive letter.
		return "file", source
	}
	return strings.ToLower(u.Scheme), ""
}

// LocalPath returns the filesystem path of a local source, stripping any file:// prefix.
func LocalPath(source string) string {
	if p, ok := strings.CutPrefix(source, "file://"); ok {
		return p
	}
	return source
}
