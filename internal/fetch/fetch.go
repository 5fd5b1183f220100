// Package fetch retrieves the compiler bundle and declaration files before the
// engine starts. Every source must be available before bootstrap; there is no
// lazy loading.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tsembed/tsembed/internal/sourcecache"
)

// Separator joins the bodies of a multi-URL source.
const Separator = "\r\n"

// ErrNoLocation is returned for a source with neither URLs nor a path.
var ErrNoLocation = errors.New("source has neither urls nor path")

// Source is one artifact: the concatenation of one or more URL bodies, or a
// local file. Path wins when both are set.
type Source struct {
	Name string   `json:"name" yaml:"name"`
	URLs []string `json:"urls,omitempty" yaml:"urls,omitempty"`
	Path string   `json:"path,omitempty" yaml:"path,omitempty"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher downloads sources, consulting an optional on-disk cache.
type Fetcher struct {
	client *http.Client
	cache  *sourcecache.Cache

	// Logf, when set, receives cache warnings. A failed cache write does not
	// fail the fetch.
	Logf func(format string, args ...any)
}

// New returns a fetcher. A nil client uses http.DefaultClient; a nil cache
// disables caching.
func New(client *http.Client, cache *sourcecache.Cache) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, cache: cache}
}

// FetchAll fetches sources concurrently. Results are in source order. The
// first failure cancels the rest.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]string, error) {
	texts := make([]string, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			text, err := f.Fetch(ctx, src)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// Fetch returns the text of one source.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (string, error) {
	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", src.Name, err)
		}
		return Decode(data)
	}
	if len(src.URLs) == 0 {
		return "", fmt.Errorf("%s: %w", src.Name, ErrNoLocation)
	}

	if text, ok := f.cache.Load(src.URLs); ok {
		return text, nil
	}

	parts := make([]string, 0, len(src.URLs))
	for _, url := range src.URLs {
		text, err := f.get(ctx, url)
		if err != nil {
			return "", fmt.Errorf("fetching %s: %w", src.Name, err)
		}
		parts = append(parts, text)
	}
	text := strings.Join(parts, Separator)

	if f.cache != nil {
		if err := f.cache.Save(src.Name, src.URLs, text); err != nil && f.Logf != nil {
			f.Logf("warning: caching %s: %v", src.Name, err)
		}
	}
	return text, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	return Decode(data)
}

// Decode converts downloaded bytes to text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is removed; without one the bytes are UTF-8.
func Decode(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return string(out), nil
}
