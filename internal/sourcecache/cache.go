// Package sourcecache keeps downloaded compiler bundles and declaration files
// on disk so repeated runs do not hit the network.
//
// An entry is a pair of files under the cache directory: "<key>.json" holds the
// manifest (schema version, the URL list, content hash) and "<key>.txt" holds
// the decoded text. The key is the xxh3 digest of the URL list, so changing a
// pinned URL changes the key. An entry is only trusted when the manifest
// parses, the schema version matches, the URL list matches exactly, and the
// content still hashes to the recorded value. Anything else is a miss.
package sourcecache

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeebo/xxh3"
)

// SchemaVersion is bumped when the manifest format changes.
const SchemaVersion = 1

// Manifest describes one cached artifact.
type Manifest struct {
	// V is the schema version. Must match SchemaVersion or the entry is invalid.
	V int `json:"v"`

	Name string   `json:"name"`
	URLs []string `json:"urls"`

	// Hash is the xxh3 hex digest of the cached text.
	Hash    string    `json:"hash"`
	Size    int       `json:"size"`
	Fetched time.Time `json:"fetched"`
}

// Cache is a directory of cached artifacts.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. The directory is created on first Save.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// DefaultDir returns the per-user cache directory for tsembed.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tsembed"), nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Key derives the entry key for a URL list.
func Key(urls []string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(urls, "\n")))
}

// HashString returns the xxh3 hex digest of s.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

func (c *Cache) paths(urls []string) (manifest, content string) {
	key := Key(urls)
	return filepath.Join(c.dir, key+".json"), filepath.Join(c.dir, key+".txt")
}

// Load returns the cached text for urls. ok is false on any miss.
func (c *Cache) Load(urls []string) (text string, ok bool) {
	if c == nil || len(urls) == 0 {
		return "", false
	}
	manifestPath, contentPath := c.paths(urls)

	m := c.loadManifest(manifestPath)
	if m == nil || m.V != SchemaVersion || !slices.Equal(m.URLs, urls) {
		return "", false
	}

	data, err := os.ReadFile(contentPath)
	if err != nil {
		return "", false
	}
	text = string(data)
	if len(text) != m.Size || HashString(text) != m.Hash {
		return "", false
	}
	return text, true
}

// Manifest returns the stored manifest for urls, or nil.
func (c *Cache) Manifest(urls []string) *Manifest {
	if c == nil || len(urls) == 0 {
		return nil
	}
	manifestPath, _ := c.paths(urls)
	return c.loadManifest(manifestPath)
}

func (c *Cache) loadManifest(path string) *Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &m
}

// Save stores text for urls. The content is written before the manifest, so
// a crash between the two leaves a miss rather than a bad hit.
func (c *Cache) Save(name string, urls []string, text string) error {
	if len(urls) == 0 {
		return fmt.Errorf("caching %s: no urls", name)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", c.dir, err)
	}
	manifestPath, contentPath := c.paths(urls)

	if err := writeAtomic(contentPath, []byte(text)); err != nil {
		return err
	}

	m := Manifest{
		V:       SchemaVersion,
		Name:    name,
		URLs:    urls,
		Hash:    HashString(text),
		Size:    len(text),
		Fetched: time.Now().UTC(),
	}
	data, err := json.Marshal(m, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return writeAtomic(manifestPath, data)
}

// Delete removes the entry for urls. Errors are ignored.
func (c *Cache) Delete(urls []string) {
	manifestPath, contentPath := c.paths(urls)
	os.Remove(manifestPath)
	os.Remove(contentPath)
}

// writeAtomic writes to a temp file in the target directory, then renames.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
