package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ctypeSuffix names the sidecar file holding a mirrored URL's content type.
const ctypeSuffix = ".ctype"

// Dir is a read-only Store over a filesystem mirror laid out as
// <root>/<host>/<path>, the layout produced by `wget --mirror`. Directory URLs
// map to index.html and query strings are kept in the file name.
type Dir struct {
	Root string

	// Scheme is used when listing URLs whose prefix carries no scheme.
	Scheme string
}

// NewDir creates a Dir store rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root, Scheme: "http"}
}

func (d *Dir) filePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	clean := path.Clean("/" + p)
	return filepath.Join(d.Root, strings.ToLower(u.Host), filepath.FromSlash(clean)), nil
}

// HasContent implements Store.
func (d *Dir) HasContent(_ context.Context, rawURL string) bool {
	fp, err := d.filePath(rawURL)
	if err != nil {
		return false
	}
	fi, err := os.Stat(fp)
	return err == nil && fi.Mode().IsRegular()
}

// Stat implements Store.
func (d *Dir) Stat(_ context.Context, rawURL string) (Entry, error) {
	fp, err := d.filePath(rawURL)
	if err != nil {
		return Entry{}, err
	}
	fi, err := os.Stat(fp)
	if err != nil || !fi.Mode().IsRegular() {
		return Entry{}, ErrNotFound
	}
	return Entry{URL: rawURL, ContentType: d.contentType(fp), Size: fi.Size()}, nil
}

func (d *Dir) contentType(fp string) string {
	if data, err := os.ReadFile(fp + ctypeSuffix); err == nil {
		return strings.TrimSpace(string(data))
	}
	name := fp
	if i := strings.IndexByte(filepath.Base(fp), '?'); i >= 0 {
		name = strings.TrimSuffix(fp, filepath.Base(fp)[i:])
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Open implements Store.
func (d *Dir) Open(_ context.Context, rawURL string) (io.ReadCloser, error) {
	fp, err := d.filePath(rawURL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fp, err)
	}
	return f, nil
}

// List implements Store. The prefix's scheme and host match case-insensitively.
// Files named index.html are listed under their directory URL, the form
// filePath maps from.
func (d *Dir) List(_ context.Context, prefix string) ([]string, error) {
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("prefix %q must be an absolute URL", prefix)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = d.Scheme
	}
	host := strings.ToLower(u.Host)
	hostDir := filepath.Join(d.Root, host)
	prefix = scheme + "://" + host + afterAuthority(prefix)

	var out []string
	err = filepath.WalkDir(hostDir, func(fp string, de fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if de.IsDir() || strings.HasSuffix(fp, ctypeSuffix) {
			return nil
		}
		rel, err := filepath.Rel(hostDir, fp)
		if err != nil {
			return err
		}
		candidate := scheme + "://" + host + "/" + directoryURLPath(filepath.ToSlash(rel))
		if strings.HasPrefix(candidate, prefix) {
			out = append(out, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", hostDir, err)
	}
	sort.Strings(out)
	return out, nil
}

// afterAuthority returns what follows the host (and port) of an absolute URL.
func afterAuthority(raw string) string {
	if i := strings.Index(raw, "//"); i >= 0 {
		raw = raw[i+2:]
	}
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		return raw[i:]
	}
	return ""
}

// directoryURLPath turns "a/index.html?x=1" back into "a/?x=1".
func directoryURLPath(rel string) string {
	p, query, hasQuery := strings.Cut(rel, "?")
	if path.Base(p) != "index.html" {
		return rel
	}
	p = strings.TrimSuffix(p, "index.html")
	if hasQuery {
		return p + "?" + query
	}
	return p
}

// Put writes content into the mirror, with a content-type sidecar.
func (d *Dir) Put(_ context.Context, rawURL, contentType string, body []byte) error {
	fp, err := d.filePath(rawURL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(fp, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", fp, err)
	}
	if contentType != "" {
		if err := os.WriteFile(fp+ctypeSuffix, []byte(contentType), 0o644); err != nil {
			return fmt.Errorf("writing content type: %w", err)
		}
	}
	return nil
}
