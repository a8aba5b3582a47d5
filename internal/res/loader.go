// Package res loads the documents and images an export reads from: local
// files, http(s) URLs and data URLs.
package res

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Kind is the broad class of a loaded resource.
type Kind int

const (
	KindOther Kind = iota
	KindImage
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindHTML:
		return "html"
	default:
		return "other"
	}
}

// Resource is a loaded document or image.
type Resource struct {
	URL      string
	Kind     Kind
	Data     []byte
	MimeType string
}

// Reader returns a reader over the resource bytes.
func (r *Resource) Reader() *bytes.Reader {
	return bytes.NewReader(r.Data)
}

// MaxSize caps how many bytes a single resource may have.
const MaxSize = 64 << 20

// Loader loads resources relative to a base location and caches them by
// the reference they were requested with.
type Loader struct {
	// BaseURL resolves relative references. It may be a URL or a file path.
	BaseURL string

	cache     map[string]*Resource
	cacheLock sync.RWMutex

	searchPaths []string
	client      *http.Client
}

// NewLoader creates a loader resolving against baseURL.
func NewLoader(baseURL string) *Loader {
	return &Loader{
		BaseURL: baseURL,
		cache:   make(map[string]*Resource),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// AddSearchPath adds a directory that is searched for local files that do
// not exist at their resolved path.
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// Load returns the resource at ref.
func (l *Loader) Load(ctx context.Context, ref string) (*Resource, error) {
	if ref == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty resource reference")
	}

	l.cacheLock.RLock()
	if r, ok := l.cache[ref]; ok {
		l.cacheLock.RUnlock()
		return r, nil
	}
	l.cacheLock.RUnlock()

	var (
		r   *Resource
		err error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		r, err = parseDataURL(ref)
	default:
		var resolved string
		resolved, err = l.resolve(ref)
		if err != nil {
			break
		}
		if isRemote(resolved) {
			r, err = l.loadRemote(ctx, resolved)
		} else {
			r, err = l.loadLocal(resolved)
		}
	}
	if err != nil {
		return nil, err
	}

	l.cacheLock.Lock()
	l.cache[ref] = r
	l.cacheLock.Unlock()
	return r, nil
}

// LoadImage loads ref and checks that it is an image.
func (l *Loader) LoadImage(ctx context.Context, ref string) (*Resource, error) {
	r, err := l.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if r.Kind != KindImage {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not an image (%s)", ref, r.MimeType)
	}
	return r, nil
}

// LoadHTML loads ref and checks that it is an HTML document.
func (l *Loader) LoadHTML(ctx context.Context, ref string) (*Resource, error) {
	r, err := l.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if r.Kind != KindHTML {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not an HTML document (%s)", ref, r.MimeType)
	}
	return r, nil
}

// NavigableURL turns ref into something a browser can navigate to. Local
// paths become absolute file:// URLs; URLs are returned unchanged.
func NavigableURL(ref string) (string, error) {
	if ref == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "empty document reference")
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return ref, nil
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve %s", ref)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// IsLocal reports whether ref names a file rather than a remote document
// or a data URL.
func IsLocal(ref string) bool {
	return ref != "" && !isRemote(ref) && !strings.HasPrefix(ref, "data:")
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// parseDataURL decodes an RFC 2397 data URL:
//
//	data:image/png;base64,<base64>
//	data:text/html,<p>Hello%20World</p>
func parseDataURL(u string) (*Resource, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid data URL")
	}

	mime := "text/plain"
	isBase64 := false
	comps := strings.Split(meta, ";")
	if comps[0] != "" {
		mime = strings.ToLower(comps[0])
	}
	for _, c := range comps[1:] {
		if strings.EqualFold(strings.TrimSpace(c), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		d, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid base64 data URL")
		}
		data = d
	} else if d, err := url.PathUnescape(payload); err == nil {
		data = []byte(d)
	} else {
		data = []byte(payload)
	}

	return &Resource{URL: u, Data: data, MimeType: mime, Kind: kindOf(mime, "")}, nil
}

func (l *Loader) resolve(ref string) (string, error) {
	if isRemote(ref) {
		return ref, nil
	}
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", ref)
		}
		return filepath.FromSlash(u.Path), nil
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	if !isRemote(l.BaseURL) {
		if l.BaseURL == "" {
			return ref, nil
		}
		return filepath.Join(filepath.Dir(l.BaseURL), ref), nil
	}

	base, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse base %s", l.BaseURL)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", ref)
	}
	return base.ResolveReference(rel).String(), nil
}

func (l *Loader) loadRemote(ctx context.Context, ref string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", ref)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "fetch %s", ref)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeCapture, "fetch %s: %s", ref, resp.Status)
	}
	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "read %s", ref)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	mime, _, _ = strings.Cut(mime, ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	return &Resource{URL: ref, Data: data, MimeType: mime, Kind: kindOf(mime, ref)}, nil
}

func (l *Loader) loadLocal(path string) (*Resource, error) {
	data, err := readFile(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return l.loadFromSearchPaths(path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCapture, err, "read %s", path)
	}
	mime := mimeFromExt(path)
	return &Resource{URL: path, Data: data, MimeType: mime, Kind: kindOf(mime, path)}, nil
}

func (l *Loader) loadFromSearchPaths(path string) (*Resource, error) {
	name := filepath.Base(path)
	for _, dir := range l.searchPaths {
		p := filepath.Join(dir, name)
		data, err := readFile(p)
		if err != nil {
			continue
		}
		mime := mimeFromExt(p)
		return &Resource{URL: p, Data: data, MimeType: mime, Kind: kindOf(mime, p)}, nil
	}
	return nil, errors.New(errors.ErrCodeCapture, "resource not found: %s", path)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("resource exceeds %d bytes", MaxSize)
	}
	return data, nil
}

func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".html", ".htm", ".xhtml":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func kindOf(mime, path string) Kind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case mime == "text/html", mime == "application/xhtml+xml":
		return KindHTML
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".tiff", ".tif", ".bmp":
		return KindImage
	case ".html", ".htm", ".xhtml":
		return KindHTML
	}
	return KindOther
}
