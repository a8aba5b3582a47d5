// Package filename derives download names for exported documents.
package filename

import (
	"path"
	"strings"
	"time"
)

const (
	// DefaultPrefix starts every generated name.
	DefaultPrefix = "lesson-plan"
	// DefaultExtension ends every name.
	DefaultExtension = ".pdf"
	// Fallback is used when neither a name nor a title is available.
	Fallback = "document.pdf"
	// MaxTitleRunes bounds the title part of a generated name.
	MaxTitleRunes = 50
)

// unsafe lists the characters that are replaced in name parts.
const unsafe = `/\?%*:|"<>`

// Resolver builds names of the form <prefix>-<title>[-<subject>]-<date><ext>.
type Resolver struct {
	Prefix    string
	Extension string
	// Now supplies the date stamped into names. The UTC date is used.
	Now func() time.Time
}

// Default returns the resolver used when none is configured.
func Default() Resolver {
	return Resolver{Prefix: DefaultPrefix, Extension: DefaultExtension, Now: time.Now}
}

func (r Resolver) withDefaults() Resolver {
	if r.Extension == "" {
		r.Extension = DefaultExtension
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	return r
}

// Resolve builds a name from a title and an optional subject. The title is
// used as given: surrounding spaces are kept and an empty title leaves an
// empty segment.
func (r Resolver) Resolve(title, subject string) string {
	r = r.withDefaults()
	parts := make([]string, 0, 4)
	if r.Prefix != "" {
		parts = append(parts, r.Prefix)
	}
	parts = append(parts, truncate(Sanitize(title), MaxTitleRunes))
	if subject != "" {
		parts = append(parts, Sanitize(subject))
	}
	parts = append(parts, r.Now().UTC().Format("2006-01-02"))
	return strings.Join(parts, "-") + r.Extension
}

// Ensure turns a caller-supplied name into a bare file name with the
// extension. Directory components are dropped. An empty name yields "".
func (r Resolver) Ensure(name string) string {
	r = r.withDefaults()
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return ensureExt(Sanitize(name), r.Extension)
}

// Pick returns Ensure(name) when a name was given, Resolve(title, subject)
// when a title was, and Fallback with the resolver's extension otherwise.
func (r Resolver) Pick(name, title, subject string) string {
	if n := r.Ensure(name); n != "" {
		return n
	}
	if strings.TrimSpace(title) == "" {
		return r.fallback()
	}
	return r.Resolve(title, subject)
}

func (r Resolver) fallback() string {
	r = r.withDefaults()
	return strings.TrimSuffix(Fallback, DefaultExtension) + r.Extension
}

// Sanitize replaces every character that is unsafe in file names with '-'.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafe, r) || r < 0x20 {
			return '-'
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

func ensureExt(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}
