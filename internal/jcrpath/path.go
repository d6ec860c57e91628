// Package jcrpath implements the absolute path syntax of the content tree.
//
// Paths are "/"-separated, start at the root "/", and never end with a
// separator. A segment is a name with an optional namespace prefix
// ("prefix:name") and an optional same-name-sibling index ("name[2]").
// Paths are kept in Unicode NFC so byte comparison in the backend matches
// name equality.
package jcrpath

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/damz/jackalope/internal/ir"
)

// Root is the path of the root node.
const Root = "/"

var (
	indexSuffix  = regexp.MustCompile(`\[[1-9][0-9]*\]$`)
	valueSegment = regexp.MustCompile(`^(\.|\.\.|[-\w:.]+(\[[1-9][0-9]*\])?)$`)
)

// Normalize validates an absolute path and returns its NFC form.
func Normalize(p string) (string, error) {
	p = norm.NFC.String(p)
	if err := Validate(p); err != nil {
		return "", err
	}
	return p, nil
}

// Validate checks the syntax of an absolute path.
func Validate(p string) error {
	if p == Root {
		return nil
	}
	if !strings.HasPrefix(p, "/") {
		return ir.NewFormatError(p, "path must be absolute")
	}
	if strings.HasSuffix(p, "/") {
		return ir.NewFormatError(p, "path must not end with a separator")
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if err := validateSegment(p, seg); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(p, seg string) error {
	switch seg {
	case "":
		return ir.NewFormatError(p, "path contains an empty segment")
	case ".", "..":
		return ir.NewFormatError(p, "path must not contain relative segments")
	}
	name := indexSuffix.ReplaceAllString(seg, "")
	if name == "" || strings.ContainsAny(name, "[]*|") {
		return ir.NewFormatError(p, "invalid path segment "+seg)
	}
	if strings.Count(name, ":") > 1 || strings.HasPrefix(name, ":") || strings.HasSuffix(name, ":") {
		return ir.NewFormatError(p, "invalid name prefix in segment "+seg)
	}
	return nil
}

// HasIndex reports whether the last segment carries a same-name-sibling index.
func HasIndex(p string) bool {
	return strings.HasSuffix(p, "]")
}

// Parent returns the parent path. The parent of a top-level node is the
// root; the root has no parent and yields "".
func Parent(p string) string {
	if p == Root || p == "" {
		return ""
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Name returns the last segment of p. The root's name is empty.
func Name(p string) string {
	if p == Root {
		return ""
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// SplitName splits a segment into namespace prefix and local name, dropping
// any same-name-sibling index.
func SplitName(segment string) (prefix, local string) {
	segment = indexSuffix.ReplaceAllString(segment, "")
	if i := strings.Index(segment, ":"); i >= 0 {
		return segment[:i], segment[i+1:]
	}
	return "", segment
}

// Join appends a relative name to a parent path.
func Join(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + "/" + name
}

// IsDescendant reports whether p lies strictly below ancestor.
func IsDescendant(p, ancestor string) bool {
	if ancestor == Root {
		return p != Root && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// InSubtree reports whether p is root itself or lies below it.
func InSubtree(p, root string) bool {
	return p == root || IsDescendant(p, root)
}

// Rebase replaces the from prefix of p with to. p must be in the subtree of from.
func Rebase(p, from, to string) string {
	if p == from {
		return to
	}
	rest := strings.TrimPrefix(p, from)
	if from == Root {
		rest = p
	}
	if to == Root {
		return rest
	}
	return to + rest
}

// DescendantGlob returns a GLOB pattern matching every path strictly below
// p. Unlike LIKE, GLOB compares case-sensitively.
func DescendantGlob(p string) string {
	if p == Root {
		return "/?*"
	}
	return escapeGlob(p) + "/*"
}

var globEscaper = strings.NewReplacer(`*`, `[*]`, `?`, `[?]`, `[`, `[[]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// ValidValue reports whether s is acceptable as the value of a Path property.
// Relative paths and "." / ".." segments are allowed.
func ValidValue(s string) bool {
	if s == "" {
		return false
	}
	if s == Root {
		return true
	}
	s = strings.TrimPrefix(s, "/")
	for _, seg := range strings.Split(s, "/") {
		if !valueSegment.MatchString(seg) {
			return false
		}
	}
	return true
}
