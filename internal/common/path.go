package common

import (
	"errors"
	"path"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

// NormalizeDir trims surrounding slashes and collapses repeated ones.
// "/imgs//a/" becomes "imgs/a"; "" and "/" become "".
func NormalizeDir(p string) string {
	return strings.Join(Segments(p), "/")
}

// Segments splits p on "/" dropping empty parts.
func Segments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinPath joins the non-empty parts with "/" and strips leading and
// trailing slashes from the result.
func JoinPath(parts ...string) string {
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		segs = append(segs, Segments(p)...)
	}
	return strings.Join(segs, "/")
}

// ParentDir returns the directory that contains p, or "" at the root.
func ParentDir(p string) string {
	segs := Segments(p)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}

// BaseName returns the last element of p.
func BaseName(p string) string {
	segs := Segments(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// MarkerPath is the path of the directory marker inside dir.
func MarkerPath(dir string) string {
	return JoinPath(dir, MarkerName)
}

// ValidateName rejects folder and file names that would escape the target
// directory or produce empty segments.
func ValidateName(name string) (string, error) {
	if strings.Contains(name, "..") || strings.Contains(name, "//") {
		return "", ErrInvalidPath
	}
	clean := strings.Trim(strings.TrimSpace(name), "/")
	if clean == "" || path.Clean(clean) != clean {
		return "", ErrInvalidPath
	}
	return clean, nil
}
