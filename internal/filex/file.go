// Package filex reads local files for upload and prepares local
// directories.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".svg", ".avif", ".bmp", ".ico"}

var compressibleExts = []string{".jpg", ".jpeg", ".png", ".webp"}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsImage reports whether name looks like an image the gallery can show.
func IsImage(name string) bool { return hasExt(name, imageExts) }

// Compressible reports whether the compression API accepts the file type.
func Compressible(name string) bool { return hasExt(name, compressibleExts) }

// EnsureDir creates dir (relative paths resolve against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// Upload is one local file ready to send.
type Upload struct {
	Name string
	Data []byte
}

// ReadUploads loads the given paths in order. A directory contributes its
// image files, sorted by name; subdirectories are not descended into.
func ReadUploads(paths []string) ([]Upload, error) {
	var out []Upload
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			u, err := readUpload(p)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() || !IsImage(e.Name()) {
				continue
			}
			u, err := readUpload(filepath.Join(p, e.Name()))
			if err != nil {
				return nil, err
			}
			out = append(out, u)
		}
	}
	return out, nil
}

func readUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}
