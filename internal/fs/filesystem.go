// Package fs discovers image files on the local filesystem for upload.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Candidate is a regular file found by the Scanner.
type Candidate struct {
	Path        string // absolute path
	Name        string // base name, used as the photo filename
	Size        int64
	ContentType string
}

// IsImage reports whether the detected content type is an image type.
func (c Candidate) IsImage() bool {
	return IsImageType(c.ContentType)
}

// Scanner finds upload candidates under a file or directory.
type Scanner struct {
	ignore []string
}

// NewScanner creates a Scanner that skips files matching the given ignore patterns
// in addition to any patterns listed in a directory's ignore file.
func NewScanner(ignorePatterns []string) *Scanner {
	return &Scanner{ignore: ignorePatterns}
}

// Scan returns candidates for rawPath, sorted by path. A file path yields that
// file; a directory yields its regular files, descending into subdirectories
// when recursive is set. Symlinks and special files are skipped.
func (s *Scanner) Scan(rawPath string, recursive bool) ([]Candidate, error) {
	root, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not supported: %s", root)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", root)
		}
		c, err := newCandidate(root, info)
		if err != nil {
			return nil, err
		}
		return []Candidate{c}, nil
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append(append([]string{}, defaultIgnorePatterns...), s.ignore...), filePatterns...)
	matcher := NewIgnoreMatcher(patterns)

	var candidates []Candidate
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if matcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		c, err := newCandidate(p, info)
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates, nil
}

func newCandidate(p string, info fs.FileInfo) (Candidate, error) {
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return Candidate{}, fmt.Errorf("detecting type of %s: %w", p, err)
	}
	return Candidate{
		Path:        p,
		Name:        filepath.Base(p),
		Size:        info.Size(),
		ContentType: baseType(mt),
	}, nil
}

// DetectContentType sniffs data and returns its MIME type without parameters.
func DetectContentType(data []byte) string {
	return baseType(mimetype.Detect(data))
}

func baseType(mt *mimetype.MIME) string {
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// IsImageType reports whether contentType names an image type.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
