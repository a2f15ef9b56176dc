package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory ignore file read by the scanner.
const IgnoreFileName = ".galleryignore"

// defaultIgnorePatterns are always applied regardless of config or ignore file.
var defaultIgnorePatterns = []string{IgnoreFileName}

type ignoreRule struct {
	glob     string // lower-cased
	wholeRel bool   // match the slash-separated relative path instead of the base name
	keep     bool   // "!" rule: re-include what earlier rules dropped
}

// IgnoreMatcher decides which upload candidates to drop.
//
// Rules are globs compared case-insensitively, since cameras and phones
// disagree on IMG_0001.JPG versus img_0001.jpg. A rule containing '/' is
// matched against the relative path, any other rule against the base name.
// A leading '!' turns a rule into a re-include. The last matching rule wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw rules. Blank lines and '#' comments are skipped,
// as are malformed globs.
func NewIgnoreMatcher(raw []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.keep = true
			line = strings.TrimSpace(line[1:])
		}
		line = strings.TrimPrefix(line, "./")
		if line == "" {
			continue
		}
		rule.glob = strings.ToLower(line)
		rule.wholeRel = strings.Contains(line, "/")

		if _, err := path.Match(rule.glob, ""); err != nil {
			continue
		}
		m.rules = append(m.rules, rule)
	}
	return m
}

// Match reports whether relativePath, relative to the scan root, is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := strings.ToLower(filepath.ToSlash(relativePath))
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		subject := base
		if r.wholeRel {
			subject = rel
		}
		if ok, _ := path.Match(r.glob, subject); ok {
			ignored = !r.keep
		}
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// A missing file yields nil and no error.
func ParseIgnoreFile(p string) ([]string, error) {
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", p, err)
	}
	return lines, nil
}
