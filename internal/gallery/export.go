package gallery

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// defaultSafeName is used when an event name has no ASCII letters or digits.
const defaultSafeName = "gallery"

// SafeName derives the archive folder and file base name from an event
// name: every character outside [a-zA-Z0-9] is removed and the rest is
// lower-cased. Distinct names may map to the same result.
func SafeName(eventName string) string {
	var b strings.Builder
	for _, r := range eventName {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	if b.Len() == 0 {
		return defaultSafeName
	}
	return b.String()
}

// ExportEvent writes a zip archive of the event's photos to w and returns
// the safe name used for the archive folder. Each photo is stored under
// <safeName>/<filename>. Photos whose image is missing or unreadable are
// skipped. Returns ErrNothingToExport, with nothing written, when the event
// has no photos.
func (s *Service) ExportEvent(eventID, eventName string, w io.Writer) (string, error) {
	photos, err := s.GetPhotosByEvent(eventID)
	if err != nil {
		return "", err
	}
	if len(photos) == 0 {
		return "", ErrNothingToExport
	}

	safeName := SafeName(eventName)
	zw := zip.NewWriter(w)

	if _, err := zw.Create(safeName + "/"); err != nil {
		return "", fmt.Errorf("creating archive folder: %w", err)
	}

	names := newEntryNames()
	added := 0
	for _, photo := range photos {
		var buf bytes.Buffer
		found, err := s.images.Get(photo.ID, &buf)
		if err != nil {
			s.logger.Warn("skipping unreadable image", "photo", photo.ID, "error", err)
			continue
		}
		if !found {
			s.logger.Warn("skipping photo without image", "photo", photo.ID)
			continue
		}

		header := &zip.FileHeader{
			Name:     safeName + "/" + names.next(photo.Filename),
			Method:   zip.Deflate,
			Modified: photo.UploadedAt,
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return "", fmt.Errorf("creating archive entry %s: %w", header.Name, err)
		}
		if _, err := io.Copy(entry, &buf); err != nil {
			return "", fmt.Errorf("writing archive entry %s: %w", header.Name, err)
		}
		added++
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}

	s.logger.Info("event exported", "event", eventID, "name", safeName, "photos", added, "skipped", len(photos)-added)
	return safeName, nil
}

// entryNames hands out unique archive entry names. A repeated filename gets
// a " (n)" suffix before its extension.
type entryNames struct {
	seen map[string]int
}

func newEntryNames() *entryNames {
	return &entryNames{seen: make(map[string]int)}
}

// FileName reduces a stored photo filename to a single safe path element,
// falling back to "photo" when nothing usable remains.
func FileName(stored string) string {
	name := path.Base(strings.ReplaceAll(stored, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "photo"
	}
	return name
}

func (n *entryNames) next(filename string) string {
	name := FileName(filename)

	n.seen[name]++
	count := n.seen[name]
	if count == 1 {
		return name
	}

	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), count, ext)
	for n.seen[candidate] > 0 {
		count++
		candidate = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), count, ext)
	}
	n.seen[candidate]++
	return candidate
}
