package gallery

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"gallery-go/internal/display"
)

// UploadPhoto stores the image bytes and then the photo record, both under
// one new ID. The content type is recorded as given; callers filter out
// non-image files before calling.
func (s *Service) UploadPhoto(eventID string, upload PhotoUpload) (*Photo, error) {
	filename := path.Base(strings.ReplaceAll(strings.TrimSpace(upload.Filename), "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return nil, validationErr("photo filename is required")
	}
	if filename == ".." {
		return nil, validationErr("photo filename %q is not a file name", filename)
	}
	if upload.Size > 0 && upload.Size != int64(len(upload.Data)) {
		return nil, validationErr("photo size %d does not match %d bytes of data", upload.Size, len(upload.Data))
	}

	event, err := s.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, validationErr("event %s does not exist", eventID)
	}

	size := int64(len(upload.Data))

	id := s.idgen.New()
	if err := s.images.Put(id, bytes.NewReader(upload.Data), size); err != nil {
		return nil, storageErr("store image", err)
	}

	photo := &Photo{
		ID:          id,
		EventID:     eventID,
		Filename:    filename,
		URL:         id,
		ContentType: upload.ContentType,
		UploadedAt:  s.clock.Now(),
		Size:        size,
	}

	if err := s.database.InsertPhoto(photo); err != nil {
		// Leave no image behind without a record.
		if delErr := s.images.Delete(id); delErr != nil {
			s.logger.Warn("orphaned image after failed upload", "id", id, "error", delErr)
		}
		return nil, storageErr("create photo", err)
	}

	s.logger.Info("photo uploaded", "id", id, "event", eventID, "filename", filename, "size", size)
	return photo, nil
}

// GetPhotosByEvent returns the photos of an event, oldest upload first.
func (s *Service) GetPhotosByEvent(eventID string) ([]*Photo, error) {
	photos, err := s.database.FindPhotosByEventID(eventID)
	if err != nil {
		return nil, storageErr("list photos", err)
	}

	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].UploadedAt.Before(photos[j].UploadedAt)
	})
	return photos, nil
}

// GetPhoto returns the photo record, or nil if it does not exist.
func (s *Service) GetPhoto(photoID string) (*Photo, error) {
	photo, err := s.database.FindPhotoByID(photoID)
	if err != nil {
		return nil, storageErr("get photo", err)
	}
	return photo, nil
}

// GetPhotoBlob returns the image bytes, or nil if none are stored.
func (s *Service) GetPhotoBlob(photoID string) ([]byte, error) {
	var buf bytes.Buffer
	found, err := s.images.Get(photoID, &buf)
	if err != nil {
		return nil, storageErr("get image", err)
	}
	if !found {
		return nil, nil
	}
	return buf.Bytes(), nil
}

// DeletePhoto removes the image and then the photo record. The record goes
// last so a failed delete can still be found and retried. Deleting a photo
// that is already gone is a no-op.
func (s *Service) DeletePhoto(photoID string) error {
	if err := s.images.Delete(photoID); err != nil {
		return storageErr("delete image", err)
	}
	if err := s.database.DeletePhotoByID(photoID); err != nil {
		return storageErr("delete photo", err)
	}

	s.logger.Debug("photo deleted", "id", photoID)
	return nil
}

// ResolveDisplayReference loads the image and registers a display
// reference for it. Returns nil if no image is stored. The caller must
// Release the reference; display.With does that on every exit path.
func (s *Service) ResolveDisplayReference(photoID string) (*display.Ref, error) {
	data, err := s.GetPhotoBlob(photoID)
	if err != nil {
		return nil, fmt.Errorf("resolving display reference: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return s.refs.Acquire(photoID, data), nil
}
