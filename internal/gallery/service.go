package gallery

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gallery-go/internal/display"
)

// Service is the orchestration layer over the metadata database and the
// image store. It implements every gallery operation needed by the CLI and
// the HTTP server.
type Service struct {
	database Database
	images   ImageStore
	refs     *display.Registry
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(database Database, images ImageStore, refs *display.Registry, logger Logger, clock Clock, idgen IDGenerator) *Service {
	if refs == nil {
		refs = display.NewRegistry()
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		database: database,
		images:   images,
		refs:     refs,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Displays returns the registry backing ResolveDisplayReference.
func (s *Service) Displays() *display.Registry {
	return s.refs
}

// CreateEvent validates fields and stores a new event with a generated ID.
func (s *Service) CreateEvent(fields EventFields) (*Event, error) {
	name := strings.TrimSpace(fields.Name)
	if name == "" {
		return nil, validationErr("event name is required")
	}
	if err := validateDate(fields.Date); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &Event{
		ID:          s.idgen.New(),
		Name:        name,
		Date:        fields.Date,
		Description: strings.TrimSpace(fields.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.database.InsertEvent(event); err != nil {
		return nil, storageErr("create event", err)
	}

	s.logger.Info("event created", "id", event.ID, "name", event.Name)
	return event, nil
}

// GetAllEvents returns every event, unordered.
func (s *Service) GetAllEvents() ([]*Event, error) {
	events, err := s.database.FindAllEvents()
	if err != nil {
		return nil, storageErr("list events", err)
	}
	return events, nil
}

// ListEvents returns the events whose name or description contains query
// (case-insensitive), newest event date first. An empty query matches all.
func (s *Service) ListEvents(query string) ([]*Event, error) {
	events, err := s.GetAllEvents()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	matched := events[:0]
	for _, e := range events {
		if q == "" ||
			strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date > matched[j].Date
	})
	return matched, nil
}

// GetEvent returns the event, or nil if it does not exist.
func (s *Service) GetEvent(id string) (*Event, error) {
	event, err := s.database.FindEventByID(id)
	if err != nil {
		return nil, storageErr("get event", err)
	}
	return event, nil
}

// UpdateEvent applies a partial update and refreshes UpdatedAt.
// Updating an event that does not exist is a no-op.
func (s *Service) UpdateEvent(id string, update EventUpdate) error {
	event, err := s.GetEvent(id)
	if err != nil {
		return err
	}
	if event == nil {
		s.logger.Debug("update skipped, event not found", "id", id)
		return nil
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return validationErr("event name is required")
		}
		event.Name = name
	}
	if update.Date != nil {
		if err := validateDate(*update.Date); err != nil {
			return err
		}
		event.Date = *update.Date
	}
	if update.Description != nil {
		event.Description = strings.TrimSpace(*update.Description)
	}
	if update.CoverImage != nil {
		event.CoverImage = *update.CoverImage
	}
	event.UpdatedAt = s.clock.Now()

	if err := s.database.UpdateEvent(event); err != nil {
		return storageErr("update event", err)
	}

	s.logger.Info("event updated", "id", id)
	return nil
}

// DeleteEvent removes every photo of the event (with its image) and then
// the event itself. Steps commit independently; if one fails the error is
// returned and calling DeleteEvent again finishes the cascade.
func (s *Service) DeleteEvent(id string) error {
	photos, err := s.database.FindPhotosByEventID(id)
	if err != nil {
		return storageErr("list photos for event", err)
	}

	for _, photo := range photos {
		if err := s.DeletePhoto(photo.ID); err != nil {
			return fmt.Errorf("deleting photo %s of event %s: %w", photo.ID, id, err)
		}
	}

	if err := s.database.DeleteEventByID(id); err != nil {
		return storageErr("delete event", err)
	}

	s.logger.Info("event deleted", "id", id, "photos", len(photos))
	return nil
}

func validateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return validationErr("event date is required")
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return validationErr("event date %q is not a YYYY-MM-DD date", date)
	}
	return nil
}
