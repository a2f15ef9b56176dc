package gallery

// Database provides metadata storage for events and photos.
// Lookups return (nil, nil) when the record does not exist.
// Each method commits on its own; callers compose multi-step flows.
type Database interface {
	// Event operations

	// InsertEvent stores a new event. Fails if the ID already exists.
	InsertEvent(event *Event) error

	// FindAllEvents returns every stored event in no particular order.
	FindAllEvents() ([]*Event, error)

	// FindEventByID returns the event with the given ID.
	FindEventByID(id string) (*Event, error)

	// UpdateEvent overwrites the stored record matching event.ID.
	UpdateEvent(event *Event) error

	// DeleteEventByID removes the event record. Deleting a missing ID is a no-op.
	DeleteEventByID(id string) error

	// Photo operations

	// InsertPhoto stores a new photo record. Fails if the ID already exists.
	InsertPhoto(photo *Photo) error

	// FindPhotosByEventID returns the photos owned by an event using the
	// event_id index.
	FindPhotosByEventID(eventID string) ([]*Photo, error)

	// FindPhotoByID returns the photo with the given ID.
	FindPhotoByID(id string) (*Photo, error)

	// DeletePhotoByID removes the photo record. Deleting a missing ID is a no-op.
	DeletePhotoByID(id string) error

	// Close closes the database connection.
	Close() error
}
