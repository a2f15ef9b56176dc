package gallery

import "time"

// DateLayout is the calendar date format used for Event.Date.
const DateLayout = "2006-01-02"

// Event is a named, dated collection that owns a set of photos.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Description string    `json:"description,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"` // reserved, not used by any flow
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Photo is the metadata record for one uploaded image. The image bytes live
// in the ImageStore under the same ID.
type Photo struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"` // legacy: always equals ID
	Thumbnail   string    `json:"thumbnail,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Size        int64     `json:"size"`
}

// EventFields holds the caller-supplied fields for a new event.
type EventFields struct {
	Name        string
	Date        string
	Description string
}

// EventUpdate is a partial update. Nil fields are left untouched.
type EventUpdate struct {
	Name        *string
	Date        *string
	Description *string
	CoverImage  *string
}

// PhotoUpload describes a file handed to UploadPhoto.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64 // optional; when set it must equal len(Data)
	Data        []byte
}
