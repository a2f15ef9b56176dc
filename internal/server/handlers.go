package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gallery-go/internal/display"
	"gallery-go/internal/fs"
	"gallery-go/internal/gallery"
)

// DisplayRefHeader carries the display reference a photo response was served from.
const DisplayRefHeader = "X-Display-Ref"

type errorBody struct {
	Error string `json:"error"`
}

type galleryBody struct {
	Event  *gallery.Event   `json:"event"`
	Photos []*gallery.Photo `json:"photos"`
}

type uploadBody struct {
	Uploaded []*gallery.Photo `json:"uploaded"`
	Skipped  []string         `json:"skipped"`
}

type eventRequest struct {
	Name        *string `json:"name"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
	CoverImage  *string `json:"coverImage"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var storage *gallery.StorageError
	switch {
	case errors.Is(err, gallery.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, gallery.ErrNothingToExport):
		writeJSON(w, http.StatusNotFound, errorBody{Error: gallery.ErrNothingToExport.Error()})
	case errors.As(err, &storage):
		s.logger.Error("storage failure", "op", storage.Op, "path", r.URL.Path, "error", storage.Err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "storage failure"})
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: what + " not found"})
}

// loadEvent writes a 404 and returns nil when the event does not exist.
func (s *Server) loadEvent(w http.ResponseWriter, r *http.Request) *gallery.Event {
	event, err := s.service.GetEvent(chi.URLParam(r, "eventID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil
	}
	if event == nil {
		notFound(w, "event")
		return nil
	}
	return event
}

func (s *Server) writeGallery(w http.ResponseWriter, r *http.Request) {
	event := s.loadEvent(w, r)
	if event == nil {
		return
	}
	photos, err := s.service.GetPhotosByEvent(event.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if photos == nil {
		photos = []*gallery.Photo{}
	}
	writeJSON(w, http.StatusOK, galleryBody{Event: event, Photos: photos})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	s.writeGallery(w, r)
}

// handlePhoto streams one photo's bytes through a display reference that
// is released when the response has been written.
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.service.GetPhoto(chi.URLParam(r, "photoID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if photo == nil || photo.EventID != chi.URLParam(r, "eventID") {
		notFound(w, "photo")
		return
	}

	ref, err := s.service.ResolveDisplayReference(photo.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ref == nil {
		notFound(w, "image")
		return
	}

	display.With(ref, func(ref *display.Ref) error {
		data, ok := s.service.Displays().Open(ref.Token())
		if !ok {
			// Released underneath us by a shutdown.
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "image no longer available"})
			return nil
		}
		s.logger.Debug("serving display reference", "photo", ref.PhotoID(), "ref", ref.Token(), "bytes", len(data))

		contentType := photo.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set(DisplayRefHeader, ref.Token())
		if r.URL.Query().Get("download") == "1" {
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": photo.Filename}))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.logger.Warn("photo stream interrupted", "photo", photo.ID, "error", err)
		}
		s.metrics.displayed.Inc()
		return nil
	})
}

// handleArchive builds the archive in memory so an empty event can still
// answer 404 before any body is sent.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	event := s.loadEvent(w, r)
	if event == nil {
		return
	}

	var buf bytes.Buffer
	safeName, err := s.service.ExportEvent(event.ID, event.Name, &buf)
	if err != nil {
		if errors.Is(err, gallery.ErrNothingToExport) {
			s.metrics.exports.WithLabelValues("empty").Inc()
		} else {
			s.metrics.exports.WithLabelValues("error").Inc()
		}
		s.writeError(w, r, err)
		return
	}
	s.metrics.exports.WithLabelValues("ok").Inc()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": safeName + ".zip"}))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ok, err := s.gateFor(w, r).Login(r.FormValue("password"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.metrics.logins.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "incorrect password"})
		return
	}
	s.metrics.logins.WithLabelValues("accepted").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gateFor(w, r).Logout(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.ListEvents(r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*gallery.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	fields := gallery.EventFields{}
	if req.Name != nil {
		fields.Name = *req.Name
	}
	if req.Date != nil {
		fields.Date = *req.Date
	}
	if req.Description != nil {
		fields.Description = *req.Description
	}

	event, err := s.service.CreateEvent(fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	s.writeGallery(w, r)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	event := s.loadEvent(w, r)
	if event == nil {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	update := gallery.EventUpdate{
		Name:        req.Name,
		Date:        req.Date,
		Description: req.Description,
		CoverImage:  req.CoverImage,
	}
	if err := s.service.UpdateEvent(event.ID, update); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.service.GetEvent(event.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteEvent(chi.URLParam(r, "eventID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadPhotos accepts multipart files under the "photos" field. Each
// part is sniffed; parts that are not images are skipped and named in the
// response. Uploads run in order and stop at the first storage failure.
func (s *Server) handleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	event := s.loadEvent(w, r)
	if event == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart body: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	body := uploadBody{Uploaded: []*gallery.Photo{}, Skipped: []string{}}
	for _, header := range r.MultipartForm.File["photos"] {
		f, err := header.Open()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		contentType := fs.DetectContentType(data)
		if !fs.IsImageType(contentType) {
			s.metrics.uploads.WithLabelValues("skipped").Inc()
			body.Skipped = append(body.Skipped, header.Filename)
			continue
		}

		photo, err := s.service.UploadPhoto(event.ID, gallery.PhotoUpload{
			Filename:    header.Filename,
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        data,
		})
		if err != nil {
			s.metrics.uploads.WithLabelValues("failed").Inc()
			s.writeError(w, r, err)
			return
		}
		s.metrics.uploads.WithLabelValues("stored").Inc()
		body.Uploaded = append(body.Uploaded, photo)
	}

	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePhoto(chi.URLParam(r, "photoID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
