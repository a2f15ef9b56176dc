package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gallery-go/internal/config"
	"gallery-go/internal/database"
	"gallery-go/internal/display"
	"gallery-go/internal/encryption"
	"gallery-go/internal/fs"
	"gallery-go/internal/gallery"
	"gallery-go/internal/gate"
	"gallery-go/internal/imagestore"
)

var (
	// ErrNotAuthenticated is returned by admin operations before a successful Login.
	ErrNotAuthenticated = errors.New("not logged in: run `gallery login` first")
	// ErrEventNotFound is returned when an operation names an unknown event.
	ErrEventNotFound = errors.New("event not found")
	// ErrPhotoNotFound is returned when an operation names an unknown photo.
	ErrPhotoNotFound = errors.New("photo not found")
)

// Options tunes how NewApp wires logging.
type Options struct {
	Console io.Writer // mirrors log records; nil logs to the file only
	Verbose bool      // include DEBUG records
}

// App is the application layer between the CLI and gallery.Service.
// It constructs all dependencies from config, enforces the admin gate,
// exposes operations that accept raw string paths, and manages the DB
// lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *gallery.Service
	gate    *gate.Gate
	scanner *fs.Scanner
	logger  *slog.Logger
	run     *Run
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "CreateEvent", "Serve").
// The caller must call Close when done.
func NewApp(cfg *config.Config, command string, opts Options) (*App, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	images, err := imagestore.NewImageStoreFromConfig(context.Background(), cfg.Images, db, enc)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating image store: %w", err)
	}
	if err := images.ValidateSetup(); err != nil {
		db.Close()
		return nil, fmt.Errorf("image store not ready: %w", err)
	}

	run := NewRun(command, time.Now())
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, run.ID, level, opts.Console)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := gallery.NewService(db, images, display.NewRegistry(), &slogAdapter{l: logger}, gallery.RealClock{}, gallery.UUIDGenerator{})

	logger.Debug("run started", "command", command, "images", cfg.Images.Type, "encryption", cfg.Encryption.Type)

	return &App{
		cfg:     cfg,
		db:      db,
		service: svc,
		gate:    gate.New(gate.NewFileSessionStore(cfg.Access.SessionPath), Password(cfg.Access)),
		scanner: fs.NewScanner(cfg.Upload.Ignore),
		logger:  logger,
		run:     run,
		logFile: logFile,
	}, nil
}

// Password returns the configured shared password, or the default when unset.
func Password(cfg config.AccessConfig) string {
	if cfg.Password == "" {
		return config.DefaultPassword
	}
	return cfg.Password
}

// Config returns the config the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Service returns the wired gallery service.
func (a *App) Service() *gallery.Service { return a.service }

// Logger returns the run's structured logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Run returns the run record.
func (a *App) Run() *Run { return a.run }

// track marks the run failed when err is non-nil and returns err unchanged.
func (a *App) track(err error) error {
	if err != nil {
		a.run.Fail()
	}
	return err
}

// Login checks password against the shared secret and persists the marker on success.
func (a *App) Login(password string) (bool, error) {
	ok, err := a.gate.Login(password)
	if err != nil {
		return false, a.track(err)
	}
	if !ok {
		a.logger.Warn("login rejected")
		a.run.Fail()
		return false, nil
	}
	a.logger.Info("login accepted")
	return true, nil
}

// Logout clears the persisted marker.
func (a *App) Logout() error {
	return a.track(a.gate.Logout())
}

// IsAuthenticated reports whether a previous Login is still recorded.
func (a *App) IsAuthenticated() (bool, error) {
	return a.gate.IsAuthenticated()
}

func (a *App) requireAdmin() error {
	ok, err := a.gate.IsAuthenticated()
	if err != nil {
		return a.track(err)
	}
	if !ok {
		return a.track(ErrNotAuthenticated)
	}
	return nil
}

// CreateEvent stores a new event. Requires login.
func (a *App) CreateEvent(fields gallery.EventFields) (*gallery.Event, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	event, err := a.service.CreateEvent(fields)
	return event, a.track(err)
}

// ListEvents returns events matching query, newest first. Requires login.
func (a *App) ListEvents(query string) ([]*gallery.Event, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	events, err := a.service.ListEvents(query)
	return events, a.track(err)
}

// GetEvent returns the event and its photos, oldest upload first.
func (a *App) GetEvent(id string) (*gallery.Event, []*gallery.Photo, error) {
	event, err := a.service.GetEvent(id)
	if err != nil {
		return nil, nil, a.track(err)
	}
	if event == nil {
		return nil, nil, a.track(fmt.Errorf("%w: %s", ErrEventNotFound, id))
	}
	photos, err := a.service.GetPhotosByEvent(id)
	if err != nil {
		return nil, nil, a.track(err)
	}
	return event, photos, nil
}

// UpdateEvent applies a partial update. Requires login.
func (a *App) UpdateEvent(id string, update gallery.EventUpdate) (*gallery.Event, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}
	if err := a.service.UpdateEvent(id, update); err != nil {
		return nil, a.track(err)
	}
	event, err := a.service.GetEvent(id)
	if err != nil {
		return nil, a.track(err)
	}
	if event == nil {
		return nil, a.track(fmt.Errorf("%w: %s", ErrEventNotFound, id))
	}
	return event, nil
}

// DeleteEvent removes the event with all of its photos. Requires login.
func (a *App) DeleteEvent(id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.track(a.service.DeleteEvent(id))
}

// ShareLink returns the public URL of the event's gallery. Requires login.
func (a *App) ShareLink(id string) (string, error) {
	if err := a.requireAdmin(); err != nil {
		return "", err
	}
	event, err := a.service.GetEvent(id)
	if err != nil {
		return "", a.track(err)
	}
	if event == nil {
		return "", a.track(fmt.Errorf("%w: %s", ErrEventNotFound, id))
	}
	return PublicBaseURL(a.cfg.Server) + "/gallery/" + event.ID, nil
}

// PublicBaseURL returns the configured public base URL without a trailing
// slash, falling back to the local listen address.
func PublicBaseURL(cfg config.ServerConfig) string {
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		return base
	}
	addr := cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// AddResult reports what AddPhotos did with each file it found.
type AddResult struct {
	Uploaded []*gallery.Photo
	Skipped  []string // paths that are not images
}

// AddPhotos uploads the image files at rawPath to the event. A directory
// contributes its files, descending when recursive is set. Files that are
// not images are skipped. Uploads run one at a time; on failure the photos
// uploaded so far are returned with the error. Requires login.
func (a *App) AddPhotos(eventID, rawPath string, recursive bool) (*AddResult, error) {
	if err := a.requireAdmin(); err != nil {
		return nil, err
	}

	event, err := a.service.GetEvent(eventID)
	if err != nil {
		return nil, a.track(err)
	}
	if event == nil {
		return nil, a.track(fmt.Errorf("%w: %s", ErrEventNotFound, eventID))
	}

	candidates, err := a.scanner.Scan(rawPath, recursive)
	if err != nil {
		return nil, a.track(fmt.Errorf("scanning %s: %w", rawPath, err))
	}

	result := &AddResult{}
	for _, c := range candidates {
		if !c.IsImage() {
			a.logger.Debug("skipping non-image file", "path", c.Path, "type", c.ContentType)
			result.Skipped = append(result.Skipped, c.Path)
			continue
		}

		data, err := os.ReadFile(c.Path)
		if err != nil {
			return result, a.track(fmt.Errorf("reading %s: %w", c.Path, err))
		}

		photo, err := a.service.UploadPhoto(eventID, gallery.PhotoUpload{
			Filename:    c.Name,
			ContentType: c.ContentType,
			Size:        int64(len(data)),
			Data:        data,
		})
		if err != nil {
			return result, a.track(fmt.Errorf("uploading %s: %w", c.Path, err))
		}
		result.Uploaded = append(result.Uploaded, photo)
	}

	return result, nil
}

// DeletePhoto removes the photo and its image. Requires login.
func (a *App) DeletePhoto(photoID string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.track(a.service.DeletePhoto(photoID))
}

// GetPhoto writes the photo's image to destDir under its original filename
// and returns the written path. An empty destDir uses the export output dir.
func (a *App) GetPhoto(photoID, destDir string) (string, error) {
	photo, err := a.service.GetPhoto(photoID)
	if err != nil {
		return "", a.track(err)
	}
	if photo == nil {
		return "", a.track(fmt.Errorf("%w: %s", ErrPhotoNotFound, photoID))
	}

	ref, err := a.service.ResolveDisplayReference(photoID)
	if err != nil {
		return "", a.track(err)
	}
	if ref == nil {
		return "", a.track(fmt.Errorf("%w: no image stored for %s", ErrPhotoNotFound, photoID))
	}

	dest := filepath.Join(a.outputDir(destDir), gallery.FileName(photo.Filename))
	err = display.With(ref, func(ref *display.Ref) error {
		a.logger.Debug("writing photo", "photo", ref.PhotoID(), "bytes", ref.Size(), "dest", dest)
		return writeFileAtomic(dest, func(w io.Writer) error {
			_, err := io.Copy(w, ref.Reader())
			return err
		})
	})
	if err != nil {
		return "", a.track(fmt.Errorf("writing %s: %w", dest, err))
	}
	return dest, nil
}

// ExportEvent writes the event's photos to <destDir>/<safeName>.zip and
// returns the archive path. An empty destDir uses the export output dir.
// Returns gallery.ErrNothingToExport, writing nothing, for an event
// without photos.
func (a *App) ExportEvent(eventID, destDir string) (string, error) {
	event, err := a.service.GetEvent(eventID)
	if err != nil {
		return "", a.track(err)
	}
	if event == nil {
		return "", a.track(fmt.Errorf("%w: %s", ErrEventNotFound, eventID))
	}

	dir := a.outputDir(destDir)
	dest := filepath.Join(dir, gallery.SafeName(event.Name)+".zip")
	err = writeFileAtomic(dest, func(w io.Writer) error {
		_, err := a.service.ExportEvent(event.ID, event.Name, w)
		return err
	})
	if errors.Is(err, gallery.ErrNothingToExport) {
		return "", err
	}
	if err != nil {
		return "", a.track(fmt.Errorf("exporting event %s: %w", eventID, err))
	}
	return dest, nil
}

// BackupDatabase writes a consistent copy of the metadata database to
// destPath. With the default sqlite image store the copy includes the
// image bytes. Requires login.
func (a *App) BackupDatabase(destPath string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	if _, err := os.Stat(destPath); err == nil {
		return a.track(fmt.Errorf("backup destination %s already exists", destPath))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return a.track(fmt.Errorf("creating backup directory: %w", err))
	}
	if err := a.db.BackupTo(destPath); err != nil {
		return a.track(err)
	}
	a.logger.Info("database backed up", "dest", destPath)
	return nil
}

func (a *App) outputDir(destDir string) string {
	switch {
	case destDir != "":
		return destDir
	case a.cfg.Export.OutputDir != "":
		return a.cfg.Export.OutputDir
	default:
		return "."
	}
}

// writeFileAtomic streams fill into a temp file beside path and renames it
// into place. Nothing is left behind when fill fails.
func writeFileAtomic(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gallery-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Close releases outstanding display references, closes the database and
// the log file. It returns the first error encountered.
func (a *App) Close() error {
	var firstErr error

	if n := a.service.Displays().ReleaseAll(); n > 0 {
		a.logger.Debug("released display references", "count", n)
	}

	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
		a.run.Fail()
	}

	a.logger.Info("run finished", "command", a.run.Command, "status", a.run.Status, "elapsed", a.run.Elapsed(time.Now()).Round(time.Millisecond))

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}
