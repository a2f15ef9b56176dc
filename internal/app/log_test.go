package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGalleryHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "event created",
			want:    "2024-05-01T09:30:45Z\tINFO\trun-123\tevent created\n",
		},
		{
			name:    "debug level",
			runID:   "run-456",
			level:   slog.LevelDebug,
			message: "photo deleted",
			want:    "2024-05-01T09:30:45Z\tDEBUG\trun-456\tphoto deleted\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "photo uploaded",
			attrs:   []slog.Attr{slog.String("filename", "a.jpg"), slog.Int("size", 42)},
			want:    "2024-05-01T09:30:45Z\tINFO\trun-789\tphoto uploaded\tfilename=a.jpg\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &galleryHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestGalleryHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &galleryHandler{w: &buf, runID: "run-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "server")}).(*galleryHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.String("path", "/gallery/abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=server") {
		t.Errorf("expected pre-set attr component=server, got: %q", got)
	}
	if !strings.Contains(got, "path=/gallery/abc") {
		t.Errorf("expected record attr path=/gallery/abc, got: %q", got)
	}
}

func TestGalleryHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &galleryHandler{w: &buf, runID: "run-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*galleryHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestGalleryHandler_Enabled(t *testing.T) {
	t.Run("no level enables everything", func(t *testing.T) {
		h := &galleryHandler{}
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			if !h.Enabled(context.Background(), level) {
				t.Errorf("Enabled(%v) = false, want true", level)
			}
		}
	})

	t.Run("minimum level filters", func(t *testing.T) {
		h := &galleryHandler{level: slog.LevelInfo}
		if h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(DEBUG) = true with INFO minimum")
		}
		if !h.Enabled(context.Background(), slog.LevelWarn) {
			t.Error("Enabled(WARN) = false with INFO minimum")
		}
	})
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-run", nil, &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	logger.Info("hello", "k", "v")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-run\thello\tk=v") {
		t.Errorf("log file = %q, missing record", data)
	}
	if console.String() != string(data) {
		t.Errorf("console = %q, want mirror of log file %q", console.String(), data)
	}
}
