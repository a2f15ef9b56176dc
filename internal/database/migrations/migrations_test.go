package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// migratedDB returns an in-memory database with every migration applied.
func migratedDB(t *testing.T) *sql.DB {
	t.Helper()
	db := rawDB(t)
	if err := Up(db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	return db
}

func rawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUp_CreatesGallerySchema(t *testing.T) {
	db := migratedDB(t)

	objects := map[string]string{
		"events":              "table",
		"photos":              "table",
		"images":              "table",
		"schema_migrations":   "table",
		"idx_photos_event_id": "index",
	}
	for name, kind := range objects {
		var got string
		err := db.QueryRow("SELECT type FROM sqlite_master WHERE name = ?", name).Scan(&got)
		if err != nil || got != kind {
			t.Errorf("%s: type = %q, err = %v; want %s", name, got, err, kind)
		}
	}

	if err := Up(db); err != nil {
		t.Errorf("second Up() error = %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if latest != 2 {
		t.Errorf("LatestVersion() = %d, want 2", latest)
	}
}

func TestReadStatus(t *testing.T) {
	tests := []struct {
		name    string
		migrate bool
		tamper  string
		want    Status
		wantErr error
	}{
		{name: "unmigrated", want: Status{Latest: 2}, wantErr: ErrNoVersion},
		{name: "current", migrate: true, want: Status{Version: 2, Latest: 2, Migrated: true}},
		{
			name: "behind", migrate: true, tamper: "UPDATE schema_migrations SET version = 1",
			want: Status{Version: 1, Latest: 2, Migrated: true}, wantErr: ErrBehind,
		},
		{
			name: "ahead", migrate: true, tamper: "UPDATE schema_migrations SET version = 7",
			want: Status{Version: 7, Latest: 2, Migrated: true}, wantErr: ErrAhead,
		},
		{
			name: "dirty", migrate: true, tamper: "UPDATE schema_migrations SET dirty = 1",
			want: Status{Version: 2, Latest: 2, Dirty: true, Migrated: true}, wantErr: ErrDirty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := rawDB(t)
			if tt.migrate {
				if err := Up(db); err != nil {
					t.Fatal(err)
				}
			}
			if tt.tamper != "" {
				if _, err := db.Exec(tt.tamper); err != nil {
					t.Fatal(err)
				}
			}

			st, err := ReadStatus(db)
			if err != nil {
				t.Fatalf("ReadStatus() error = %v", err)
			}
			if st != tt.want {
				t.Errorf("ReadStatus() = %+v, want %+v", st, tt.want)
			}

			err = Check(db)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Check() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchema_Constraints(t *testing.T) {
	db := migratedDB(t)

	t.Run("photo needs an event", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO photos (id, event_id, filename, url, size, uploaded_at)
			VALUES ('orphan', 'no-such-event', 'a.jpg', 'orphan', 10, datetime('now'))`)
		if err == nil {
			t.Error("orphan photo inserted despite foreign key")
		}
	})

	t.Run("content type defaults empty", func(t *testing.T) {
		if _, err := db.Exec(`INSERT INTO events (id, name, event_date, created_at, updated_at)
			VALUES ('ev', 'Open House', '2024-05-01', datetime('now'), datetime('now'))`); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`INSERT INTO photos (id, event_id, filename, url, size, uploaded_at)
			VALUES ('ph', 'ev', 'a.jpg', 'ph', 10, datetime('now'))`); err != nil {
			t.Fatal(err)
		}
		var ct string
		if err := db.QueryRow("SELECT content_type FROM photos WHERE id = 'ph'").Scan(&ct); err != nil {
			t.Fatal(err)
		}
		if ct != "" {
			t.Errorf("content_type = %q, want empty", ct)
		}
	})

	t.Run("one blob per photo", func(t *testing.T) {
		if _, err := db.Exec("INSERT INTO images (photo_id, data) VALUES ('p1', x'00ff')"); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec("INSERT INTO images (photo_id, data) VALUES ('p1', x'01')"); err == nil {
			t.Error("duplicate photo_id accepted")
		}
	})
}
