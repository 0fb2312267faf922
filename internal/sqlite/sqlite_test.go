package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()

	if info.DriverName == "" {
		t.Error("DriverName should not be empty")
	}

	if info.Package == "" {
		t.Error("Package should not be empty")
	}

	// Verify consistency
	if info.DriverName != DriverName() {
		t.Errorf("DriverName mismatch: info=%s, func=%s", info.DriverName, DriverName())
	}

	if info.DriverType != DriverType() {
		t.Errorf("DriverType mismatch: info=%s, func=%s", info.DriverType, DriverType())
	}

	if info.IsCGO != IsCGO() {
		t.Errorf("IsCGO mismatch: info=%v, func=%v", info.IsCGO, IsCGO())
	}

	t.Logf("SQLite driver: %s (%s) from %s", info.DriverName, info.DriverType, info.Package)
}

func TestDriverTypeConsistency(t *testing.T) {
	switch DriverType() {
	case "purego":
		if IsCGO() {
			t.Error("IsCGO() should be false for purego driver")
		}
		if DriverName() != "sqlite" {
			t.Errorf("purego driver should use 'sqlite' name, got '%s'", DriverName())
		}
	case "cgo":
		if !IsCGO() {
			t.Error("IsCGO() should be true for cgo driver")
		}
		if DriverName() != "sqlite3" {
			t.Errorf("cgo driver should use 'sqlite3' name, got '%s'", DriverName())
		}
	default:
		t.Errorf("unknown driver type: %s", DriverType())
	}
}

func TestOpenContextAndReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "with space", "bible.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatal(err)
	}

	db, err := OpenContext(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenContext() error = %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE books (book_number INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO books VALUES (?, ?)`, 1, "Genesis"); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	db.Close()

	rodb, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly() error = %v", err)
	}
	defer rodb.Close()

	var name string
	if err := rodb.QueryRow(`SELECT name FROM books WHERE book_number = 1`).Scan(&name); err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if name != "Genesis" {
		t.Errorf("expected 'Genesis', got '%s'", name)
	}

	if _, err := rodb.Exec(`INSERT INTO books VALUES (2, 'Exodus')`); err == nil {
		t.Error("write through read-only handle succeeded")
	}
}

func TestOpenContext_MissingDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "bible.db")

	if _, err := OpenContext(context.Background(), dbPath); err == nil {
		t.Error("OpenContext() in a missing directory should fail")
	}
}

func TestFileURI(t *testing.T) {
	tests := []struct {
		path string
		mode string
		want string
	}{
		{"/tmp/bible.db", "ro", "file:/tmp/bible.db?mode=ro"},
		{"data/bible.db", "rwc", "file:data/bible.db?mode=rwc"},
		{"/tmp/a b/c?d.db", "ro", "file:/tmp/a%20b/c%3Fd.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := fileURI(tt.path, tt.mode); got != tt.want {
				t.Errorf("fileURI() = %q, want %q", got, tt.want)
			}
		})
	}
}
