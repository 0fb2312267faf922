// Package export writes a flattened document to an SQLite database that
// the mobile client bundles as its local store.
//
// Schema:
//
//	meta(key, value)                                  name, export_id, book_count, verse_count, created_at
//	books(book_number, name, osis_id, testament, chapter_count)
//	verses(book_number, chapter, verse, text)         chapter and verse are 1-based positions
//
// Book numbers that collide are reassigned above the highest number in the
// document so that book_number stays a primary key.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/flatbible/core/canon"
	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/internal/logging"
	"github.com/FocuswithJustin/flatbible/internal/sqlite"
	"github.com/FocuswithJustin/flatbible/internal/validation"
)

var (
	now   = time.Now
	newID = uuid.NewString
)

var schema = []string{
	`CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE books (
		book_number INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		osis_id TEXT NOT NULL,
		testament TEXT NOT NULL,
		chapter_count INTEGER NOT NULL
	)`,
	`CREATE TABLE verses (
		book_number INTEGER NOT NULL,
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (book_number, chapter, verse)
	)`,
}

// Result describes a written database.
type Result struct {
	Path     string
	ExportID string
	Books    int
	Verses   int
	Bytes    int64
	// Renumbered lists books stored under a new number because their own
	// number was already taken, in document order.
	Renumbered []Renumbering
}

// Renumbering records a book stored under a number other than its own.
type Renumbering struct {
	Name string
	From int
	To   int
}

// Export writes doc to a new SQLite database at path, replacing any
// existing file. The database is built next to path and renamed into place
// once the transaction commits.
func Export(ctx context.Context, doc *document.Output, path string) (*Result, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, &errors.ValidationError{Field: "sqlite", Value: path, Message: err.Error(), Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("create", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	tempPath := tempFile.Name()
	tempFile.Close()

	res, err := build(ctx, doc, tempPath)
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	if err := verify(ctx, tempPath, res); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		os.Remove(tempPath)
		return nil, errors.NewIO("stat", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, errors.NewIO("rename", path, err)
	}

	res.Path = path
	res.Bytes = info.Size()
	logging.Debug("sqlite export complete",
		"path", path,
		"driver", sqlite.DriverName(),
		"books", res.Books,
		"verses", res.Verses,
	)
	return res, nil
}

func build(ctx context.Context, doc *document.Output, path string) (*Result, error) {
	db, err := sqlite.OpenContext(ctx, path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewIO("begin", path, err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, errors.NewIO("create schema", path, err)
		}
	}

	numbers, renumbered := assignNumbers(doc.Books)
	res := &Result{ExportID: newID(), Books: len(doc.Books), Renumbered: renumbered}

	if err := insertBooks(ctx, tx, doc.Books, numbers); err != nil {
		return nil, errors.NewIO("insert books", path, err)
	}
	verses, err := insertVerses(ctx, tx, doc.Books, numbers)
	if err != nil {
		return nil, errors.NewIO("insert verses", path, err)
	}
	res.Verses = verses

	meta := [][2]string{
		{"name", doc.Name},
		{"export_id", res.ExportID},
		{"book_count", strconv.Itoa(res.Books)},
		{"verse_count", strconv.Itoa(res.Verses)},
		{"created_at", now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return nil, errors.NewIO("insert meta", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewIO("commit", path, err)
	}
	return res, nil
}

// assignNumbers returns the stored book number for each book. A number
// already taken by an earlier book is replaced by the next number above
// every number in the document.
func assignNumbers(books []document.Book) ([]int, []Renumbering) {
	next := 0
	for _, b := range books {
		if b.Number > next {
			next = b.Number
		}
	}

	numbers := make([]int, len(books))
	used := make(map[int]bool, len(books))
	var renumbered []Renumbering
	for i, b := range books {
		n := b.Number
		if used[n] {
			next++
			n = next
			renumbered = append(renumbered, Renumbering{Name: b.Name, From: b.Number, To: n})
		}
		used[n] = true
		numbers[i] = n
	}
	return numbers, renumbered
}

// verify reopens the built database read-only and checks its integrity and
// row counts before it replaces anything at the destination.
func verify(ctx context.Context, path string, res *Result) error {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer db.Close()

	var check string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		return errors.NewIO("verify", path, err)
	}
	if check != "ok" {
		return errors.NewIO("verify", path, fmt.Errorf("integrity check: %s", check))
	}

	var books, verses int
	if err := db.QueryRowContext(ctx, "SELECT (SELECT COUNT(*) FROM books), (SELECT COUNT(*) FROM verses)").Scan(&books, &verses); err != nil {
		return errors.NewIO("verify", path, err)
	}
	if books != res.Books || verses != res.Verses {
		return errors.NewIO("verify", path, fmt.Errorf("stored %d books and %d verses, wrote %d and %d", books, verses, res.Books, res.Verses))
	}
	return nil
}

func insertBooks(ctx context.Context, tx *sql.Tx, books []document.Book, numbers []int) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO books (book_number, name, osis_id, testament, chapter_count) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range books {
		if _, err := stmt.ExecContext(ctx, numbers[i], b.Name, osisID(b), string(b.Testament), len(b.Chapters)); err != nil {
			return fmt.Errorf("book %s: %w", b.Name, err)
		}
	}
	return nil
}

func insertVerses(ctx context.Context, tx *sql.Tx, books []document.Book, numbers []int) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO verses (book_number, chapter, verse, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for i, b := range books {
		for c, chapter := range b.Chapters {
			for v, text := range chapter {
				if _, err := stmt.ExecContext(ctx, numbers[i], c+1, v+1, text); err != nil {
					return count, fmt.Errorf("verse %s %d:%d: %w", b.Name, c+1, v+1, err)
				}
				count++
			}
		}
	}
	return count, nil
}

// osisID returns the OSIS identifier of a canonical book, or "" for a book
// outside the registry.
func osisID(b document.Book) string {
	cb, ok := canon.ByNumber(b.Number)
	if !ok || cb.Name != b.Name {
		return ""
	}
	return cb.OSIS
}
