package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/flatbible/core/canon"
	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/core/flatten"
	"github.com/FocuswithJustin/flatbible/internal/sqlite"
)

func sampleOutput() *document.Output {
	return &document.Output{
		Name: "King James Version",
		Books: []document.Book{
			{Name: "Genesis", Number: 1, Testament: canon.Old, Chapters: []document.Chapter{
				{"1 In the beginning God created the heaven and the earth.", "2 And the earth was without form"},
				{"1 Thus the heavens and the earth were finished"},
			}},
			{Name: "Exodus", Number: 2, Testament: canon.Old, Chapters: []document.Chapter{
				{"1 Now these are the names"},
			}},
			{Name: "Enoch", Number: 2, Testament: canon.Old, Chapters: []document.Chapter{
				{"1 The words of the blessing of Enoch"},
			}},
			{Name: "John", Number: 43, Testament: canon.New, Chapters: []document.Chapter{
				{"1 In the beginning was the Word"},
			}},
		},
	}
}

func fixClock(t *testing.T) {
	t.Helper()
	origNow, origID := now, newID
	t.Cleanup(func() { now, newID = origNow, origID })
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) }
	newID = func() string { return "00000000-0000-4000-8000-000000000001" }
}

func openResult(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExport(t *testing.T) {
	fixClock(t)
	path := filepath.Join(t.TempDir(), "out", "bible.db")

	res, err := Export(context.Background(), sampleOutput(), path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Books != 4 || res.Verses != 6 {
		t.Errorf("Result = %+v, want 4 books and 6 verses", res)
	}
	if res.ExportID != "00000000-0000-4000-8000-000000000001" {
		t.Errorf("ExportID = %q", res.ExportID)
	}
	if res.Bytes <= 0 {
		t.Errorf("Bytes = %d", res.Bytes)
	}

	db := openResult(t, path)

	meta := map[string]string{}
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		t.Fatal(err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			t.Fatal(err)
		}
		meta[k] = v
	}
	rows.Close()

	want := map[string]string{
		"name":        "King James Version",
		"export_id":   "00000000-0000-4000-8000-000000000001",
		"book_count":  "4",
		"verse_count": "6",
		"created_at":  "2026-01-02T02:04:05Z",
	}
	for k, v := range want {
		if meta[k] != v {
			t.Errorf("meta[%s] = %q, want %q", k, meta[k], v)
		}
	}

	var verses int
	if err := db.QueryRow(`SELECT COUNT(*) FROM verses`).Scan(&verses); err != nil {
		t.Fatal(err)
	}
	if verses != 6 {
		t.Errorf("verses rows = %d, want 6", verses)
	}

	var text string
	if err := db.QueryRow(`SELECT text FROM verses WHERE book_number = 1 AND chapter = 2 AND verse = 1`).Scan(&text); err != nil {
		t.Fatal(err)
	}
	if text != "1 Thus the heavens and the earth were finished" {
		t.Errorf("Genesis 2:1 = %q", text)
	}
}

func TestExport_Books(t *testing.T) {
	fixClock(t)
	path := filepath.Join(t.TempDir(), "bible.db")

	res, err := Export(context.Background(), sampleOutput(), path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(res.Renumbered) != 1 || res.Renumbered[0] != (Renumbering{Name: "Enoch", From: 2, To: 44}) {
		t.Errorf("Renumbered = %+v, want Enoch 2 -> 44", res.Renumbered)
	}

	db := openResult(t, path)
	tests := []struct {
		number    int
		name      string
		osis      string
		testament string
		chapters  int
	}{
		{1, "Genesis", "Gen", "Old", 2},
		{2, "Exodus", "Exod", "Old", 1},
		{43, "John", "John", "New", 1},
		{44, "Enoch", "", "Old", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var name, osis, testament string
			var chapters int
			err := db.QueryRow(`SELECT name, osis_id, testament, chapter_count FROM books WHERE book_number = ?`, tt.number).
				Scan(&name, &osis, &testament, &chapters)
			if err != nil {
				t.Fatalf("book %d: %v", tt.number, err)
			}
			if name != tt.name || osis != tt.osis || testament != tt.testament || chapters != tt.chapters {
				t.Errorf("book %d = (%s, %q, %s, %d), want (%s, %q, %s, %d)",
					tt.number, name, osis, testament, chapters, tt.name, tt.osis, tt.testament, tt.chapters)
			}
		})
	}
}

func TestExport_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bible.db")
	if err := os.WriteFile(path, []byte("not a database"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Export(context.Background(), sampleOutput(), path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	db := openResult(t, path)
	var books int
	if err := db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&books); err != nil {
		t.Fatal(err)
	}
	if books != 4 {
		t.Errorf("books rows = %d, want 4", books)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestExport_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	res, err := Export(context.Background(), &document.Output{Name: "Empty", Books: []document.Book{}}, path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Books != 0 || res.Verses != 0 || res.Renumbered != nil {
		t.Errorf("Result = %+v", res)
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	path := filepath.Join(dir, "bible.db")

	_, err := Export(ctx, sampleOutput(), path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Export() error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("cancelled export left a database behind")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestExport_InvalidPath(t *testing.T) {
	_, err := Export(context.Background(), sampleOutput(), "")
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Export(\"\") error = %v, want *ValidationError", err)
	}
}

func TestAssignNumbers(t *testing.T) {
	books := []document.Book{
		{Name: "A", Number: 1},
		{Name: "B", Number: 1},
		{Name: "C", Number: 3},
		{Name: "D", Number: 3},
		{Name: "E", Number: 2},
	}

	numbers, renumbered := assignNumbers(books)
	want := []int{1, 4, 3, 5, 2}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("numbers[%d] = %d, want %d", i, numbers[i], want[i])
		}
	}
	wantRenumbered := []Renumbering{{"B", 1, 4}, {"D", 3, 5}}
	if !slices.Equal(renumbered, wantRenumbered) {
		t.Errorf("renumbered = %+v, want %+v", renumbered, wantRenumbered)
	}
}

func TestExport_SameNameCollisions(t *testing.T) {
	in := &document.Input{Books: []document.InputBook{
		{Name: "Psalm", Chapters: []document.InputChapter{{Key: "1", Verses: []document.InputVerse{{Key: "1", Text: "a"}}}}},
		{Name: "Psalms", Chapters: []document.InputChapter{{Key: "2", Verses: []document.InputVerse{{Key: "1", Text: "b"}}}}},
		{Name: " psalms ", Chapters: []document.InputChapter{{Key: "3", Verses: []document.InputVerse{{Key: "1", Text: "c"}}}}},
	}}
	doc, _, err := flatten.Flatten(in, "KJV")
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "bible.db")
	res, err := Export(context.Background(), doc, path)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	want := []Renumbering{
		{Name: "Psalms", From: 19, To: 20},
		{Name: "Psalms", From: 19, To: 21},
	}
	if !slices.Equal(res.Renumbered, want) {
		t.Errorf("Renumbered = %+v, want %+v", res.Renumbered, want)
	}

	db := openResult(t, path)
	rows, err := db.Query(`SELECT book_number, osis_id FROM books ORDER BY book_number`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var n int
		var osis string
		if err := rows.Scan(&n, &osis); err != nil {
			t.Fatal(err)
		}
		got = append(got, fmt.Sprintf("%d:%s", n, osis))
	}
	if strings.Join(got, ",") != "19:Ps,20:Ps,21:Ps" {
		t.Errorf("books = %v", got)
	}
}
