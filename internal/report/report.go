// Package report renders conversion progress for people and for logs.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/flatbible/core/canon"
	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/flatten"
	"github.com/FocuswithJustin/flatbible/internal/logging"
)

// SampleLength is the number of characters of the first verse shown by
// Sample.
const SampleLength = 70

var rule = strings.Repeat("=", 60)

// Console writes human-readable progress lines to w.
type Console struct {
	w io.Writer
}

// NewConsole creates a console reporter.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

// Banner prints the program header.
func (c *Console) Banner(title string) {
	c.printf("%s\n   %s\n%s\n", rule, title, rule)
}

// Loading prints the input file being read.
func (c *Console) Loading(path string) {
	c.printf("Loading: %s\n", path)
}

// Loaded prints the size of the decoded input.
func (c *Console) Loaded(in *document.Input) {
	c.printf("Loaded %d books, %s verses\n\n", len(in.Books), humanize.Comma(int64(in.VerseCount())))
}

// Start implements flatten.Reporter.
func (c *Console) Start(name string) {
	c.printf("Converting: %s\n%s\n", name, rule)
}

// Normalized implements flatten.Reporter.
func (c *Console) Normalized(from, to string) {
	c.printf("  Normalized: %q -> %q\n", from, to)
}

// Unrecognized implements flatten.Reporter.
func (c *Console) Unrecognized(name string, number int) {
	c.printf("  [WARN] %q not in standard list, assigned #%d\n", name, number)
}

// Duplicate implements flatten.Reporter.
func (c *Console) Duplicate(name string, number int) {
	c.printf("  [WARN] %q appears more than once, all copies keep #%d\n", name, number)
}

// BookConverted implements flatten.Reporter.
func (c *Console) BookConverted(source string, book *document.Book) {
	c.printf("  %-20s #%-3d %3d chapters  %s Testament\n", source, book.Number, len(book.Chapters), book.Testament)
}

// Finish implements flatten.Reporter.
func (c *Console) Finish(stats *flatten.Stats) {
	c.printf("%s\n", rule)
	c.printf("Conversion complete\n")
	c.printf("  Books:          %d\n", stats.Books)
	c.printf("  Old Testament:  %d\n", stats.OldTestament)
	c.printf("  New Testament:  %d\n", stats.NewTestament)
	c.printf("  Chapters:       %s\n", humanize.Comma(int64(stats.Chapters)))
	c.printf("  Verses:         %s\n", humanize.Comma(int64(stats.Verses)))
	if stats.Normalized > 0 {
		c.printf("  Normalized:     %d\n", stats.Normalized)
	}
	if n := len(stats.Unrecognized); n > 0 {
		c.printf("  Unrecognized:   %d (%s)\n", n, strings.Join(stats.Unrecognized, ", "))
	}
	if n := len(stats.Duplicates); n > 0 {
		c.printf("  Duplicates:     %d (%s)\n", n, strings.Join(stats.Duplicates, ", "))
	}
	c.printf("\n")
}

// Saved prints a written artifact.
func (c *Console) Saved(path string, size int64, digest string) {
	c.printf("Saved: %s\n", path)
	c.printf("  Size: %s (%s bytes)\n", humanize.IBytes(uint64(size)), humanize.Comma(size))
	if digest != "" {
		c.printf("  BLAKE3: %s\n", digest)
	}
}

// Published prints an uploaded artifact.
func (c *Console) Published(url string, size int64) {
	c.printf("Published: %s (%s)\n", url, humanize.IBytes(uint64(size)))
}

// Sample prints the first verse of the first book.
func (c *Console) Sample(doc *document.Output) {
	if len(doc.Books) == 0 {
		return
	}
	first := doc.Books[0]
	c.printf("Sample output:\n")
	c.printf("  Book: %s\n", first.Name)
	c.printf("  Testament: %s\n", first.Testament)
	if len(first.Chapters) > 0 && len(first.Chapters[0]) > 0 {
		c.printf("  First verse: %s...\n", Truncate(first.Chapters[0][0], SampleLength))
	}
}

// Books prints the canonical registry.
func (c *Console) Books(books []canon.Book) {
	for _, b := range books {
		c.printf("%2d  %-6s %-16s %s\n", b.Number, b.OSIS, b.Name, b.Testament)
	}
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Log reports conversion events through the structured logger.
type Log struct{}

// Start implements flatten.Reporter.
func (Log) Start(name string) {
	logging.Debug("flatten_started", "translation", name)
}

// Normalized implements flatten.Reporter.
func (Log) Normalized(from, to string) {
	logging.BookNormalized(from, to)
}

// Unrecognized implements flatten.Reporter.
func (Log) Unrecognized(name string, number int) {
	logging.BookUnrecognized(name, number)
}

// Duplicate implements flatten.Reporter.
func (Log) Duplicate(name string, number int) {
	logging.BookDuplicated(name, number)
}

// BookConverted implements flatten.Reporter.
func (Log) BookConverted(source string, book *document.Book) {
	logging.Debug("book_converted",
		"source", source,
		"book", book.Name,
		"book_number", book.Number,
		"chapters", len(book.Chapters),
		"verses", book.VerseCount(),
	)
}

// Finish implements flatten.Reporter.
func (Log) Finish(stats *flatten.Stats) {
	logging.Debug("flatten_finished",
		"books", stats.Books,
		"old_testament", stats.OldTestament,
		"new_testament", stats.NewTestament,
		"normalized", stats.Normalized,
		"duplicates", len(stats.Duplicates),
	)
}

// Multi fans events out to several reporters in order.
type Multi []flatten.Reporter

// Start implements flatten.Reporter.
func (m Multi) Start(name string) {
	for _, r := range m {
		r.Start(name)
	}
}

// Normalized implements flatten.Reporter.
func (m Multi) Normalized(from, to string) {
	for _, r := range m {
		r.Normalized(from, to)
	}
}

// Unrecognized implements flatten.Reporter.
func (m Multi) Unrecognized(name string, number int) {
	for _, r := range m {
		r.Unrecognized(name, number)
	}
}

// Duplicate implements flatten.Reporter.
func (m Multi) Duplicate(name string, number int) {
	for _, r := range m {
		r.Duplicate(name, number)
	}
}

// BookConverted implements flatten.Reporter.
func (m Multi) BookConverted(source string, book *document.Book) {
	for _, r := range m {
		r.BookConverted(source, book)
	}
}

// Finish implements flatten.Reporter.
func (m Multi) Finish(stats *flatten.Stats) {
	for _, r := range m {
		r.Finish(stats)
	}
}
