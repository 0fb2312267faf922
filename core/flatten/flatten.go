// Package flatten converts a nested book → chapter → verse document into
// the flat array structure used by the mobile database.
//
// Flatten is a pure function of its arguments. It performs no I/O; progress
// narration is delivered to an optional Reporter.
package flatten

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/FocuswithJustin/flatbible/core/canon"
	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/errors"
)

// Stats summarizes a conversion.
type Stats struct {
	Books        int      `json:"books"`
	Chapters     int      `json:"chapters"`
	Verses       int      `json:"verses"`
	OldTestament int      `json:"old_testament"`
	NewTestament int      `json:"new_testament"`
	Normalized   int      `json:"normalized"`
	Unrecognized []string `json:"unrecognized,omitempty"`
	// Duplicates lists canonical books given more than once, which all
	// keep the canonical book number.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Reporter receives progress events during Flatten.
type Reporter interface {
	Start(name string)
	Normalized(from, to string)
	Unrecognized(name string, number int)
	Duplicate(name string, number int)
	BookConverted(source string, book *document.Book)
	Finish(stats *Stats)
}

type nopReporter struct{}

func (nopReporter) Start(string) {}
func (nopReporter) Normalized(string, string) {}
func (nopReporter) Unrecognized(string, int) {}
func (nopReporter) Duplicate(string, int) {}
func (nopReporter) BookConverted(string, *document.Book) {}
func (nopReporter) Finish(*Stats) {}

type options struct {
	reporter Reporter
}

// Option configures Flatten.
type Option func(*options)

// WithReporter sends progress events to r.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// InvalidKeyError reports a chapter or verse key that is not an integer.
type InvalidKeyError struct {
	Book    string // book name as given in the input
	Chapter string // chapter key; empty when the chapter key itself is bad
	Key     string
	Err     error
}

func (e *InvalidKeyError) Error() string {
	if e.Chapter == "" {
		return fmt.Sprintf("invalid chapter key %q in book %q: not an integer", e.Key, e.Book)
	}
	return fmt.Sprintf("invalid verse key %q in book %q chapter %q: not an integer", e.Key, e.Book, e.Chapter)
}

func (e *InvalidKeyError) Unwrap() []error {
	if e.Err == nil {
		return []error{errors.ErrInvalidInput}
	}
	return []error{errors.ErrInvalidInput, e.Err}
}

// Validate checks that every chapter and verse key parses as a base-10
// integer. It returns the first offending key as an *InvalidKeyError.
func Validate(in *document.Input) error {
	if in == nil {
		return nil
	}
	for _, b := range in.Books {
		for _, c := range b.Chapters {
			if _, err := strconv.Atoi(c.Key); err != nil {
				return &InvalidKeyError{Book: b.Name, Key: c.Key, Err: err}
			}
			for _, v := range c.Verses {
				if _, err := strconv.Atoi(v.Key); err != nil {
					return &InvalidKeyError{Book: b.Name, Chapter: c.Key, Key: v.Key, Err: err}
				}
			}
		}
	}
	return nil
}

// entry pairs a converted book with whether its number is canonical.
type entry struct {
	book      document.Book
	canonical bool
}

// Flatten converts in into the flat output document named name.
//
// Books whose normalized name is not in the canonical registry are kept,
// numbered by their processing position (books converted so far plus one)
// and assigned to the Old Testament. The result is ordered by book number;
// at equal numbers canonical books come first, otherwise processing order
// is kept. A canonical book given more than once under several names keeps
// its number for every occurrence and is reported as a duplicate.
//
// A nil or empty input yields an output with an empty book list. Keys that
// are not integers fail the call before any book is converted.
func Flatten(in *document.Input, name string, opts ...Option) (*document.Output, *Stats, error) {
	o := &options{reporter: nopReporter{}}
	for _, opt := range opts {
		opt(o)
	}

	if name == "" {
		return nil, nil, errors.NewValidation("name", "translation name must not be empty")
	}
	if err := Validate(in); err != nil {
		return nil, nil, err
	}
	if in == nil {
		in = &document.Input{}
	}

	o.reporter.Start(name)

	stats := &Stats{}
	entries := make([]entry, 0, len(in.Books))
	seen := make(map[int]bool, len(in.Books))
	for _, src := range in.Books {
		bookName, aliased := canon.Normalize(src.Name)
		if aliased && bookName != src.Name {
			stats.Normalized++
			o.reporter.Normalized(src.Name, bookName)
		}

		e := entry{book: document.Book{Name: bookName}}
		if info, ok := canon.Lookup(bookName); ok {
			e.book.Number = info.Number
			e.book.Testament = info.Testament
			e.canonical = true
			if seen[info.Number] {
				stats.Duplicates = append(stats.Duplicates, bookName)
				o.reporter.Duplicate(bookName, info.Number)
			}
			seen[info.Number] = true
		} else {
			e.book.Number = len(entries) + 1
			e.book.Testament = canon.Old
			stats.Unrecognized = append(stats.Unrecognized, bookName)
			o.reporter.Unrecognized(bookName, e.book.Number)
		}

		e.book.Chapters = chapters(src.Chapters)
		entries = append(entries, e)

		stats.Books++
		stats.Chapters += len(e.book.Chapters)
		stats.Verses += e.book.VerseCount()
		if e.book.Testament == canon.New {
			stats.NewTestament++
		} else {
			stats.OldTestament++
		}
		o.reporter.BookConverted(src.Name, &e.book)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.book.Number != b.book.Number {
			return a.book.Number < b.book.Number
		}
		return a.canonical && !b.canonical
	})

	out := &document.Output{Name: name, Books: make([]document.Book, 0, len(entries))}
	for _, e := range entries {
		out.Books = append(out.Books, e.book)
	}

	o.reporter.Finish(stats)
	return out, stats, nil
}

// chapters orders chapters and verses by integer key and renders each
// verse as "<key> <text>". Keys are already validated.
func chapters(src []document.InputChapter) []document.Chapter {
	ordered := make([]document.InputChapter, len(src))
	copy(ordered, src)
	sort.SliceStable(ordered, func(i, j int) bool {
		return atoi(ordered[i].Key) < atoi(ordered[j].Key)
	})

	out := make([]document.Chapter, 0, len(ordered))
	for _, c := range ordered {
		verses := make([]document.InputVerse, len(c.Verses))
		copy(verses, c.Verses)
		sort.SliceStable(verses, func(i, j int) bool {
			return atoi(verses[i].Key) < atoi(verses[j].Key)
		})

		ch := make(document.Chapter, 0, len(verses))
		for _, v := range verses {
			ch = append(ch, v.Key+" "+v.Text)
		}
		out = append(out, ch)
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
