// Package document defines the nested input and flat output shapes of a
// scripture conversion.
//
// The input is the book → chapter → verse JSON object produced by common
// Bible dumps. It is decoded into an ordered structure so that the order of
// books in the source file is kept; JSON objects carry no order of their
// own once they are decoded into Go maps.
//
// The output is the flat array structure consumed by the mobile importer:
//
//	{
//	  "name": "King James Version",
//	  "books": [
//	    {
//	      "name": "Genesis",
//	      "book_number": 1,
//	      "testament": "Old",
//	      "chapters": [["1 In the beginning...", "2 And the earth..."]]
//	    }
//	  ]
//	}
package document

import "github.com/FocuswithJustin/flatbible/core/canon"

// Input is a nested scripture document in source order.
type Input struct {
	Books []InputBook
}

// InputBook is one top-level entry of the input, keyed by its raw name.
type InputBook struct {
	Name     string
	Chapters []InputChapter
}

// InputChapter holds the verses of one chapter. Key is the chapter number
// exactly as written in the source.
type InputChapter struct {
	Key    string
	Verses []InputVerse
}

// InputVerse is a single verse. Key is the verse number as written.
type InputVerse struct {
	Key  string
	Text string
}

// ChapterCount returns the number of chapters across all books.
func (in *Input) ChapterCount() int {
	n := 0
	for _, b := range in.Books {
		n += len(b.Chapters)
	}
	return n
}

// VerseCount returns the number of verses across all books.
func (in *Input) VerseCount() int {
	n := 0
	for _, b := range in.Books {
		for _, c := range b.Chapters {
			n += len(c.Verses)
		}
	}
	return n
}

// Output is the flat array document written for the mobile database.
type Output struct {
	Name  string `json:"name"`
	Books []Book `json:"books"`
}

// Book is a flattened book. Chapter and verse numbers are positional; the
// source verse number survives only as the text prefix of each verse.
type Book struct {
	Name      string          `json:"name"`
	Number    int             `json:"book_number"`
	Testament canon.Testament `json:"testament"`
	Chapters  []Chapter       `json:"chapters"`
}

// Chapter is an ordered list of "<verse_number> <verse_text>" strings.
type Chapter []string

// ChapterCount returns the number of chapters across all books.
func (o *Output) ChapterCount() int {
	n := 0
	for _, b := range o.Books {
		n += len(b.Chapters)
	}
	return n
}

// VerseCount returns the number of verses across all books.
func (o *Output) VerseCount() int {
	n := 0
	for _, b := range o.Books {
		n += b.VerseCount()
	}
	return n
}

// VerseCount returns the number of verses in the book.
func (b *Book) VerseCount() int {
	n := 0
	for _, c := range b.Chapters {
		n += len(c)
	}
	return n
}
