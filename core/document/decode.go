package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	apperrors "github.com/FocuswithJustin/flatbible/core/errors"
)

// Decode parses a book → chapter → verse JSON object.
//
// The top level, every book value and every chapter value must be objects
// and every verse value a string. Any other shape, and any JSON syntax
// error, is reported as an *errors.ParseError with the line, column and
// JSON path of the offending token.
//
// A key repeated within one object keeps the position of its first
// occurrence and the value of its last.
func Decode(data []byte) (*Input, error) {
	d := &decoder{data: data, dec: json.NewDecoder(bytes.NewReader(data))}
	return d.document()
}

type decoder struct {
	data []byte
	dec  *json.Decoder
}

func (d *decoder) document() (*Input, error) {
	if err := d.openObject("$", "a JSON object of books"); err != nil {
		return nil, err
	}

	in := &Input{Books: []InputBook{}}
	index := make(map[string]int)
	for d.dec.More() {
		name, err := d.key("$")
		if err != nil {
			return nil, err
		}
		chapters, err := d.chapters(path("$", name))
		if err != nil {
			return nil, err
		}
		if i, ok := index[name]; ok {
			in.Books[i].Chapters = chapters
			continue
		}
		index[name] = len(in.Books)
		in.Books = append(in.Books, InputBook{Name: name, Chapters: chapters})
	}
	if err := d.closeObject("$"); err != nil {
		return nil, err
	}

	start := d.dec.InputOffset()
	if tok, err := d.dec.Token(); err != io.EOF {
		if err != nil {
			return nil, d.syntaxError(err, "$")
		}
		return nil, d.shapeError(start, "$", "unexpected "+describe(tok)+" after document")
	}
	return in, nil
}

func (d *decoder) chapters(loc string) ([]InputChapter, error) {
	if err := d.openObject(loc, "an object of chapters"); err != nil {
		return nil, err
	}

	chapters := []InputChapter{}
	index := make(map[string]int)
	for d.dec.More() {
		key, err := d.key(loc)
		if err != nil {
			return nil, err
		}
		verses, err := d.verses(path(loc, key))
		if err != nil {
			return nil, err
		}
		if i, ok := index[key]; ok {
			chapters[i].Verses = verses
			continue
		}
		index[key] = len(chapters)
		chapters = append(chapters, InputChapter{Key: key, Verses: verses})
	}
	return chapters, d.closeObject(loc)
}

func (d *decoder) verses(loc string) ([]InputVerse, error) {
	if err := d.openObject(loc, "an object of verses"); err != nil {
		return nil, err
	}

	verses := []InputVerse{}
	index := make(map[string]int)
	for d.dec.More() {
		key, err := d.key(loc)
		if err != nil {
			return nil, err
		}
		vloc := path(loc, key)
		start := d.dec.InputOffset()
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.syntaxError(err, vloc)
		}
		text, ok := tok.(string)
		if !ok {
			return nil, d.shapeError(start, vloc, "expected verse text string, found "+describe(tok))
		}
		if i, ok := index[key]; ok {
			verses[i].Text = text
			continue
		}
		index[key] = len(verses)
		verses = append(verses, InputVerse{Key: key, Text: text})
	}
	return verses, d.closeObject(loc)
}

func (d *decoder) openObject(loc, want string) error {
	start := d.dec.InputOffset()
	tok, err := d.dec.Token()
	if err != nil {
		return d.syntaxError(err, loc)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return d.shapeError(start, loc, "expected "+want+", found "+describe(tok))
	}
	return nil
}

func (d *decoder) closeObject(loc string) error {
	if _, err := d.dec.Token(); err != nil {
		return d.syntaxError(err, loc)
	}
	return nil
}

func (d *decoder) key(loc string) (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", d.syntaxError(err, loc)
	}
	key, ok := tok.(string)
	if !ok {
		return "", d.shapeError(d.dec.InputOffset(), loc, "expected object key, found "+describe(tok))
	}
	return key, nil
}

func (d *decoder) syntaxError(err error, loc string) error {
	var offset int64
	var se *json.SyntaxError
	msg := err.Error()
	switch {
	case errors.As(err, &se):
		offset = se.Offset - 1
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		offset = int64(len(d.data))
		msg = "unexpected end of JSON input"
	default:
		offset = d.dec.InputOffset()
	}
	perr := d.parseError(offset, loc, msg)
	perr.Err = err
	return perr
}

func (d *decoder) shapeError(after int64, loc, msg string) error {
	return d.parseError(d.tokenStart(after), loc, msg)
}

func (d *decoder) parseError(offset int64, loc, msg string) *apperrors.ParseError {
	line, col := d.position(offset)
	return &apperrors.ParseError{
		Format:   "JSON",
		Line:     line,
		Column:   col,
		Location: loc,
		Message:  msg,
	}
}

// tokenStart skips the whitespace and separators that precede the token
// following offset.
func (d *decoder) tokenStart(offset int64) int64 {
	for offset < int64(len(d.data)) {
		switch d.data[offset] {
		case ' ', '\t', '\r', '\n', ':', ',':
			offset++
		default:
			return offset
		}
	}
	return offset
}

// position converts a byte offset into a 1-based line and column.
func (d *decoder) position(offset int64) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(d.data)) {
		offset = int64(len(d.data))
	}
	prefix := d.data[:offset]
	line := bytes.Count(prefix, []byte{'\n'}) + 1
	col := len(prefix) - (bytes.LastIndexByte(prefix, '\n') + 1) + 1
	return line, col
}

func path(parent, key string) string {
	return parent + "[" + strconv.Quote(key) + "]"
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return "object"
		case '[':
			return "array"
		default:
			return fmt.Sprintf("%q", v.String())
		}
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
