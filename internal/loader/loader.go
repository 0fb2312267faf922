// Package loader reads nested scripture JSON from disk.
//
// Inputs may be plain JSON or xz-compressed JSON (detected from content).
// A leading byte order mark is removed, and UTF-16 input with a BOM is
// transcoded to UTF-8. Missing files are reported as *errors.NotFoundError
// and undecodable content as *errors.ParseError, so callers can tell the
// two apart.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/internal/logging"
	"github.com/FocuswithJustin/flatbible/internal/validation"
)

// Load reads and decodes the input document at path.
func Load(path string) (*document.Input, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, &errors.ValidationError{Field: "input", Value: path, Message: err.Error(), Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errors.NotFoundError{Resource: "input file", ID: path, Err: err}
		}
		return nil, errors.NewIO("stat", path, err)
	}
	if info.IsDir() {
		return nil, &errors.ValidationError{Field: "input", Value: path, Message: "path is a directory"}
	}
	if err := validation.ValidateSize(info.Size()); err != nil {
		return nil, &errors.ValidationError{Field: "input", Value: path, Message: err.Error(), Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	logging.Debug("loading input", "path", path, "size_bytes", info.Size())
	return Decode(f, path)
}

// Decode reads a document from r. source names the input in errors.
func Decode(r io.Reader, source string) (*document.Input, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.NewIO("read", source, err)
	}

	fileType, err := validation.SniffFileType(bytes.NewReader(head), source)
	if err != nil {
		return nil, &errors.ValidationError{Field: "input", Value: source, Message: err.Error(), Err: err}
	}

	var body io.Reader = br
	if fileType == validation.FileTypeXZ {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, withSource(&errors.ParseError{Format: "xz", Message: err.Error(), Err: err}, source)
		}
		body = xr
	}
	body = transform.NewReader(body, unicode.BOMOverride(transform.Nop))

	data, err := io.ReadAll(io.LimitReader(body, validation.MaxFileSize+1))
	if err != nil {
		if fileType == validation.FileTypeXZ {
			return nil, withSource(&errors.ParseError{Format: "xz", Message: err.Error(), Err: err}, source)
		}
		return nil, errors.NewIO("read", source, err)
	}
	if err := validation.ValidateSize(int64(len(data))); err != nil {
		return nil, &errors.ValidationError{Field: "input", Value: source, Message: "decompressed " + err.Error(), Err: err}
	}
	if !utf8.Valid(data) {
		return nil, withSource(errors.NewParse("JSON", "", invalidUTF8(data)), source)
	}

	in, err := document.Decode(data)
	if err != nil {
		return nil, withSource(err, source)
	}
	return in, nil
}

func withSource(err error, source string) error {
	var perr *errors.ParseError
	if errors.As(err, &perr) && perr.Path == "" {
		perr.Path = source
	}
	return err
}

func invalidUTF8(data []byte) string {
	line := 1
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return fmt.Sprintf("invalid UTF-8 at byte %d (line %d)", i, line)
		}
		if r == '\n' {
			line++
		}
		i += size
	}
	return "invalid UTF-8"
}
