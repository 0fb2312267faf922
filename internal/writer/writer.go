// Package writer serializes a flattened document to disk.
package writer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/flatbible/core/document"
	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/internal/validation"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// Options controls serialization.
type Options struct {
	// Minify omits all whitespace between tokens. The default is a
	// two-space indented layout.
	Minify bool
}

// Result describes a written file.
type Result struct {
	Path   string
	Bytes  int64
	BLAKE3 string
	// Compressed is true when the file was xz-compressed.
	Compressed bool
}

// Marshal encodes doc as JSON without a trailing newline. HTML-significant
// and non-ASCII characters, including U+2028 and U+2029, are written
// literally.
func Marshal(doc *document.Output, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !opts.Minify {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return unescapeSeparators(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// unescapeSeparators replaces the \u2028 and \u2029 escapes that
// encoding/json always emits with the literal characters. Other escape
// sequences are copied unchanged.
func unescapeSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" && (data[i+5] == '8' || data[i+5] == '9') {
			out = utf8.AppendRune(out, rune(0x2020+int(data[i+5]-'0')))
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// Write serializes doc to path. Parent directories are created and the
// file is replaced atomically. A path ending in ".xz" is compressed.
func Write(doc *document.Output, path string, opts Options) (*Result, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, &errors.ValidationError{Field: "output", Value: path, Message: err.Error(), Err: err}
	}

	data, err := Marshal(doc, opts)
	if err != nil {
		return nil, errors.NewIO("encode", path, err)
	}

	compressed := strings.EqualFold(filepath.Ext(path), ".xz")
	if compressed {
		if data, err = compress(data); err != nil {
			return nil, errors.NewIO("compress", path, err)
		}
	}

	if err := WriteFile(path, data); err != nil {
		return nil, err
	}

	sum := blake3.Sum256(data)
	return &Result{
		Path:       path,
		Bytes:      int64(len(data)),
		BLAKE3:     hex.EncodeToString(sum[:]),
		Compressed: compressed,
	}, nil
}

// WriteFile writes data to path through a temporary file in the same
// directory followed by a rename.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("create", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.NewIO("write", path, err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("write", path, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("chmod", path, err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}

// Digest returns the BLAKE3-256 hex digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewIO("open", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
