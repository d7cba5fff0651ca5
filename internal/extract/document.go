package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

const (
	MediaPDF  = "application/pdf"
	MediaDOC  = "application/msword"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// DefaultMaxSize is the largest resume accepted by Validate.
	DefaultMaxSize int64 = 5 * 1024 * 1024
)

var (
	ErrNoDocument      = errors.New("no resume document provided")
	ErrUnsupportedType = errors.New("please upload a PDF, DOC, or DOCX file")
	ErrTooLarge        = errors.New("file size must be less than 5MB")
	ErrEmptyDocument   = errors.New("resume document is empty")
)

var extensionTypes = map[string]string{
	".pdf":  MediaPDF,
	".doc":  MediaDOC,
	".docx": MediaDOCX,
}

// Document is an uploaded resume. It is replaced, never mutated, when the
// applicant picks another file.
type Document struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`

	open func() (io.ReadCloser, error)
}

// NewDocument describes a document whose bytes are produced by open.
func NewDocument(name, mediaType string, size int64, open func() (io.ReadCloser, error)) *Document {
	name = filepath.Base(strings.TrimSpace(name))
	return &Document{
		Name:      name,
		MediaType: resolveMediaType(name, mediaType),
		Size:      size,
		open:      open,
	}
}

// FromBytes keeps the document in memory.
func FromBytes(name, mediaType string, data []byte) *Document {
	return NewDocument(name, mediaType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// FromPath describes a file on local disk. The media type comes from the
// extension.
func FromPath(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExtractionError{Document: filepath.Base(path), Cause: err}
	}
	if info.IsDir() {
		return nil, &ExtractionError{Document: filepath.Base(path), Cause: fmt.Errorf("%s is a directory", path)}
	}

	return NewDocument(path, "", info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// FromFileHeader wraps a multipart upload.
func FromFileHeader(fh *multipart.FileHeader) *Document {
	if fh == nil {
		return nil
	}
	return NewDocument(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, func() (io.ReadCloser, error) {
		return fh.Open()
	})
}

// Open returns a fresh reader over the document bytes.
func (d *Document) Open() (io.ReadCloser, error) {
	if d == nil || d.open == nil {
		return nil, ErrNoDocument
	}
	return d.open()
}

// Bytes reads the whole document. Read failures come back as *ExtractionError.
func (d *Document) Bytes() ([]byte, error) {
	if d == nil {
		return nil, &ExtractionError{Cause: ErrNoDocument}
	}

	rc, err := d.Open()
	if err != nil {
		return nil, &ExtractionError{Document: d.Name, Cause: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &ExtractionError{Document: d.Name, Cause: err}
	}
	return data, nil
}

// Materialize copies the document into memory so it outlives the request that
// carried it.
func (d *Document) Materialize() (*Document, error) {
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	return FromBytes(d.Name, d.MediaType, data), nil
}

// BaseName is the file name with its last extension stripped.
func (d *Document) BaseName() string {
	if d == nil {
		return ""
	}
	ext := filepath.Ext(d.Name)
	if ext == d.Name {
		return d.Name
	}
	return strings.TrimSuffix(d.Name, ext)
}

// IsWord reports whether the document was declared as a Word file.
func (d *Document) IsWord() bool {
	return d != nil && (d.MediaType == MediaDOC || d.MediaType == MediaDOCX)
}

// Validate applies the upload rules: PDF or Word only, at most maxSize bytes.
// A non-positive maxSize means DefaultMaxSize.
func Validate(d *Document, maxSize int64) error {
	if d == nil {
		return ErrNoDocument
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch d.MediaType {
	case MediaPDF, MediaDOC, MediaDOCX:
	default:
		return ErrUnsupportedType
	}

	if d.Size > maxSize {
		return ErrTooLarge
	}
	if d.Size == 0 {
		return ErrEmptyDocument
	}
	return nil
}

func resolveMediaType(name, declared string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			declared = parsed
		}
		if declared != "application/octet-stream" {
			return strings.ToLower(declared)
		}
	}

	if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return byExt
	}
	return declared
}
