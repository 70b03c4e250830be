// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document holds the immutable source document of an organize session.
package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultFilename is used when a document is opened without a name.
const DefaultFilename = "document.pdf"

// ErrEmpty is returned when Open receives no bytes.
var ErrEmpty = errors.New("document is empty")

// LoadError reports that document bytes could not be read or parsed.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Document is an immutable byte buffer plus its derived page count.
// The buffer is copied on Open and never exposed for mutation.
type Document struct {
	name      string
	data      []byte
	pageCount int
}

// Open parses data as a PDF and returns a Document. Corrupt, empty, or
// unparsable input yields a *LoadError.
func Open(name string, data []byte) (*Document, error) {
	if name == "" {
		name = DefaultFilename
	}
	if len(data) == 0 {
		return nil, &LoadError{Filename: name, Err: ErrEmpty}
	}

	n, err := countPages(data)
	if err != nil {
		return nil, &LoadError{Filename: name, Err: err}
	}
	if n <= 0 {
		return nil, &LoadError{Filename: name, Err: fmt.Errorf("document has no pages")}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return &Document{name: name, data: buf, pageCount: n}, nil
}

// New builds a Document from bytes whose page count is already known. It is
// intended for callers that parse documents elsewhere.
func New(name string, data []byte, pageCount int) (*Document, error) {
	if name == "" {
		name = DefaultFilename
	}
	if len(data) == 0 {
		return nil, &LoadError{Filename: name, Err: ErrEmpty}
	}
	if pageCount <= 0 {
		return nil, &LoadError{Filename: name, Err: fmt.Errorf("invalid page count %d", pageCount)}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Document{name: name, data: buf, pageCount: pageCount}, nil
}

// Name returns the document filename.
func (d *Document) Name() string { return d.name }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pageCount }

// Len returns the document size in bytes.
func (d *Document) Len() int { return len(d.data) }

// Bytes returns a copy of the document bytes.
func (d *Document) Bytes() []byte {
	buf := make([]byte, len(d.data))
	copy(buf, d.data)
	return buf
}

// Reader returns a reader over the document bytes.
func (d *Document) Reader() *bytes.Reader {
	return bytes.NewReader(d.data)
}

// countPages reads and validates data with pdfcpu and returns its page count.
func countPages(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("reading PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	return ctx.PageCount, nil
}
