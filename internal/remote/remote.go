// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package remote talks to the document processor that applies organize
// operations. Each call is a single request/response exchange; there is no
// retry and no partial-result handling.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/pdiddy/pdf-organizer/internal/httputil"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

const (
	// DefaultEndpoint is the organize endpoint of the hosted backend.
	DefaultEndpoint = "https://pdf-backend-docker.onrender.com/api/organize"

	// fieldDocument and fieldOperations are the multipart form field names.
	fieldDocument   = "pdf"
	fieldOperations = "operations"

	// maxResultBytes bounds the accepted result document size.
	maxResultBytes = 512 << 20
)

// ErrEmptyResult is returned when the processor answers 2xx with no body.
var ErrEmptyResult = errors.New("processor returned an empty document")

// Request carries everything the processor needs: the original document
// bytes and the operations JSON array in log order.
type Request struct {
	Filename   string
	Document   []byte
	Operations []byte
}

// Processor applies operations to a document and returns the new document.
type Processor interface {
	Process(ctx context.Context, req Request) ([]byte, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, req Request) ([]byte, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Client is a Processor backed by an HTTP multipart endpoint.
type Client struct {
	http *http.Client
	cfg  types.ProcessorConfig
}

// NewClient returns a Client posting to cfg.Endpoint. A nil httpClient uses
// a client with cfg.Timeout.
func NewClient(httpClient *http.Client, cfg types.ProcessorConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: httpClient, cfg: cfg}
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Process posts the document and operations as multipart/form-data and
// returns the response body as the result document.
func (c *Client) Process(ctx context.Context, r Request) ([]byte, error) {
	body, contentType, err := encodeForm(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/pdf")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckResponse(resp); err != nil {
		return nil, err
	}

	data, err := httputil.ReadBody(resp, maxResultBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyResult
	}
	return data, nil
}

// encodeForm builds the multipart body: a "pdf" file part and an
// "operations" text field.
func encodeForm(r Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldDocument, r.Filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating document part: %w", err)
	}
	if _, err := part.Write(r.Document); err != nil {
		return nil, "", fmt.Errorf("writing document part: %w", err)
	}

	ops := r.Operations
	if len(ops) == 0 {
		ops = []byte("[]")
	}
	if err := mw.WriteField(fieldOperations, string(ops)); err != nil {
		return nil, "", fmt.Errorf("writing operations field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
