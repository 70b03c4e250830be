// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render rasterizes document pages into preview thumbnails.
//
// Pages are rendered strictly in increasing index order, one at a time: the
// renderer waits for each page's raster before requesting the next, so at
// most one raster buffer is in flight regardless of document size.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"iter"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/pdiddy/pdf-organizer/internal/document"
	"github.com/pdiddy/pdf-organizer/internal/logging"
)

// DefaultScale is the preview scale relative to 72 DPI.
const DefaultScale = 0.4

// Rasterizer renders a single page to an image. pageIndex is zero-based.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, pageIndex int, scale float64) (image.Image, error)
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, data []byte, pageIndex int, scale float64) (image.Image, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, data []byte, pageIndex int, scale float64) (image.Image, error) {
	return f(ctx, data, pageIndex, scale)
}

// Thumbnail is the rendered preview of one page of the original document.
type Thumbnail struct {
	Index int
	Image image.Image
}

// PNG encodes the thumbnail image.
func (t Thumbnail) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, t.Image); err != nil {
		return nil, fmt.Errorf("encoding page %d: %w", t.Index, err)
	}
	return buf.Bytes(), nil
}

// Renderer produces one thumbnail per page at a fixed scale.
type Renderer struct {
	rast  Rasterizer
	scale float64
	log   *bolt.Logger
}

// NewRenderer returns a Renderer that uses r at the given scale. A
// non-positive scale selects DefaultScale.
func NewRenderer(r Rasterizer, scale float64, log *bolt.Logger) *Renderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Renderer{rast: r, scale: scale, log: logging.OrDiscard(log)}
}

// Scale returns the preview scale.
func (r *Renderer) Scale() float64 { return r.scale }

// Pages yields thumbnails in page order. Iteration stops after the first
// error, which is a *document.LoadError, or when the caller stops ranging.
func (r *Renderer) Pages(ctx context.Context, doc *document.Document) iter.Seq2[Thumbnail, error] {
	return func(yield func(Thumbnail, error) bool) {
		if doc == nil {
			yield(Thumbnail{}, &document.LoadError{Filename: document.DefaultFilename, Err: errors.New("no document")})
			return
		}
		data := doc.Bytes()
		for i := 0; i < doc.PageCount(); i++ {
			if err := ctx.Err(); err != nil {
				yield(Thumbnail{}, &document.LoadError{Filename: doc.Name(), Err: err})
				return
			}

			start := time.Now()
			img, err := r.rast.Rasterize(ctx, data, i, r.scale)
			if err == nil && img == nil {
				err = errors.New("rasterizer returned no image")
			}
			if err != nil {
				yield(Thumbnail{}, &document.LoadError{
					Filename: doc.Name(),
					Err:      fmt.Errorf("rendering page %d: %w", i, err),
				})
				return
			}

			logging.With(r.log.Debug(), logging.Page(i), logging.Duration(time.Since(start))).Msg("page rendered")
			if !yield(Thumbnail{Index: i, Image: img}, nil) {
				return
			}
		}
	}
}

// Render returns all thumbnails of doc in page order. On failure it returns
// no thumbnails and a *document.LoadError.
func (r *Renderer) Render(ctx context.Context, doc *document.Document) ([]Thumbnail, error) {
	var thumbs []Thumbnail
	for t, err := range r.Pages(ctx, doc) {
		if err != nil {
			return nil, err
		}
		thumbs = append(thumbs, t)
	}
	return thumbs, nil
}
