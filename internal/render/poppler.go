// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"

	"github.com/pdiddy/pdf-organizer/internal/container"
)

// DefaultPopplerImage is the container image providing pdftoppm.
const DefaultPopplerImage = "minidocks/poppler:latest"

// baseDPI is the resolution that corresponds to scale 1.0.
const baseDPI = 72.0

// PopplerRasterizer renders pages by piping the document through pdftoppm
// inside a container. The runtime is injected at construction time.
type PopplerRasterizer struct {
	runtime container.Runtime
	image   string
}

// NewPopplerRasterizer returns a rasterizer that runs image on rt. It
// verifies that the image exists locally before returning.
func NewPopplerRasterizer(rt container.Runtime, image string) (*PopplerRasterizer, error) {
	if image == "" {
		image = DefaultPopplerImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("poppler image not available in %s: %w", rt.Name(), err)
	}
	return &PopplerRasterizer{runtime: rt, image: image}, nil
}

// Rasterize renders the zero-based pageIndex of data at scale and decodes
// the PNG that pdftoppm writes to stdout.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, data []byte, pageIndex int, scale float64) (image.Image, error) {
	page := strconv.Itoa(pageIndex + 1)
	dpi := strconv.FormatFloat(math.Round(baseDPI*scale*100)/100, 'f', -1, 64)
	args := []string{"pdftoppm", "-f", page, "-l", page, "-r", dpi, "-png", "-singlefile", "-"}

	var out bytes.Buffer
	if err := p.runtime.Run(ctx, p.image, args, bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("rasterizing page %d: %w", pageIndex, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("pdftoppm produced empty output for page %d", pageIndex)
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", pageIndex, err)
	}
	return img, nil
}
