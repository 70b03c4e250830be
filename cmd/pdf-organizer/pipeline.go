// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-organizer/internal/container"
	"github.com/pdiddy/pdf-organizer/internal/render"
)

// placeholderRasterizer stands in for pdftoppm when previews are disabled.
// Every page becomes a blank thumbnail of the scaled US Letter size.
var placeholderRasterizer = render.RasterizerFunc(
	func(_ context.Context, _ []byte, _ int, scale float64) (image.Image, error) {
		w, h := int(612*scale), int(792*scale)
		img := image.NewGray(image.Rect(0, 0, max(w, 1), max(h, 1)))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
		return img, nil
	})

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("scale", 0, "preview scale relative to 72 DPI (default from config, 0.4)")
	cmd.Flags().String("image", "", "container image providing pdftoppm (default from config)")
}

// newRenderer builds the thumbnail renderer. With noPreview it skips the
// container runtime entirely.
func newRenderer(cmd *cobra.Command, noPreview bool) (*render.Renderer, error) {
	scale := cfg.Render.Scale
	if v, _ := cmd.Flags().GetFloat64("scale"); v > 0 {
		scale = v
	}
	if noPreview {
		return render.NewRenderer(placeholderRasterizer, scale, logger), nil
	}

	img := cfg.Render.Image
	if v, _ := cmd.Flags().GetString("image"); v != "" {
		img = v
	}

	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, fmt.Errorf("rendering previews: %w", err)
	}
	rast, err := render.NewPopplerRasterizer(rt, img)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("runtime", rt.Name()).Str("image", img).Msg("using container rasterizer")
	return render.NewRenderer(rast, scale, logger), nil
}
