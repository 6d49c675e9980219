package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"math"

	"github.com/buffos/go-weave/weave"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// rasterizeNative paints the instructions with gg and encodes the result.
func rasterizeNative(ins []weave.Instruction, layout weave.Layout, format outputFormat, opts imageOptions, w io.Writer) error {
	img, err := paintInstructions(ins, layout, opts.Background)
	if err != nil {
		return err
	}
	if opts.Scale > 0 && opts.Scale != 1 {
		img = scaleImage(img, opts.Scale)
	}

	switch format {
	case formatPNG:
		err = png.Encode(w, img)
	case formatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return fmt.Errorf("internal error: unsupported image format '%s'", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	log.Printf("Encoded %s image (%dx%d).", format, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

func paintInstructions(ins []weave.Instruction, layout weave.Layout, background string) (image.Image, error) {
	width, height := int(math.Ceil(layout.Width)), int(math.Ceil(layout.Height))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	bg, err := parseHexColor(background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetLineCapButt()

	for _, in := range ins {
		switch in.Op {
		case weave.OpLine:
			if err := strokeSegment(dc, in); err != nil {
				return nil, err
			}
		case weave.OpCurve:
			if err := strokeSelvage(dc, in); err != nil {
				return nil, err
			}
		}
	}
	return dc.Image(), nil
}

// strokeSegment strokes a straight piece of thread with its gradient laid
// across the thread, left to right for the warp and top to bottom for the weft.
func strokeSegment(dc *gg.Context, in weave.Instruction) error {
	dx, dy := in.To.X-in.From.X, in.To.Y-in.From.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l, dx/l
	if nx < 0 || (nx == 0 && ny < 0) {
		nx, ny = -nx, -ny
	}
	h := in.Width / 2
	grad := gg.NewLinearGradient(in.From.X-nx*h, in.From.Y-ny*h, in.From.X+nx*h, in.From.Y+ny*h)
	if err := addStops(grad, in.Paint); err != nil {
		return err
	}
	dc.SetStrokeStyle(grad)
	dc.SetLineWidth(in.Width)
	dc.DrawLine(in.From.X, in.From.Y, in.To.X, in.To.Y)
	dc.Stroke()
	return nil
}

// strokeSelvage strokes the arc joining two rows. The radial gradient is
// centred on the selvage edge midway between the rows.
func strokeSelvage(dc *gg.Context, in weave.Instruction) error {
	offset := math.Abs(in.C1.X - in.From.X)
	midY := (in.From.Y + in.To.Y) / 2
	x := in.From.X

	var grad gg.Gradient
	if in.Side == weave.SideLeft {
		grad = gg.NewRadialGradient(x, midY+15, offset+10, x, midY+10, math.Max(offset-in.Width+10, 0))
	} else {
		grad = gg.NewRadialGradient(x, midY, math.Max(offset-in.Width, 0), x, midY, offset+in.Width/2)
	}
	if err := addStops(grad, in.Paint); err != nil {
		return err
	}
	dc.SetStrokeStyle(grad)
	dc.SetLineWidth(in.Width)
	dc.MoveTo(in.From.X, in.From.Y)
	dc.CubicTo(in.C1.X, in.C1.Y, in.C2.X, in.C2.Y, in.To.X, in.To.Y)
	dc.Stroke()
	return nil
}

func addStops(grad gg.Gradient, p weave.Paint) error {
	if len(p.Stops) == 0 {
		c, err := parseHexColor(p.Color)
		if err != nil {
			return err
		}
		grad.AddColorStop(0, c)
		grad.AddColorStop(1, c)
		return nil
	}
	for _, st := range p.Stops {
		c, err := parseHexColor(st.Color)
		if err != nil {
			return err
		}
		grad.AddColorStop(st.Offset, c)
	}
	return nil
}

// scaleImage resamples img by factor with Catmull-Rom.
func scaleImage(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := max(int(math.Round(float64(b.Dx())*factor)), 1)
	h := max(int(math.Round(float64(b.Dy())*factor)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
