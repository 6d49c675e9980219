package main

import (
	"bytes"
	"fmt"
	"math"

	"github.com/buffos/go-weave/weave"
)

// Structure to hold calculated bounds
type bounds struct {
	minX, maxX, minY, maxY float64
	isSet                  bool
}

// Update bounds considering a point (x, y)
func (b *bounds) updatePoint(x, y float64) {
	if !b.isSet {
		b.minX, b.maxX = x, x
		b.minY, b.maxY = y, y
		b.isSet = true
	} else {
		b.minX = math.Min(b.minX, x)
		b.maxX = math.Max(b.maxX, x)
		b.minY = math.Min(b.minY, y)
		b.maxY = math.Max(b.maxY, y)
	}
}

// Update bounds considering a rectangle
func (b *bounds) updateRect(x, y, width, height float64) {
	if width > 0 && height > 0 {
		b.updatePoint(x, y)
		b.updatePoint(x+width, y+height)
	}
}

// gradientID names the shared gradient for a layer/side pair.
func gradientID(layer weave.Layer, side weave.Side) string {
	switch {
	case layer == weave.LayerSelvage && side == weave.SideRight:
		return "selvage-right"
	case layer == weave.LayerSelvage:
		return "selvage-left"
	default:
		return layer.String() + "-grad"
	}
}

// writeGradientDefs emits one gradient per distinct layer/side. Warp
// gradients run across x, weft across y, selvage curves radially.
func writeGradientDefs(svg *bytes.Buffer, ins []weave.Instruction) {
	seen := make(map[string]bool)
	svg.WriteString("  <defs>\n")
	for _, in := range ins {
		if in.Op == weave.OpMove || len(in.Paint.Stops) == 0 {
			continue
		}
		id := gradientID(in.Layer, in.Side)
		if seen[id] {
			continue
		}
		seen[id] = true

		var open, closeTag string
		switch in.Layer {
		case weave.LayerWarp:
			open = fmt.Sprintf(`    <linearGradient id="%s" x1="0" y1="0" x2="1" y2="0">`, id)
			closeTag = "    </linearGradient>\n"
		case weave.LayerWeft:
			open = fmt.Sprintf(`    <linearGradient id="%s" x1="0" y1="0" x2="0" y2="1">`, id)
			closeTag = "    </linearGradient>\n"
		default:
			open = fmt.Sprintf(`    <radialGradient id="%s" cx="%s" cy="0.5" r="0.75">`, id,
				ternary(in.Side == weave.SideRight, "0", "1"))
			closeTag = "    </radialGradient>\n"
		}
		svg.WriteString(open + "\n")
		for _, st := range in.Paint.Stops {
			col, opacity := splitAlpha(st.Color)
			fmt.Fprintf(svg, `      <stop offset="%.2f" stop-color="%s"%s />`+"\n",
				st.Offset, escapeXML(col), ternary(opacity != "", ` stop-opacity="`+opacity+`"`, ""))
		}
		svg.WriteString(closeTag)
	}
	svg.WriteString("  </defs>\n")
}

// splitAlpha turns #rrggbbaa into #rrggbb plus an opacity string.
func splitAlpha(hex string) (string, string) {
	c, err := parseHexColor(hex)
	if err != nil || len(hex) != 9 {
		return hex, ""
	}
	return hex[:7], fmt.Sprintf("%.2f", float64(c.A)/255)
}

// paintRef returns the fill/stroke value for an instruction.
func paintRef(in weave.Instruction) string {
	if len(in.Paint.Stops) == 0 {
		return escapeXML(in.Paint.Color)
	}
	return "url(#" + gradientID(in.Layer, in.Side) + ")"
}

// drawThreadSegment draws a straight stroke. Axis-aligned strokes become
// rectangles so the cross-thread gradient has a non-empty bounding box.
func drawThreadSegment(svg *bytes.Buffer, b *bounds, in weave.Instruction) {
	w := in.Width
	dx, dy := in.To.X-in.From.X, in.To.Y-in.From.Y
	switch {
	case dx == 0 && dy == 0:
		return
	case dy == 0:
		x := math.Min(in.From.X, in.To.X)
		fmt.Fprintf(svg, `    <rect class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" />`+"\n",
			in.Layer, x, in.From.Y-w/2, math.Abs(dx), w, paintRef(in))
		b.updateRect(x, in.From.Y-w/2, math.Abs(dx), w)
	case dx == 0:
		y := math.Min(in.From.Y, in.To.Y)
		fmt.Fprintf(svg, `    <rect class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" />`+"\n",
			in.Layer, in.From.X-w/2, y, w, math.Abs(dy), paintRef(in))
		b.updateRect(in.From.X-w/2, y, w, math.Abs(dy))
	default:
		fmt.Fprintf(svg, `    <line class="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.2f" />`+"\n",
			in.Layer, in.From.X, in.From.Y, in.To.X, in.To.Y, escapeXML(in.Paint.Color), w)
		b.updatePoint(in.From.X, in.From.Y)
		b.updatePoint(in.To.X, in.To.Y)
	}
}

// drawSelvageCurve draws the cubic arc joining two weft passes.
func drawSelvageCurve(svg *bytes.Buffer, b *bounds, in weave.Instruction) {
	fmt.Fprintf(svg, `    <path class="selvage" d="M %.2f %.2f C %.2f %.2f, %.2f %.2f, %.2f %.2f" fill="none" stroke="%s" stroke-width="%.2f" />`+"\n",
		in.From.X, in.From.Y, in.C1.X, in.C1.Y, in.C2.X, in.C2.Y, in.To.X, in.To.Y, paintRef(in), in.Width)

	// The curve stays inside the hull of its control points; 3/4 of the
	// control offset is its actual reach.
	reach := (in.C1.X - in.From.X) * 0.75
	half := in.Width / 2
	b.updatePoint(in.From.X+reach+math.Copysign(half, reach), in.From.Y-half)
	b.updatePoint(in.To.X, in.To.Y+half)
}

func assembleFinalSVG(svgBody bytes.Buffer, defs bytes.Buffer, canvasBounds bounds, background string) string {
	finalWidth := math.Max(canvasBounds.maxX-canvasBounds.minX, 10)
	finalHeight := math.Max(canvasBounds.maxY-canvasBounds.minY, 10)
	offsetX := -canvasBounds.minX
	offsetY := -canvasBounds.minY

	var finalSVG bytes.Buffer
	fmt.Fprintf(&finalSVG, `<svg width="%.0f" height="%.0f" xmlns="http://www.w3.org/2000/svg">`,
		finalWidth, finalHeight)
	finalSVG.WriteString("\n")

	// Background rectangle
	fmt.Fprintf(&finalSVG, `  <rect width="%.0f" height="%.0f" fill="%s" />`+"\n", finalWidth, finalHeight, escapeXML(background))
	finalSVG.Write(defs.Bytes())

	fmt.Fprintf(&finalSVG, `  <g transform="translate(%.2f, %.2f)">`, offsetX, offsetY)
	finalSVG.WriteString("\n")
	finalSVG.Write(svgBody.Bytes())
	finalSVG.WriteString("  </g>\n")
	finalSVG.WriteString("</svg>")

	return finalSVG.String()
}

// GenerateSVG renders draw instructions onto a canvas of the layout's size,
// growing it if a selvage curve reaches past the edge.
func GenerateSVG(ins []weave.Instruction, layout weave.Layout, background string) (string, error) {
	if len(ins) == 0 {
		return "", fmt.Errorf("no draw instructions to render")
	}

	canvasBounds := bounds{}
	canvasBounds.updateRect(0, 0, layout.Width, layout.Height)

	var defs, body bytes.Buffer
	writeGradientDefs(&defs, ins)

	for _, in := range ins {
		switch in.Op {
		case weave.OpLine:
			drawThreadSegment(&body, &canvasBounds, in)
		case weave.OpCurve:
			drawSelvageCurve(&body, &canvasBounds, in)
		}
	}

	return assembleFinalSVG(body, defs, canvasBounds, background), nil
}
