package main

import (
	"bytes"
	"context"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/buffos/go-weave/weave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaintInstructions(t *testing.T) {
	sess := presetSession(t, "plain-4")
	g := sess.Geometry()
	img, err := paintInstructions(sess.Render(weave.DefaultPalette()), g.Layout, "#ffffff")
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())

	white := color.RGBAModel.Convert(color.White)
	assert.Equal(t, white, color.RGBAModel.Convert(img.At(0, 0)), "corner stays background")

	// Middle of the first warp segment, halfway across the thread.
	col := g.Columns[0]
	x := int(col.Start.X)
	y := int((col.Start.Y + col.Anchors[0].Y) / 2)
	r, _, _, _ := img.At(x, y).RGBA()
	assert.Less(t, r>>8, uint32(250), "thread is painted")
}

func TestRasterizeNativeFormats(t *testing.T) {
	sess := presetSession(t, "stripes-5")
	ins := sess.Render(weave.DefaultPalette())
	layout := sess.Geometry().Layout

	var buf bytes.Buffer
	require.NoError(t, generateImage(context.Background(), ins, layout, formatPNG, imageOptions{Background: "#ffffff", Scale: 0.5}, &buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())

	buf.Reset()
	require.NoError(t, generateImage(context.Background(), ins, layout, formatJPEG, imageOptions{Engine: engineNative, Background: "#ffffff"}, &buf))
	img, err = jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestGenerateImageErrors(t *testing.T) {
	sess := presetSession(t, "plain-4")
	ins := sess.Render(weave.DefaultPalette())
	var buf bytes.Buffer

	err := generateImage(context.Background(), ins, sess.Geometry().Layout, formatPNG, imageOptions{Engine: "gpu", Background: "#fff"}, &buf)
	assert.ErrorContains(t, err, "unknown image engine")

	err = generateImage(context.Background(), ins, sess.Geometry().Layout, formatPNG, imageOptions{Background: "white"}, &buf)
	assert.ErrorContains(t, err, "background")

	bad := weave.Palette{Warp: "grey", Weft: weave.DefaultThreadColor}
	err = generateImage(context.Background(), sess.Render(bad), sess.Geometry().Layout, formatPNG, imageOptions{Background: "#fff"}, &buf)
	assert.Error(t, err)
}

func TestScaleImage(t *testing.T) {
	sess := presetSession(t, "plain-4")
	img, err := paintInstructions(sess.Render(weave.DefaultPalette()), sess.Geometry().Layout, "#000000")
	require.NoError(t, err)
	scaled := scaleImage(img, 0.25)
	assert.Equal(t, 200, scaled.Bounds().Dx())
	assert.Equal(t, 200, scaled.Bounds().Dy())
}
