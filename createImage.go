// createImage.go
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"strings"

	"github.com/buffos/go-weave/weave"
	"github.com/chromedp/chromedp"
)

// Raster engines.
const (
	engineNative = "native"
	engineChrome = "chrome"
)

const jpegQuality = 90

// imageOptions selects how a raster image is produced.
type imageOptions struct {
	Engine     string
	Scale      float64 // 1 keeps the canvas size
	Background string
}

// generateImage rasterises instructions as PNG or JPEG.
func generateImage(ctx context.Context, ins []weave.Instruction, layout weave.Layout, format outputFormat, opts imageOptions, outputWriter io.Writer) error {
	switch opts.Engine {
	case "", engineNative:
		return rasterizeNative(ins, layout, format, opts, outputWriter)
	case engineChrome:
		svgString, err := GenerateSVG(ins, layout, opts.Background)
		if err != nil {
			return fmt.Errorf("failed to generate intermediate SVG: %w", err)
		}
		return rasterizeWithChrome(ctx, svgString, format, outputWriter)
	default:
		return fmt.Errorf("unknown image engine '%s' (want %s or %s)", opts.Engine, engineNative, engineChrome)
	}
}

// rasterizeWithChrome screenshots the SVG in a headless browser.
func rasterizeWithChrome(ctx context.Context, svgString string, format outputFormat, outputWriter io.Writer) error {
	// Load the SVG straight from a data URI, no temp file.
	svgBase64 := base64.StdEncoding.EncodeToString([]byte(svgString))
	dataURI := "data:image/svg+xml;base64," + svgBase64
	log.Println("Created data URI for SVG.")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	var screenshotBuf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible(`svg`, chromedp.ByQuery),
		chromedp.Screenshot(`svg`, &screenshotBuf, chromedp.ByQuery),
	}

	log.Println("Running chromedp tasks (navigate and screenshot)...")
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(screenshotBuf) == 0 {
		return fmt.Errorf("screenshot buffer is empty, screenshot failed")
	}

	screenshotReader := bytes.NewReader(screenshotBuf)
	switch format {
	case formatPNG:
		// Screenshot is already PNG
		if _, err := io.Copy(outputWriter, screenshotReader); err != nil {
			return fmt.Errorf("failed to write PNG screenshot data: %w", err)
		}
	case formatJPEG:
		img, err := png.Decode(screenshotReader)
		if err != nil {
			return fmt.Errorf("failed to decode PNG screenshot: %w", err)
		}
		if err := jpeg.Encode(outputWriter, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	default:
		return fmt.Errorf("internal error: unsupported image format '%s' with chromedp", format)
	}

	log.Printf("Successfully encoded %s image using chromedp.", strings.ToUpper(string(format)))
	return nil
}
