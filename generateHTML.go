// generateHTML.go
package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/buffos/go-weave/weave"
)

// generateHTML builds a self-contained replay page: one SVG frame per command,
// revealed in turn with CSS animation delays, followed by the command log.
// The session is left holding the fully applied pattern.
func generateHTML(sess *weave.Session, theme weave.Theme, background string, pace time.Duration) (string, error) {
	cmds := sess.History().Commands()
	frames := weave.Frames(sess, cmds)
	layout := sess.Geometry().Layout

	var htmlBuilder strings.Builder

	// --- Basic HTML Structure ---
	htmlBuilder.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&htmlBuilder, "<title>Weave %dx%d</title>\n", sess.N(), sess.N())
	htmlBuilder.WriteString("<style>\n")
	fmt.Fprintf(&htmlBuilder, "body { margin: 0; padding: 40px; font-family: sans-serif; background: %s; }\n", escapeCSS(background))
	fmt.Fprintf(&htmlBuilder, ".loom { position: relative; width: %.0fpx; height: %.0fpx; margin: 0 auto; }\n", layout.Width, layout.Height)
	htmlBuilder.WriteString(".loom img { position: absolute; top: 0; left: 0; opacity: 0; animation: reveal 1ms linear forwards; }\n")
	htmlBuilder.WriteString("@keyframes reveal { to { opacity: 1; } }\n")
	htmlBuilder.WriteString("table.log { margin: 24px auto; border-collapse: collapse; font-size: 0.9em; }\n")
	htmlBuilder.WriteString("table.log td, table.log th { padding: 2px 10px; border-bottom: 1px solid #ddd; text-align: left; }\n")
	htmlBuilder.WriteString("</style>\n</head>\n<body>\n")

	// --- Frames ---
	htmlBuilder.WriteString("<div class=\"loom\">\n")
	for i, frame := range frames {
		svg, err := GenerateSVG(weave.Render(frame, sess.Geometry(), theme), layout, background)
		if err != nil {
			return "", fmt.Errorf("frame %d: %w", i, err)
		}
		delay := time.Duration(i) * pace
		fmt.Fprintf(&htmlBuilder, "  <img alt=\"step %d\" style=\"animation-delay: %dms\" src=\"data:image/svg+xml;base64,%s\">\n",
			i, delay.Milliseconds(), base64.StdEncoding.EncodeToString([]byte(svg)))
	}
	htmlBuilder.WriteString("</div>\n")

	// --- Command Log ---
	htmlBuilder.WriteString("<table class=\"log\">\n  <tr><th>#</th><th>action</th><th>time</th></tr>\n")
	for i, rec := range weave.Serialize(cmds) {
		fmt.Fprintf(&htmlBuilder, "  <tr><td>%d</td><td>%s</td><td>%s</td></tr>\n",
			i+1, escapeHTML(rec.Action), escapeHTML(time.UnixMilli(rec.TimeStamp).UTC().Format(time.RFC3339Nano)))
	}
	htmlBuilder.WriteString("</table>\n</body>\n</html>\n")

	log.Printf("Generated HTML replay with %d frames.", len(frames))
	return htmlBuilder.String(), nil
}
