package main

import "time"

// --- Config Structs ---

// Config is the YAML configuration of the weave command.
type Config struct {
	Canvas  CanvasConfig `yaml:"canvas"`
	Threads ThreadConfig `yaml:"threads"`
	Colors  ColorConfig  `yaml:"colors"`
	Replay  ReplayConfig `yaml:"replay"`
	Server  ServerConfig `yaml:"server"`
}

// CanvasConfig mirrors weave.Layout; fractions are of the canvas side.
type CanvasConfig struct {
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	Inset     float64 `yaml:"inset"`     // blank margin on each side
	Content   float64 `yaml:"content"`   // share of the canvas the grid spans
	Tolerance float64 `yaml:"tolerance"` // px between content edge and first crossing
}

type ThreadConfig struct {
	GridSize    int     `yaml:"grid_size"`
	MaxGridSize int     `yaml:"max_grid_size"` // upper bound for new, resized and loaded grids
	Width       float64 `yaml:"width"`         // 0 sizes threads from the grid size
}

// ColorConfig holds the two thread colours and the canvas background.
type ColorConfig struct {
	Warp       string `yaml:"warp"`
	Weft       string `yaml:"weft"`
	Background string `yaml:"background"`
}

type ReplayConfig struct {
	Delay  time.Duration `yaml:"delay"`  // between commands
	Settle time.Duration `yaml:"settle"` // after the last command, before the reset
}

// ServerConfig configures `weave serve`. Timeouts are in seconds.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

// --- Output Formats ---

type outputFormat string

const (
	formatSVG  outputFormat = "svg"
	formatHTML outputFormat = "html"
	formatPNG  outputFormat = "png"
	formatJPEG outputFormat = "jpg"
)

// parseFormat accepts the format names the CLI and server understand.
func parseFormat(s string) (outputFormat, bool) {
	switch s {
	case "svg":
		return formatSVG, true
	case "html":
		return formatHTML, true
	case "png":
		return formatPNG, true
	case "jpg", "jpeg":
		return formatJPEG, true
	}
	return "", false
}

func (f outputFormat) isImage() bool {
	return f == formatPNG || f == formatJPEG
}

func (f outputFormat) contentType() string {
	switch f {
	case formatSVG:
		return "image/svg+xml"
	case formatHTML:
		return "text/html; charset=utf-8"
	case formatPNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}
