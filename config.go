package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/buffos/go-weave/weave"
	"gopkg.in/yaml.v3"
)

// configEnvVar names the environment variable that points at a config file.
const configEnvVar = "WEAVE_CONFIG"

// defaultConfig matches the browser tool: an 800px canvas, grey threads,
// 250ms between replayed commands and a one second pause at the end.
func defaultConfig() Config {
	l := weave.DefaultLayout()
	return Config{
		Canvas: CanvasConfig{
			Width:     l.Width,
			Height:    l.Height,
			Inset:     l.Inset,
			Content:   l.Content,
			Tolerance: l.Tolerance,
		},
		Threads: ThreadConfig{GridSize: 4, MaxGridSize: 32},
		Colors: ColorConfig{
			Warp:       weave.DefaultThreadColor,
			Weft:       weave.DefaultThreadColor,
			Background: "#ffffff",
		},
		Replay: ReplayConfig{
			Delay:  250 * time.Millisecond,
			Settle: time.Second,
		},
		Server: ServerConfig{
			Port:         "3000",
			ReadTimeout:  10,
			WriteTimeout: 10,
		},
	}
}

// loadConfig reads the YAML file at path (or $WEAVE_CONFIG) over the
// defaults. With neither set it returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path != "" {
		log.Printf("Reading config file: %s", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config '%s': %w", path, err)
		}
	}
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.Threads.GridSize < 2 {
		errs = append(errs, fmt.Errorf("threads.grid_size must be at least 2, got %d", c.Threads.GridSize))
	}
	if c.Threads.MaxGridSize < c.Threads.GridSize {
		errs = append(errs, fmt.Errorf("threads.max_grid_size must be at least threads.grid_size (%d), got %d",
			c.Threads.GridSize, c.Threads.MaxGridSize))
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size must be positive, got %gx%g", c.Canvas.Width, c.Canvas.Height))
	}
	if c.Canvas.Inset < 0 || c.Canvas.Content <= 0 || c.Canvas.Inset*2+c.Canvas.Content > 1.0001 {
		errs = append(errs, fmt.Errorf("canvas.inset and canvas.content must fit the canvas"))
	}
	for name, col := range map[string]string{
		"colors.warp":       c.Colors.Warp,
		"colors.weft":       c.Colors.Weft,
		"colors.background": c.Colors.Background,
	} {
		if _, err := parseHexColor(col); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Replay.Delay < 0 || c.Replay.Settle < 0 {
		errs = append(errs, fmt.Errorf("replay delays must not be negative"))
	}
	return errors.Join(errs...)
}

// layout converts the canvas section into weave layout constants.
func (c Config) layout(n int) weave.Layout {
	w := c.Threads.Width
	if w <= 0 {
		w = weave.ThreadWidthFor(n)
	}
	return weave.Layout{
		Width:       c.Canvas.Width,
		Height:      c.Canvas.Height,
		Inset:       c.Canvas.Inset,
		Content:     c.Canvas.Content,
		Tolerance:   c.Canvas.Tolerance,
		ThreadWidth: w,
	}
}

func (c Config) palette() weave.Palette {
	return weave.Palette{Warp: c.Colors.Warp, Weft: c.Colors.Weft}
}

// sessionOptions returns the options every command builds sessions with.
func (c Config) sessionOptions(n int) []weave.Option {
	return []weave.Option{
		weave.WithLayout(c.layout(n)),
		weave.WithAutoWidth(c.Threads.Width <= 0),
		weave.WithMaxSize(c.Threads.MaxGridSize),
	}
}

func (c Config) replayer() *weave.Replayer {
	return &weave.Replayer{Pace: c.Replay.Delay, Settle: c.Replay.Settle}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
