package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// config is the demo profile. It is read from an optional TOML file and
// then overridden by command-line flags.
type config struct {
	CMAA          bool    `toml:"cmaa"`
	Copy          bool    `toml:"copy"`
	Frames        int     `toml:"frames"`
	GPU           bool    `toml:"gpu"`
	SPIRV         bool    `toml:"spirv"`
	Debug         bool    `toml:"debug"`
	Size          int     `toml:"size"`
	Zoom          int     `toml:"zoom"`
	EdgeThreshold float32 `toml:"edge_threshold"`
	Input         string  `toml:"input"`
	Output        string  `toml:"output"`
	Verbose       bool    `toml:"verbose"`
}

func defaultConfig() config {
	return config{
		Frames: 1,
		Size:   256,
		Zoom:   4,
		Output: ".",
	}
}

var errUsage = errors.New("usage")

// parseConfig builds the configuration from args. Flags given on the command
// line win over the profile named by -config.
func parseConfig(args []string, stderr io.Writer) (config, error) {
	cfg := defaultConfig()
	var path string

	fs := flag.NewFlagSet("cmaademo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&path, "config", "", "TOML profile `file`")
	fs.BoolVar(&cfg.CMAA, "c", cfg.CMAA, "apply CMAA")
	fs.BoolVar(&cfg.Copy, "b", cfg.Copy, "transfer the result with a texture copy instead of a blit")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "number of frames, rotating the cube each frame")
	fs.BoolVar(&cfg.GPU, "gpu", cfg.GPU, "run on the wgpu (Vulkan) device instead of the software device")
	fs.BoolVar(&cfg.SPIRV, "spirv", cfg.SPIRV, "compile shaders to SPIR-V with naga (with -gpu)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "visualize detected edges")
	fs.IntVar(&cfg.Size, "size", cfg.Size, "source image size in pixels")
	fs.IntVar(&cfg.Zoom, "zoom", cfg.Zoom, "magnification of the zoomed crops")
	fs.Func("threshold", "edge threshold in (0,1)", func(s string) error {
		var v float32
		if _, err := fmt.Sscan(s, &v); err != nil {
			return err
		}
		cfg.EdgeThreshold = v
		return nil
	})
	fs.StringVar(&cfg.Input, "input", cfg.Input, "load the source from an image `file` instead of rendering")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "output `directory`")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, errUsage
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		// Parse again so explicit flags override the profile.
		if err := fs.Parse(args); err != nil {
			return cfg, errUsage
		}
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c config) validate() error {
	switch {
	case c.Frames < 1:
		return fmt.Errorf("frames must be at least 1, got %d", c.Frames)
	case c.Size < 16:
		return fmt.Errorf("size must be at least 16, got %d", c.Size)
	case c.Zoom < 1:
		return fmt.Errorf("zoom must be at least 1, got %d", c.Zoom)
	case c.EdgeThreshold < 0 || c.EdgeThreshold >= 1:
		return fmt.Errorf("threshold must be in (0,1), got %v", c.EdgeThreshold)
	}
	return nil
}
