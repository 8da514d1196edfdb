// Command cmaademo runs CMAA over an aliased test scene and writes the
// source, the result, a difference image and zoomed crops as PNG files.
//
// Usage:
//
//	cmaademo -c                 # software device, blit transfer
//	cmaademo -c -b -frames 30   # copy transfer, 30 rotating frames
//	cmaademo -c -gpu            # wgpu device on Vulkan
//	cmaademo -config demo.toml  # profile, flags still override
package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"

	"github.com/gogpu/cmaa"
	"github.com/gogpu/cmaa/backend"
	"github.com/gogpu/cmaa/backend/software"
	"github.com/gogpu/cmaa/gpucore"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cmaademo:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cmaa.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("cmaademo failed", "err", err)
		os.Exit(1)
	}
}

func openDevice(cfg config, logger *slog.Logger) (backend.Device, error) {
	if !cfg.GPU {
		return backend.Open(backend.BackendSoftware)
	}
	return openGPU(cfg, logger)
}

func run(cfg config, logger *slog.Logger) error {
	dev, err := openDevice(cfg, logger)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Close()
	info := dev.Info()
	logger.Info("device opened", "renderer", info.Renderer, "version", info.Version)

	opts := []cmaa.Option{
		cmaa.WithDebugEdges(cfg.Debug),
		cmaa.WithCopyTransfer(cfg.Copy),
	}
	if cfg.EdgeThreshold > 0 {
		opts = append(opts, cmaa.WithEdgeThreshold(cfg.EdgeThreshold))
	}
	m, err := cmaa.New(dev, opts...)
	if err != nil {
		return err
	}
	defer m.Destroy()
	if cfg.CMAA {
		if err := m.Initialize(); err != nil {
			return err
		}
		logger.Info("cmaa ready", "manager", m.ID(), "capabilities", fmt.Sprintf("%+v", m.Capabilities()))
	}

	var loaded *image.RGBA
	if cfg.Input != "" {
		img, err := imaging.Open(cfg.Input)
		if err != nil {
			return fmt.Errorf("load input: %w", err)
		}
		loaded = clone.AsRGBA(imaging.Fill(img, cfg.Size, cfg.Size, imaging.Center, imaging.Lanczos))
	}

	usage := gpucore.TextureUsageAll
	src, err := dev.CreateTexture(gpucore.TextureDesc{Label: "demo-source", Width: cfg.Size, Height: cfg.Size, Format: gpucore.TextureFormatRGBA8Unorm, Usage: usage})
	if err != nil {
		return err
	}
	defer dev.DestroyTexture(src)
	dst, err := dev.CreateTexture(gpucore.TextureDesc{Label: "demo-result", Width: cfg.Size, Height: cfg.Size, Format: gpucore.TextureFormatRGBA8Unorm, Usage: usage})
	if err != nil {
		return err
	}
	defer dev.DestroyTexture(dst)

	var source, result *image.RGBA
	for frame := range cfg.Frames {
		source = loaded
		if source == nil {
			source = renderCube(cfg.Size, 0.4+float64(frame)*2*math.Pi/120)
		}
		if err := dev.WriteTexture(src, source.Pix); err != nil {
			return err
		}
		if cfg.CMAA {
			err = m.ApplyEffectTexture(src, dst, cfg.Copy)
		} else {
			err = dev.CopyTexture(src, dst)
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		pix, err := dev.ReadTexture(dst)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		result = &image.RGBA{Pix: pix, Stride: cfg.Size * 4, Rect: image.Rect(0, 0, cfg.Size, cfg.Size)}
		logFrame(logger, dev, frame, source, result)
	}

	return writeOutputs(cfg, source, result, logger)
}

func logFrame(logger *slog.Logger, dev backend.Device, frame int, source, result *image.RGBA) {
	changed := 0
	for i := 0; i < len(source.Pix); i += 4 {
		if [4]byte(source.Pix[i:i+4]) != [4]byte(result.Pix[i:i+4]) {
			changed++
		}
	}
	attrs := []any{"frame", frame, "changed", changed}
	if sw, ok := dev.(*software.Device); ok {
		st := sw.ApplyStats()
		attrs = append(attrs, "blended", st.Blended, "skipped", st.Skipped)
	}
	logger.Debug("frame done", attrs...)
}

// diffGain scales the difference image so single-step changes are visible.
const diffGain = 4

func writeOutputs(cfg config, source, result *image.RGBA, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return err
	}
	diff := adjust.Apply(blend.Difference(source, result), func(c color.RGBA) color.RGBA {
		return color.RGBA{R: gain(c.R), G: gain(c.G), B: gain(c.B), A: 255}
	})

	outputs := []struct {
		name string
		img  image.Image
	}{
		{"source.png", source},
		{"result.png", result},
		{"diff.png", diff},
		{"zoom.png", zoomPair(source, result, cfg.Zoom)},
	}
	for _, o := range outputs {
		path := filepath.Join(cfg.Output, o.name)
		if err := imaging.Save(o.img, path); err != nil {
			return fmt.Errorf("save %s: %w", o.name, err)
		}
		logger.Info("wrote", "path", path)
	}
	return nil
}

func gain(v uint8) uint8 {
	return uint8(min(int(v)*diffGain, 255))
}

// zoomPair places the magnified center quarter of the source next to the
// same crop of the result.
func zoomPair(source, result image.Image, zoom int) image.Image {
	b := source.Bounds()
	crop := image.Rect(b.Dx()*3/8, b.Dy()*3/8, b.Dx()*5/8, b.Dy()*5/8)
	w, h := crop.Dx()*zoom, crop.Dy()*zoom

	out := imaging.New(2*w+zoom, h, color.White)
	left := imaging.Resize(imaging.Crop(source, crop), w, h, imaging.NearestNeighbor)
	right := imaging.Resize(imaging.Crop(result, crop), w, h, imaging.NearestNeighbor)
	out = imaging.Paste(out, left, image.Pt(0, 0))
	return imaging.Paste(out, right, image.Pt(w+zoom, 0))
}
