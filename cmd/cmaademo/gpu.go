//go:build !nogpu

package main

import (
	"log/slog"

	"github.com/gogpu/cmaa/backend"
	"github.com/gogpu/cmaa/backend/wgpu"
)

func openGPU(cfg config, logger *slog.Logger) (backend.Device, error) {
	wgpu.SetLogger(logger)
	if cfg.SPIRV {
		return wgpu.New(wgpu.WithSPIRV(true))
	}
	return backend.Open(backend.BackendWGPU)
}
