//go:build nogpu

package main

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/cmaa/backend"
)

func openGPU(config, *slog.Logger) (backend.Device, error) {
	return nil, fmt.Errorf("%w: built with nogpu", backend.ErrBackendNotAvailable)
}
