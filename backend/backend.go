package backend

import (
	"errors"

	"github.com/gogpu/cmaa/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference device.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU device (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Device is a gpucore.Device that owns native resources and must be closed.
type Device interface {
	gpucore.Device

	// Close releases the device. The device must not be used afterwards.
	Close()
}
