// Package gpucore provides the device abstraction the CMAA pipeline runs on.
//
// This package defines the [Device] interface, which abstracts over the
// graphics API so that the same multi-pass algorithm works with:
//   - the CPU reference device (backend/software)
//   - gogpu/wgpu (Pure Go WebGPU via HAL, backend/wgpu)
//
// # Architecture
//
// The CMAA orchestrator is implemented once in the root package, while thin
// devices translate between the [Device] interface and specific backends.
//
//	               +-----------------+
//	               |   cmaa.Manager  |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | gpucore.Device  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| software device |          |   wgpu device   |
//	| (CPU kernels)   |          |  (hal.Device)   |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// Resources are managed via opaque IDs ([TextureID], [FramebufferID],
// [ProgramID]). Devices are responsible for tracking the mapping between IDs
// and actual resources.
//
// # Program Variants
//
// Programs are identified by a closed [Variant] enumeration and specialized by
// a [Defines] block resolved once from the device's [ContextInfo].
package gpucore
