// Package wgpu provides a gpucore.Device on the gogpu/wgpu HAL.
//
// The device maps gpucore resources onto HAL textures, views, shader modules
// and render pipelines. Programs are created from their WGSL source, or from
// SPIR-V compiled with naga when WithSPIRV is set. Each fragment entry point
// becomes one render pipeline with a bind group layout holding its input
// slots.
//
// Draws, copies and blits are recorded as commands and encoded into a single
// command buffer on Submit. A command captures the attachments of its
// framebuffer when it is recorded, so re-attaching between draws is safe.
// Submit waits for the GPU, which keeps ReadTexture and the release of
// per-frame bind groups simple.
//
// Three constructors cover the ways a device is obtained:
//
//	// Standalone Vulkan device
//	dev, err := wgpu.New()
//
//	// Shared device from a host framework such as gogpu
//	dev, err := wgpu.NewFromProvider(app.DeviceProvider())
//
//	// An already opened HAL device, e.g. the noop backend in tests
//	dev, err := wgpu.NewFromHAL(device, queue, "noop")
//
// Importing the package registers the "wgpu" backend.
package wgpu
