// Package cmaa applies conservative morphological anti-aliasing (CMAA) to
// rendered frames as a sequence of full-screen passes on a gpucore.Device.
//
// CMAA detects the pixels lying on strong luminance edges and blends only
// those with their neighbors across the edge, leaving flat regions
// untouched. It costs a small fraction of supersampling and never blurs
// texture detail below the edge threshold.
//
// # Quick Start
//
//	dev := software.New()
//	defer dev.Close()
//
//	m, err := cmaa.New(dev)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := m.Initialize(); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Destroy()
//
//	// source and destination are RGBA8 textures of equal size.
//	if err := m.ApplyEffectTexture(source, destination, false); err != nil {
//		log.Printf("frame dropped: %v", err)
//	}
//
// # Passes
//
// Each call records, in order, on the device's single command stream:
//
//  1. edges-a: 4-bit edge mask of every pixel against its 4-neighborhood
//  2. edges-b: local contrast adaptation of the mask; with the API tier, a
//     reduce draw into the 4x4 mini buffers that lets later passes skip
//     flat blocks
//  3. combine: per-pixel blend weight codes by edge shape (straight run,
//     run end, corner)
//  4. apply: the blend into the working texture
//
// followed by the transfer into the destination (see TransferMethod). Only
// the destination is written outside the manager's own resources.
//
// # Lifecycle
//
// New creates an uninitialized manager. Initialize detects Capabilities and
// builds the programs. The first apply call, and any call with a new size,
// allocates the resource pool. Destroy releases the pool and then the
// programs. Apply calls outside the initialized states return an error
// wrapping ErrPrecondition.
//
// # Devices
//
// backend/software is a CPU reference device with resource accounting and
// fault injection. backend/wgpu runs the passes on the GPU through the
// gogpu/wgpu HAL.
package cmaa
