// Package backend selects the graphics device the CMAA manager runs on.
//
// # Backend Registration
//
// Device packages register a factory from init(). Importing a backend
// package is enough to make it available:
//
//	import (
//		_ "github.com/gogpu/cmaa/backend/software"
//		_ "github.com/gogpu/cmaa/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use OpenDefault to get the best device that opens, or Open to request a
// specific backend by name:
//
//	dev, name, err := backend.OpenDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	// Or request a specific backend
//	dev, err := backend.Open("software")
//
// # Available Backends
//
// - "software": CPU reference device (always available)
// - "wgpu": GPU device via gogpu/wgpu HAL (Vulkan; not built with the nogpu tag)
package backend
