// Package software provides a CPU implementation of gpucore.Device.
//
// The device executes the CMAA programs with the reference kernels in
// internal/kernel, splitting each pass into row bands run by a worker pool.
// Shader sources are validated but not compiled: a program is identified by
// its variant and defines, which select the kernel and its parameters.
//
// Beyond the Device contract the software device keeps accounting that the
// GPU backends cannot offer cheaply:
//
//   - live and peak counts of textures, framebuffers and programs
//   - the pixel classification of the last apply pass
//
// Both are returned by Stats. WithFailures injects allocation, program and
// completeness failures for error path testing.
//
// Sampled color values are the stored (encoded) bytes; the device never
// decodes sRGB on load or encodes on store. Gamma handling belongs to the
// programs, which is what GammaCorrect in the defines selects.
package software
