package software

import "github.com/gogpu/cmaa/internal/kernel"

// Stats is the device's resource and pass accounting.
type Stats struct {
	// Live resource counts.
	Textures     int
	Framebuffers int
	Programs     int

	// PeakTextures is the largest number of textures alive at once.
	PeakTextures int

	// TexturesCreated counts every successful CreateTexture call.
	TexturesCreated int

	// Draws counts executed draws; Copies and Blits count executed
	// transfers.
	Draws  int
	Copies int
	Blits  int

	// Submits counts Submit calls that executed at least one command.
	Submits int

	// Apply classifies the pixels of the most recent apply pass.
	Apply kernel.ApplyStats
}

// Processed returns the number of pixels the last apply pass inspected at
// full resolution.
func (s Stats) Processed() int {
	return s.Apply.Blended + s.Apply.Unchanged
}

// Stats returns a snapshot of the device's accounting.
func (d *Device) Stats() Stats {
	s := d.stats
	s.Textures = len(d.textures)
	s.Framebuffers = len(d.framebuffers)
	s.Programs = len(d.programs)
	return s
}

// ApplyStats returns the pixel classification of the most recent apply pass.
func (d *Device) ApplyStats() kernel.ApplyStats {
	return d.stats.Apply
}
