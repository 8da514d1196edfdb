package cmaa

import "github.com/gogpu/cmaa/gpucore"

// TransferMethod is how the working texture reaches the destination.
type TransferMethod uint8

// Transfer methods.
const (
	// TransferDirectCopy copies texels from the working texture.
	TransferDirectCopy TransferMethod = iota

	// TransferDirectDraw blits from the private framebuffer into the destination.
	TransferDirectDraw

	// TransferDrawAndCopy blits into an intermediate texture of the
	// destination's format, then copies that into the destination.
	TransferDrawAndCopy

	// TransferNotCopyable means the destination can be neither drawn to nor
	// copied into.
	TransferNotCopyable
)

var transferNames = [...]string{
	TransferDirectCopy:  "direct-copy",
	TransferDirectDraw:  "direct-draw",
	TransferDrawAndCopy: "draw-and-copy",
	TransferNotCopyable: "not-copyable",
}

func (t TransferMethod) String() string {
	if int(t) < len(transferNames) {
		return transferNames[t]
	}
	return "TransferMethod(?)"
}

// SelectTransfer chooses the transfer from a working texture of format
// working into dst. A copy is used when requested and possible, otherwise
// a draw when dst is renderable. Destinations that only accept copies get a
// copy when formats allow it, or a draw into an intermediate.
func SelectTransfer(working gpucore.TextureFormat, dst gpucore.TextureDesc, copyRequested bool) TransferMethod {
	if !dst.Format.IsColor() {
		return TransferNotCopyable
	}
	canCopy := dst.Usage&gpucore.TextureUsageCopyDst != 0 && gpucore.CopyCompatible(working, dst.Format)
	canDraw := dst.Usage&gpucore.TextureUsageRenderAttachment != 0

	switch {
	case copyRequested && canCopy:
		return TransferDirectCopy
	case canDraw:
		return TransferDirectDraw
	case canCopy:
		return TransferDirectCopy
	case dst.Usage&gpucore.TextureUsageCopyDst != 0:
		return TransferDrawAndCopy
	default:
		return TransferNotCopyable
	}
}
