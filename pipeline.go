package cmaa

import (
	"fmt"

	"github.com/gogpu/cmaa/gpucore"
	"github.com/gogpu/cmaa/internal/kernel"
	"github.com/gogpu/cmaa/internal/shader"
)

// applyStatser is implemented by devices that classify the pixels of the
// apply pass.
type applyStatser interface {
	ApplyStats() kernel.ApplyStats
}

// pass is one full-screen draw of the sequence.
type pass struct {
	name    string
	variant gpucore.Variant
	entry   string
	targets []gpucore.TextureID
	inputs  map[string]gpucore.TextureID
}

// passes returns the draw sequence reading source. Without mini buffer
// culling the reduce draw is dropped and combine and apply read no mini
// buffers.
func (m *Manager) passes(source gpucore.TextureID) []pass {
	p := m.pool
	culling := m.defines.MiniCulling

	seq := []pass{
		{
			name: "edges-a", variant: gpucore.VariantEdgesA, entry: gpucore.EntryMain,
			targets: []gpucore.TextureID{p.edges0},
			inputs:  map[string]gpucore.TextureID{shader.SlotSourceColor: source},
		},
		{
			name: "edges-b", variant: gpucore.VariantEdgesB, entry: gpucore.EntryMain,
			targets: []gpucore.TextureID{p.edges1},
			inputs:  map[string]gpucore.TextureID{shader.SlotSourceColor: source, shader.SlotEdges: p.edges0},
		},
	}
	if culling {
		seq = append(seq, pass{
			name: "reduce", variant: gpucore.VariantEdgesB, entry: gpucore.EntryReduce,
			targets: []gpucore.TextureID{p.miniColor, p.miniDepth},
			inputs:  map[string]gpucore.TextureID{shader.SlotSourceColor: source, shader.SlotEdges: p.edges1},
		})
	}

	combine := pass{
		name: "combine", variant: gpucore.VariantCombine, entry: gpucore.EntryMain,
		targets: []gpucore.TextureID{p.edges0},
		inputs:  map[string]gpucore.TextureID{shader.SlotEdges: p.edges1},
	}
	apply := pass{
		name: "apply", variant: gpucore.VariantApply, entry: gpucore.EntryMain,
		targets: []gpucore.TextureID{p.working},
		inputs:  map[string]gpucore.TextureID{shader.SlotSourceColor: source, shader.SlotWeights: p.edges0},
	}
	if culling {
		combine.inputs[shader.SlotMiniColor] = p.miniColor
		apply.inputs[shader.SlotMiniDepth] = p.miniDepth
	}
	seq = append(seq, combine, apply)

	if m.programs.has(gpucore.VariantDebug) {
		seq = append(seq, pass{
			name: "debug", variant: gpucore.VariantDebug, entry: gpucore.EntryMain,
			targets: []gpucore.TextureID{p.working},
			inputs:  map[string]gpucore.TextureID{shader.SlotSourceColor: source, shader.SlotEdges: p.edges1},
		})
	}
	return seq
}

// run records the pass sequence and the final transfer, then submits. Any
// failure discards the recorded work so destination is not written.
func (m *Manager) run(source, destination gpucore.TextureID, copyRequested bool) error {
	m.frame++
	if err := m.record(source, destination, copyRequested); err != nil {
		m.dev.Discard()
		m.log.Debug("cmaa: frame dropped", "frame", m.frame, "err", err)
		return err
	}
	if err := m.dev.Submit(); err != nil {
		m.dev.Discard()
		return fmt.Errorf("cmaa: submit frame %d: %w", m.frame, err)
	}
	if s, ok := m.dev.(applyStatser); ok {
		st := s.ApplyStats()
		m.log.Debug("cmaa: frame applied", "frame", m.frame,
			"blended", st.Blended, "unchanged", st.Unchanged, "skipped", st.Skipped)
	}
	return nil
}

func (m *Manager) record(source, destination gpucore.TextureID, copyRequested bool) error {
	for _, ps := range m.passes(source) {
		if err := m.draw(ps); err != nil {
			return err
		}
	}
	return m.transfer(destination, copyRequested)
}

func (m *Manager) draw(ps pass) error {
	if err := m.pool.target(ps.name, ps.targets...); err != nil {
		return err
	}
	inputs := make([]gpucore.TextureBinding, 0, len(ps.inputs))
	for slot, tex := range ps.inputs {
		b, ok := m.programs.binding(ps.variant, ps.entry, slot)
		if !ok {
			return fmt.Errorf("cmaa: %v/%s has no slot %s", ps.variant, ps.entry, slot)
		}
		inputs = append(inputs, gpucore.TextureBinding{Binding: b, Texture: tex})
	}
	label := fmt.Sprintf("%s frame %d %s", m.pool.prefix, m.frame, ps.name)
	m.log.Debug("cmaa: pass", "label", label)

	err := m.dev.Draw(gpucore.DrawDesc{
		Label:       label,
		Program:     m.programs.ids[ps.variant],
		Entry:       ps.entry,
		Framebuffer: m.pool.fb,
		Inputs:      inputs,
	})
	if err != nil {
		return fmt.Errorf("cmaa: %s pass: %w", ps.name, err)
	}
	return nil
}

// transfer records the move of the working texture into destination.
func (m *Manager) transfer(destination gpucore.TextureID, copyRequested bool) error {
	dst, err := m.textureInfo("destination", destination)
	if err != nil {
		return err
	}
	method := SelectTransfer(gpucore.TextureFormatRGBA8Unorm, dst, copyRequested)
	if copyRequested && method != TransferDirectCopy {
		m.log.Warn("cmaa: copy transfer not possible, drawing instead", "destination", dst.Format, "method", method)
	}

	switch method {
	case TransferDirectCopy:
		err = m.dev.CopyTexture(m.pool.working, destination)
	case TransferDirectDraw:
		if err = m.pool.target(resWorking, m.pool.working); err == nil {
			err = m.dev.BlitFramebuffer(m.pool.fb, destination)
		}
	case TransferDrawAndCopy:
		var tmp gpucore.TextureID
		tmp, err = m.pool.transferTexture(dst.Format)
		if err == nil {
			err = m.pool.target(resWorking, m.pool.working)
		}
		if err == nil {
			err = m.dev.BlitFramebuffer(m.pool.fb, tmp)
		}
		if err == nil {
			err = m.dev.CopyTexture(tmp, destination)
		}
	default:
		err = fmt.Errorf("%w: destination %v", ErrUnsupportedFormat, dst.Format)
	}
	if err != nil {
		return fmt.Errorf("cmaa: %v transfer: %w", method, err)
	}
	return nil
}
